package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/chain"
	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
	"github.com/vanj900/cellgov/internal/store/sqlite"
)

// testEnv wires every service over a throwaway SQLite store so tests
// exercise the same paths the node runs in production.
type testEnv struct {
	store      store.Store
	chain      *chain.Chain
	identity   *IdentityService
	governance *GovernanceService
	deeds      *DeedService
	reputation *ReputationService
	incentive  *IncentiveService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, DefaultGovernanceConfig(), DefaultDeedConfig(), DefaultReputationConfig())
}

func newTestEnvWith(t *testing.T, gc GovernanceConfig, dc DeedConfig, rc ReputationConfig) *testEnv {
	t.Helper()
	return newTestEnvOver(t, newSQLiteStore(t), gc, dc, rc)
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "services-test.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	return st
}

func newTestEnvOver(t *testing.T, st store.Store, gc GovernanceConfig, dc DeedConfig, rc ReputationConfig) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	ch := chain.New(st.Chain(), log)
	inc := NewIncentiveService(st, ch, log)
	return &testEnv{
		store:      st,
		chain:      ch,
		identity:   NewIdentityService(st, log),
		governance: NewGovernanceService(st, ch, inc, gc, log),
		deeds:      NewDeedService(st, ch, dc, log),
		reputation: NewReputationService(st, rc, log),
		incentive:  inc,
	}
}

// mustIdentity registers a member or fails the test.
func (e *testEnv) mustIdentity(t *testing.T, owner string) *model.Identity {
	t.Helper()
	id, err := e.identity.Create(context.Background(), owner)
	if err != nil {
		t.Fatalf("create identity %s: %v", owner, err)
	}
	return id
}

// brokenAppendStore wraps a real store and fails the next n chain
// appends, inside and outside transactions, to simulate a store that
// errors mid-write and then recovers.
type brokenAppendStore struct {
	store.Store
	remaining *int
}

func (b *brokenAppendStore) Chain() store.Chain {
	return &brokenAppendChain{Chain: b.Store.Chain(), remaining: b.remaining}
}

func (b *brokenAppendStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	return b.Store.InTx(ctx, func(tx store.Store) error {
		return fn(&brokenAppendStore{Store: tx, remaining: b.remaining})
	})
}

type brokenAppendChain struct {
	store.Chain
	remaining *int
}

func (c *brokenAppendChain) Append(ctx context.Context, e *model.ChainEntry) error {
	if *c.remaining > 0 {
		*c.remaining--
		return errAppendBroken
	}
	return c.Chain.Append(ctx, e)
}

var errAppendBroken = errors.New("chain append unavailable")

// chainKinds returns the entry kinds in append order.
func (e *testEnv) chainKinds(t *testing.T) []string {
	t.Helper()
	entries, err := e.chain.Entries(context.Background())
	if err != nil {
		t.Fatalf("chain entries: %v", err)
	}
	kinds := make([]string, 0, len(entries))
	for _, entry := range entries {
		kinds = append(kinds, entry.Kind)
	}
	return kinds
}
