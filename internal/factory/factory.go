// Package factory constructs the store and the wired service graph
// from configuration. Everything is injected explicitly so a test can
// assemble multiple independent cell nodes in one process.
package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/api"
	"github.com/vanj900/cellgov/internal/chain"
	"github.com/vanj900/cellgov/internal/config"
	"github.com/vanj900/cellgov/internal/relay"
	"github.com/vanj900/cellgov/internal/services"
	"github.com/vanj900/cellgov/internal/store"
	"github.com/vanj900/cellgov/internal/store/postgres"
	"github.com/vanj900/cellgov/internal/store/sqlite"
	"github.com/vanj900/cellgov/internal/syncq"
	"github.com/vanj900/cellgov/internal/transport"
)

// NewStore opens the durable store selected by the configuration.
func NewStore(cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	case "postgres":
		return postgres.New(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}

// NewDeps wires the full service graph over a store.
func NewDeps(cfg *config.Config, st store.Store, log zerolog.Logger) (api.Deps, error) {
	ledger := chain.New(st.Chain(), log)

	if len(cfg.RelayURLs) > 0 {
		pub, err := relay.NewPublisher(cfg.RelayURLs, cfg.RelaySecretKey, log)
		if err != nil {
			return api.Deps{}, err
		}
		ledger.SetPublisher(pub)
	}

	incentive := services.NewIncentiveService(st, ledger, log)
	governance := services.NewGovernanceService(st, ledger, incentive, services.GovernanceConfig{
		Quorum:       cfg.Quorum,
		TiePasses:    cfg.TiePasses,
		StrictQuorum: cfg.StrictQuorum,
	}, log)
	deeds := services.NewDeedService(st, ledger, services.DeedConfig{
		RecoveryFactor:    cfg.RecoveryFactor,
		VerifyEndorsement: cfg.VerifyEndorsement,
		ScarWeight:        1.0,
	}, log)
	repCfg := services.DefaultReputationConfig()
	repCfg.HalfLife = cfg.ReputationHalfLife
	repCfg.ScarPenalty = cfg.ScarPenalty
	reputation := services.NewReputationService(st, repCfg, log)
	identity := services.NewIdentityService(st, log)

	engine := syncq.NewEngine(st, transport.NewHTTP(cfg.Peers), syncq.Config{
		Timeout:  cfg.SyncTimeout,
		Interval: cfg.SyncInterval,
	}, log)
	receiver := syncq.NewReceiver(st, services.NewMessageHandler(governance, reputation, log), log)

	return api.Deps{
		Log:        log,
		Store:      st,
		Chain:      ledger,
		Identity:   identity,
		Governance: governance,
		Deeds:      deeds,
		Reputation: reputation,
		Incentive:  incentive,
		Sync:       engine,
		Receiver:   receiver,
	}, nil
}
