package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanj900/cellgov/internal/api"
	"github.com/vanj900/cellgov/internal/config"
	"github.com/vanj900/cellgov/internal/factory"
	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/services"
)

// newTestNode assembles one full cell node over a throwaway SQLite file
// and serves its API from an httptest server. peers may be nil.
func newTestNode(t *testing.T, name string, peers map[string]string) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		DBDriver:       "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), name+".db"),
		Quorum:         0.5,
		RecoveryFactor: 0.3,
		Peers:          peers,
	}
	require.NoError(t, cfg.ResolveDefaults())

	st, err := factory.NewStore(cfg)
	require.NoError(t, err)
	deps, err := factory.NewDeps(cfg, st, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createIdentity(t *testing.T, base, owner string) model.Identity {
	t.Helper()
	var id model.Identity
	resp := postJSON(t, base+"/api/identities", map[string]string{"owner": owner}, &id)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return id
}

func TestAPI_IdentityAndCredentialLifecycle(t *testing.T) {
	srv := newTestNode(t, "creds", nil)

	alice := createIdentity(t, srv.URL, "alice")
	bob := createIdentity(t, srv.URL, "bob")
	assert.NotEmpty(t, alice.PublicKey)

	// A second identity for the same owner conflicts.
	resp := postJSON(t, srv.URL+"/api/identities", map[string]string{"owner": "alice"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var cred model.Credential
	resp = postJSON(t, srv.URL+"/api/credentials", map[string]interface{}{
		"issuerId":  alice.ID,
		"subjectId": bob.ID,
		"type":      "membership",
		"claims":    map[string]string{"role": "member", "joined": "2025-01-01"},
	}, &cred)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, cred.JWS)

	var verdict struct {
		Valid bool `json:"valid"`
	}
	resp = postJSON(t, fmt.Sprintf("%s/api/credentials/%s/verify", srv.URL, cred.ID), nil, &verdict)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, verdict.Valid)

	var disclosed struct {
		Claims []model.DisclosedClaim `json:"claims"`
	}
	resp = postJSON(t, fmt.Sprintf("%s/api/credentials/%s/disclose", srv.URL, cred.ID),
		map[string]interface{}{"fields": []string{"role"}}, &disclosed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, disclosed.Claims, 1)
	assert.Equal(t, "member", disclosed.Claims[0].Value)
	assert.True(t, services.VerifyDisclosure(disclosed.Claims[0]))

	resp = postJSON(t, fmt.Sprintf("%s/api/credentials/%s/revoke", srv.URL, cred.ID),
		map[string]string{"issuerId": alice.ID}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, fmt.Sprintf("%s/api/credentials/%s/verify", srv.URL, cred.ID), nil, &verdict)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, verdict.Valid)

	// Members can go dormant without losing their record.
	var dormant model.Identity
	resp = postJSON(t, fmt.Sprintf("%s/api/identities/%s/status", srv.URL, bob.ID),
		map[string]string{"status": model.IdentityDormant}, &dormant)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.IdentityDormant, dormant.Status)

	resp = postJSON(t, fmt.Sprintf("%s/api/identities/%s/status", srv.URL, bob.ID),
		map[string]string{"status": "EXILED"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GovernanceRoundTrip(t *testing.T) {
	srv := newTestNode(t, "gov", nil)

	alice := createIdentity(t, srv.URL, "alice")
	bob := createIdentity(t, srv.URL, "bob")

	var p model.Proposal
	resp := postJSON(t, srv.URL+"/api/proposals", map[string]string{
		"proposerId":  alice.ID,
		"description": "rotate water duty weekly",
	}, &p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.ProposalOpen, p.State)

	voteURL := fmt.Sprintf("%s/api/proposals/%s/votes", srv.URL, p.ID)
	resp = postJSON(t, voteURL, map[string]string{"voterId": alice.ID, "choice": model.VoteApprove}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = postJSON(t, voteURL, map[string]string{"voterId": bob.ID, "choice": model.VoteApprove}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Bad choices and ghosts map to proper status codes.
	resp = postJSON(t, voteURL, map[string]string{"voterId": alice.ID, "choice": "MAYBE"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = postJSON(t, voteURL, map[string]string{"voterId": "ghost", "choice": model.VoteApprove}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var tallied model.Proposal
	resp = postJSON(t, fmt.Sprintf("%s/api/proposals/%s/tally", srv.URL, p.ID), nil, &tallied)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.ProposalPassed, tallied.State)

	// Voting after the tally conflicts.
	resp = postJSON(t, voteURL, map[string]string{"voterId": alice.ID, "choice": model.VoteReject}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The tally is visible on the chain and the chain verifies.
	var shown struct {
		Entries []model.ChainEntry `json:"entries"`
	}
	resp = getJSON(t, srv.URL+"/api/chain", &shown)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, shown.Entries, 1)
	assert.Equal(t, model.KindTally, shown.Entries[0].Kind)

	var verify struct {
		Valid bool `json:"valid"`
	}
	resp = getJSON(t, srv.URL+"/api/chain/verify", &verify)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, verify.Valid)
}

func TestAPI_DeedScarRecoveryFlow(t *testing.T) {
	srv := newTestNode(t, "deeds", nil)

	alice := createIdentity(t, srv.URL, "alice")
	bob := createIdentity(t, srv.URL, "bob")

	var deed model.Deed
	resp := postJSON(t, srv.URL+"/api/deeds", map[string]string{
		"ownerId":    alice.ID,
		"actionType": "water_delivery",
	}, &deed)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var scar model.Scar
	resp = postJSON(t, fmt.Sprintf("%s/api/deeds/%s/scars", srv.URL, deed.ID),
		map[string]string{"raiserId": bob.ID, "note": "never arrived"}, &scar)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1.0, scar.Weight)

	var rec model.RecoveryDeed
	resp = postJSON(t, fmt.Sprintf("%s/api/scars/%s/recovery", srv.URL, scar.ID),
		map[string]string{"recovererId": alice.ID, "note": "delivered twice over"}, &rec)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reviewed model.RecoveryDeed
	resp = postJSON(t, fmt.Sprintf("%s/api/recoveries/%s/review", srv.URL, rec.ID),
		map[string]interface{}{"reviewerId": bob.ID, "approve": true}, &reviewed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RecoveryApproved, reviewed.Status)

	var after model.Scar
	resp = getJSON(t, fmt.Sprintf("%s/api/scars/%s", srv.URL, scar.ID), &after)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.ScarResolved, after.Status)
	assert.InDelta(t, 0.3, after.Weight, 1e-9)
}

func TestAPI_SyncDeliversVotesBetweenNodes(t *testing.T) {
	// Node B holds the proposal; node A queues a vote for it while
	// "offline" and syncs once B is reachable.
	nodeB := newTestNode(t, "node-b", nil)
	nodeA := newTestNode(t, "node-a", map[string]string{"bob-node": nodeB.URL})

	alice := createIdentity(t, nodeB.URL, "alice")
	bob := createIdentity(t, nodeB.URL, "bob")

	var p model.Proposal
	resp := postJSON(t, nodeB.URL+"/api/proposals", map[string]string{
		"proposerId":  alice.ID,
		"description": "shared seed store",
	}, &p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = postJSON(t, fmt.Sprintf("%s/api/proposals/%s/votes", nodeB.URL, p.ID),
		map[string]string{"voterId": alice.ID, "choice": model.VoteApprove}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	votePayload, err := json.Marshal(map[string]interface{}{
		"op":         services.OpVote,
		"proposalId": p.ID,
		"voterId":    bob.ID,
		"choice":     model.VoteApprove,
	})
	require.NoError(t, err)

	resp = postJSON(t, nodeA.URL+"/api/messages", map[string]string{
		"sender":    "alice-node",
		"recipient": "bob-node",
		"payload":   base64.StdEncoding.EncodeToString(votePayload),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var synced struct {
		Delivered int `json:"delivered"`
	}
	resp = postJSON(t, nodeA.URL+"/api/sync/bob-node", nil, &synced)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, synced.Delivered)

	// The vote landed on node B.
	var stored model.Proposal
	resp = getJSON(t, fmt.Sprintf("%s/api/proposals/%s", nodeB.URL, p.ID), &stored)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.VoteApprove, stored.Votes[bob.ID])
	assert.Len(t, stored.Votes, 2)

	// Re-syncing delivers nothing more.
	resp = postJSON(t, nodeA.URL+"/api/sync/bob-node", nil, &synced)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, synced.Delivered)

	// An unknown peer is a no-op sync, not an error.
	resp = postJSON(t, nodeA.URL+"/api/sync/carol-node", nil, &synced)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, synced.Delivered)
}

func TestAPI_HealthEndpoints(t *testing.T) {
	srv := newTestNode(t, "health", nil)
	resp := getJSON(t, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = getJSON(t, srv.URL+"/api/health/db", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
