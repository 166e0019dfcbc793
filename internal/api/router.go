package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/api/recovery"
	"github.com/vanj900/cellgov/internal/chain"
	"github.com/vanj900/cellgov/internal/services"
	"github.com/vanj900/cellgov/internal/store"
	"github.com/vanj900/cellgov/internal/syncq"
)

// Deps bundles the constructed services the router exposes. Stores and
// chains are owned by the caller and injected here, never process-wide
// singletons, so multiple cell nodes can run in one test process.
type Deps struct {
	Log        zerolog.Logger
	Store      store.Store
	Chain      *chain.Chain
	Identity   *services.IdentityService
	Governance *services.GovernanceService
	Deeds      *services.DeedService
	Reputation *services.ReputationService
	Incentive  *services.IncentiveService
	Sync       *syncq.Engine
	Receiver   *syncq.Receiver
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware(d.Log))

	healthHandler := NewHealthHandler(d.Store)
	identityHandler := NewIdentityHandler(d.Identity)
	governanceHandler := NewGovernanceHandler(d.Governance)
	deedHandler := NewDeedHandler(d.Deeds)
	reputationHandler := NewReputationHandler(d.Reputation)
	incentiveHandler := NewIncentiveHandler(d.Incentive)
	chainHandler := NewChainHandler(d.Chain)
	syncHandler := NewSyncHandler(d.Sync)

	// Health endpoints
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/health/db", healthHandler.CheckStorageHealth).Methods("GET")

	// Identity & credentials
	router.HandleFunc("/api/identities", identityHandler.CreateIdentity).Methods("POST")
	router.HandleFunc("/api/identities", identityHandler.ListIdentities).Methods("GET")
	router.HandleFunc("/api/identities/{identityId}", identityHandler.GetIdentity).Methods("GET")
	router.HandleFunc("/api/identities/{identityId}/status", identityHandler.SetIdentityStatus).Methods("POST")
	router.HandleFunc("/api/credentials", identityHandler.IssueCredential).Methods("POST")
	router.HandleFunc("/api/credentials/{credentialId}/verify", identityHandler.VerifyCredential).Methods("POST")
	router.HandleFunc("/api/credentials/{credentialId}/disclose", identityHandler.DiscloseCredential).Methods("POST")
	router.HandleFunc("/api/credentials/{credentialId}/revoke", identityHandler.RevokeCredential).Methods("POST")

	// Governance
	router.HandleFunc("/api/proposals", governanceHandler.CreateProposal).Methods("POST")
	router.HandleFunc("/api/proposals/{proposalId}", governanceHandler.GetProposal).Methods("GET")
	router.HandleFunc("/api/proposals/{proposalId}/votes", governanceHandler.Vote).Methods("POST")
	router.HandleFunc("/api/proposals/{proposalId}/tally", governanceHandler.Tally).Methods("POST")

	// Deeds, scars, recovery
	router.HandleFunc("/api/deeds", deedHandler.SubmitDeed).Methods("POST")
	router.HandleFunc("/api/deeds/{deedId}", deedHandler.GetDeed).Methods("GET")
	router.HandleFunc("/api/deeds/{deedId}/verify", deedHandler.VerifyDeed).Methods("POST")
	router.HandleFunc("/api/deeds/{deedId}/scars", deedHandler.RaiseScar).Methods("POST")
	router.HandleFunc("/api/scars/{scarId}", deedHandler.GetScar).Methods("GET")
	router.HandleFunc("/api/scars/{scarId}/recovery", deedHandler.SubmitRecovery).Methods("POST")
	router.HandleFunc("/api/recoveries/{recoveryId}/review", deedHandler.ReviewRecovery).Methods("POST")

	// Reputation
	router.HandleFunc("/api/endorsements", reputationHandler.AddEndorsement).Methods("POST")
	router.HandleFunc("/api/reputation", reputationHandler.ComputeScores).Methods("GET")

	// Incentives
	router.HandleFunc("/api/accounts", incentiveHandler.RegisterAccount).Methods("POST")
	router.HandleFunc("/api/accounts/{identityId}", incentiveHandler.GetAccount).Methods("GET")
	router.HandleFunc("/api/accounts/{identityId}/rewards", incentiveHandler.Reward).Methods("POST")

	// Chain
	router.HandleFunc("/api/chain", chainHandler.ShowChain).Methods("GET")
	router.HandleFunc("/api/chain/verify", chainHandler.VerifyChain).Methods("GET")

	// Durable queue
	router.HandleFunc("/api/messages", syncHandler.EnqueueMessage).Methods("POST")
	router.HandleFunc("/api/sync/{peer}", syncHandler.SyncPeer).Methods("POST")
	router.HandleFunc("/api/receive", NewReceiveHandler(d.Receiver).Receive).Methods("POST")

	return router
}
