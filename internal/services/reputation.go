package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// ReputationConfig tunes the score projection.
type ReputationConfig struct {
	// HalfLife controls demurrage: an edge's effective weight at read
	// time is weight * exp(-age / HalfLife).
	HalfLife time.Duration
	// Epsilon is the L1 convergence threshold for the iteration.
	Epsilon float64
	// MaxIterations caps the iteration regardless of convergence.
	MaxIterations int
	// ScarPenalty scales how much unresolved scar weight subtracts from
	// an identity's score before renormalization.
	ScarPenalty float64
}

// DefaultReputationConfig returns the conventional parameters.
func DefaultReputationConfig() ReputationConfig {
	return ReputationConfig{
		HalfLife:      720 * time.Hour,
		Epsilon:       1e-9,
		MaxIterations: 100,
		ScarPenalty:   0.05,
	}
}

// ReputationService derives trust scores from the endorsement graph and
// the deed/scar history. Scores are a read-side projection over a
// snapshot, never persisted as ground truth; recomputation can run
// concurrently with chain appends.
type ReputationService struct {
	store store.Store
	cfg   ReputationConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewReputationService(s store.Store, cfg ReputationConfig, log zerolog.Logger) *ReputationService {
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = 720 * time.Hour
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 1e-9
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}
	return &ReputationService{store: s, cfg: cfg, log: log, now: time.Now}
}

// AddEndorsement accumulates weight on the directed (from, to) edge.
func (s *ReputationService) AddEndorsement(ctx context.Context, fromID, toID string, weight float64) error {
	if weight <= 0 {
		return fmt.Errorf("endorsement weight must be positive, got %g: %w", weight, model.ErrValidation)
	}
	if fromID == toID {
		return fmt.Errorf("identity %s cannot endorse itself: %w", fromID, model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, fromID); err != nil {
		return err
	}
	if _, err := s.store.Identities().Get(ctx, toID); err != nil {
		return err
	}
	return s.store.Endorsements().Upsert(ctx, fromID, toID, weight)
}

// ComputeScores runs an eigenvector-style propagation over the
// endorsement graph: each identity's score is the weighted sum of the
// scores of identities endorsing it, renormalized to sum to 1 every
// pass, iterated to convergence or the hard cap. Edge weights decay
// with age (demurrage) and unresolved scars subtract from the owner's
// score before the final normalization.
func (s *ReputationService) ComputeScores(ctx context.Context) (map[string]float64, error) {
	identities, err := s.store.Identities().List(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.Endorsements().List(ctx)
	if err != nil {
		return nil, err
	}
	scarWeight, err := s.store.Scars().OpenWeightByOwner(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make([]string, 0, len(identities))
	index := make(map[string]int, len(identities))
	for _, id := range identities {
		index[id.ID] = len(nodes)
		nodes = append(nodes, id.ID)
	}
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}, nil
	}

	// in[to] holds the decayed incoming edges.
	type inEdge struct {
		from   int
		weight float64
	}
	incoming := make([][]inEdge, n)
	now := s.now()
	for _, e := range edges {
		fi, ok1 := index[e.FromID]
		ti, ok2 := index[e.ToID]
		if !ok1 || !ok2 {
			continue
		}
		age := now.Sub(e.UpdateTime)
		w := e.Weight * math.Exp(-age.Seconds()/s.cfg.HalfLife.Seconds())
		if w <= 0 {
			continue
		}
		incoming[ti] = append(incoming[ti], inEdge{from: fi, weight: w})
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < s.cfg.MaxIterations; iter++ {
		var total float64
		for i := range next {
			var sum float64
			for _, e := range incoming[i] {
				sum += e.weight * scores[e.from]
			}
			next[i] = sum
			total += sum
		}
		if total == 0 {
			// No live edges: fall back to the uniform distribution.
			for i := range next {
				next[i] = 1.0 / float64(n)
			}
			total = 1
		}
		var delta float64
		for i := range next {
			next[i] /= total
			delta += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores
		if delta < s.cfg.Epsilon {
			break
		}
	}

	// Scar penalty, then a final renormalization so scores stay a
	// distribution.
	var total float64
	for i, id := range nodes {
		if w, ok := scarWeight[id]; ok && s.cfg.ScarPenalty > 0 {
			scores[i] = math.Max(0, scores[i]-s.cfg.ScarPenalty*w)
		}
		total += scores[i]
	}
	out := make(map[string]float64, n)
	for i, id := range nodes {
		if total > 0 {
			out[id] = scores[i] / total
		} else {
			out[id] = 0
		}
	}
	return out, nil
}
