// Package salience computes importance scores: initial seeding,
// lazy exponential time-decay, retrieval reinforcement and the hybrid
// multi-signal ranking formula.
package salience

import (
	"math"
	"time"

	"github.com/engramkit/engram/internal/model"
)

// Weights is the tunable configuration for the hybrid score. Each input
// signal is pre-normalized to [0,1] by the caller.
type Weights struct {
	Similarity   float64 `json:"similarity"`
	TokenOverlap float64 `json:"token_overlap"`
	Waypoint     float64 `json:"waypoint"`
	Recency      float64 `json:"recency"`
	TagMatch     float64 `json:"tag_match"`
	Keyword      float64 `json:"keyword"`
}

// DefaultWeights favors similarity and keyword match slightly, as the
// most discriminative signals.
func DefaultWeights() Weights {
	return Weights{
		Similarity:   0.25,
		TokenOverlap: 0.15,
		Waypoint:     0.15,
		Recency:      0.10,
		TagMatch:     0.10,
		Keyword:      0.25,
	}
}

const (
	// RetrievalBoost is added to salience each time a memory is
	// surfaced by a search, clamped to 1.
	RetrievalBoost = 0.1
	// DuplicateBoost is added to an existing memory's salience when a
	// near-duplicate candidate is discarded.
	DuplicateBoost = 0.15
)

// sectorBase seeds relative importance per sector.
var sectorBase = map[model.Sector]float64{
	model.SectorSemantic:   0.6,
	model.SectorEpisodic:   0.5,
	model.SectorProcedural: 0.55,
	model.SectorEmotional:  0.5,
	model.SectorReflective: 0.55,
}

// Initial seeds a new memory's salience from its sector base weight and
// classification confidence.
func Initial(sec model.Sector, confidence float64) float64 {
	base, ok := sectorBase[sec]
	if !ok {
		base = 0.5
	}
	return model.Clamp01(base * (0.5 + 0.5*model.Clamp01(confidence)))
}

// Decayed returns the memory's salience at the given instant:
// salience * exp(-λ·Δt) with Δt in days since last reinforcement.
// Decay is evaluated lazily at read time, never by a background job.
func Decayed(m *model.Memory, now time.Time) float64 {
	dt := now.Sub(m.LastSeenAt).Hours() / 24
	if dt <= 0 {
		return model.Clamp01(m.Salience)
	}
	return model.Clamp01(m.Salience * math.Exp(-m.DecayRate*dt))
}

// Reinforce returns the salience after a retrieval boost.
func Reinforce(current float64) float64 {
	return model.Clamp01(current + RetrievalBoost)
}

// Hybrid combines the six ranking signals under the configured weights.
// Inputs outside [0,1] are clamped before weighting.
func Hybrid(w Weights, b model.ScoreBreakdown) float64 {
	total := w.Similarity + w.TokenOverlap + w.Waypoint + w.Recency + w.TagMatch + w.Keyword
	if total <= 0 {
		return 0
	}
	sum := w.Similarity*model.Clamp01(b.Similarity) +
		w.TokenOverlap*model.Clamp01(b.TokenOverlap) +
		w.Waypoint*model.Clamp01(b.WaypointWeight) +
		w.Recency*model.Clamp01(b.Recency) +
		w.TagMatch*model.Clamp01(b.TagMatch) +
		w.Keyword*model.Clamp01(b.Keyword)
	return model.Clamp01(sum / total)
}
