// Package model defines the core memory data types.
package model

import "time"

// Sector is one of five cognitive categories used to bucket memories
// and bias decay and scoring.
type Sector string

const (
	SectorSemantic   Sector = "semantic"
	SectorEpisodic   Sector = "episodic"
	SectorProcedural Sector = "procedural"
	SectorEmotional  Sector = "emotional"
	SectorReflective Sector = "reflective"
)

// Sectors lists all valid sectors.
var Sectors = []Sector{
	SectorSemantic,
	SectorEpisodic,
	SectorProcedural,
	SectorEmotional,
	SectorReflective,
}

// Valid reports whether s is a known sector.
func (s Sector) Valid() bool {
	switch s {
	case SectorSemantic, SectorEpisodic, SectorProcedural, SectorEmotional, SectorReflective:
		return true
	}
	return false
}

// DecayRate returns the per-day exponential decay constant for the sector.
// Semantic facts persist longest; emotional memories fade fastest.
func (s Sector) DecayRate() float64 {
	switch s {
	case SectorSemantic:
		return 0.01
	case SectorReflective:
		return 0.015
	case SectorProcedural:
		return 0.02
	case SectorEpisodic:
		return 0.03
	case SectorEmotional:
		return 0.05
	default:
		return 0.01
	}
}

// Memory is the unit of retrieval: a normalized, third-person, atomic
// factual statement with scoring metadata.
//
// Fingerprint and Sector never change after creation. Only Salience,
// LastSeenAt and IsActive mutate.
type Memory struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Sector      Sector     `json:"sector"`
	Confidence  float64    `json:"confidence"`
	Tags        []string   `json:"tags,omitempty"`
	Fingerprint uint64     `json:"fingerprint"`
	Embedding   []float32  `json:"embedding,omitempty"`
	Salience    float64    `json:"salience"`
	DecayRate   float64    `json:"decay_rate"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Segment     int        `json:"segment"`
	SourceID    string     `json:"source_id,omitempty"`
	SourceApp   string     `json:"source_app,omitempty"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the memory has passed its expiry at the given time.
func (m *Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// Waypoint is a weighted directed edge linking two memories by semantic
// relatedness. Weight is clamped to [0,1] at every write site.
type Waypoint struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AtomicFact is one extracted candidate fact, as produced by an upstream
// extraction service or the fallback essence extractor.
type AtomicFact struct {
	Content    string     `json:"content"`
	Sector     Sector     `json:"sector,omitempty"` // empty = classify from content
	Confidence float64    `json:"confidence"`
	Tags       []string   `json:"tags,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Source identifies the raw capture a fact came from.
type Source struct {
	ID  string `json:"id"`
	App string `json:"app,omitempty"`
}

// ScoredResult is a ranked search hit. Path holds the waypoint traversal
// that surfaced the memory (just the memory's own ID for direct hits).
type ScoredResult struct {
	Memory *Memory         `json:"memory"`
	Score  float64         `json:"score"`
	Path   []string        `json:"path,omitempty"`
	Debug  *ScoreBreakdown `json:"debug,omitempty"`
}

// ScoreBreakdown exposes the individual signals behind a hybrid score.
type ScoreBreakdown struct {
	Similarity     float64 `json:"similarity"`
	TokenOverlap   float64 `json:"token_overlap"`
	WaypointWeight float64 `json:"waypoint_weight"`
	Recency        float64 `json:"recency"`
	TagMatch       float64 `json:"tag_match"`
	Keyword        float64 `json:"keyword"`
}

// Clamp01 bounds v to [0,1]. Every salience, confidence and weight
// mutation goes through this.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
