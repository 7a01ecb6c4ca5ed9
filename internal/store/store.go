// Package store provides the durable memory store interface and its
// SQLite implementation.
package store

import (
	"context"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/model"
)

// EmbeddingRef pairs a memory ID with its stored embedding.
type EmbeddingRef struct {
	ID        string
	Embedding embedding.Vector
}

// VectorHit is one vector-search result with its raw cosine similarity.
type VectorHit struct {
	Memory     model.Memory
	Similarity float64
}

// Store is the durable store the retrieval core depends on. All
// operations are atomic from the core's perspective.
type Store interface {
	// SaveMemories persists new memories.
	SaveMemories(ctx context.Context, memories []*model.Memory) error

	// FetchAllMemories returns stored memories, excluding inactive and
	// expired ones when activeOnly is set.
	FetchAllMemories(ctx context.Context, activeOnly bool) ([]model.Memory, error)

	// FetchMemoriesWithEmbeddings returns the (id, embedding) pairs of
	// all active memories that have an embedding.
	FetchMemoriesWithEmbeddings(ctx context.Context) ([]EmbeddingRef, error)

	// SearchByEmbedding returns the topK active memories by cosine
	// similarity to the query vector, descending, filtered by minScore.
	SearchByEmbedding(ctx context.Context, query embedding.Vector, topK int, minScore float64) ([]VectorHit, error)

	// SearchMemories finds active memories by case-insensitive
	// substring match over content.
	SearchMemories(ctx context.Context, textQuery string) ([]model.Memory, error)

	// HasMemory reports whether an active memory with exactly this
	// content exists (case-insensitive).
	HasMemory(ctx context.Context, exactContent string) (bool, error)

	// FindNearDuplicate returns an active memory whose fingerprint is
	// within the near-duplicate threshold of the content's, or nil.
	FindNearDuplicate(ctx context.Context, content string) (*model.Memory, error)

	// BoostSalience adds delta to a memory's salience, clamped to
	// [0,1], and refreshes its last-seen time.
	BoostSalience(ctx context.Context, id string, delta float64) error

	// Deactivate soft-deletes a memory; it is retained for audit but
	// excluded from all retrieval and scoring.
	Deactivate(ctx context.Context, id string) error

	// Delete removes a memory permanently, including its waypoints.
	Delete(ctx context.Context, id string) error

	// CurrentSegment returns the segment a new memory should join: the
	// latest segment, or the next one once it has reached capacity.
	CurrentSegment(ctx context.Context, capacity int) (int, error)

	// FetchAllWaypoints returns every stored waypoint.
	FetchAllWaypoints(ctx context.Context) ([]model.Waypoint, error)

	// FetchWaypoints returns the outbound waypoints of one memory.
	FetchWaypoints(ctx context.Context, sourceID string) ([]model.Waypoint, error)

	// SaveWaypoint inserts a waypoint, or strengthens the existing edge
	// between the same pair to the larger weight.
	SaveWaypoint(ctx context.Context, w *model.Waypoint) error

	// LogProcessing appends to the ingestion audit trail. Fire and
	// forget: callers swallow its error.
	LogProcessing(ctx context.Context, sourceID string, worth bool, reason string, extractedCount int) error

	// Close closes the store.
	Close() error
}
