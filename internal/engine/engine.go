// Package engine is the retrieval core: the hybrid search orchestrator
// and the memory creation pipeline, wired over the durable store, the
// embedding service, the classifier and the waypoint graph.
package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/essence"
	"github.com/engramkit/engram/internal/observe"
	"github.com/engramkit/engram/internal/salience"
	"github.com/engramkit/engram/internal/sector"
	"github.com/engramkit/engram/internal/store"
)

// Config holds the engine's tunable surface.
type Config struct {
	// Weights for the hybrid ranking formula.
	Weights salience.Weights

	// CacheTTL bounds how long a ranked result may be served without
	// re-running the pipeline. Writes do not invalidate the cache;
	// slightly stale top-N results are acceptable inside the window.
	CacheTTL time.Duration

	// VectorMinScore filters vector-search candidates.
	VectorMinScore float64

	// LowConfidenceMean triggers waypoint expansion when the mean
	// vector similarity of direct hits falls below it.
	LowConfidenceMean float64

	// MaxExpansion bounds how many nodes graph expansion may discover.
	MaxExpansion int

	// MaxKeywords caps how many query keywords drive lexical search.
	MaxKeywords int

	// SegmentCapacity is how many memories a segment holds before a
	// new one starts.
	SegmentCapacity int

	// IngestDelay is the fixed pause between items of a batch, a
	// backpressure valve for rate-limited upstream services.
	IngestDelay time.Duration

	// EssenceMaxLen caps the condensed essence of raw text.
	EssenceMaxLen int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Weights:           salience.DefaultWeights(),
		CacheTTL:          60 * time.Second,
		VectorMinScore:    0.2,
		LowConfidenceMean: 0.55,
		MaxExpansion:      20,
		MaxKeywords:       5,
		SegmentCapacity:   100,
		IngestDelay:       200 * time.Millisecond,
		EssenceMaxLen:     200,
	}
}

// Engine owns one search session: its cache and in-flight scoring are
// confined to it, and the store is its single shared dependency.
type Engine struct {
	store      store.Store
	embedder   embedding.Embedder // nil = embeddings disabled
	classifier *sector.Classifier
	extractor  *essence.Extractor
	cfg        Config
	cache      *ristretto.Cache
	obs        *observe.Observer
}

// New constructs an Engine. The embedder may be nil, in which case
// search runs on the lexical path only.
func New(st store.Store, emb embedding.Embedder, obs *observe.Observer, cfg Config) (*Engine, error) {
	if obs == nil {
		obs = observe.New(os.Stderr, false)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	classifier := sector.New()
	return &Engine{
		store:      st,
		embedder:   emb,
		classifier: classifier,
		extractor:  essence.New(classifier),
		cfg:        cfg,
		cache:      cache,
		obs:        obs,
	}, nil
}

// Close releases the engine's cache.
func (e *Engine) Close() {
	e.cache.Close()
}
