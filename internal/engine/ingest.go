package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/engramkit/engram/internal/essence"
	"github.com/engramkit/engram/internal/fingerprint"
	"github.com/engramkit/engram/internal/model"
	"github.com/engramkit/engram/internal/salience"
	"github.com/engramkit/engram/internal/sector"
	"github.com/engramkit/engram/internal/waypoint"
)

// Ingest runs the creation pipeline for one atomic fact: classify,
// dedup-check, score, persist, link. A detected duplicate reinforces
// the existing memory instead of creating a new one.
//
// Store failures abort ingestion; audit logging and linking are
// best-effort.
func (e *Engine) Ingest(ctx context.Context, fact model.AtomicFact, src model.Source) error {
	if fact.Content == "" {
		return fmt.Errorf("empty fact content")
	}

	// Cheap first pass: exact content match. The fingerprint scan
	// behind it catches paraphrase-level duplicates and resolves the
	// matching row either way.
	exists, err := e.store.HasMemory(ctx, fact.Content)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	dup, err := e.store.FindNearDuplicate(ctx, fact.Content)
	if err != nil {
		return fmt.Errorf("near-duplicate check: %w", err)
	}
	if dup == nil && exists {
		// Exact match whose fingerprint drifted out of range; treat
		// the content as already known and stop.
		e.audit(ctx, src.ID, true, "exact duplicate", 0)
		return nil
	}
	if dup != nil {
		if err := e.store.BoostSalience(ctx, dup.ID, salience.DuplicateBoost); err != nil {
			return fmt.Errorf("reinforce duplicate: %w", err)
		}
		e.obs.Log().Info().Str("memory", dup.ID).Msg("duplicate reinforced")
		e.audit(ctx, src.ID, true, "duplicate of "+dup.ID, 0)
		return nil
	}

	var cls sector.Classification
	if fact.Sector.Valid() {
		cls = e.classifier.Forced(fact.Sector)
	} else {
		cls = e.classifier.Classify(fact.Content)
	}
	confidence := fact.Confidence
	if confidence == 0 {
		confidence = cls.Confidence
	}

	tags := fact.Tags
	if len(tags) == 0 {
		tags = essence.DeriveTags(fact.Content, cls.Primary)
	}

	now := time.Now().UTC()
	mem := &model.Memory{
		Content:     fact.Content,
		Sector:      cls.Primary,
		Confidence:  model.Clamp01(confidence),
		Tags:        tags,
		Fingerprint: fingerprint.Hash(fact.Content),
		Salience:    salience.Initial(cls.Primary, confidence),
		DecayRate:   cls.Primary.DecayRate(),
		LastSeenAt:  now,
		CreatedAt:   now,
		SourceID:    src.ID,
		SourceApp:   src.App,
		IsActive:    true,
		ExpiresAt:   fact.ExpiresAt,
	}

	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, fact.Content)
		if err != nil {
			e.obs.Log().Warn().Err(err).Msg("embedding unavailable, storing without vector")
		} else {
			mem.Embedding = vec
		}
	}

	segment, err := e.store.CurrentSegment(ctx, e.cfg.SegmentCapacity)
	if err != nil {
		return fmt.Errorf("assign segment: %w", err)
	}
	mem.Segment = segment

	if err := e.store.SaveMemories(ctx, []*model.Memory{mem}); err != nil {
		return fmt.Errorf("save memory: %w", err)
	}

	e.link(ctx, mem)
	e.audit(ctx, src.ID, true, "stored", 1)
	return nil
}

// link connects a freshly created memory to its single best existing
// match. Linking is best-effort: the memory is already persisted.
func (e *Engine) link(ctx context.Context, mem *model.Memory) {
	if len(mem.Embedding) == 0 {
		return
	}
	refs, err := e.store.FetchMemoriesWithEmbeddings(ctx)
	if err != nil {
		e.obs.Log().Warn().Err(err).Msg("linking skipped: fetch embeddings failed")
		return
	}
	candidates := make([]waypoint.Candidate, 0, len(refs))
	for _, r := range refs {
		if r.ID == mem.ID {
			continue
		}
		candidates = append(candidates, waypoint.Candidate{ID: r.ID, Embedding: r.Embedding})
	}

	targetID, sim, ok := waypoint.BestTarget(mem.Embedding, candidates)
	if !ok {
		return
	}
	w := &model.Waypoint{SourceID: mem.ID, TargetID: targetID, Weight: sim}
	if err := e.store.SaveWaypoint(ctx, w); err != nil {
		e.obs.Log().Warn().Str("memory", mem.ID).Err(err).Msg("waypoint creation failed")
		return
	}
	e.obs.Log().Info().Str("memory", mem.ID).Str("target", targetID).Msg("waypoint created")
}

// IngestBatch processes facts strictly one at a time with a fixed
// inter-item delay, as backpressure toward rate-limited upstream
// services. The first store failure aborts the batch.
func (e *Engine) IngestBatch(ctx context.Context, facts []model.AtomicFact, src model.Source) error {
	for i, fact := range facts {
		if i > 0 && e.cfg.IngestDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.cfg.IngestDelay):
			}
		}
		if err := e.Ingest(ctx, fact, src); err != nil {
			return fmt.Errorf("ingest fact %d: %w", i, err)
		}
	}
	return nil
}

// IngestText runs the no-LLM capture path: the worthiness pre-filter
// followed by the fallback essence extractor. Text judged not worth
// remembering is reported in the audit trail, not as an error.
func (e *Engine) IngestText(ctx context.Context, raw string, src model.Source) (int, error) {
	worth, reason := sector.WorthRemembering(raw)
	if !worth {
		e.audit(ctx, src.ID, false, reason, 0)
		return 0, nil
	}

	facts := e.extractor.Atomic(raw)
	if len(facts) == 0 {
		e.audit(ctx, src.ID, false, "no atomic facts extracted", 0)
		return 0, nil
	}

	if err := e.IngestBatch(ctx, facts, src); err != nil {
		return 0, err
	}
	e.audit(ctx, src.ID, true, reason, len(facts))
	return len(facts), nil
}

// Essence condenses raw text using the fallback extractor.
func (e *Engine) Essence(input string, sec model.Sector) string {
	return e.extractor.Essence(input, sec, e.cfg.EssenceMaxLen)
}

// audit appends to the processing log, fire-and-forget.
func (e *Engine) audit(ctx context.Context, sourceID string, worth bool, reason string, extracted int) {
	if err := e.store.LogProcessing(ctx, sourceID, worth, reason, extracted); err != nil {
		e.obs.Log().Warn().Err(err).Msg("audit log write failed")
	}
}
