package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/fingerprint"
	"github.com/engramkit/engram/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testMemory(content string) *model.Memory {
	return &model.Memory{
		Content:     content,
		Sector:      model.SectorSemantic,
		Confidence:  0.8,
		Fingerprint: fingerprint.Hash(content),
		Salience:    0.6,
		DecayRate:   model.SectorSemantic.DecayRate(),
		IsActive:    true,
	}
}

func TestSaveAndFetchMemories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMemory("User lives in Portland")
	m.Tags = []string{"semantic", "location"}
	m.Embedding = embedding.Vector{0.1, 0.2, 0.3}
	m.SourceApp = "cli"

	if err := s.SaveMemories(ctx, []*model.Memory{m}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if m.ID == "" {
		t.Fatal("save should assign an ID")
	}

	memories, err := s.FetchAllMemories(ctx, true)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(memories))
	}

	got := memories[0]
	if got.ID != m.ID || got.Content != m.Content || got.Sector != m.Sector {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if got.Fingerprint != m.Fingerprint {
		t.Errorf("fingerprint mismatch: %x vs %x", got.Fingerprint, m.Fingerprint)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "location" {
		t.Errorf("tags mismatch: %v", got.Tags)
	}
	if len(got.Embedding) != 3 || got.Embedding[2] != 0.3 {
		t.Errorf("embedding mismatch: %v", got.Embedding)
	}
	if got.SourceApp != "cli" {
		t.Errorf("source app mismatch: %q", got.SourceApp)
	}
	if !got.IsActive {
		t.Error("memory should be active")
	}
}

func TestFetchAllMemories_ActiveFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := testMemory("active memory content")
	inactive := testMemory("inactive memory content")
	inactive.IsActive = false
	expired := testMemory("expired memory content")
	past := time.Now().UTC().Add(-time.Hour)
	expired.ExpiresAt = &past

	if err := s.SaveMemories(ctx, []*model.Memory{active, inactive, expired}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	all, err := s.FetchAllMemories(ctx, false)
	if err != nil {
		t.Fatalf("fetch all failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 total, got %d", len(all))
	}

	visible, err := s.FetchAllMemories(ctx, true)
	if err != nil {
		t.Fatalf("fetch active failed: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != active.ID {
		t.Fatalf("expected only the active memory, got %+v", visible)
	}
}

func TestBoostSalience_Clamped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMemory("boost target")
	m.Salience = 0.95
	if err := s.SaveMemories(ctx, []*model.Memory{m}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := s.BoostSalience(ctx, m.ID, 0.1); err != nil {
		t.Fatalf("boost failed: %v", err)
	}
	memories, _ := s.FetchAllMemories(ctx, true)
	if memories[0].Salience != 1.0 {
		t.Fatalf("salience = %f, want clamp to 1.0", memories[0].Salience)
	}

	if err := s.BoostSalience(ctx, m.ID, -5); err != nil {
		t.Fatalf("negative boost failed: %v", err)
	}
	memories, _ = s.FetchAllMemories(ctx, true)
	if memories[0].Salience != 0.0 {
		t.Fatalf("salience = %f, want floor at 0.0", memories[0].Salience)
	}
}

func TestHasMemory_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveMemories(ctx, []*model.Memory{testMemory("User prefers tea over coffee")}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	ok, err := s.HasMemory(ctx, "user prefers TEA over coffee")
	if err != nil {
		t.Fatalf("has failed: %v", err)
	}
	if !ok {
		t.Fatal("exact content should match case-insensitively")
	}
	ok, _ = s.HasMemory(ctx, "user prefers tea")
	if ok {
		t.Fatal("partial content must not count as exact")
	}
}

func TestFindNearDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orig := testMemory("I love playing guitar")
	if err := s.SaveMemories(ctx, []*model.Memory{orig}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	dup, err := s.FindNearDuplicate(ctx, "I really love playing the guitar")
	if err != nil {
		t.Fatalf("dedup scan failed: %v", err)
	}
	if dup == nil {
		t.Fatal("paraphrase should be detected as near-duplicate")
	}
	if dup.ID != orig.ID {
		t.Fatalf("wrong duplicate: %s", dup.ID)
	}

	none, err := s.FindNearDuplicate(ctx, "quarterly revenue report shipped behind schedule")
	if err != nil {
		t.Fatalf("dedup scan failed: %v", err)
	}
	if none != nil {
		t.Fatalf("unrelated content flagged as duplicate of %q", none.Content)
	}
}

func TestSearchMemories_Substring(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveMemories(ctx, []*model.Memory{
		testMemory("User plays guitar on weekends"),
		testMemory("User works at a bakery"),
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	hits, err := s.SearchMemories(ctx, "GUITAR")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Content != "User plays guitar on weekends" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchByEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	near := testMemory("near match")
	near.Embedding = embedding.Vector{0.9, 0.436, 0}
	mid := testMemory("mid match")
	mid.Embedding = embedding.Vector{0.5, 0.866, 0}
	far := testMemory("far match")
	far.Embedding = embedding.Vector{0, 1, 0}
	noVec := testMemory("no embedding at all")

	if err := s.SaveMemories(ctx, []*model.Memory{near, mid, far, noVec}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	hits, err := s.SearchByEmbedding(ctx, embedding.Vector{1, 0, 0}, 10, 0.2)
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above min score, got %d", len(hits))
	}
	if hits[0].Memory.ID != near.ID || hits[1].Memory.ID != mid.ID {
		t.Fatalf("hits out of order: %s, %s", hits[0].Memory.Content, hits[1].Memory.Content)
	}
	if hits[0].Similarity <= hits[1].Similarity {
		t.Fatal("similarities must be descending")
	}

	top1, err := s.SearchByEmbedding(ctx, embedding.Vector{1, 0, 0}, 1, 0.2)
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(top1) != 1 || top1[0].Memory.ID != near.ID {
		t.Fatalf("topK not honored: %+v", top1)
	}
}

func TestSaveWaypoint_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testMemory("memory a")
	b := testMemory("memory b")
	if err := s.SaveMemories(ctx, []*model.Memory{a, b}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := s.SaveWaypoint(ctx, &model.Waypoint{SourceID: a.ID, TargetID: b.ID, Weight: 0.5}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := s.SaveWaypoint(ctx, &model.Waypoint{SourceID: a.ID, TargetID: b.ID, Weight: 0.7}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.SaveWaypoint(ctx, &model.Waypoint{SourceID: a.ID, TargetID: b.ID, Weight: 0.6}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	edges, err := s.FetchWaypoints(ctx, a.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected a single edge, got %d", len(edges))
	}
	if edges[0].Weight != 0.7 {
		t.Fatalf("weight = %f, want strengthened to 0.7", edges[0].Weight)
	}
}

func TestSaveWaypoint_RejectsSelfEdge(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveWaypoint(context.Background(), &model.Waypoint{SourceID: "m1", TargetID: "m1", Weight: 0.9})
	if err == nil {
		t.Fatal("self-edge should be rejected")
	}
}

func TestDeactivateAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testMemory("kept memory")
	b := testMemory("removed memory")
	if err := s.SaveMemories(ctx, []*model.Memory{a, b}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.SaveWaypoint(ctx, &model.Waypoint{SourceID: a.ID, TargetID: b.ID, Weight: 0.6}); err != nil {
		t.Fatalf("waypoint save failed: %v", err)
	}

	if err := s.Deactivate(ctx, a.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	visible, _ := s.FetchAllMemories(ctx, true)
	if len(visible) != 1 || visible[0].ID != b.ID {
		t.Fatalf("deactivated memory still visible: %+v", visible)
	}
	all, _ := s.FetchAllMemories(ctx, false)
	if len(all) != 2 {
		t.Fatal("deactivation must not remove the row")
	}

	if err := s.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	all, _ = s.FetchAllMemories(ctx, false)
	if len(all) != 1 {
		t.Fatalf("expected 1 row after delete, got %d", len(all))
	}
	edges, _ := s.FetchAllWaypoints(ctx)
	if len(edges) != 0 {
		t.Fatalf("delete must cascade to waypoints, got %+v", edges)
	}

	if err := s.Deactivate(ctx, "missing-id"); err == nil {
		t.Fatal("deactivating an unknown id should fail")
	}
	if err := s.Delete(ctx, "missing-id"); err == nil {
		t.Fatal("deleting an unknown id should fail")
	}
}

func TestCurrentSegment_Rotation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seg, err := s.CurrentSegment(ctx, 2)
	if err != nil {
		t.Fatalf("segment failed: %v", err)
	}
	if seg != 0 {
		t.Fatalf("empty store segment = %d, want 0", seg)
	}

	m1 := testMemory("first memory in segment")
	m2 := testMemory("second memory in segment")
	m1.Segment, m2.Segment = 0, 0
	if err := s.SaveMemories(ctx, []*model.Memory{m1, m2}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	seg, err = s.CurrentSegment(ctx, 2)
	if err != nil {
		t.Fatalf("segment failed: %v", err)
	}
	if seg != 1 {
		t.Fatalf("full segment should rotate, got %d", seg)
	}
}

func TestLogProcessingAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveMemories(ctx, []*model.Memory{testMemory("stats subject")}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.LogProcessing(ctx, "", false, "greeting", 0); err != nil {
		t.Fatalf("log failed: %v", err)
	}

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if st.TotalMemories != 1 || st.ActiveMemories != 1 {
		t.Fatalf("memory counts wrong: %+v", st)
	}
	if st.ProcessingLog != 1 {
		t.Fatalf("processing log count = %d, want 1", st.ProcessingLog)
	}
	if st.Sectors[string(model.SectorSemantic)] != 1 {
		t.Fatalf("sector breakdown wrong: %+v", st.Sectors)
	}
}
