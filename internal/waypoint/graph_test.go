package waypoint

import (
	"fmt"
	"math"
	"testing"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/model"
)

func TestBestTarget_Threshold(t *testing.T) {
	newVec := embedding.Vector{1, 0}

	below := []Candidate{{ID: "m1", Embedding: embedding.Vector{0.4, float32(math.Sqrt(1 - 0.16))}}}
	if id, _, ok := BestTarget(newVec, below); ok {
		t.Fatalf("similarity 0.4 must not create an edge, got %s", id)
	}

	above := []Candidate{{ID: "m2", Embedding: embedding.Vector{0.6, 0.8}}}
	id, sim, ok := BestTarget(newVec, above)
	if !ok {
		t.Fatal("similarity 0.6 should create an edge")
	}
	if id != "m2" {
		t.Fatalf("edge target = %s, want m2", id)
	}
	if math.Abs(sim-0.6) > 1e-6 {
		t.Fatalf("edge weight = %f, want 0.6", sim)
	}
}

func TestBestTarget_PicksStrongestMatch(t *testing.T) {
	newVec := embedding.Vector{1, 0}
	cands := []Candidate{
		{ID: "weak", Embedding: embedding.Vector{0.6, 0.8}},
		{ID: "strong", Embedding: embedding.Vector{0.9, float32(math.Sqrt(1 - 0.81))}},
	}
	id, _, ok := BestTarget(newVec, cands)
	if !ok || id != "strong" {
		t.Fatalf("BestTarget = %s (ok=%v), want strong", id, ok)
	}
}

func TestExpand_DecaysAndFloors(t *testing.T) {
	// a -> b -> c -> d, all edges at full weight
	g := NewGraph([]model.Waypoint{
		{SourceID: "a", TargetID: "b", Weight: 1.0},
		{SourceID: "b", TargetID: "c", Weight: 1.0},
		{SourceID: "c", TargetID: "d", Weight: 0.1},
	})

	hits := g.Expand([]string{"a"}, 10)
	if len(hits) != 2 {
		t.Fatalf("expected b and c only, got %+v", hits)
	}
	if hits[0].ID != "b" || math.Abs(hits[0].Weight-0.8) > 1e-9 {
		t.Fatalf("first hop = %+v, want b at 0.8", hits[0])
	}
	if hits[1].ID != "c" || math.Abs(hits[1].Weight-0.64) > 1e-9 {
		t.Fatalf("second hop = %+v, want c at 0.64", hits[1])
	}
	// the c -> d edge at weight 0.1 accumulates to 0.0512, below the floor
	for _, h := range hits {
		if h.ID == "d" {
			t.Fatal("hop below weight floor must be pruned")
		}
	}
}

func TestExpand_PathRecordsDiscoveryRoute(t *testing.T) {
	g := NewGraph([]model.Waypoint{
		{SourceID: "a", TargetID: "b", Weight: 1.0},
		{SourceID: "b", TargetID: "c", Weight: 1.0},
	})
	hits := g.Expand([]string{"a"}, 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	want := []string{"a", "b", "c"}
	got := hits[1].Path
	if len(got) != len(want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path = %v, want %v", got, want)
		}
	}
}

func TestExpand_TerminatesOnFullyConnectedGraph(t *testing.T) {
	const n = 20
	var edges []model.Waypoint
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			edges = append(edges, model.Waypoint{
				SourceID: fmt.Sprintf("m%d", i),
				TargetID: fmt.Sprintf("m%d", j),
				Weight:   1.0,
			})
		}
	}
	g := NewGraph(edges)

	hits := g.Expand([]string{"m0"}, 5)
	if len(hits) != 5 {
		t.Fatalf("expansion bound not honored: got %d hits", len(hits))
	}
	seen := make(map[string]bool)
	for _, h := range hits {
		if seen[h.ID] {
			t.Fatalf("node %s visited twice", h.ID)
		}
		seen[h.ID] = true
	}
}

func TestExpand_SkipsSeeds(t *testing.T) {
	g := NewGraph([]model.Waypoint{
		{SourceID: "a", TargetID: "b", Weight: 1.0},
		{SourceID: "b", TargetID: "a", Weight: 1.0},
	})
	hits := g.Expand([]string{"a", "b"}, 10)
	if len(hits) != 0 {
		t.Fatalf("seeds must not be rediscovered, got %+v", hits)
	}
}

func TestPropagate(t *testing.T) {
	g := NewGraph([]model.Waypoint{
		{SourceID: "src", TargetID: "low", Weight: 0.5},
		{SourceID: "src", TargetID: "high", Weight: 0.5},
		{SourceID: "src", TargetID: "missing", Weight: 0.5},
	})
	current := map[string]float64{"low": 0.2, "high": 0.9}

	adj := g.Propagate("src", 0.8, current)
	if len(adj) != 1 {
		t.Fatalf("expected one adjustment, got %+v", adj)
	}
	if adj[0].MemoryID != "low" {
		t.Fatalf("adjusted %s, want low", adj[0].MemoryID)
	}
	// 0.2 + 0.5 * (0.8 - 0.2) * 0.2 = 0.26
	if math.Abs(adj[0].Salience-0.26) > 1e-9 {
		t.Fatalf("adjusted salience = %f, want 0.26", adj[0].Salience)
	}
}

func TestPropagate_Converges(t *testing.T) {
	g := NewGraph([]model.Waypoint{{SourceID: "src", TargetID: "dst", Weight: 1.0}})
	current := map[string]float64{"dst": 0.3}

	for i := 0; i < 100; i++ {
		adj := g.Propagate("src", 0.8, current)
		if len(adj) == 0 {
			break
		}
		current["dst"] = adj[0].Salience
	}
	if current["dst"] > 0.8 {
		t.Fatalf("propagation overshot the source salience: %f", current["dst"])
	}
}
