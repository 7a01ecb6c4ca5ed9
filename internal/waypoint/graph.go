// Package waypoint maintains the weighted directed graph linking
// semantically related memories and performs bounded expansion and
// reinforcement propagation over it.
package waypoint

import (
	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/model"
)

const (
	// LinkThreshold is the minimum cosine similarity for creating an
	// edge from a new memory to its best existing match.
	LinkThreshold = 0.5
	// expansionDecay multiplies the accumulated path weight per hop.
	expansionDecay = 0.8
	// weightFloor prunes traversal once accumulated weight drops below it.
	weightFloor = 0.1
)

// Candidate pairs a memory ID with its stored embedding.
type Candidate struct {
	ID        string
	Embedding embedding.Vector
}

// BestTarget scans all existing embeddings for the best cosine match to
// a new memory's embedding. It returns ok=false when nothing reaches
// the link threshold, in which case no edge is created.
func BestTarget(newEmbedding embedding.Vector, existing []Candidate) (id string, similarity float64, ok bool) {
	for _, c := range existing {
		sim := embedding.Cosine(newEmbedding, c.Embedding)
		if sim > similarity {
			similarity = sim
			id = c.ID
		}
	}
	if similarity < LinkThreshold {
		return "", 0, false
	}
	return id, similarity, true
}

// Graph is an adjacency-list snapshot of the waypoint table: a flat
// edge arena plus an index from source ID into it. Cheap to rebuild per
// traversal and free of pointer cycles.
type Graph struct {
	edges []model.Waypoint
	index map[string][]int
}

// NewGraph builds a traversal snapshot from the stored waypoints.
func NewGraph(waypoints []model.Waypoint) *Graph {
	g := &Graph{
		edges: waypoints,
		index: make(map[string][]int, len(waypoints)),
	}
	for i, w := range waypoints {
		g.index[w.SourceID] = append(g.index[w.SourceID], i)
	}
	return g
}

// Outbound returns the edges leaving the given memory.
func (g *Graph) Outbound(id string) []model.Waypoint {
	idxs := g.index[id]
	out := make([]model.Waypoint, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.edges[i])
	}
	return out
}

// Hit is one memory discovered by graph expansion, with the weight
// accumulated along its discovery path.
type Hit struct {
	ID     string
	Weight float64
	Path   []string
}

// Expand walks breadth-first from the seed set. Each hop multiplies the
// accumulated weight by the edge weight and the expansion decay factor;
// branches are pruned at the weight floor. Traversal stops after
// maxExpansion new nodes, so it terminates even on fully connected
// graphs.
func (g *Graph) Expand(seeds []string, maxExpansion int) []Hit {
	if maxExpansion <= 0 {
		return nil
	}

	type frontierNode struct {
		id     string
		weight float64
		path   []string
	}

	visited := make(map[string]bool, len(seeds))
	frontier := make([]frontierNode, 0, len(seeds))
	for _, s := range seeds {
		visited[s] = true
		frontier = append(frontier, frontierNode{id: s, weight: 1, path: []string{s}})
	}

	var hits []Hit
	for len(frontier) > 0 && len(hits) < maxExpansion {
		var next []frontierNode
		for _, node := range frontier {
			for _, edge := range g.Outbound(node.id) {
				if visited[edge.TargetID] {
					continue
				}
				w := node.weight * model.Clamp01(edge.Weight) * expansionDecay
				if w < weightFloor {
					continue
				}
				visited[edge.TargetID] = true
				path := append(append([]string(nil), node.path...), edge.TargetID)
				hits = append(hits, Hit{ID: edge.TargetID, Weight: w, Path: path})
				if len(hits) >= maxExpansion {
					return hits
				}
				next = append(next, frontierNode{id: edge.TargetID, weight: w, path: path})
			}
		}
		frontier = next
	}
	return hits
}

const propagationGamma = 0.2

// Adjustment is a propagated salience update for a linked memory.
type Adjustment struct {
	MemoryID string
	Salience float64
}

// Propagate spills a bounded share of a reinforced memory's salience to
// its outbound neighbors: edgeWeight * (source - target) * gamma. The
// (source - target) term keeps the feedback loop from running away once
// both sides converge.
func (g *Graph) Propagate(sourceID string, sourceSalience float64, current map[string]float64) []Adjustment {
	var adjustments []Adjustment
	for _, edge := range g.Outbound(sourceID) {
		target, ok := current[edge.TargetID]
		if !ok {
			continue
		}
		delta := model.Clamp01(edge.Weight) * (sourceSalience - target) * propagationGamma
		if delta <= 0 {
			continue
		}
		adjustments = append(adjustments, Adjustment{
			MemoryID: edge.TargetID,
			Salience: model.Clamp01(target + delta),
		})
	}
	return adjustments
}
