package store

import (
	"context"
	"sort"
	"time"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/fingerprint"
	"github.com/engramkit/engram/internal/model"
)

// SearchByEmbedding scans all active embedded memories and returns the
// topK by cosine similarity, descending, filtered by minScore.
//
// Linear scan is deliberate: the corpus is local and small, and the
// SQLite row stays the single source of truth for the embedding.
func (s *SQLiteStore) SearchByEmbedding(ctx context.Context, query embedding.Vector, topK int, minScore float64) ([]VectorHit, error) {
	if len(query) == 0 || topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE embedding IS NOT NULL AND `+activeFilter,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		sim := embedding.Cosine(query, m.Embedding)
		if sim < minScore {
			continue
		}
		hits = append(hits, VectorHit{Memory: m, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// SearchMemories finds active memories by case-insensitive substring
// match over content, newest first.
func (s *SQLiteStore) SearchMemories(ctx context.Context, textQuery string) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE `+activeFilter+` AND content LIKE ? COLLATE NOCASE
		 ORDER BY created_at DESC`,
		time.Now().UTC().Format(time.RFC3339), "%"+textQuery+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// HasMemory reports whether an active memory with exactly this content
// exists, compared case-insensitively.
func (s *SQLiteStore) HasMemory(ctx context.Context, exactContent string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories
		 WHERE `+activeFilter+` AND content = ? COLLATE NOCASE`,
		time.Now().UTC().Format(time.RFC3339), exactContent).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindNearDuplicate compares the content's fingerprint against all
// active memories and returns the closest one within the near-duplicate
// threshold, or nil.
func (s *SQLiteStore) FindNearDuplicate(ctx context.Context, content string) (*model.Memory, error) {
	fp := fingerprint.Hash(content)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE `+activeFilter,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var best *model.Memory
	bestDist := fingerprint.NearDuplicateDistance + 1
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		if d := fingerprint.Distance(fp, m.Fingerprint); d < bestDist {
			bestDist = d
			mem := m
			best = &mem
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return best, nil
}
