package store

import (
	"context"
	"fmt"
	"time"

	"github.com/engramkit/engram/internal/model"
)

const waypointColumns = `id, source_id, target_id, weight, created_at, updated_at`

// SaveWaypoint inserts a directed edge. When an edge between the same
// pair already exists, it is strengthened to the larger weight rather
// than duplicated. Self-edges are rejected.
func (s *SQLiteStore) SaveWaypoint(ctx context.Context, w *model.Waypoint) error {
	if w.SourceID == w.TargetID {
		return fmt.Errorf("waypoint source and target must be distinct: %s", w.SourceID)
	}
	if w.ID == "" {
		w.ID = s.newID()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	w.Weight = model.Clamp01(w.Weight)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO waypoints (id, source_id, target_id, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_id, target_id) DO UPDATE
		 SET weight = MAX(weight, excluded.weight), updated_at = excluded.updated_at`,
		w.ID, w.SourceID, w.TargetID, w.Weight, now, now)
	if err != nil {
		return fmt.Errorf("save waypoint: %w", err)
	}
	return nil
}

// FetchAllWaypoints returns every stored waypoint.
func (s *SQLiteStore) FetchAllWaypoints(ctx context.Context) ([]model.Waypoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+waypointColumns+` FROM waypoints`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWaypoints(rows)
}

// FetchWaypoints returns the outbound edges of one memory.
func (s *SQLiteStore) FetchWaypoints(ctx context.Context, sourceID string) ([]model.Waypoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+waypointColumns+` FROM waypoints WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWaypoints(rows)
}

func scanWaypoints(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]model.Waypoint, error) {
	var waypoints []model.Waypoint
	for rows.Next() {
		var w model.Waypoint
		var createdAt, updatedAt string
		if err := rows.Scan(&w.ID, &w.SourceID, &w.TargetID, &w.Weight, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		waypoints = append(waypoints, w)
	}
	return waypoints, rows.Err()
}
