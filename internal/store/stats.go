package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string         `json:"db_path"`
	DBSizeBytes    int64          `json:"db_size_bytes"`
	TotalMemories  int            `json:"total_memories"`
	ActiveMemories int            `json:"active_memories"`
	Waypoints      int            `json:"waypoints"`
	ProcessingLog  int            `json:"processing_log"`
	Sectors        map[string]int `json:"sectors"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, Sectors: map[string]int{}}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE is_active = 1`).Scan(&st.ActiveMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waypoints`).Scan(&st.Waypoints)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processing_log`).Scan(&st.ProcessingLog)

	rows, err := s.db.QueryContext(ctx, `
		SELECT sector, COUNT(*) FROM memories WHERE is_active = 1
		GROUP BY sector ORDER BY COUNT(*) DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var sec string
		var n int
		rows.Scan(&sec, &n)
		st.Sectors[sec] = n
	}

	return st, nil
}
