package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// The store is the one shared resource; a single connection keeps
	// reads and writes from interleaving inconsistently.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id           TEXT PRIMARY KEY,
		content      TEXT NOT NULL,
		sector       TEXT NOT NULL,
		confidence   REAL NOT NULL DEFAULT 0.5,
		tags         TEXT,
		fingerprint  INTEGER NOT NULL,
		embedding    BLOB,
		salience     REAL NOT NULL DEFAULT 0.5,
		decay_rate   REAL NOT NULL DEFAULT 0.01,
		last_seen_at TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		segment      INTEGER NOT NULL DEFAULT 0,
		source_id    TEXT,
		source_app   TEXT,
		is_active    INTEGER NOT NULL DEFAULT 1,
		expires_at   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_sector ON memories(sector);
	CREATE INDEX IF NOT EXISTS idx_memories_active ON memories(is_active);
	CREATE INDEX IF NOT EXISTS idx_memories_segment ON memories(segment);
	CREATE INDEX IF NOT EXISTS idx_memories_expires ON memories(expires_at);

	CREATE TABLE IF NOT EXISTS waypoints (
		id         TEXT PRIMARY KEY,
		source_id  TEXT NOT NULL REFERENCES memories(id),
		target_id  TEXT NOT NULL REFERENCES memories(id),
		weight     REAL NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (source_id, target_id)
	);
	CREATE INDEX IF NOT EXISTS idx_waypoints_source ON waypoints(source_id);
	CREATE INDEX IF NOT EXISTS idx_waypoints_target ON waypoints(target_id);

	CREATE TABLE IF NOT EXISTS processing_log (
		id              TEXT PRIMARY KEY,
		source_id       TEXT,
		worth           INTEGER NOT NULL,
		reason          TEXT,
		extracted_count INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// activeFilter excludes soft-deleted and expired rows.
const activeFilter = `is_active = 1 AND (expires_at IS NULL OR expires_at > ?)`

const memoryColumns = `id, content, sector, confidence, tags, fingerprint, embedding,
	salience, decay_rate, last_seen_at, created_at, segment, source_id, source_app, is_active, expires_at`

// SaveMemories persists new memories in one transaction.
func (s *SQLiteStore) SaveMemories(ctx context.Context, memories []*model.Memory) error {
	if len(memories) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range memories {
		if m.ID == "" {
			m.ID = s.newID()
		}
		now := time.Now().UTC()
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if m.LastSeenAt.IsZero() {
			m.LastSeenAt = now
		}
		m.Salience = model.Clamp01(m.Salience)
		m.Confidence = model.Clamp01(m.Confidence)

		var tagsJSON *string
		if len(m.Tags) > 0 {
			b, _ := json.Marshal(m.Tags)
			str := string(b)
			tagsJSON = &str
		}
		var expiresAt *string
		if m.ExpiresAt != nil {
			str := m.ExpiresAt.UTC().Format(time.RFC3339)
			expiresAt = &str
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO memories (`+memoryColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Content, string(m.Sector), m.Confidence, tagsJSON, int64(m.Fingerprint),
			encodeVector(m.Embedding), m.Salience, m.DecayRate,
			m.LastSeenAt.UTC().Format(time.RFC3339), m.CreatedAt.UTC().Format(time.RFC3339),
			m.Segment, nullable(m.SourceID), nullable(m.SourceApp), boolInt(m.IsActive), expiresAt)
		if err != nil {
			return fmt.Errorf("insert memory: %w", err)
		}
	}

	return tx.Commit()
}

// FetchAllMemories returns stored memories, newest first.
func (s *SQLiteStore) FetchAllMemories(ctx context.Context, activeOnly bool) ([]model.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories`
	var args []interface{}
	if activeOnly {
		query += ` WHERE ` + activeFilter
		args = append(args, time.Now().UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// FetchMemoriesWithEmbeddings returns (id, embedding) for every active
// embedded memory.
func (s *SQLiteStore) FetchMemoriesWithEmbeddings(ctx context.Context) ([]EmbeddingRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM memories WHERE embedding IS NOT NULL AND `+activeFilter,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []EmbeddingRef
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		refs = append(refs, EmbeddingRef{ID: id, Embedding: decodeVector(blob)})
	}
	return refs, rows.Err()
}

// BoostSalience adds delta to a memory's salience, clamped to [0,1] in
// the update itself, and refreshes last_seen_at.
func (s *SQLiteStore) BoostSalience(ctx context.Context, id string, delta float64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories
		 SET salience = MIN(1.0, MAX(0.0, salience + ?)), last_seen_at = ?
		 WHERE id = ?`, delta, now, id)
	return err
}

// Deactivate soft-deletes a memory.
func (s *SQLiteStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return nil
}

// Delete removes a memory and its waypoints permanently.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM waypoints WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return tx.Commit()
}

// CurrentSegment returns the segment new memories should join. A new
// segment starts once the latest one reaches capacity.
func (s *SQLiteStore) CurrentSegment(ctx context.Context, capacity int) (int, error) {
	if capacity <= 0 {
		capacity = 100
	}
	var segment, count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(segment), 0) FROM memories`).Scan(&segment)
	if err != nil {
		return 0, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE segment = ?`, segment).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count >= capacity {
		segment++
	}
	return segment, nil
}

// LogProcessing appends one row to the ingestion audit trail.
func (s *SQLiteStore) LogProcessing(ctx context.Context, sourceID string, worth bool, reason string, extractedCount int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_log (id, source_id, worth, reason, extracted_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.newID(), nullable(sourceID), boolInt(worth), reason, extractedCount,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var tagsJSON, sourceID, sourceApp, expiresAt sql.NullString
	var lastSeen, createdAt, sec string
	var fp int64
	var blob []byte
	var active int

	err := row.Scan(
		&m.ID, &m.Content, &sec, &m.Confidence, &tagsJSON, &fp, &blob,
		&m.Salience, &m.DecayRate, &lastSeen, &createdAt, &m.Segment,
		&sourceID, &sourceApp, &active, &expiresAt,
	)
	if err != nil {
		return m, err
	}

	m.Sector = model.Sector(sec)
	m.Fingerprint = uint64(fp)
	m.Embedding = decodeVector(blob)
	m.IsActive = active != 0
	m.LastSeenAt, _ = time.Parse(time.RFC3339, lastSeen)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if sourceID.Valid {
		m.SourceID = sourceID.String
	}
	if sourceApp.Valid {
		m.SourceApp = sourceApp.String
	}
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		m.ExpiresAt = &t
	}

	return m, nil
}

// encodeVector serializes a float32 vector as a little-endian blob.
// A nil vector stays NULL in the column.
func encodeVector(v embedding.Vector) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func decodeVector(blob []byte) embedding.Vector {
	if len(blob) == 0 {
		return nil
	}
	v := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &v); err != nil {
		return nil
	}
	return v
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
