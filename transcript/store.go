package transcript

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists finalized segments so history survives across runs.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open segment store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		captured_at DATETIME NOT NULL,
		origin TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create segments table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveSegment(seg Segment) error {
	_, err := s.db.Exec(
		"INSERT INTO segments(id, text, captured_at, origin) VALUES(?, ?, ?, ?)",
		seg.ID, seg.Text, seg.CapturedAt, seg.Origin,
	)
	if err != nil {
		return fmt.Errorf("save segment: %w", err)
	}
	return nil
}

// Segments returns all persisted segments, oldest first.
func (s *Store) Segments() ([]Segment, error) {
	rows, err := s.db.Query(
		"SELECT id, text, captured_at, origin FROM segments ORDER BY captured_at",
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()
	return scanSegments(rows)
}

// SegmentsSince returns persisted segments captured at or after the given
// instant, oldest first.
func (s *Store) SegmentsSince(t time.Time) ([]Segment, error) {
	rows, err := s.db.Query(
		"SELECT id, text, captured_at, origin FROM segments WHERE captured_at >= ? ORDER BY captured_at",
		t,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()
	return scanSegments(rows)
}

func scanSegments(rows *sql.Rows) ([]Segment, error) {
	var segments []Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.ID, &seg.Text, &seg.CapturedAt, &seg.Origin); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
