// Package store persists emitted decisions to SQLite for the ops API.
// It is an audit trail, not state the classifier reads back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"callscreen/internal/blocker"
)

// Store wraps SQLite access for decision records.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS decisions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        event_ts TEXT,
        rate TEXT,
        number TEXT,
        name TEXT,
        score INTEGER NULL,
        comments INTEGER NULL,
        searches INTEGER NULL,
        created_at TIMESTAMP
    );`)
	return err
}

// Record is one persisted decision row.
type Record struct {
	ID        int64     `json:"id"`
	EventTS   string    `json:"event_ts"`
	Rate      string    `json:"rate"`
	Number    string    `json:"number"`
	Name      string    `json:"name"`
	Score     *int      `json:"score"`
	Comments  *int      `json:"comments"`
	Searches  *int      `json:"searches"`
	CreatedAt time.Time `json:"created_at"`
}

// Insert appends one decision.
func (s *Store) Insert(ctx context.Context, d *blocker.Decision) error {
	var score, comments, searches *int
	if d.Reputation != nil {
		score, comments, searches = d.Reputation.Score, d.Reputation.Comments, d.Reputation.Searches
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions(event_ts, rate, number, name, score, comments, searches, created_at) VALUES(?,?,?,?,?,?,?,?)`,
		d.Timestamp, string(d.Rate), d.Number, d.Name, score, comments, searches, time.Now().UTC())
	return err
}

// Recent lists the newest decisions, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_ts, rate, number, name, score, comments, searches, created_at FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		var score, comments, searches sql.NullInt64
		if err := rows.Scan(&r.ID, &r.EventTS, &r.Rate, &r.Number, &r.Name, &score, &comments, &searches, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Score = nullableInt(score)
		r.Comments = nullableInt(comments)
		r.Searches = nullableInt(searches)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// Health returns err if the DB is not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
