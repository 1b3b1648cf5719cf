package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS board_frames (
  stop_number INTEGER NOT NULL,
  rendered_at TIMESTAMPTZ NOT NULL,
  body TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS board_frames_stop_rendered_idx ON board_frames (stop_number, rendered_at)`,
	`CREATE TABLE IF NOT EXISTS arrival_observations (
  stop_number INTEGER NOT NULL,
  route_no TEXT NOT NULL,
  observed_at TIMESTAMPTZ NOT NULL,
  expected_at TIMESTAMPTZ NOT NULL,
  position INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS arrival_observations_stop_route_idx ON arrival_observations (stop_number, route_no, observed_at)`,
}

// EnsureSchema creates the history tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// History records every published frame and every resolved arrival list.
type History struct {
	db *sql.DB
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

func (h *History) RecordFrame(ctx context.Context, stop int, renderedAt time.Time, text string) error {
	q := `INSERT INTO board_frames (stop_number, rendered_at, body) VALUES ($1, $2, $3)`
	if _, err := h.db.ExecContext(ctx, q, stop, renderedAt.UTC(), text); err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

// RecordArrivals stores one row per expected departure, keeping the order the
// API reported them in.
func (h *History) RecordArrivals(ctx context.Context, stop int, route string, observedAt time.Time, expected []time.Time) error {
	if len(expected) == 0 {
		return nil
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO arrival_observations (stop_number, route_no, observed_at, expected_at, position)
VALUES ($1, $2, $3, $4, $5)`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare arrivals insert: %w", err)
	}
	defer stmt.Close()

	for i, at := range expected {
		if _, err := stmt.ExecContext(ctx, stop, route, observedAt.UTC(), at.UTC(), i); err != nil {
			return fmt.Errorf("insert arrival %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit arrivals: %w", err)
	}
	return nil
}

// RecentFrames returns the bodies of the last limit frames shown for stop,
// newest first.
func (h *History) RecentFrames(ctx context.Context, stop, limit int) ([]string, error) {
	q := `SELECT body FROM board_frames WHERE stop_number = $1 ORDER BY rendered_at DESC LIMIT $2`
	rows, err := h.db.QueryContext(ctx, q, stop, limit)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, body)
	}
	return out, rows.Err()
}
