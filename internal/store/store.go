// Package store archives finished capture sessions into SQLite so past
// sessions can be listed and queried without re-reading the JSON document
// sets. The archive is strictly downstream of the snapshot layer: it only
// ever sees stopped, frozen sessions.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"cursortrace/internal/session"
	"cursortrace/internal/snapshot"
)

// Store wraps the SQLite archive database.
type Store struct {
	db *sql.DB
}

// SessionRow is one archived session in list form.
type SessionRow struct {
	Token      string
	ArchivedAt time.Time
	Stats      session.Statistics
}

// Open opens (creating if needed) the archive at databasePath.
func Open(databasePath string) (*Store, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions(
	  token           TEXT PRIMARY KEY,
	  archived_at     INTEGER NOT NULL,
	  total_time      REAL    NOT NULL,
	  total_distance  REAL    NOT NULL,
	  avg_speed       REAL    NOT NULL,
	  max_speed       REAL    NOT NULL,
	  total_clicks    INTEGER NOT NULL,
	  total_movements INTEGER NOT NULL,
	  scroll_events   INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events(
	  id      INTEGER PRIMARY KEY,
	  token   TEXT    NOT NULL REFERENCES sessions(token),
	  kind    TEXT    NOT NULL CHECK (kind IN ('move','click','scroll')),
	  x       INTEGER NOT NULL,
	  y       INTEGER NOT NULL,
	  ts      REAL    NOT NULL,
	  speed   REAL,
	  button  TEXT,
	  pressed INTEGER,
	  dx      REAL,
	  dy      REAL
	);
	CREATE TABLE IF NOT EXISTS hover(
	  token    TEXT    NOT NULL REFERENCES sessions(token),
	  x        INTEGER NOT NULL,
	  y        INTEGER NOT NULL,
	  duration REAL    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_token ON events(token);
	CREATE INDEX IF NOT EXISTS idx_events_kind  ON events(kind);
	CREATE INDEX IF NOT EXISTS idx_hover_token  ON hover(token);
	`)
	if err != nil {
		return fmt.Errorf("failed to create archive tables: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func validateSnapshot(snap *snapshot.Snapshot) error {
	if snap.Token == "" {
		return fmt.Errorf("snapshot token cannot be empty")
	}
	for _, m := range snap.Movements {
		if m.Timestamp < 0 {
			return fmt.Errorf("movement timestamp must not be negative")
		}
	}
	for _, h := range snap.Hover {
		if h.Duration < 0 {
			return fmt.Errorf("hover duration must not be negative")
		}
	}
	return nil
}

// Archive stores a snapshot's session row, events, and hover cells in one
// transaction. Any failure rolls the whole session back so the archive
// never holds a partial session.
func (s *Store) Archive(snap *snapshot.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stats := snap.Stats
	if _, err := tx.Exec(
		`INSERT INTO sessions(token, archived_at, total_time, total_distance,
		   avg_speed, max_speed, total_clicks, total_movements, scroll_events)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		snap.Token, time.Now().Unix(), stats.TotalTime, stats.TotalDistance,
		stats.AvgSpeed, stats.MaxSpeed, stats.TotalClicks, stats.TotalMovements,
		stats.ScrollEvents,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert session row: %w", err)
	}

	eventStmt, err := tx.Prepare(
		`INSERT INTO events(token, kind, x, y, ts, speed, button, pressed, dx, dy)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare event statement: %w", err)
	}
	defer eventStmt.Close()

	for _, m := range snap.Movements {
		if _, err := eventStmt.Exec(snap.Token, "move", m.X, m.Y, m.Timestamp, m.Speed, nil, nil, nil, nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert movement: %w", err)
		}
	}
	for _, c := range snap.Clicks {
		if _, err := eventStmt.Exec(snap.Token, "click", c.X, c.Y, c.Timestamp, nil, c.Button, c.Pressed, nil, nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert click: %w", err)
		}
	}
	for _, sc := range snap.Scrolls {
		if _, err := eventStmt.Exec(snap.Token, "scroll", sc.X, sc.Y, sc.Timestamp, nil, nil, nil, sc.DX, sc.DY); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert scroll: %w", err)
		}
	}

	for _, h := range snap.Hover {
		if _, err := tx.Exec(
			`INSERT INTO hover(token, x, y, duration) VALUES(?,?,?,?)`,
			snap.Token, h.X, h.Y, h.Duration,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert hover cell: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Sessions lists archived sessions, newest first.
func (s *Store) Sessions() ([]SessionRow, error) {
	rows, err := s.db.Query(
		`SELECT token, archived_at, total_time, total_distance, avg_speed,
		        max_speed, total_clicks, total_movements, scroll_events
		 FROM sessions ORDER BY archived_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var result []SessionRow
	for rows.Next() {
		var r SessionRow
		var archivedAt int64
		if err := rows.Scan(&r.Token, &archivedAt, &r.Stats.TotalTime,
			&r.Stats.TotalDistance, &r.Stats.AvgSpeed, &r.Stats.MaxSpeed,
			&r.Stats.TotalClicks, &r.Stats.TotalMovements, &r.Stats.ScrollEvents,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		r.ArchivedAt = time.Unix(archivedAt, 0)
		result = append(result, r)
	}
	return result, rows.Err()
}

// SessionStats returns the archived statistics for one token.
func (s *Store) SessionStats(token string) (session.Statistics, error) {
	var stats session.Statistics
	err := s.db.QueryRow(
		`SELECT total_time, total_distance, avg_speed, max_speed,
		        total_clicks, total_movements, scroll_events
		 FROM sessions WHERE token = ?`, token,
	).Scan(&stats.TotalTime, &stats.TotalDistance, &stats.AvgSpeed,
		&stats.MaxSpeed, &stats.TotalClicks, &stats.TotalMovements,
		&stats.ScrollEvents)
	if err == sql.ErrNoRows {
		return stats, fmt.Errorf("session not found: %s", token)
	}
	if err != nil {
		return stats, fmt.Errorf("failed to query session stats: %w", err)
	}
	return stats, nil
}

// EventCount returns the number of archived events of one kind for a token.
func (s *Store) EventCount(token, kind string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE token = ? AND kind = ?`, token, kind,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
