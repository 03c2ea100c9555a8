// Package history records connection events to a local SQLite database
// so the frontend and CLI can show recent activity.
package history

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yllada/tvbridge/common"
)

// Event is a single recorded connection event.
type Event struct {
	ID     int64     `json:"id"`
	Time   time.Time `json:"time"`
	Tunnel string    `json:"tunnel"`
	Kind   string    `json:"kind"`
	Type   string    `json:"type"`
	Detail string    `json:"detail,omitempty"`
}

// Store is a SQLite-backed event log.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	tunnel TEXT NOT NULL,
	kind TEXT NOT NULL,
	type TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
`

// Open opens (or creates) the event database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "failed to open history database")
	}
	// The database is only written from this process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "failed to initialize history schema")
	}
	return &Store{db: db}, nil
}

// OpenDefault opens the event database in the application data directory.
func OpenDefault() (*Store, error) {
	dir, err := common.GetDataDir()
	if err != nil {
		return nil, err
	}
	return Open(dir + "/" + common.HistoryFileName)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an event. A zero Time is filled with the current time.
func (s *Store) Record(ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	_, err := s.db.Exec(
		"INSERT INTO events (ts, tunnel, kind, type, detail) VALUES (?, ?, ?, ?, ?)",
		ev.Time.Unix(), ev.Tunnel, ev.Kind, ev.Type, ev.Detail,
	)
	if err != nil {
		return common.WrapError(err, "failed to record event")
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT id, ts, tunnel, kind, type, detail FROM events ORDER BY ts DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, common.WrapError(err, "failed to query events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var ts int64
		if err := rows.Scan(&ev.ID, &ts, &ev.Tunnel, &ev.Kind, &ev.Type, &ev.Detail); err != nil {
			return nil, common.WrapError(err, "failed to scan event")
		}
		ev.Time = time.Unix(ts, 0)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Prune removes events older than the given time.
func (s *Store) Prune(before time.Time) error {
	_, err := s.db.Exec("DELETE FROM events WHERE ts < ?", before.Unix())
	if err != nil {
		return common.WrapError(err, "failed to prune events")
	}
	return nil
}
