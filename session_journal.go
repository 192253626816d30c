package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const journalFileName = "sessions.db"

// sessionJournal records in-progress voice sessions in sqlite so a bot
// restart does not lose the start timestamps of users who are still in a
// channel. Joins insert a row, leaves delete it, and boot replays
// whatever is left into the tracker.
type sessionJournal struct {
	db *sql.DB
}

func openSessionJournal(dataDir string) (*sessionJournal, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, journalFileName)

	db, err := sql.Open("sqlite", path+"?_journal=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS open_sessions (
			user_id TEXT NOT NULL PRIMARY KEY,
			started_at_unix INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sessionJournal{db: db}, nil
}

// RecordStart upserts the session start for a user. A stale prior row is
// overwritten, matching the tracker's overwrite-on-join rule.
func (j *sessionJournal) RecordStart(userID string, startedAt time.Time) error {
	if j == nil || j.db == nil {
		return nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	_, err := j.db.Exec(
		"INSERT INTO open_sessions (user_id, started_at_unix) VALUES (?, ?) ON CONFLICT(user_id) DO UPDATE SET started_at_unix = excluded.started_at_unix",
		userID, startedAt.Unix(),
	)
	return err
}

func (j *sessionJournal) ClearStart(userID string) error {
	if j == nil || j.db == nil {
		return nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	_, err := j.db.Exec("DELETE FROM open_sessions WHERE user_id = ?", userID)
	return err
}

// LoadOpenSessions returns every journaled session start, keyed by user
// id, in the local time zone.
func (j *sessionJournal) LoadOpenSessions() (map[string]time.Time, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	rows, err := j.db.Query("SELECT user_id, started_at_unix FROM open_sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make(map[string]time.Time)
	for rows.Next() {
		var userID string
		var unix int64
		if err := rows.Scan(&userID, &unix); err != nil {
			return nil, err
		}
		sessions[userID] = time.Unix(unix, 0)
	}
	return sessions, rows.Err()
}

func (j *sessionJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
