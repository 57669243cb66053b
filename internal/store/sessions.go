package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Session holds per-window progress flags. Both flags are monotonic: they
// only transition false to true and are never reset; a new window label
// gets a fresh row.
type Session struct {
	ID                string
	WindowLabel       string
	CompletedToday    bool
	CompletedExtended bool
}

// InsertSession creates a session row for a window label with both flags
// false. Returns ErrConflict if the row already exists.
func (db *DB) InsertSession(windowLabel string) error {
	_, err := db.conn.Exec(
		"INSERT INTO sessions (id, window_label) VALUES (?, ?)",
		uuid.NewString(), windowLabel,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession returns the session for a window label, or nil if absent.
func (db *DB) GetSession(windowLabel string) (*Session, error) {
	row := db.conn.QueryRow(
		`SELECT id, window_label, completed_today, completed_extended
		FROM sessions WHERE window_label = ?`, windowLabel,
	)

	var s Session
	var today, extended int
	if err := row.Scan(&s.ID, &s.WindowLabel, &today, &extended); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.CompletedToday = today != 0
	s.CompletedExtended = extended != 0
	return &s, nil
}

// GetOrCreateSession returns the session for a window label, creating it
// if absent. Losing a creation race is fine: the row exists either way.
func (db *DB) GetOrCreateSession(windowLabel string) (*Session, error) {
	existing, err := db.GetSession(windowLabel)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := db.InsertSession(windowLabel); err != nil && err != ErrConflict {
		return nil, err
	}
	return db.GetSession(windowLabel)
}

// MarkSessionCompletedToday sets the today-completion flag.
func (db *DB) MarkSessionCompletedToday(windowLabel string) error {
	_, err := db.conn.Exec(
		"UPDATE sessions SET completed_today = 1 WHERE window_label = ?", windowLabel,
	)
	return err
}

// MarkSessionCompletedExtended sets the extended-completion flag.
// Reaching extended coverage implies the today portion was consumed, so
// both flags are set.
func (db *DB) MarkSessionCompletedExtended(windowLabel string) error {
	_, err := db.conn.Exec(
		"UPDATE sessions SET completed_today = 1, completed_extended = 1 WHERE window_label = ?", windowLabel,
	)
	return err
}
