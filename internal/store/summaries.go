package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/readrhq/readr/internal/summary"
)

// GetSummaryByURL returns the cached summary for an item URL, or nil if
// absent.
func (db *DB) GetSummaryByURL(url string) (*summary.NewsSummary, error) {
	row := db.conn.QueryRow(
		"SELECT payload FROM summary_cache WHERE url = ?", url,
	)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var s summary.NewsSummary
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("decoding cached summary for %s: %w", url, err)
	}
	return &s, nil
}

// SetSummary upserts the cache entry for an item URL. Last write for a URL
// wins; updated_at is bumped on overwrite.
func (db *DB) SetSummary(url, title, source string, payload summary.NewsSummary) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO summary_cache (id, url, title, source, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			payload = excluded.payload,
			updated_at = datetime('now')`,
		uuid.NewString(), url, title, source, string(data),
	)
	if err != nil {
		return fmt.Errorf("upserting summary for %s: %w", url, err)
	}
	return nil
}
