package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/readrhq/readr/internal/edition"
)

// InsertEdition persists an edition and its cards in one transaction.
// Returns ErrConflict if an edition for the same window label already
// exists (another writer won the race).
func (db *DB) InsertEdition(ed *edition.Edition) error {
	if ed.ID == "" {
		ed.ID = uuid.NewString()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin insert edition: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO editions (id, window_label) VALUES (?, ?)",
		ed.ID, ed.WindowLabel,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("inserting edition: %w", err)
	}

	if err := insertCards(tx, ed.ID, ed.Cards); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceEditionCards swaps an edition's card rows for a new set in one
// transaction. Used when recomposing a seeded placeholder in place.
func (db *DB) ReplaceEditionCards(editionID string, cards []edition.Card) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin replace cards: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM cards WHERE edition_id = ?", editionID); err != nil {
		return fmt.Errorf("deleting cards: %w", err)
	}

	if err := insertCards(tx, editionID, cards); err != nil {
		return err
	}

	return tx.Commit()
}

// GetEditionByLabel returns the edition for a window label with its cards
// in position order, or nil if absent.
func (db *DB) GetEditionByLabel(label string) (*edition.Edition, error) {
	row := db.conn.QueryRow(
		"SELECT id, window_label FROM editions WHERE window_label = ?", label,
	)
	return db.scanEditionWithCards(row)
}

// GetLatestEdition returns the most recent edition by window label
// descending, or nil if none exist.
func (db *DB) GetLatestEdition() (*edition.Edition, error) {
	row := db.conn.QueryRow(
		"SELECT id, window_label FROM editions ORDER BY window_label DESC LIMIT 1",
	)
	return db.scanEditionWithCards(row)
}

func (db *DB) scanEditionWithCards(row *sql.Row) (*edition.Edition, error) {
	var ed edition.Edition
	if err := row.Scan(&ed.ID, &ed.WindowLabel); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	cards, err := db.getCards(ed.ID)
	if err != nil {
		return nil, err
	}
	ed.Cards = cards
	return &ed, nil
}

func (db *DB) getCards(editionID string) ([]edition.Card, error) {
	rows, err := db.conn.Query(
		`SELECT card_id, type, position, payload
		FROM cards WHERE edition_id = ? ORDER BY position`, editionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []edition.Card
	for rows.Next() {
		var c edition.Card
		var payload sql.NullString
		if err := rows.Scan(&c.CardID, &c.Type, &c.Position, &payload); err != nil {
			return nil, err
		}
		decodePayload(&c, payload)
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func insertCards(tx *sql.Tx, editionID string, cards []edition.Card) error {
	for _, c := range cards {
		payload, err := encodePayload(c)
		if err != nil {
			return fmt.Errorf("encoding payload for card %s: %w", c.CardID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO cards (id, edition_id, card_id, type, position, payload)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), editionID, c.CardID, c.Type, c.Position, payload,
		)
		if err != nil {
			return fmt.Errorf("inserting card %s: %w", c.CardID, err)
		}
	}
	return nil
}

// encodePayload serializes the card's variant payload, nil for the
// payload-less types.
func encodePayload(c edition.Card) (*string, error) {
	var v any
	switch {
	case c.Type == edition.CardHome && c.Home != nil:
		v = c.Home
	case c.Type == edition.CardNews && c.News != nil:
		v = c.News
	default:
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// decodePayload coerces the stored blob into the variant matching the card
// type. Malformed or missing blobs on payload-bearing types become an
// empty structurally valid payload rather than failing the read.
func decodePayload(c *edition.Card, payload sql.NullString) {
	switch c.Type {
	case edition.CardHome:
		home := &edition.HomePayload{}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), home); err != nil {
				home = &edition.HomePayload{}
			}
		}
		c.Home = home
	case edition.CardNews:
		news := &edition.NewsPayload{}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), news); err != nil {
				news = &edition.NewsPayload{}
			}
		}
		c.News = news
	}
}
