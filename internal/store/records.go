package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

// SaveRecords upserts scored records. A record already stored under the
// same ID is fully replaced.
func (s *Store) SaveRecords(runID string, recs []types.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO records (id, date, author, text, shares, favorites, tags, sentiment,
			referenced_id, referenced_author, referenced_text, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			author = excluded.author,
			text = excluded.text,
			shares = excluded.shares,
			favorites = excluded.favorites,
			tags = excluded.tags,
			sentiment = excluded.sentiment,
			referenced_id = excluded.referenced_id,
			referenced_author = excluded.referenced_author,
			referenced_text = excluded.referenced_text,
			run_id = excluded.run_id
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		tagsJSON, _ := json.Marshal(r.Tags)
		var refID, refAuthor, refText sql.NullString
		if r.Referenced != nil {
			refID = sql.NullString{String: r.Referenced.ID, Valid: true}
			refAuthor = sql.NullString{String: r.Referenced.Author, Valid: true}
			refText = sql.NullString{String: r.Referenced.Text, Valid: true}
		}

		_, err := stmt.Exec(r.ID, string(r.Date), r.Author, r.Text, r.Shares, r.Favorites,
			string(tagsJSON), r.Sentiment, refID, refAuthor, refText, runID)
		if err != nil {
			return fmt.Errorf("failed to save record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// GetRecord returns a stored record.
func (s *Store) GetRecord(id string) (*types.Record, error) {
	row := s.db.QueryRow(`
		SELECT id, date, author, text, shares, favorites, tags, sentiment,
			referenced_id, referenced_author, referenced_text
		FROM records WHERE id = ?
	`, id)
	return scanRecord(row)
}

// RecordsByDate returns the stored records of a date.
func (s *Store) RecordsByDate(date types.Date) ([]types.Record, error) {
	rows, err := s.db.Query(`
		SELECT id, date, author, text, shares, favorites, tags, sentiment,
			referenced_id, referenced_author, referenced_text
		FROM records WHERE date = ?
		ORDER BY id
	`, string(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []types.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

// RecordCount returns the number of stored records.
func (s *Store) RecordCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

func scanRecord(row rowScanner) (*types.Record, error) {
	var r types.Record
	var date string
	var author, tagsJSON, refID, refAuthor, refText sql.NullString

	err := row.Scan(&r.ID, &date, &author, &r.Text, &r.Shares, &r.Favorites, &tagsJSON,
		&r.Sentiment, &refID, &refAuthor, &refText)
	if err != nil {
		return nil, err
	}

	r.Date = types.Date(date)
	r.Author = author.String
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &r.Tags)
	}
	if refID.Valid {
		r.Referenced = &types.ReferencedRecord{
			ID:     refID.String,
			Author: refAuthor.String,
			Text:   refText.String,
		}
	}
	return &r, nil
}
