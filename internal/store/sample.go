package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample represents a recorded letter pose stored in the database.
type Sample struct {
	ID        int64           `json:"id"`
	Letter    string          `json:"letter"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// SampleRepository stores recorded letter poses.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts multiple samples for a letter in a single transaction.
func (r *SampleRepository) Create(letter string, samples []json.RawMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO letter_samples (letter, data, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, data := range samples {
		if _, err := stmt.Exec(letter, string(data), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByLetter retrieves all samples for a letter, oldest first.
func (r *SampleRepository) GetByLetter(letter string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, letter, data, created_at
		 FROM letter_samples
		 WHERE letter = ?
		 ORDER BY id`,
		letter,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.Letter, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Counts returns the number of samples recorded per letter.
func (r *SampleRepository) Counts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT letter, COUNT(*) FROM letter_samples GROUP BY letter`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var letter string
		var n int
		if err := rows.Scan(&letter, &n); err != nil {
			return nil, err
		}
		out[letter] = n
	}

	return out, rows.Err()
}

// DeleteByLetter removes all samples for a letter.
func (r *SampleRepository) DeleteByLetter(letter string) error {
	_, err := r.db.Exec(`DELETE FROM letter_samples WHERE letter = ?`, letter)
	return err
}
