package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrEmptyWord is returned when a blank word or correction is stored.
var ErrEmptyWord = errors.New("empty word")

// VocabularyRepository stores user words for autocorrect.
type VocabularyRepository struct {
	db *sql.DB
}

// Vocabulary returns the vocabulary repository for this store.
func (s *Store) Vocabulary() *VocabularyRepository {
	return &VocabularyRepository{db: s.db}
}

// Add inserts word, lowercased. Adding an existing word is a no-op.
func (r *VocabularyRepository) Add(word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return ErrEmptyWord
	}
	_, err := r.db.Exec(
		`INSERT INTO vocabulary (word, created_at) VALUES (?, ?) ON CONFLICT(word) DO NOTHING`,
		word, time.Now(),
	)
	return err
}

// Remove deletes word.
func (r *VocabularyRepository) Remove(word string) error {
	res, err := r.db.Exec(`DELETE FROM vocabulary WHERE word = ?`, strings.ToLower(strings.TrimSpace(word)))
	if err != nil {
		return err
	}
	return affected(res)
}

// List returns all words in insertion order.
func (r *VocabularyRepository) List() ([]string, error) {
	rows, err := r.db.Query(`SELECT word FROM vocabulary ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}

	return words, rows.Err()
}

// CorrectionRepository stores user misspelling replacements.
type CorrectionRepository struct {
	db *sql.DB
}

// Corrections returns the correction repository for this store.
func (s *Store) Corrections() *CorrectionRepository {
	return &CorrectionRepository{db: s.db}
}

// Set inserts or replaces the correction for misspelling.
func (r *CorrectionRepository) Set(misspelling, replacement string) error {
	misspelling = strings.ToLower(strings.TrimSpace(misspelling))
	replacement = strings.TrimSpace(replacement)
	if misspelling == "" || replacement == "" {
		return ErrEmptyWord
	}
	_, err := r.db.Exec(
		`INSERT INTO corrections (misspelling, replacement, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(misspelling) DO UPDATE SET replacement = excluded.replacement`,
		misspelling, replacement, time.Now(),
	)
	return err
}

// Delete removes the correction for misspelling.
func (r *CorrectionRepository) Delete(misspelling string) error {
	res, err := r.db.Exec(`DELETE FROM corrections WHERE misspelling = ?`, strings.ToLower(strings.TrimSpace(misspelling)))
	if err != nil {
		return err
	}
	return affected(res)
}

// All returns every correction.
func (r *CorrectionRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT misspelling, replacement FROM corrections`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}

	return out, rows.Err()
}
