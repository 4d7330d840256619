package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Transcript is one completed word and the sentence it left behind.
type Transcript struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Word      string    `json:"word"`
	Corrected string    `json:"corrected,omitempty"`
	Sentence  string    `json:"sentence"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptRepository records completed words.
type TranscriptRepository struct {
	db *sql.DB
}

// Transcripts returns the transcript repository for this store.
func (s *Store) Transcripts() *TranscriptRepository {
	return &TranscriptRepository{db: s.db}
}

// Append inserts t, assigning an ID and timestamp when missing.
func (r *TranscriptRepository) Append(t *Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO transcripts (id, session_id, word, corrected, sentence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Word, t.Corrected, t.Sentence, t.CreatedAt,
	)
	return err
}

// ListBySession returns a session's transcript in order. A positive limit
// keeps only the most recent entries.
func (r *TranscriptRepository) ListBySession(sessionID string, limit int) ([]*Transcript, error) {
	query := `SELECT id, session_id, word, corrected, sentence, created_at FROM (
		SELECT rowid, id, session_id, word, corrected, sentence, created_at
		FROM transcripts WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query += `) ORDER BY created_at ASC, rowid ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Transcript
	for rows.Next() {
		t := &Transcript{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Word, &t.Corrected, &t.Sentence, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
