package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is a persisted signing session.
type Session struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
		sess.ID, sess.CreatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	var closed sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, created_at, closed_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.CreatedAt, &closed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if closed.Valid {
		sess.ClosedAt = &closed.Time
	}
	return sess, nil
}

// Close marks a session as closed at the given time.
func (r *SessionRepository) Close(id string, at time.Time) error {
	res, err := r.db.Exec(`UPDATE sessions SET closed_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT id, created_at, closed_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var closed sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &closed); err != nil {
			return nil, err
		}
		if closed.Valid {
			sess.ClosedAt = &closed.Time
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its transcript.
func (r *SessionRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}
