package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Template is a trained letter pose.
type Template struct {
	Letter    string             `json:"letter"`
	Landmarks []detector.Point3D `json:"landmarks"`
	Tolerance float64            `json:"tolerance"`
	Samples   int                `json:"samples"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TemplateRepository stores trained letter templates, one per letter.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Save inserts or replaces the template for t.Letter.
func (r *TemplateRepository) Save(t *Template) error {
	data, err := json.Marshal(t.Landmarks)
	if err != nil {
		return fmt.Errorf("encode landmarks: %w", err)
	}
	t.UpdatedAt = time.Now()

	_, err = r.db.Exec(
		`INSERT INTO letter_templates (letter, landmarks, tolerance, samples, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(letter) DO UPDATE SET
			landmarks = excluded.landmarks,
			tolerance = excluded.tolerance,
			samples = excluded.samples,
			updated_at = excluded.updated_at`,
		t.Letter, string(data), t.Tolerance, t.Samples, t.UpdatedAt,
	)
	return err
}

// GetByLetter retrieves the template for letter.
func (r *TemplateRepository) GetByLetter(letter string) (*Template, error) {
	row := r.db.QueryRow(
		`SELECT letter, landmarks, tolerance, samples, updated_at
		 FROM letter_templates WHERE letter = ?`,
		letter,
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// List retrieves all templates ordered by letter.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(
		`SELECT letter, landmarks, tolerance, samples, updated_at
		 FROM letter_templates ORDER BY letter`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Delete removes the template for letter.
func (r *TemplateRepository) Delete(letter string) error {
	res, err := r.db.Exec(`DELETE FROM letter_templates WHERE letter = ?`, letter)
	if err != nil {
		return err
	}
	return affected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (*Template, error) {
	t := &Template{}
	var data string
	if err := s.Scan(&t.Letter, &data, &t.Tolerance, &t.Samples, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &t.Landmarks); err != nil {
		return nil, fmt.Errorf("decode landmarks for %s: %w", t.Letter, err)
	}
	return t, nil
}
