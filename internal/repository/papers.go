package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/studysync/internal/models"
)

// PostgresPapersRepository stores previous-year paper metadata.
type PostgresPapersRepository struct {
	DB *sql.DB
}

// NewPostgresPapersRepository creates a papers repository on db.
func NewPostgresPapersRepository(db *sql.DB) *PostgresPapersRepository {
	return &PostgresPapersRepository{DB: db}
}

// ListPapers returns every live paper, newest first.
func (r *PostgresPapersRepository) ListPapers(ctx context.Context) ([]models.Paper, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, subject, year, semester, term, file_url, file_key, COALESCE(uploaded_by, ''), created_at
		FROM papers WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	papers := []models.Paper{}
	for rows.Next() {
		var (
			p    models.Paper
			term string
		)
		if err := rows.Scan(&p.ID, &p.Subject, &p.Year, &p.Semester, &term,
			&p.File.URL, &p.File.Key, &p.UploadedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		p.Term = models.Term(term)
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// CreatePaper inserts a paper record.
func (r *PostgresPapersRepository) CreatePaper(ctx context.Context, p models.Paper) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO papers (id, subject, year, semester, term, file_url, file_key, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	`, p.ID, p.Subject, p.Year, p.Semester, string(p.Term), p.File.URL, p.File.Key, p.UploadedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert paper: %w", err)
	}
	return nil
}

// DeletePaper soft-deletes a paper; the cleaner purges it and its file later.
func (r *PostgresPapersRepository) DeletePaper(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE papers SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	return expectAffected(res)
}
