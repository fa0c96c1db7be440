package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/lib/pq"
)

// PostgresNotesRepository stores notes and their attachment metadata.
type PostgresNotesRepository struct {
	DB *sql.DB
}

// NewPostgresNotesRepository creates a notes repository on db.
func NewPostgresNotesRepository(db *sql.DB) *PostgresNotesRepository {
	return &PostgresNotesRepository{DB: db}
}

const noteColumns = `id, owner_id, title, content, subject, status, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (models.Note, error) {
	var (
		n      models.Note
		status string
	)
	err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.Subject, &status, &n.CreatedAt, &n.UpdatedAt)
	n.Status = models.NoteStatus(status)
	n.Attachments = []models.Attachment{}
	return n, err
}

// ListNotes returns the live notes of ownerID, newest first, with attachments.
func (r *PostgresNotesRepository) ListNotes(ctx context.Context, ownerID string) ([]models.Note, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	index := map[string]int{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		index[n.ID] = len(notes)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if len(notes) == 0 {
		return notes, nil
	}

	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	byNote, err := r.attachments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, atts := range byNote {
		notes[index[id]].Attachments = atts
	}
	return notes, nil
}

// GetNote returns a single live note of ownerID, or models.ErrNotFound.
func (r *PostgresNotesRepository) GetNote(ctx context.Context, ownerID, id string) (*models.Note, error) {
	n, err := scanNote(r.DB.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	byNote, err := r.attachments(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if atts, ok := byNote[id]; ok {
		n.Attachments = atts
	}
	return &n, nil
}

func (r *PostgresNotesRepository) attachments(ctx context.Context, noteIDs []string) (map[string][]models.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT note_id, format, url, storage_key FROM note_attachments
		WHERE note_id = ANY($1)
		ORDER BY note_id, position
	`, pq.Array(noteIDs))
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	out := map[string][]models.Attachment{}
	for rows.Next() {
		var (
			noteID string
			a      models.Attachment
		)
		if err := rows.Scan(&noteID, &a.Format, &a.URL, &a.Key); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[noteID] = append(out[noteID], a)
	}
	return out, rows.Err()
}

// CreateNote inserts a note and its attachments in one transaction.
func (r *PostgresNotesRepository) CreateNote(ctx context.Context, n models.Note) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, subject, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.OwnerID, n.Title, n.Content, n.Subject, string(n.Status), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	for i, a := range n.Attachments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO note_attachments (note_id, position, format, url, storage_key)
			VALUES ($1, $2, $3, $4, $5)
		`, n.ID, i, a.Format, a.URL, a.Key)
		if err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateNote replaces the text fields of a live note owned by n.OwnerID.
func (r *PostgresNotesRepository) UpdateNote(ctx context.Context, n models.Note) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notes SET title = $1, content = $2, subject = $3, status = $4, updated_at = $5
		WHERE id = $6 AND owner_id = $7 AND deleted_at IS NULL
	`, n.Title, n.Content, n.Subject, string(n.Status), n.UpdatedAt, n.ID, n.OwnerID)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return expectAffected(res)
}

// DeleteNote soft-deletes a note; the cleaner purges it later.
func (r *PostgresNotesRepository) DeleteNote(ctx context.Context, ownerID, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notes SET deleted_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectAffected(res)
}
