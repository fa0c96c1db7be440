package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/lib/pq"
)

// PostgresAttendanceRepository stores attendance subjects and their history.
type PostgresAttendanceRepository struct {
	DB *sql.DB
}

// NewPostgresAttendanceRepository creates an attendance repository on db.
func NewPostgresAttendanceRepository(db *sql.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{DB: db}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListSubjects returns the subjects of ownerID in creation order, each with
// its full history.
func (r *PostgresAttendanceRepository) ListSubjects(ctx context.Context, ownerID string) ([]models.Subject, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, owner_id, subject, attended_classes, total_classes, created_at
		FROM subjects WHERE owner_id = $1
		ORDER BY created_at, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := []models.Subject{}
	index := map[string]int{}
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.AttendedClasses, &s.TotalClasses, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		s.History = []models.HistoryEntry{}
		index[s.ID] = len(subjects)
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	if len(subjects) == 0 {
		return subjects, nil
	}

	ids := make([]string, len(subjects))
	for i, s := range subjects {
		ids[i] = s.ID
	}
	history, err := loadHistory(ctx, r.DB, ids)
	if err != nil {
		return nil, err
	}
	for id, entries := range history {
		subjects[index[id]].History = entries
	}
	return subjects, nil
}

func loadHistory(ctx context.Context, q querier, subjectIDs []string) (map[string][]models.HistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT subject_id, status, marked_at FROM attendance_history
		WHERE subject_id = ANY($1)
		ORDER BY subject_id, seq
	`, pq.Array(subjectIDs))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := map[string][]models.HistoryEntry{}
	for rows.Next() {
		var (
			id     string
			status string
			e      models.HistoryEntry
		)
		if err := rows.Scan(&id, &status, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Status = models.AttendanceStatus(status)
		out[id] = append(out[id], e)
	}
	return out, rows.Err()
}

// CreateSubject inserts a subject with zero counters.
func (r *PostgresAttendanceRepository) CreateSubject(ctx context.Context, s models.Subject) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO subjects (id, owner_id, subject, attended_classes, total_classes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.OwnerID, s.Name, s.AttendedClasses, s.TotalClasses, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

// DeleteSubject removes a subject and, by cascade, its history.
func (r *PostgresAttendanceRepository) DeleteSubject(ctx context.Context, ownerID, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM subjects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return expectAffected(res)
}

// UpdateSubjectLocked loads a subject under a row lock, lets fn modify it and
// persists the counters together with any history entries fn appended.
// If fn returns an error nothing is written and that error is returned.
func (r *PostgresAttendanceRepository) UpdateSubjectLocked(
	ctx context.Context,
	ownerID, id string,
	fn func(*models.Subject) error,
) (*models.Subject, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var s models.Subject
	err = tx.QueryRowContext(ctx, `
		SELECT id, owner_id, subject, attended_classes, total_classes, created_at
		FROM subjects WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`, id, ownerID).Scan(&s.ID, &s.OwnerID, &s.Name, &s.AttendedClasses, &s.TotalClasses, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock subject: %w", err)
	}

	history, err := loadHistory(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}
	s.History = history[id]
	if s.History == nil {
		s.History = []models.HistoryEntry{}
	}
	before := len(s.History)

	if err := fn(&s); err != nil {
		return nil, err
	}

	for seq := before; seq < len(s.History); seq++ {
		e := s.History[seq]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_history (subject_id, seq, status, marked_at)
			VALUES ($1, $2, $3, $4)
		`, id, seq, string(e.Status), e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("insert history: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE subjects SET subject = $1, attended_classes = $2, total_classes = $3 WHERE id = $4
	`, s.Name, s.AttendedClasses, s.TotalClasses, id)
	if err != nil {
		return nil, fmt.Errorf("update subject: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &s, nil
}
