package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrEmptySubject is returned when a subject name is blank.
	ErrEmptySubject = errors.New("subject name is required")
	// ErrInvalidStatus is returned for a mark other than Present, Absent or Undo.
	ErrInvalidStatus = errors.New("invalid attendance status")
)

// AttendanceRepository defines the persistence operations needed by AttendanceService.
type AttendanceRepository interface {
	ListSubjects(ctx context.Context, ownerID string) ([]models.Subject, error)
	CreateSubject(ctx context.Context, s models.Subject) error
	DeleteSubject(ctx context.Context, ownerID, id string) error
	// UpdateSubjectLocked runs fn on the subject inside a transaction holding
	// its row lock and persists the result.
	UpdateSubjectLocked(ctx context.Context, ownerID, id string, fn func(*models.Subject) error) (*models.Subject, error)
}

// AttendanceService implements subject tracking and marking.
type AttendanceService struct {
	repo  AttendanceRepository
	now   func() time.Time
	newID func() string
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo AttendanceRepository) *AttendanceService {
	return &AttendanceService{repo: repo, now: time.Now, newID: uuid.NewString}
}

// List returns the subjects of ownerID.
func (s *AttendanceService) List(ctx context.Context, ownerID string) ([]models.Subject, error) {
	return s.repo.ListSubjects(ctx, ownerID)
}

// AddSubject creates a subject with no classes counted.
func (s *AttendanceService) AddSubject(ctx context.Context, ownerID, name string) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptySubject
	}

	subject := models.Subject{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Name:      name,
		History:   []models.HistoryEntry{},
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateSubject(ctx, subject); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return &subject, nil
}

// Mark records Present, Absent or Undo for a subject.
func (s *AttendanceService) Mark(ctx context.Context, ownerID, id string, status models.AttendanceStatus) (*models.Subject, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	at := s.now().UTC()
	return s.repo.UpdateSubjectLocked(ctx, ownerID, id, func(subject *models.Subject) error {
		return subject.Mark(status, at)
	})
}

// Rename changes the name of a subject.
func (s *AttendanceService) Rename(ctx context.Context, ownerID, id, name string) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptySubject
	}
	return s.repo.UpdateSubjectLocked(ctx, ownerID, id, func(subject *models.Subject) error {
		subject.Name = name
		return nil
	})
}

// Delete removes a subject and its history.
func (s *AttendanceService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.DeleteSubject(ctx, ownerID, id)
}
