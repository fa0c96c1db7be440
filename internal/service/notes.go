package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/atinyakov/studysync/internal/storage"
	"github.com/google/uuid"
)

// BlobStore persists uploaded files.
type BlobStore interface {
	// Save stores r and returns where it can be fetched from.
	Save(ctx context.Context, filename string, r io.Reader) (storage.Object, error)
	// Remove deletes a stored file by key.
	Remove(ctx context.Context, key string) error
}

// NotesRepository defines the persistence operations needed by NotesService.
type NotesRepository interface {
	ListNotes(ctx context.Context, ownerID string) ([]models.Note, error)
	GetNote(ctx context.Context, ownerID, id string) (*models.Note, error)
	CreateNote(ctx context.Context, n models.Note) error
	UpdateNote(ctx context.Context, n models.Note) error
	DeleteNote(ctx context.Context, ownerID, id string) error
}

// NoteInput carries the editable fields of a note.
type NoteInput struct {
	Title   string
	Content string
	Subject string
	Status  models.NoteStatus
}

// Upload is a file received with a note.
type Upload struct {
	Filename string
	Body     io.Reader
}

// NotesService implements note CRUD and attachment storage.
type NotesService struct {
	repo  NotesRepository
	blobs BlobStore
	now   func() time.Time
	newID func() string
}

// NewNotesService constructs a NotesService.
func NewNotesService(repo NotesRepository, blobs BlobStore) *NotesService {
	return &NotesService{repo: repo, blobs: blobs, now: time.Now, newID: uuid.NewString}
}

func (in NoteInput) normalize() NoteInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Status == "" {
		in.Status = models.NotePending
	}
	return in
}

// List returns the notes of ownerID.
func (s *NotesService) List(ctx context.Context, ownerID string) ([]models.Note, error) {
	return s.repo.ListNotes(ctx, ownerID)
}

// Create stores the uploads and then the note. If the note cannot be saved,
// the uploaded files are removed again.
func (s *NotesService) Create(ctx context.Context, ownerID string, in NoteInput, uploads []Upload) (*models.Note, error) {
	in = in.normalize()
	now := s.now().UTC()
	note := models.Note{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Content:     in.Content,
		Subject:     in.Subject,
		Status:      in.Status,
		Attachments: make([]models.Attachment, 0, len(uploads)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, up := range uploads {
		obj, err := s.blobs.Save(ctx, up.Filename, up.Body)
		if err != nil {
			s.discard(note.Attachments)
			return nil, fmt.Errorf("store attachment %q: %w", up.Filename, err)
		}
		note.Attachments = append(note.Attachments, models.Attachment{Format: obj.Format, URL: obj.URL, Key: obj.Key})
	}

	if err := s.repo.CreateNote(ctx, note); err != nil {
		s.discard(note.Attachments)
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &note, nil
}

// discard removes stored files that no record points to. It uses a fresh
// context because the request context is usually what failed.
func (s *NotesService) discard(atts []models.Attachment) {
	for _, a := range atts {
		_ = s.blobs.Remove(context.Background(), a.Key)
	}
}

// Update replaces the text fields of a note. Attachments are kept as they are.
func (s *NotesService) Update(ctx context.Context, ownerID, id string, in NoteInput) (*models.Note, error) {
	in = in.normalize()
	note := models.Note{
		ID:        id,
		OwnerID:   ownerID,
		Title:     in.Title,
		Content:   in.Content,
		Subject:   in.Subject,
		Status:    in.Status,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.UpdateNote(ctx, note); err != nil {
		return nil, err
	}
	return s.repo.GetNote(ctx, ownerID, id)
}

// Delete removes a note of ownerID.
func (s *NotesService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.DeleteNote(ctx, ownerID, id)
}
