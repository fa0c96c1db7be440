package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrInvalidFile is returned when the paper payload is not a base64 PDF.
	ErrInvalidFile = errors.New("file must be a base64 encoded PDF")
	// ErrFileTooLarge is returned when the decoded paper exceeds the limit.
	ErrFileTooLarge = errors.New("file too large")
)

// PapersRepository defines the persistence operations needed by PapersService.
type PapersRepository interface {
	ListPapers(ctx context.Context) ([]models.Paper, error)
	CreatePaper(ctx context.Context, p models.Paper) error
	DeletePaper(ctx context.Context, id string) error
}

// PaperInput is the metadata and file of a paper upload.
type PaperInput struct {
	Subject  string
	Year     int
	Semester int
	Term     models.Term
	// FileBase64 is a data URL or bare standard base64.
	FileBase64 string
}

// PapersService implements paper listing, upload and removal.
type PapersService struct {
	repo     PapersRepository
	blobs    BlobStore
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

// NewPapersService constructs a PapersService that accepts files up to maxBytes.
func NewPapersService(repo PapersRepository, blobs BlobStore, maxBytes int64) *PapersService {
	return &PapersService{repo: repo, blobs: blobs, maxBytes: maxBytes, now: time.Now, newID: uuid.NewString}
}

// List returns every paper matching filter.
func (s *PapersService) List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, error) {
	papers, err := s.repo.ListPapers(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Empty() {
		return papers, nil
	}
	return filter.Apply(papers), nil
}

// DecodeFileData accepts "data:<mime>;base64,<payload>" or a bare base64
// payload and returns the decoded bytes.
func DecodeFileData(raw string) ([]byte, error) {
	payload := strings.TrimSpace(raw)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, ErrInvalidFile
		}
		payload = payload[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, ErrInvalidFile
	}
	return data, nil
}

// Upload validates the PDF, stores it and records the paper.
func (s *PapersService) Upload(ctx context.Context, uploaderID string, in PaperInput) (*models.Paper, error) {
	data, err := DecodeFileData(in.FileBase64)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return nil, ErrInvalidFile
	}

	subject := strings.TrimSpace(in.Subject)
	obj, err := s.blobs.Save(ctx, subject+".pdf", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store paper: %w", err)
	}

	paper := models.Paper{
		ID:         s.newID(),
		Subject:    subject,
		Year:       in.Year,
		Semester:   in.Semester,
		Term:       in.Term,
		File:       models.PaperFile{URL: obj.URL, Key: obj.Key},
		UploadedBy: uploaderID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreatePaper(ctx, paper); err != nil {
		_ = s.blobs.Remove(context.Background(), obj.Key)
		return nil, fmt.Errorf("create paper: %w", err)
	}
	return &paper, nil
}

// Delete removes a paper by id.
func (s *PapersService) Delete(ctx context.Context, id string) error {
	return s.repo.DeletePaper(ctx, id)
}
