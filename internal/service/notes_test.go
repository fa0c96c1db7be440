package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/atinyakov/studysync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobs keeps saved files in memory.
type fakeBlobs struct {
	mu      sync.Mutex
	files   map[string]string
	saveErr error
	saved   int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{files: map[string]string{}}
}

func (f *fakeBlobs) Save(_ context.Context, filename string, r io.Reader) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return storage.Object{}, f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	f.saved++
	format := "bin"
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		format = filename[i+1:]
	}
	key := filename + "-" + string(rune('a'+f.saved-1))
	f.files[key] = string(data)
	return storage.Object{Key: key, URL: "http://files/" + key, Format: format, Size: int64(len(data))}, nil
}

func (f *fakeBlobs) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	return nil
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type mockNotesRepo struct {
	ListNotesFunc  func(ctx context.Context, ownerID string) ([]models.Note, error)
	GetNoteFunc    func(ctx context.Context, ownerID, id string) (*models.Note, error)
	CreateNoteFunc func(ctx context.Context, n models.Note) error
	UpdateNoteFunc func(ctx context.Context, n models.Note) error
	DeleteNoteFunc func(ctx context.Context, ownerID, id string) error
}

func (m *mockNotesRepo) ListNotes(ctx context.Context, ownerID string) ([]models.Note, error) {
	return m.ListNotesFunc(ctx, ownerID)
}
func (m *mockNotesRepo) GetNote(ctx context.Context, ownerID, id string) (*models.Note, error) {
	return m.GetNoteFunc(ctx, ownerID, id)
}
func (m *mockNotesRepo) CreateNote(ctx context.Context, n models.Note) error {
	return m.CreateNoteFunc(ctx, n)
}
func (m *mockNotesRepo) UpdateNote(ctx context.Context, n models.Note) error {
	return m.UpdateNoteFunc(ctx, n)
}
func (m *mockNotesRepo) DeleteNote(ctx context.Context, ownerID, id string) error {
	return m.DeleteNoteFunc(ctx, ownerID, id)
}

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestNotesService(repo NotesRepository, blobs BlobStore) *NotesService {
	svc := NewNotesService(repo, blobs)
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "n1" }
	return svc
}

func TestNotesService_Create(t *testing.T) {
	var stored models.Note
	repo := &mockNotesRepo{
		CreateNoteFunc: func(ctx context.Context, n models.Note) error {
			stored = n
			return nil
		},
	}
	blobs := newFakeBlobs()
	svc := newTestNotesService(repo, blobs)

	note, err := svc.Create(context.Background(), "u1",
		NoteInput{Title: "  Limits ", Content: "epsilon-delta", Subject: " Calculus "},
		[]Upload{
			{Filename: "board.png", Body: strings.NewReader("png-bytes")},
			{Filename: "summary.pdf", Body: strings.NewReader("pdf-bytes")},
		})
	require.NoError(t, err)

	assert.Equal(t, "n1", note.ID)
	assert.Equal(t, "u1", note.OwnerID)
	assert.Equal(t, "Limits", note.Title)
	assert.Equal(t, "Calculus", note.Subject)
	assert.Equal(t, models.NotePending, note.Status)
	assert.Equal(t, fixedNow, note.CreatedAt)
	require.Len(t, note.Attachments, 2)
	assert.Equal(t, "png", note.Attachments[0].Format)
	assert.Equal(t, "pdf", note.Attachments[1].Format)
	assert.Equal(t, *note, stored)
	assert.Equal(t, 2, blobs.count())
}

func TestNotesService_CreateWithoutAttachments(t *testing.T) {
	repo := &mockNotesRepo{CreateNoteFunc: func(context.Context, models.Note) error { return nil }}
	note, err := newTestNotesService(repo, newFakeBlobs()).Create(context.Background(), "u1",
		NoteInput{Title: "t", Status: models.NoteRevisit}, nil)
	require.NoError(t, err)
	assert.NotNil(t, note.Attachments)
	assert.Empty(t, note.Attachments)
	assert.Equal(t, models.NoteRevisit, note.Status)
}

func TestNotesService_CreateDiscardsBlobsOnRepoError(t *testing.T) {
	repo := &mockNotesRepo{
		CreateNoteFunc: func(context.Context, models.Note) error { return errors.New("insert failed") },
	}
	blobs := newFakeBlobs()
	svc := newTestNotesService(repo, blobs)

	_, err := svc.Create(context.Background(), "u1", NoteInput{Title: "t"},
		[]Upload{{Filename: "a.txt", Body: strings.NewReader("a")}})
	require.Error(t, err)
	assert.Zero(t, blobs.count(), "orphaned attachment left in store")
}

func TestNotesService_CreateBlobError(t *testing.T) {
	repo := &mockNotesRepo{
		CreateNoteFunc: func(context.Context, models.Note) error {
			t.Fatal("CreateNote must not be called")
			return nil
		},
	}
	blobs := newFakeBlobs()
	blobs.saveErr = errors.New("disk full")

	_, err := newTestNotesService(repo, blobs).Create(context.Background(), "u1", NoteInput{Title: "t"},
		[]Upload{{Filename: "a.txt", Body: strings.NewReader("a")}})
	assert.ErrorIs(t, err, blobs.saveErr)
}

func TestNotesService_Update(t *testing.T) {
	existing := &models.Note{
		ID: "n1", OwnerID: "u1", Title: "New", Status: models.NoteUnderstood,
		Attachments: []models.Attachment{{Format: "pdf", URL: "http://files/x"}},
	}
	var updated models.Note
	repo := &mockNotesRepo{
		UpdateNoteFunc: func(ctx context.Context, n models.Note) error {
			updated = n
			return nil
		},
		GetNoteFunc: func(ctx context.Context, ownerID, id string) (*models.Note, error) {
			return existing, nil
		},
	}
	svc := newTestNotesService(repo, newFakeBlobs())

	got, err := svc.Update(context.Background(), "u1", "n1", NoteInput{Title: " New ", Status: models.NoteUnderstood})
	require.NoError(t, err)
	assert.Equal(t, existing, got)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, fixedNow, updated.UpdatedAt)
	assert.Nil(t, updated.Attachments)
}

func TestNotesService_UpdateNotFound(t *testing.T) {
	repo := &mockNotesRepo{
		UpdateNoteFunc: func(context.Context, models.Note) error { return models.ErrNotFound },
	}
	_, err := newTestNotesService(repo, newFakeBlobs()).Update(context.Background(), "u2", "n1", NoteInput{Title: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotesService_ListAndDelete(t *testing.T) {
	repo := &mockNotesRepo{
		ListNotesFunc: func(ctx context.Context, ownerID string) ([]models.Note, error) {
			assert.Equal(t, "u1", ownerID)
			return []models.Note{{ID: "n1"}}, nil
		},
		DeleteNoteFunc: func(ctx context.Context, ownerID, id string) error {
			if ownerID != "u1" {
				return models.ErrNotFound
			}
			return nil
		},
	}
	svc := newTestNotesService(repo, newFakeBlobs())

	notes, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	assert.NoError(t, svc.Delete(context.Background(), "u1", "n1"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "u2", "n1"), models.ErrNotFound)
}
