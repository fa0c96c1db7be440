package http

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/atinyakov/studysync/internal/middleware"
	"github.com/atinyakov/studysync/internal/models"
	"github.com/atinyakov/studysync/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is kept in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

// NotesService defines the note operations required by NotesHandler.
type NotesService interface {
	List(ctx context.Context, ownerID string) ([]models.Note, error)
	Create(ctx context.Context, ownerID string, in service.NoteInput, uploads []service.Upload) (*models.Note, error)
	Update(ctx context.Context, ownerID, id string, in service.NoteInput) (*models.Note, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// NotesHandler serves /api/notes.
type NotesHandler struct {
	NotesService NotesService
	Log          *zap.Logger
	// MaxUploadBytes caps the request body. Zero means no limit.
	MaxUploadBytes int64
}

// noteForm holds the text fields of a note form.
type noteForm struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
	Subject string `json:"subject"`
	Status  string `json:"status" validate:"omitempty,oneof=Pending Understood Revisit"`
}

func (f noteForm) input() service.NoteInput {
	return service.NoteInput{
		Title:   f.Title,
		Content: f.Content,
		Subject: f.Subject,
		Status:  models.NoteStatus(f.Status),
	}
}

// parseNoteForm reads a multipart or url-encoded note form. The returned
// error message is safe to show to clients.
func (h *NotesHandler) parseNoteForm(w http.ResponseWriter, r *http.Request) (noteForm, error) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return noteForm{}, badRequest{"File too large"}
		}
		return noteForm{}, badRequest{"invalid form data"}
	}

	f := noteForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Content: r.FormValue("content"),
		Subject: r.FormValue("subject"),
		Status:  r.FormValue("status"),
	}
	if err := validate.Struct(f); err != nil {
		return noteForm{}, badRequest{validationMessage(err)}
	}
	return f, nil
}

// List handles GET /api/notes.
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	notes, err := h.NotesService.List(r.Context(), userID)
	if err != nil {
		internalError(w, r, h.Log, "list notes failed", err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, envelope{"notes": notes})
}

// Create handles POST /api/notes/add. Files are read from the
// "attachments" form field.
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	form, err := h.parseNoteForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["attachments"]
	}
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			internalError(w, r, h.Log, "open attachment failed", err)
			return
		}
		defer f.Close()
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Body: f})
	}

	note, err := h.NotesService.Create(r.Context(), userID, form.input(), uploads)
	if err != nil {
		internalError(w, r, h.Log, "create note failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"note": note})
}

// Update handles PUT /api/notes/{id}.
func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	form, err := h.parseNoteForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	note, err := h.NotesService.Update(r.Context(), userID, id, form.input())
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		internalError(w, r, h.Log, "update note failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"note": note})
}

// Delete handles DELETE /api/notes/{id}.
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	err := h.NotesService.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		internalError(w, r, h.Log, "delete note failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Note deleted"})
}
