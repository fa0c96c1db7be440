package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/studysync/internal/middleware"
	"github.com/atinyakov/studysync/internal/models"
	"github.com/atinyakov/studysync/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PapersService defines the paper operations required by PapersHandler.
type PapersService interface {
	List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, error)
	Upload(ctx context.Context, uploaderID string, in service.PaperInput) (*models.Paper, error)
	Delete(ctx context.Context, id string) error
}

// PapersHandler serves /api/pypapers.
type PapersHandler struct {
	PapersService PapersService
	Log           *zap.Logger
	// MaxUploadBytes is the largest decoded PDF accepted. The request body
	// limit is derived from it to leave room for base64 overhead.
	MaxUploadBytes int64
}

// UploadPaperRequest is the JSON body of a paper upload.
type UploadPaperRequest struct {
	Subject    string  `json:"subject" validate:"required"`
	Year       flexInt `json:"year" validate:"required,min=1900,max=3000"`
	Semester   flexInt `json:"semester" validate:"required,min=1,max=12"`
	Term       string  `json:"term" validate:"required,oneof=MidSem EndSem"`
	FileBase64 string  `json:"fileBase64" validate:"required"`
}

func (r *UploadPaperRequest) normalize() {
	r.Subject = strings.TrimSpace(r.Subject)
}

// flexInt decodes from a JSON number or a numeric string, as browser
// forms send "2023" rather than 2023. An empty string decodes to zero.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err == nil {
		*n = flexInt(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

// parseFilter reads the optional subject, year, semester and term query
// parameters.
func parseFilter(r *http.Request) (models.PaperFilter, error) {
	q := r.URL.Query()
	f := models.PaperFilter{
		Subject: strings.TrimSpace(q.Get("subject")),
		Term:    models.Term(q.Get("term")),
	}
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, badRequest{"year must be a number"}
		}
		f.Year = n
	}
	if v := q.Get("semester"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, badRequest{"semester must be a number"}
		}
		f.Semester = n
	}
	if f.Term != "" && !f.Term.Valid() {
		return f, badRequest{"term must be one of: MidSem, EndSem"}
	}
	return f, nil
}

// List handles GET /api/pypapers.
func (h *PapersHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	papers, err := h.PapersService.List(r.Context(), filter)
	if err != nil {
		internalError(w, r, h.Log, "list papers failed", err)
		return
	}
	if papers == nil {
		papers = []models.Paper{}
	}
	writeJSON(w, http.StatusOK, envelope{"papers": papers})
}

// Upload handles POST /api/pypapers/upload.
func (h *PapersHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes*4/3 + 64<<10)
	}

	var req UploadPaperRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paper, err := h.PapersService.Upload(r.Context(), userID, service.PaperInput{
		Subject:    req.Subject,
		Year:       int(req.Year),
		Semester:   int(req.Semester),
		Term:       models.Term(req.Term),
		FileBase64: req.FileBase64,
	})
	switch {
	case errors.Is(err, service.ErrInvalidFile):
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	case errors.Is(err, service.ErrFileTooLarge):
		writeError(w, http.StatusBadRequest, "File too large")
		return
	case err != nil:
		internalError(w, r, h.Log, "upload paper failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"paper": paper})
}

// Delete handles DELETE /api/pypapers/{id}.
func (h *PapersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.PapersService.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Paper not found")
		return
	}
	if err != nil {
		internalError(w, r, h.Log, "delete paper failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Paper deleted"})
}
