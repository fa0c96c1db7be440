package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/studysync/internal/middleware"
	"github.com/atinyakov/studysync/internal/models"
	"github.com/atinyakov/studysync/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AttendanceService defines the attendance operations required by
// AttendanceHandler.
type AttendanceService interface {
	List(ctx context.Context, ownerID string) ([]models.Subject, error)
	AddSubject(ctx context.Context, ownerID, name string) (*models.Subject, error)
	Mark(ctx context.Context, ownerID, id string, status models.AttendanceStatus) (*models.Subject, error)
	Rename(ctx context.Context, ownerID, id, name string) (*models.Subject, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// AttendanceHandler serves /api/attendance.
type AttendanceHandler struct {
	AttendanceService AttendanceService
	Log               *zap.Logger
}

// SubjectRequest is the body of add-subject and edit requests.
type SubjectRequest struct {
	Subject string `json:"subject" validate:"required"`
}

// MarkRequest is the body of a mark request.
type MarkRequest struct {
	Status string `json:"status" validate:"required,oneof=Present Absent Undo"`
}

// List handles GET /api/attendance.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	subjects, err := h.AttendanceService.List(r.Context(), userID)
	if err != nil {
		internalError(w, r, h.Log, "list subjects failed", err)
		return
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	writeJSON(w, http.StatusOK, envelope{"data": subjects})
}

// AddSubject handles POST /api/attendance/add-subject.
func (h *AttendanceHandler) AddSubject(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req SubjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := h.AttendanceService.AddSubject(r.Context(), userID, req.Subject)
	if err != nil {
		h.fail(w, r, "add subject failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"data": subject})
}

// Mark handles PATCH /api/attendance/mark/{id}.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req MarkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := h.AttendanceService.Mark(r.Context(), userID, chi.URLParam(r, "id"), models.AttendanceStatus(req.Status))
	if err != nil {
		h.fail(w, r, "mark attendance failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"data": subject})
}

// Edit handles PATCH /api/attendance/edit/{id}.
func (h *AttendanceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req SubjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := h.AttendanceService.Rename(r.Context(), userID, chi.URLParam(r, "id"), req.Subject)
	if err != nil {
		h.fail(w, r, "rename subject failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"data": subject})
}

// Delete handles DELETE /api/attendance/{id}.
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	if err := h.AttendanceService.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete subject failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Subject deleted"})
}

func (h *AttendanceHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Subject not found")
	case errors.Is(err, models.ErrNothingToUndo):
		writeError(w, http.StatusBadRequest, "Nothing to undo")
	case errors.Is(err, service.ErrEmptySubject):
		writeError(w, http.StatusBadRequest, "Subject name is required")
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid status")
	default:
		internalError(w, r, h.Log, msg, err)
	}
}
