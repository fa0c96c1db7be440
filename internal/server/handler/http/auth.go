// Package http provides the HTTP handlers and routing of the StudySync API.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/studysync/internal/middleware"
	"github.com/atinyakov/studysync/internal/models"
	"github.com/atinyakov/studysync/internal/service"
	"go.uber.org/zap"
)

// AuthService defines the authentication operations required by AuthHandler.
type AuthService interface {
	Signup(ctx context.Context, fullName, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// AuthHandler handles signup, login and profile requests.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// SignupRequest represents the JSON payload for user registration.
type SignupRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *SignupRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.AuthService.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if errors.Is(err, service.ErrUserExists) {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		internalError(w, r, h.Log, "signup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"token": res.Token, "user": res.User})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "Wrong password")
		return
	case err != nil:
		internalError(w, r, h.Log, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"token": res.Token, "user": res.User})
}

// Me handles GET /api/auth/me and returns the caller's public profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	u, err := h.AuthService.GetUser(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(w, r, h.Log, "load user failed", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"user": u.Public()})
}
