// Package client implements the StudySync command-line client: a local
// session store, a typed API client and the interactive shell.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/studysync/internal/models"
)

// Session is the token and user persisted between shell runs.
type Session struct {
	Token string             `json:"token,omitempty"`
	User  *models.PublicUser `json:"user,omitempty"`

	path string
	mu   sync.Mutex
}

// DefaultSessionPath returns the session file under the user config dir,
// falling back to the working directory.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".studysync-session.json"
	}
	return filepath.Join(dir, "studysync", "session.json")
}

// LoadSession reads the session stored at path. A missing file yields an
// empty session.
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	return s, nil
}

// Save writes the session file with owner-only permissions.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(s)
}

// SetToken stores the access token and persists the session.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.Token = token
	s.mu.Unlock()
	return s.Save()
}

// SetUser stores the signed-in user and persists the session.
func (s *Session) SetUser(u models.PublicUser) error {
	s.mu.Lock()
	s.User = &u
	s.mu.Unlock()
	return s.Save()
}

// Logout forgets the token and user.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.Token = ""
	s.User = nil
	s.mu.Unlock()
	return s.Save()
}

// AccessToken returns the stored token, or "" when signed out.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Token
}

// CurrentUser returns a copy of the stored user, or nil.
func (s *Session) CurrentUser() *models.PublicUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.User == nil {
		return nil
	}
	u := *s.User
	return &u
}

// IsAdmin reports whether the stored user has the admin role.
func (s *Session) IsAdmin() bool {
	u := s.CurrentUser()
	return u != nil && u.Role == models.RoleAdmin
}
