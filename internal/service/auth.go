// Package service provides the StudySync business logic: authentication,
// notes, papers and attendance. Persistence is delegated to repository
// interfaces and file storage to a BlobStore.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned by Signup when the email is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidEmail is returned by Login when no user has the email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWrongPassword is returned by Login on a hash mismatch.
	ErrWrongPassword = errors.New("wrong password")
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// EmailExists returns true if a user with the given email exists.
	EmailExists(ctx context.Context, email string) (bool, error)
	// CreateUser stores a new user, returning models.ErrDuplicate on an email clash.
	CreateUser(ctx context.Context, u models.User) error
	// GetUserByEmail returns models.ErrNotFound when no user matches.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns models.ErrNotFound when no user matches.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// SetRole changes the role of the user with the given email.
	SetRole(ctx context.Context, email string, role models.Role) error
}

// TokenIssuer signs access tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	Token string
	User  models.PublicUser
}

// Service implements authentication operations by delegating
// to an AuthRepository.
type Service struct {
	// repo performs the data-layer operations.
	repo   AuthRepository
	tokens TokenIssuer
	// cost is the bcrypt work factor.
	cost  int
	newID func() string
}

// NewAuthService constructs a new Service using the provided repository and
// token issuer.
func NewAuthService(repo AuthRepository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost, newID: uuid.NewString}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new user with role "user" and returns a token for it.
func (s *Service) Signup(ctx context.Context, fullName, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           s.newID(),
		FullName:     strings.TrimSpace(fullName),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login checks the credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidEmail
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	return s.issue(*user)
}

func (s *Service) issue(user models.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: tok, User: user.Public()}, nil
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// SetRole grants or revokes the admin role. It is used by the admin CLI only.
func (s *Service) SetRole(ctx context.Context, email string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	return s.repo.SetRole(ctx, NormalizeEmail(email), role)
}
