// Package repository provides PostgreSQL persistence for users, notes,
// papers and attendance subjects.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a failed unique constraint.
const uniqueViolation = "23505"

// PostgresAuthRepository implements user persistence using a PostgreSQL database.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// EmailExists checks whether a user with the specified email exists in the database.
func (r *PostgresAuthRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	return exists, err
}

// CreateUser inserts a new user. A clash on email is reported as models.ErrDuplicate.
func (r *PostgresAuthRepository) CreateUser(ctx context.Context, u models.User) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, full_name, email, password_hash, role) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.FullName, u.Email, u.PasswordHash, string(u.Role),
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user registered with email, or models.ErrNotFound.
func (r *PostgresAuthRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

// GetUserByID returns the user with the given id, or models.ErrNotFound.
func (r *PostgresAuthRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *PostgresAuthRepository) getUser(ctx context.Context, where string, arg string) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, full_name, email, password_hash, role, created_at FROM users `+where,
		arg,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

// SetRole changes the role of the user registered with email.
func (r *PostgresAuthRepository) SetRole(ctx context.Context, email string, role models.Role) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET role = $1 WHERE email = $2`, string(role), email)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return expectAffected(res)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// expectAffected maps an update that touched no rows to models.ErrNotFound.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
