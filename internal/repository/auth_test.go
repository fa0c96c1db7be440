package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/studysync/internal/models"
	"github.com/lib/pq"
)

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestEmailExists(t *testing.T) {
	for _, want := range []bool{true, false} {
		repo, mock, cleanup := setupAuthMock(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`)).
			WithArgs("ann@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(want))

		got, err := repo.EmailExists(context.Background(), "ann@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("EmailExists = %v; want %v", got, want)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		cleanup()
	}
}

func TestCreateUser(t *testing.T) {
	user := models.User{ID: "u1", FullName: "Ann", Email: "ann@example.com", PasswordHash: []byte("hash"), Role: models.RoleUser}

	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{"success", nil, nil},
		{"duplicate email", &pq.Error{Code: "23505"}, models.ErrDuplicate},
		{"other failure", errors.New("insert failed"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAuthMock(t)
			defer cleanup()

			exp := mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (id, full_name, email, password_hash, role)`)).
				WithArgs("u1", "Ann", "ann@example.com", []byte("hash"), "user")
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := repo.CreateUser(context.Background(), user)
			switch {
			case tt.dbErr == nil && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Fatalf("error = %v; want %v", err, tt.wantErr)
			case tt.dbErr != nil && err == nil:
				t.Fatal("expected error, got nil")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestGetUserByEmail(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, full_name, email, password_hash, role, created_at FROM users WHERE email = $1`)).
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "password_hash", "role", "created_at"}).
			AddRow("u9", "Root", "admin@example.com", []byte("h"), "admin", created))

	u, err := repo.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u9" || u.Role != models.RoleAdmin || !u.CreatedAt.Equal(created) {
		t.Errorf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "password_hash", "role", "created_at"}))

	_, err := repo.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v; want ErrNotFound", err)
	}
}

func TestSetRole(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = $1 WHERE email = $2`)).
		WithArgs("admin", "ann@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = $1 WHERE email = $2`)).
		WithArgs("admin", "nobody@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetRole(context.Background(), "ann@example.com", models.RoleAdmin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.SetRole(context.Background(), "nobody@example.com", models.RoleAdmin); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v; want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
