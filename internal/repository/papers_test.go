package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/studysync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPapersMock(t *testing.T) (*PostgresPapersRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresPapersRepository(db), mock
}

func TestListPapers(t *testing.T) {
	repo, mock := setupPapersMock(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM papers WHERE deleted_at IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "year", "semester", "term", "file_url", "file_key", "uploaded_by", "created_at"}).
			AddRow("p1", "Compilers", 2023, 6, "EndSem", "/uploads/p1.pdf", "p1.pdf", "admin", now))

	papers, err := repo.ListPapers(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, models.TermEndSem, papers[0].Term)
	assert.Equal(t, "/uploads/p1.pdf", papers[0].File.URL)
	assert.Equal(t, "p1.pdf", papers[0].File.Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaper(t *testing.T) {
	repo, mock := setupPapersMock(t)

	p := models.Paper{
		ID: "p1", Subject: "Compilers", Year: 2023, Semester: 6, Term: models.TermMidSem,
		File: models.PaperFile{URL: "/uploads/p1.pdf", Key: "p1.pdf"}, UploadedBy: "admin", CreatedAt: time.Now(),
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO papers`)).
		WithArgs("p1", "Compilers", 2023, 6, "MidSem", "/uploads/p1.pdf", "p1.pdf", "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.CreatePaper(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePaper(t *testing.T) {
	repo, mock := setupPapersMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE papers SET deleted_at = now()`)).
		WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE papers SET deleted_at = now()`)).
		WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE papers SET deleted_at = now()`)).
		WithArgs("p2").WillReturnError(errors.New("conn reset"))

	require.NoError(t, repo.DeletePaper(context.Background(), "p1"))
	assert.ErrorIs(t, repo.DeletePaper(context.Background(), "p1"), models.ErrNotFound)
	assert.ErrorContains(t, repo.DeletePaper(context.Background(), "p2"), "delete paper")
	assert.NoError(t, mock.ExpectationsWereMet())
}
