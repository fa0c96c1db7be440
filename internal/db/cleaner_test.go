package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fakeBlobs struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeBlobs) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	return f.err
}

func TestPurgeDeleted_RemovesBlobsThenRows(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT a.storage_key FROM note_attachments").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("a.pdf").AddRow("b.png"))
	mock.ExpectExec("DELETE FROM notes").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM papers").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))

	blobs := &fakeBlobs{}
	removed, err := purgeDeleted(context.Background(), dbMock, blobs, cutoff, zap.NewNop())
	if err != nil {
		t.Fatalf("purgeDeleted error: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d; want 3", removed)
	}
	if got := strings.Join(blobs.removed, ","); got != "a.pdf,b.png" {
		t.Errorf("removed blobs = %q; want %q", got, "a.pdf,b.png")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPurgeDeleted_BlobErrorDoesNotStopPurge(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectQuery("SELECT a.storage_key").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("gone.pdf"))
	mock.ExpectExec("DELETE FROM notes").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM papers").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	blobs := &fakeBlobs{err: errors.New("disk full")}
	removed, err := purgeDeleted(context.Background(), dbMock, blobs, time.Now(), zap.NewNop())
	if err != nil {
		t.Fatalf("purgeDeleted error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d; want 1", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPurgeDeleted_DeleteError(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectQuery("SELECT a.storage_key").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}))
	mock.ExpectExec("DELETE FROM notes").WithArgs(sqlmock.AnyArg()).WillReturnError(fmt.Errorf("locked"))

	_, err = purgeDeleted(context.Background(), dbMock, &fakeBlobs{}, time.Now(), zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "purge") {
		t.Fatalf("expected purge error, got %v", err)
	}
}

func TestStartSoftDeleteCleaner_Success(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectQuery("SELECT a.storage_key").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("old.pdf"))
	mock.ExpectExec("DELETE FROM notes").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM papers").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartSoftDeleteCleaner(ctx, dbMock, &fakeBlobs{}, 10*time.Millisecond, time.Hour, zap.NewNop())

	time.Sleep(200 * time.Millisecond)
	cancel()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestStartSoftDeleteCleaner_ErrorLogged(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectQuery("SELECT a.storage_key").
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(fmt.Errorf("db fail"))

	var buf syncBuffer
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(&buf),
		zapcore.ErrorLevel,
	)
	logger := zap.New(core)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartSoftDeleteCleaner(ctx, dbMock, &fakeBlobs{}, 10*time.Millisecond, time.Hour, logger)

	time.Sleep(200 * time.Millisecond)
	cancel()

	out := buf.String()
	if !strings.Contains(out, "failed to clean soft-deleted records") {
		t.Errorf("expected error log, got:\n%s", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStartSoftDeleteCleaner_CancelBeforeTicker(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	ctx, cancel := context.WithCancel(context.Background())

	StartSoftDeleteCleaner(ctx, dbMock, &fakeBlobs{}, 100*time.Millisecond, time.Hour, zap.NewNop())
	cancel()

	time.Sleep(50 * time.Millisecond)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected sql calls: %v", err)
	}
}
