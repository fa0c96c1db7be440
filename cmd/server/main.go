// Package main initializes and starts the StudySync API server, setting up
// configuration, logging, database connections, file storage, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/studysync/internal/config"
	"github.com/atinyakov/studysync/internal/db"
	"github.com/atinyakov/studysync/internal/logger"
	"github.com/atinyakov/studysync/internal/middleware"
	"github.com/atinyakov/studysync/internal/repository"
	"github.com/atinyakov/studysync/internal/server/handler/http"
	"github.com/atinyakov/studysync/internal/service"
	"github.com/atinyakov/studysync/internal/storage"
	"github.com/atinyakov/studysync/internal/token"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	cleanupInterval = time.Hour
	// deleted notes and papers are kept this long before purging
	cleanupRetention = 30 * 24 * time.Hour
	shutdownTimeout  = 10 * time.Second
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if err := options.Validate(); err != nil {
		zapLogger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Uploaded files are served by this process under /uploads.
	blobs, err := storage.NewLocalStore(options.UploadDir, options.PublicURL+"/uploads")
	if err != nil {
		zapLogger.Fatal("cannot init upload storage", zap.Error(err))
	}

	// Purge soft-deleted notes and papers together with their files.
	db.StartSoftDeleteCleaner(ctx, postgresDB, blobs, cleanupInterval, cleanupRetention, zapLogger)

	// Initialize repositories.
	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	notesRepo := repository.NewPostgresNotesRepository(postgresDB)
	papersRepo := repository.NewPostgresPapersRepository(postgresDB)
	attendanceRepo := repository.NewPostgresAttendanceRepository(postgresDB)

	// Initialize business-logic services.
	tokens := token.NewManager(options.JWTSecret, options.TokenTTL)
	authService := service.NewAuthService(authRepo, tokens)
	notesService := service.NewNotesService(notesRepo, blobs)
	papersService := service.NewPapersService(papersRepo, blobs, options.MaxUploadBytes())
	attendanceService := service.NewAttendanceService(attendanceRepo)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService, Log: zapLogger}
	notesHandler := &http.NotesHandler{NotesService: notesService, Log: zapLogger, MaxUploadBytes: options.MaxUploadBytes()}
	papersHandler := &http.PapersHandler{PapersService: papersService, Log: zapLogger, MaxUploadBytes: options.MaxUploadBytes()}
	attendanceHandler := &http.AttendanceHandler{AttendanceService: attendanceService, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, notesHandler, papersHandler, attendanceHandler, http.RouterOptions{
		Tokens:      tokens,
		Users:       authService,
		Metrics:     middleware.NewMetrics(),
		UploadDir:   blobs.Dir(),
		CORSOrigins: options.CORSOrigins,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCert != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
