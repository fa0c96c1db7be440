package http

import (
	"net/http"
	"path"
	"strings"

	"github.com/atinyakov/studysync/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions carries the cross-cutting dependencies of the router.
type RouterOptions struct {
	// Tokens verifies the token header on protected routes.
	Tokens middleware.TokenVerifier
	// Users resolves the caller's role for admin-only routes.
	Users middleware.UserLookup
	// Metrics, when set, instruments every request and serves /metrics.
	Metrics *middleware.Metrics
	// UploadDir, when set, is served read-only under /uploads/.
	UploadDir string
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
}

// NewRouter constructs the HTTP handler that serves the StudySync API.
//
// Routes:
//
//	POST   /api/auth/signup                → auth.Signup
//	POST   /api/auth/login                 → auth.Login
//	GET    /api/auth/me                    → auth.Me            (token)
//	GET    /api/notes                      → notes.List         (token)
//	POST   /api/notes/add                  → notes.Create       (token, multipart)
//	PUT    /api/notes/{id}                 → notes.Update       (token)
//	DELETE /api/notes/{id}                 → notes.Delete       (token)
//	GET    /api/pypapers                   → papers.List        (token)
//	POST   /api/pypapers/upload            → papers.Upload      (token, admin)
//	DELETE /api/pypapers/{id}              → papers.Delete      (token, admin)
//	GET    /api/attendance                 → attendance.List    (token)
//	POST   /api/attendance/add-subject     → attendance.AddSubject
//	PATCH  /api/attendance/mark/{id}       → attendance.Mark
//	PATCH  /api/attendance/edit/{id}       → attendance.Edit
//	DELETE /api/attendance/{id}            → attendance.Delete
//	GET    /uploads/{key}, /healthz, /metrics
func NewRouter(
	auth *AuthHandler,
	notes *NotesHandler,
	papers *PapersHandler,
	attendance *AttendanceHandler,
	opts RouterOptions,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.TokenHeader},
			MaxAge:         300,
		}))
	}

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{"status": "ok"})
	})
	if opts.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer(opts.UploadDir)))
	}

	jsonOnly := chiMiddleware.AllowContentType("application/json")
	requireToken := middleware.TokenAuth(opts.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(jsonOnly).Post("/signup", auth.Signup)
			r.With(jsonOnly).Post("/login", auth.Login)
			r.With(requireToken).Get("/me", auth.Me)
		})

		// Protected group: requires a valid token header
		r.Group(func(r chi.Router) {
			r.Use(requireToken)

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", notes.List)
				r.With(chiMiddleware.AllowContentType("multipart/form-data")).Post("/add", notes.Create)
				r.With(chiMiddleware.AllowContentType("multipart/form-data", "application/x-www-form-urlencoded")).
					Put("/{id}", notes.Update)
				r.Delete("/{id}", notes.Delete)
			})

			r.Route("/pypapers", func(r chi.Router) {
				r.Get("/", papers.List)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin(opts.Users, logger))
					r.With(jsonOnly).Post("/upload", papers.Upload)
					r.Delete("/{id}", papers.Delete)
				})
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", attendance.List)
				r.With(jsonOnly).Post("/add-subject", attendance.AddSubject)
				r.With(jsonOnly).Patch("/mark/{id}", attendance.Mark)
				r.With(jsonOnly).Patch("/edit/{id}", attendance.Edit)
				r.Delete("/{id}", attendance.Delete)
			})
		})
	})

	return r
}

// inlineFormats may be rendered by the browser. Everything else is served
// as a download so uploaded markup never runs on the API origin.
var inlineFormats = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// fileServer serves stored uploads without directory listings.
func fileServer(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if !inlineFormats[strings.ToLower(path.Ext(r.URL.Path))] {
			w.Header().Set("Content-Disposition", "attachment")
		}
		fs.ServeHTTP(w, r)
	})
}
