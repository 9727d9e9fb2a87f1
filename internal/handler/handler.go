package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/examhall/examhall/internal/exam"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/storage"
	"github.com/examhall/examhall/internal/store"
)

// Config holds HTTP-layer settings.
type Config struct {
	// Lang is the fallback language for messages.
	Lang string
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
	// MaxUploadBytes bounds the multipart body of exam creation.
	MaxUploadBytes int64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store       *store.Store
	files       *storage.FS
	tokens      *Tokens
	authoring   *exam.Authoring
	submissions *exam.Submissions
	analysis    *exam.Analysis
	validate    *validator.Validate
	config      Config
}

// New creates a new Handler.
func New(s *store.Store, fs *storage.FS, tokens *Tokens, cfg Config) *Handler {
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		store:       s,
		files:       fs,
		tokens:      tokens,
		authoring:   exam.NewAuthoring(s, fs),
		submissions: exam.NewSubmissions(s),
		analysis:    exam.NewAnalysis(s),
		validate:    exam.NewValidator(),
		config:      cfg,
	}
}

func (h *Handler) validateRequest(v any) error {
	return exam.CheckStruct(h.validate, v)
}

// Router returns the full HTTP handler with middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if len(h.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(h.config.Lang))
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Get("/cohorts", h.handleListCohorts)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/me", h.handleMe)
			r.Patch("/me/password", h.handleChangePassword)
			r.Get("/exams", h.handleListExams)
			r.Get("/exams/{examID}", h.handleGetExam)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.RoleStudent))
				r.Post("/exams/{examID}/submissions", h.handleSubmit)
				r.Get("/exams/{examID}/my-submission", h.handleMySubmission)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.RoleAdmin))
				r.Post("/cohorts", h.handleCreateCohort)
				r.Patch("/cohorts/{cohortID}", h.handleUpdateCohort)
				r.Delete("/cohorts/{cohortID}", h.handleDeleteCohort)
				r.Get("/users", h.handleListUsers)
				r.Post("/users", h.handleCreateUser)
				r.Patch("/users/{userID}", h.handleUpdateUser)
				r.Delete("/users/{userID}", h.handleDeleteUser)
				r.Post("/users/{userID}/reset-password", h.handleResetPassword)
				r.Post("/exams", h.handleCreateExam)
				r.Post("/exams/import", h.handleImportPreview)
				r.Delete("/exams/{examID}", h.handleDeleteExam)
				r.Get("/exams/{examID}/submissions", h.handleListSubmissions)
				r.Get("/submissions/{submissionID}", h.handleGetSubmission)
				r.Patch("/submissions/{submissionID}", h.handleRegrade)
				r.Get("/analysis/exams/{examID}", h.handleAnalysis)
			})
		})
	})

	// Exam papers are readable by any signed-in user.
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Handle(storage.URLPrefix+"/*", http.StripPrefix(storage.URLPrefix+"/", http.FileServer(http.Dir(h.files.Dir()))))
	})
}
