package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkoutSource fetches stored workouts and templates to start sessions from.
type WorkoutSource interface {
	WorkoutInformation(ctx context.Context, kind models.SessionKind, id string) (*models.WorkoutInformation, error)
}

// CommitLog lists sessions committed from this device.
type CommitLog interface {
	RecentCommits(ctx context.Context, limit int) ([]storage.CommitRecord, error)
}

// Options holds the dependencies of a Server. Source, Commits, Metrics and
// Gatherer are optional; their routes answer 501 or are left out when nil.
type Options struct {
	Workout  *workout.Engine
	Template *workout.Engine
	Source   WorkoutSource
	Commits  CommitLog
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer
	// MCP is mounted at /mcp behind the same API key as /api/v1.
	MCP    http.Handler
	APIKey string
	Log    *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	engines  map[models.SessionKind]*workout.Engine
	source   WorkoutSource
	commits  CommitLog
	metrics  *metrics.Manager
	gatherer prometheus.Gatherer
	mcp      http.Handler
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	s := &Server{
		engines:  map[models.SessionKind]*workout.Engine{},
		source:   opts.Source,
		commits:  opts.Commits,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		mcp:      opts.MCP,
		log:      opts.Log,
		apiKey:   opts.APIKey,
		router:   chi.NewRouter(),
	}
	if opts.Workout != nil {
		s.engines[models.KindWorkout] = opts.Workout
	}
	if opts.Template != nil {
		s.engines[models.KindTemplate] = opts.Template
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	if s.mcp != nil {
		s.router.Group(func(r chi.Router) {
			s.protect(r)
			r.Handle("/mcp", s.mcp)
		})
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		s.protect(r)
		r.Get("/commits", s.handleCommits)

		r.Route("/{kind}/session", func(r chi.Router) {
			r.Use(s.withEngine)

			r.Get("/", s.handleView)
			r.Patch("/", s.handleUpdateSession)
			r.Post("/start", s.handleStart)
			r.Post("/start-from", s.handleStartFrom)
			r.Post("/cancel", s.handleCancel)
			r.Post("/finish", s.handleFinish)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)

			r.Post("/exercises", s.handleAddExercises)
			r.Put("/exercises/order", s.handleReorderExercises)
			r.Delete("/exercises/{exercise}", s.handleRemoveExercise)
			r.Post("/exercises/{exercise}/notes", s.handleAddExerciseNote)
			r.Put("/exercises/{exercise}/notes/{idx}", s.handleEditExerciseNote)
			r.Delete("/exercises/{exercise}/notes/{idx}", s.handleDeleteExerciseNote)

			r.Post("/assets", s.handleAddAsset)
			r.Delete("/assets", s.handleRemoveAsset)

			r.Post("/exercises/{exercise}/sets", s.handleAddSet)
			r.Route("/exercises/{exercise}/sets/{set}", func(r chi.Router) {
				r.Put("/", s.handleUpdateSet)
				r.Delete("/", s.handleDeleteSet)
				r.Put("/lot", s.handleChangeSetLot)
				r.Put("/note", s.handleSetNote)
				r.Post("/note/toggle", s.handleToggleSetNote)
				r.Put("/rpe", s.handleSetRPE)
				r.Post("/confirm", s.handleConfirmSet)
				r.Get("/previous", s.handlePreviousSet)
				r.Get("/next", s.handleNextSet)
				r.Post("/rest-timer", s.handleStartSetRestTimer)
				r.Put("/rest-timer", s.handleSetRestTimerDuration)
				r.Post("/rest-timer/toggle", s.handleToggleSetRestTimer)
			})

			r.Get("/rest-timer", s.handleRestTimer)
			r.Post("/rest-timer", s.handleStartTimer)
			r.Post("/rest-timer/adjust", s.handleAdjustRestTimer)
			r.Delete("/rest-timer", s.handleStopRestTimer)

			r.Post("/supersets", s.handleCreateSuperset)
			r.Put("/supersets/{superset}", s.handleEditSuperset)
			r.Delete("/supersets/{superset}", s.handleDeleteSuperset)
		})
	})
}

// protect requires the API key on r. An empty key leaves access control to
// the listener (loopback or tailnet).
func (s *Server) protect(r chi.Router) {
	if s.apiKey != "" {
		r.Use(APIKeyAuth(s.apiKey))
	}
}

type engineKey struct{}

// withEngine resolves the {kind} path segment to its engine.
func (s *Server) withEngine(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := models.SessionKind(chi.URLParam(r, "kind"))
		e, ok := s.engines[kind]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session kind"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), engineKey{}, e)))
	})
}

func engineFrom(r *http.Request) *workout.Engine {
	return r.Context().Value(engineKey{}).(*workout.Engine)
}
