package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CommitLog lists sessions committed from this device.
type CommitLog interface {
	RecentCommits(ctx context.Context, limit int) ([]storage.CommitRecord, error)
}

// Deps holds what the tools operate on. Commits may be nil.
type Deps struct {
	Workout  *workout.Engine
	Template *workout.Engine
	Commits  CommitLog
}

// New creates an MCP server with all tools and resources registered.
func New(deps Deps, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog active workout server. Inspect and drive the workout (or template) in progress: add exercises, record and confirm sets, run rest timers, and finish the session. Sets must be confirmed before a workout can be finished."),
	)

	h := newHandlers(deps, log)

	s.AddTools(
		server.ServerTool{Tool: toolGetCurrentSession, Handler: h.getCurrentSession},
		server.ServerTool{Tool: toolStartSession, Handler: h.startSession},
		server.ServerTool{Tool: toolAddExercise, Handler: h.addExercise},
		server.ServerTool{Tool: toolAddSet, Handler: h.addSet},
		server.ServerTool{Tool: toolUpdateSet, Handler: h.updateSet},
		server.ServerTool{Tool: toolConfirmSet, Handler: h.confirmSet},
		server.ServerTool{Tool: toolStartRestTimer, Handler: h.startRestTimer},
		server.ServerTool{Tool: toolPauseSession, Handler: h.pauseSession},
		server.ServerTool{Tool: toolResumeSession, Handler: h.resumeSession},
		server.ServerTool{Tool: toolFinishSession, Handler: h.finishSession},
		server.ServerTool{Tool: toolCancelSession, Handler: h.cancelSession},
	)

	if deps.Commits != nil {
		s.AddResources(
			server.ServerResource{Resource: resRecentCommits, Handler: h.recentCommits},
		)
	}

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	engines map[models.SessionKind]*workout.Engine
	commits CommitLog
	log     *slog.Logger
}

func newHandlers(deps Deps, log *slog.Logger) *handlers {
	h := &handlers{
		engines: map[models.SessionKind]*workout.Engine{},
		commits: deps.Commits,
		log:     log,
	}
	if deps.Workout != nil {
		h.engines[models.KindWorkout] = deps.Workout
	}
	if deps.Template != nil {
		h.engines[models.KindTemplate] = deps.Template
	}
	return h
}

// --- Resource definitions ---

var resRecentCommits = mcp.NewResource(
	"liftlog://recent_commits",
	"Recent Commits",
	mcp.WithResourceDescription("Workouts and templates recently saved from this device"),
	mcp.WithMIMEType("application/json"),
)
