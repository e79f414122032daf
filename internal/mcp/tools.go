package mcp

import (
	"context"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

var kindOption = mcp.WithString("kind",
	mcp.Description("Session kind. Defaults to 'workout'."),
	mcp.Enum(string(models.KindWorkout), string(models.KindTemplate)),
)

// --- Tool definitions ---

var toolGetCurrentSession = mcp.NewTool("get_current_session",
	mcp.WithDescription("Get the session in progress with elapsed time, pause state, the running rest timer, and per-set confirmability. Returns an error when no session is active."),
	kindOption,
)

var toolStartSession = mcp.NewTool("start_session",
	mcp.WithDescription("Start a new workout or template. Fails when one of the same kind is already in progress."),
	kindOption,
	mcp.WithString("name", mcp.Description("Session name. Defaults to a time-of-day name like 'Morning Workout'.")),
)

var toolAddExercise = mcp.NewTool("add_exercise",
	mcp.WithDescription("Add a catalog exercise with one empty set. Returns the new exercise identifier."),
	kindOption,
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Catalog exercise id (e.g. 'Barbell Bench Press')")),
	mcp.WithString("lot", mcp.Description("Statistic schema. Looked up in the catalog when omitted."),
		mcp.Enum(
			string(models.ExerciseLotReps),
			string(models.ExerciseLotDuration),
			string(models.ExerciseLotRepsAndDuration),
			string(models.ExerciseLotDistanceAndDuration),
			string(models.ExerciseLotRepsAndWeight),
			string(models.ExerciseLotRepsAndDurationAndDistance),
		)),
)

var toolAddSet = mcp.NewTool("add_set",
	mcp.WithDescription("Append a set to an exercise, prefilled from the previous set. Returns the set identifier."),
	kindOption,
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise identifier within the session")),
)

var toolUpdateSet = mcp.NewTool("update_set",
	mcp.WithDescription("Replace the measured values of a set. Omitted values are cleared."),
	kindOption,
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise identifier within the session")),
	mcp.WithString("set", mcp.Required(), mcp.Description("Set identifier")),
	mcp.WithNumber("reps", mcp.Description("Repetitions")),
	mcp.WithNumber("weight", mcp.Description("Weight")),
	mcp.WithNumber("duration", mcp.Description("Duration in minutes")),
	mcp.WithNumber("distance", mcp.Description("Distance")),
)

var toolConfirmSet = mcp.NewTool("confirm_set",
	mcp.WithDescription("Mark a set as done. The set must have every value its exercise requires. Returns the confirmed set with any personal bests."),
	kindOption,
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise identifier within the session")),
	mcp.WithString("set", mcp.Required(), mcp.Description("Set identifier")),
)

var toolStartRestTimer = mcp.NewTool("start_rest_timer",
	mcp.WithDescription("Start the rest countdown of a workout set, replacing any running countdown. Without a set, starts a plain countdown of the given seconds."),
	mcp.WithString("exercise", mcp.Description("Exercise identifier within the session")),
	mcp.WithString("set", mcp.Description("Set identifier")),
	mcp.WithNumber("seconds", mcp.Description("Countdown length when no set is given")),
)

var toolPauseSession = mcp.NewTool("pause_session",
	mcp.WithDescription("Pause the workout stopwatch."),
)

var toolResumeSession = mcp.NewTool("resume_session",
	mcp.WithDescription("Resume the workout stopwatch."),
)

var toolFinishSession = mcp.NewTool("finish_session",
	mcp.WithDescription("Save the session to the fitness server. Workouts keep only confirmed sets. On failure the session stays in progress."),
	kindOption,
)

var toolCancelSession = mcp.NewTool("cancel_session",
	mcp.WithDescription("Discard the session in progress without saving it."),
	kindOption,
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true; the session cannot be recovered")),
)

// --- Tool handlers ---

func (h *handlers) engine(req mcp.CallToolRequest) (*workout.Engine, *mcp.CallToolResult) {
	kind := models.SessionKind(req.GetString("kind", string(models.KindWorkout)))
	e, ok := h.engines[kind]
	if !ok {
		return nil, mcp.NewToolResultError("unknown session kind: " + string(kind))
	}
	return e, nil
}

func (h *handlers) failed(tool string, err error) *mcp.CallToolResult {
	if !workout.IsValidation(err) {
		h.log.Warn("mcp "+tool, "error", err)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCurrentSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	view, err := e.View()
	if err != nil {
		return h.failed("get_current_session", err), nil
	}
	return jsonResult(view)
}

func (h *handlers) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	if err := e.Start(req.GetString("name", "")); err != nil {
		return h.failed("start_session", err), nil
	}
	return jsonResult(e.Session())
}

func (h *handlers) addExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	ids, err := e.AddExercises(ctx, []workout.NewExercise{{
		ExerciseID: exerciseID,
		Lot:        models.ExerciseLot(req.GetString("lot", "")),
	}})
	if err != nil {
		return h.failed("add_exercise", err), nil
	}
	return jsonResult(map[string]string{"identifier": ids[0]})
}

func (h *handlers) addSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	id, err := e.AddSet(exercise)
	if err != nil {
		return h.failed("add_set", err), nil
	}
	return jsonResult(map[string]string{"identifier": id})
}

func (h *handlers) updateSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	exercise, set, bad := setArgs(req)
	if bad != nil {
		return bad, nil
	}

	args := req.GetArguments()
	number := func(key string) *float64 {
		if v, ok := args[key].(float64); ok {
			return &v
		}
		return nil
	}
	stat := models.Statistic{
		Reps:     number("reps"),
		Weight:   number("weight"),
		Duration: number("duration"),
		Distance: number("distance"),
	}
	if err := e.UpdateSet(exercise, set, stat); err != nil {
		return h.failed("update_set", err), nil
	}
	view, err := e.View()
	if err != nil {
		return h.failed("update_set", err), nil
	}
	return jsonResult(view)
}

func (h *handlers) confirmSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	exercise, set, bad := setArgs(req)
	if bad != nil {
		return bad, nil
	}
	record, err := e.ConfirmSet(ctx, exercise, set)
	if err != nil {
		return h.failed("confirm_set", err), nil
	}
	return jsonResult(record)
}

func setArgs(req mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return "", "", mcp.NewToolResultError("exercise parameter is required")
	}
	set, err := req.RequireString("set")
	if err != nil {
		return "", "", mcp.NewToolResultError("set parameter is required")
	}
	return exercise, set, nil
}

func (h *handlers) startRestTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e := h.engines[models.KindWorkout]
	if e == nil {
		return mcp.NewToolResultError("no workout engine"), nil
	}
	exercise := req.GetString("exercise", "")
	var err error
	if exercise == "" {
		err = e.StartTimer(req.GetInt("seconds", 0))
	} else {
		err = e.StartRestTimer(exercise, req.GetString("set", ""))
	}
	if err != nil {
		return h.failed("start_rest_timer", err), nil
	}
	return jsonResult(e.RestTimer())
}

func (h *handlers) pauseSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.stopwatch(req, "pause_session", (*workout.Engine).Pause)
}

func (h *handlers) resumeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.stopwatch(req, "resume_session", (*workout.Engine).Resume)
}

func (h *handlers) stopwatch(req mcp.CallToolRequest, tool string, op func(*workout.Engine) error) (*mcp.CallToolResult, error) {
	e := h.engines[models.KindWorkout]
	if e == nil {
		return mcp.NewToolResultError("no workout engine"), nil
	}
	if err := op(e); err != nil {
		return h.failed(tool, err), nil
	}
	elapsed, err := e.Elapsed()
	if err != nil {
		return h.failed(tool, err), nil
	}
	return jsonResult(map[string]int64{"elapsed_seconds": int64(elapsed.Seconds())})
}

func (h *handlers) finishSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	result, err := e.Finish(ctx)
	if err != nil {
		return h.failed("finish_session", err), nil
	}
	return jsonResult(result)
}

func (h *handlers) cancelSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, bad := h.engine(req)
	if bad != nil {
		return bad, nil
	}
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError("set confirm to true to discard the session"), nil
	}
	if err := e.Cancel(ctx); err != nil {
		return h.failed("cancel_session", err), nil
	}
	return mcp.NewToolResultText("session discarded"), nil
}
