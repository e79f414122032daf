package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workout"
	"github.com/coocood/freecache"
)

const (
	megabyte = 1024 * 1024

	defaultTimeout  = 30 * time.Second
	defaultCacheMB  = 8
	defaultCacheTTL = 24 * time.Hour
	getAttempts     = 3
)

// ErrNotFound is returned when the remote API has no such resource.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response from the remote API. Body carries the
// raw response so commit failures can be shown to the user as is.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	CatalogCacheMB  int
	CatalogCacheTTL time.Duration
	Log             *slog.Logger
	Metrics         *metrics.Manager
}

// Client talks to the remote fitness API: exercise catalog, exercise
// history, and workout/template commits. Catalog details are cached.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *freecache.Cache
	cacheTTL   int
	backoff    time.Duration
	log        *slog.Logger
	metrics    *metrics.Manager
}

// Compile-time check: Client satisfies workout.Remote.
var _ workout.Remote = (*Client)(nil)

// NewClient creates a Client for the API at opts.BaseURL.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CatalogCacheMB <= 0 {
		opts.CatalogCacheMB = defaultCacheMB
	}
	if opts.CatalogCacheTTL <= 0 {
		opts.CatalogCacheTTL = defaultCacheTTL
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      freecache.NewCache(opts.CatalogCacheMB * megabyte),
		cacheTTL:   int(opts.CatalogCacheTTL / time.Second),
		backoff:    time.Second,
		log:        opts.Log,
		metrics:    opts.Metrics,
	}
}

// ExerciseDetails returns catalog metadata for an exercise.
func (c *Client) ExerciseDetails(ctx context.Context, exerciseID string) (*models.ExerciseDetails, error) {
	key := []byte("exercise::" + exerciseID)
	if cached, err := c.cache.Get(key); err == nil {
		var d models.ExerciseDetails
		if err := json.Unmarshal(cached, &d); err == nil {
			return &d, nil
		}
		c.log.Warn("dropping undecodable catalog cache entry", "exercise", exerciseID)
		c.cache.Del(key)
	}

	body, err := c.get(ctx, "exercise_details", "/api/v1/exercises/"+url.PathEscape(exerciseID))
	if err != nil {
		return nil, err
	}
	var d models.ExerciseDetails
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("decoding exercise details: %w", err)
	}
	if err := c.cache.Set(key, body, c.cacheTTL); err != nil {
		c.log.Warn("caching exercise details", "exercise", exerciseID, "error", err)
	}
	return &d, nil
}

// ExerciseHistory returns past performances of an exercise, newest first.
func (c *Client) ExerciseHistory(ctx context.Context, exerciseID string) ([]models.HistoryEntry, error) {
	body, err := c.get(ctx, "exercise_history", "/api/v1/exercises/"+url.PathEscape(exerciseID)+"/history")
	if err != nil {
		return nil, err
	}
	var history []models.HistoryEntry
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, fmt.Errorf("decoding exercise history: %w", err)
	}
	return history, nil
}

// WorkoutInformation fetches a stored workout or template to start a new
// session from.
func (c *Client) WorkoutInformation(ctx context.Context, kind models.SessionKind, id string) (*models.WorkoutInformation, error) {
	body, err := c.get(ctx, "workout_information", collectionPath(kind)+"/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var info models.WorkoutInformation
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding workout information: %w", err)
	}
	return &info, nil
}

// CommitWorkout creates or updates a workout. It is sent exactly once.
func (c *Client) CommitWorkout(ctx context.Context, payload models.CommitPayload) (*models.CommitResult, error) {
	return c.commit(ctx, "commit_workout", collectionPath(models.KindWorkout), payload)
}

// CommitWorkoutTemplate creates or updates a template. It is sent exactly once.
func (c *Client) CommitWorkoutTemplate(ctx context.Context, payload models.CommitPayload) (*models.CommitResult, error) {
	return c.commit(ctx, "commit_template", collectionPath(models.KindTemplate), payload)
}

func collectionPath(kind models.SessionKind) string {
	if kind == models.KindTemplate {
		return "/api/v1/workout-templates"
	}
	return "/api/v1/workouts"
}

func (c *Client) commit(ctx context.Context, op, path string, payload models.CommitPayload) (*models.CommitResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	body, status, err := c.do(ctx, http.MethodPost, path, data)
	if err != nil {
		c.count(op, "error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		c.count(op, "error")
		return nil, &StatusError{Op: op, StatusCode: status, Body: string(body)}
	}
	c.count(op, "ok")

	var result models.CommitResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding commit result: %w", err)
	}
	return &result, nil
}

// get performs an idempotent read, retrying up to three times with
// exponential backoff on transport errors and 5xx responses.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	var lastErr error
	for attempt := range getAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff * time.Duration(1<<uint(attempt-1))):
			}
		}

		body, status, err := c.do(ctx, http.MethodGet, path, nil)
		switch {
		case err != nil:
			lastErr = err
			continue
		case status == http.StatusOK:
			c.count(op, "ok")
			return body, nil
		case status == http.StatusNotFound:
			c.count(op, "not_found")
			return nil, fmt.Errorf("%s %s: %w", op, path, ErrNotFound)
		case status >= 500:
			lastErr = &StatusError{Op: op, StatusCode: status, Body: string(body)}
			continue
		default:
			c.count(op, "error")
			return nil, &StatusError{Op: op, StatusCode: status, Body: string(body)}
		}
	}
	c.count(op, "error")
	return nil, fmt.Errorf("after %d attempts: %w", getAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, data []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if data != nil {
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) count(op, result string) {
	if c.metrics != nil {
		c.metrics.CounterRemoteRequests.WithLabelValues(op, result).Inc()
	}
}
