package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/api/middleware"
	"github.com/phrazzld/nudge-api/internal/api/shared"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/mocks"
	"github.com/phrazzld/nudge-api/internal/service"
	"github.com/phrazzld/nudge-api/internal/stats"
	"github.com/phrazzld/nudge-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var structValidator = validator.New()

func validate(v any) error { return structValidator.Struct(v) }

type payloadsOK struct{}

func (payloadsOK) ValidatePayload(domain.Kind, json.RawMessage) error { return nil }

type fakeRunner struct {
	summary task.RunSummary
	err     error
	calls   int
}

func (f *fakeRunner) RunDueTasks(ctx context.Context, now time.Time) (task.RunSummary, error) {
	f.calls++
	return f.summary, f.err
}

type fixture struct {
	owner   uuid.UUID
	store   *mocks.MockTaskStore
	records *mocks.MockRecordStore
	runner  *fakeRunner
	router  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		owner:   uuid.New(),
		store:   mocks.NewMockTaskStore(),
		records: &mocks.MockRecordStore{},
		runner:  &fakeRunner{},
	}
	svc, err := service.NewTaskService(f.store, payloadsOK{}, nil, log)
	require.NoError(t, err)
	agg := stats.NewAggregator(f.store, f.records, time.Hour, log)

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware(log))
	r.Route("/api", func(r chi.Router) {
		Mount(r, middleware.NewAuthMiddleware(mocks.ForOwner(f.owner)), NewTaskHandler(svc, f.runner), NewStatsHandler(agg))
	})
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestTaskLifecycleEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"kind":    "periodic-reminder",
		"payload": map[string]any{"sourceRecordId": uuid.NewString()},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Task](t, rec)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, f.owner, created.Owner)

	rec = f.do(t, http.MethodGet, "/api/tasks/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[domain.Task](t, rec).ID)

	rec = f.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[TaskListResponse](t, rec)
	assert.Equal(t, 1, list.Total)

	rec = f.do(t, http.MethodPost, "/api/tasks/"+created.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusCancelled, decode[domain.Task](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/api/tasks/"+created.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Task is no longer pending", decode[shared.ErrorResponse](t, rec).Error)
}

func TestTaskEndpointErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantError  string
	}{
		{name: "malformed body", method: http.MethodPost, path: "/api/tasks", body: `{"kind":`, wantStatus: http.StatusBadRequest, wantError: "Invalid request format"},
		{name: "unknown field", method: http.MethodPost, path: "/api/tasks", body: `{"kind":"content-analysis","owner":"x"}`, wantStatus: http.StatusBadRequest, wantError: "Invalid request format"},
		{name: "unknown kind", method: http.MethodPost, path: "/api/tasks", body: map[string]any{"kind": "fax"}, wantStatus: http.StatusBadRequest, wantError: "Invalid Kind: invalid value"},
		{name: "array payload", method: http.MethodPost, path: "/api/tasks", body: `{"kind":"content-analysis","payload":[1]}`, wantStatus: http.StatusBadRequest, wantError: "Invalid task"},
		{name: "bad id", method: http.MethodGet, path: "/api/tasks/not-a-uuid", wantStatus: http.StatusBadRequest, wantError: "Invalid path parameter"},
		{name: "missing task", method: http.MethodGet, path: "/api/tasks/" + uuid.NewString(), wantStatus: http.StatusNotFound, wantError: "Task not found"},
		{name: "cancel missing task", method: http.MethodPost, path: "/api/tasks/" + uuid.NewString() + "/cancel", wantStatus: http.StatusNotFound, wantError: "Task not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decode[shared.ErrorResponse](t, rec)
			assert.Equal(t, tt.wantError, body.Error)
			assert.NotEmpty(t, body.TraceID)
		})
	}
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/run-due", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.runner.calls)
}

func TestRunDueEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		summary    task.RunSummary
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "empty run",
			wantStatus: http.StatusOK,
			wantBody:   `{"claimed":0,"completed":0,"failed":0,"skipped":0}`,
		},
		{
			name:       "completed run",
			summary:    task.RunSummary{Claimed: 3, Completed: 2, Failed: 1, Skipped: 1},
			wantStatus: http.StatusOK,
			wantBody:   `{"claimed":3,"completed":2,"failed":1,"skipped":1}`,
		},
		{
			name:       "store unavailable keeps partial summary",
			summary:    task.RunSummary{Claimed: 1, Completed: 1},
			err:        task.ErrStoreUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.runner.summary = tt.summary
			f.runner.err = tt.err

			rec := f.do(t, http.MethodPost, "/api/tasks/run-due", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, 1, f.runner.calls)

			if tt.err == nil {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
				return
			}
			body := decode[RunDueResponse](t, rec)
			assert.Equal(t, tt.summary, body.RunSummary)
			assert.Equal(t, "Task store unavailable", body.Error)
			assert.NotEmpty(t, body.TraceID)
		})
	}
}

func TestStatsEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pending, err := domain.NewTask(f.owner, domain.KindContentAnalysis, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.store.Insert(ctx, pending))
	taskID := uuid.New()
	require.NoError(t, f.records.InsertSentiment(ctx,
		domain.NewSentimentRecord(f.owner, taskID, "nice", domain.Classification{Category: "positive", Confidence: 0.8})))
	require.NoError(t, f.records.InsertImage(ctx, domain.NewImageRecord(f.owner, taskID, "f1", domain.ImageFailed, nil)))

	rec := f.do(t, http.MethodGet, "/api/stats/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var taskStats struct {
		CountsByStatus map[string]int `json:"countsByStatus"`
		Total          int            `json:"total"`
		Stale          []any          `json:"stale"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &taskStats))
	assert.Equal(t, 1, taskStats.Total)
	assert.Equal(t, map[string]int{"pending": 1}, taskStats.CountsByStatus)
	assert.Empty(t, taskStats.Stale)

	rec = f.do(t, http.MethodGet, "/api/stats/records/sentiment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"countsByStatus":{"positive":1}`)

	rec = f.do(t, http.MethodGet, "/api/stats/records/image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"countsByStatus":{"failed":1}`)

	rec = f.do(t, http.MethodGet, "/api/stats/records/audio", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown record type", decode[shared.ErrorResponse](t, rec).Error)
}
