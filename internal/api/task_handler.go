package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/nudge-api/internal/api/shared"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/platform/logger"
	"github.com/phrazzld/nudge-api/internal/service"
	"github.com/phrazzld/nudge-api/internal/task"
)

// DueRunner runs one scheduler pass. *task.Scheduler satisfies it.
type DueRunner interface {
	RunDueTasks(ctx context.Context, now time.Time) (task.RunSummary, error)
}

// RunDueResponse is the body of POST /api/tasks/run-due. Error is set when
// the run stopped early; the counts are still what the run did.
type RunDueResponse struct {
	task.RunSummary
	Error   string `json:"error,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

// TaskHandler handles task lifecycle and scheduler trigger requests.
type TaskHandler struct {
	tasks  service.TaskService
	runner DueRunner
	now    func() time.Time
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks service.TaskService, runner DueRunner) *TaskHandler {
	return &TaskHandler{tasks: tasks, runner: runner, now: time.Now}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	created, err := h.tasks.CreateTask(r.Context(), owner, service.CreateTaskRequest{
		Kind:         domain.Kind(req.Kind),
		Payload:      req.Payload,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, created)
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := requireOwnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.tasks.GetTask(r.Context(), owner, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.ListTasks(r.Context(), owner)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasks, Total: len(tasks)})
}

// CancelTask handles POST /api/tasks/{id}/cancel.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := requireOwnerAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	cancelled, err := h.tasks.CancelTask(r.Context(), owner, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cancelled)
}

// RunDue handles POST /api/tasks/run-due. A store outage answers 503 with
// the partial summary.
func (h *TaskHandler) RunDue(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOwner(w, r); !ok {
		return
	}
	log := logger.FromContext(r.Context())

	summary, err := h.runner.RunDueTasks(r.Context(), h.now())
	resp := RunDueResponse{RunSummary: summary}
	if err != nil {
		status := MapErrorToStatusCode(err)
		resp.Error = GetSafeErrorMessage(err)
		resp.TraceID = shared.GetTraceID(r.Context())
		log.ErrorContext(r.Context(), "due task run failed",
			slog.Int("status", status),
			slog.Int("claimed", summary.Claimed))
		shared.RespondWithJSON(w, r, status, resp)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
