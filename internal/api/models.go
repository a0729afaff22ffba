package api

import (
	"encoding/json"
	"time"

	"github.com/phrazzld/nudge-api/internal/domain"
)

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Kind         string          `json:"kind"                   validate:"required,oneof=periodic-reminder content-analysis media-processing"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ScheduledFor *time.Time      `json:"scheduledFor,omitempty"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Tasks []*domain.Task `json:"tasks"`
	Total int            `json:"total"`
}
