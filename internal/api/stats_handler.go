package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/api/shared"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/stats"
)

// StatsReader produces owner aggregates. *stats.Aggregator satisfies it.
type StatsReader interface {
	TaskStats(ctx context.Context, owner uuid.UUID) (*stats.TaskStats, error)
	RecordStats(ctx context.Context, owner uuid.UUID, recordType domain.RecordType) (any, error)
}

// StatsHandler serves the read-only statistics endpoints.
type StatsHandler struct {
	reader StatsReader
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(reader StatsReader) *StatsHandler {
	return &StatsHandler{reader: reader}
}

// TaskStats handles GET /api/stats/tasks.
func (h *StatsHandler) TaskStats(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	out, err := h.reader.TaskStats(r.Context(), owner)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// RecordStats handles GET /api/stats/records/{recordType}.
func (h *StatsHandler) RecordStats(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	recordType := domain.RecordType(chi.URLParam(r, "recordType"))
	if !recordType.Valid() {
		HandleAPIError(w, r, stats.ErrUnknownRecordType, "")
		return
	}
	out, err := h.reader.RecordStats(r.Context(), owner, recordType)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}
