package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/hackernews-be/internal/apperr"
	"github.com/isdelr/hackernews-be/internal/monitoring"
)

// SnapshotProvider collects a monitoring snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (monitoring.Snapshot, error)
}

// HealthHandler reports service health and counts.
type HealthHandler struct {
	stats SnapshotProvider
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(stats SnapshotProvider) *HealthHandler {
	return &HealthHandler{stats: stats}
}

// Get returns the current snapshot, or 503 when the store cannot be read.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.Snapshot(r.Context())
	if err != nil {
		WriteError(w, r, apperr.Wrap(apperr.DataUnavailable, "data store unavailable", err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
