package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kartikbazzad/bunbase/lookup/internal/snapshot"
	apperrors "github.com/kartikbazzad/bunbase/lookup/pkg/errors"
)

// Reloader rebuilds the current snapshot from its source.
type Reloader interface {
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
}

// SnapshotHandler exposes dataset status and manual reloads.
type SnapshotHandler struct {
	store    *snapshot.Store
	reloader Reloader
}

// NewSnapshotHandler creates a new SnapshotHandler
func NewSnapshotHandler(store *snapshot.Store, reloader Reloader) *SnapshotHandler {
	return &SnapshotHandler{store: store, reloader: reloader}
}

// Health reports liveness and the size of the loaded dataset.
func (h *SnapshotHandler) Health(c *gin.Context) {
	snap := h.store.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"records": snap.Len(),
		"version": snap.Version,
	})
}

// Reload forces a reload. A failed load keeps the previous snapshot and
// answers 503.
func (h *SnapshotHandler) Reload(c *gin.Context) {
	snap, err := h.reloader.Reload(c.Request.Context())
	if err != nil {
		respondError(c, apperrors.Unavailable("failed to reload dataset", err))
		return
	}
	c.JSON(http.StatusOK, snap.Info())
}
