package snapshot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kartikbazzad/bunbase/lookup/internal/metrics"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

// Reloader loads a Source into a Store.
type Reloader struct {
	store  *Store
	source Source
	log    *slog.Logger

	// mu serializes loads so an older read never overwrites a newer one.
	mu sync.Mutex
}

// NewReloader creates a Reloader. log may be nil.
func NewReloader(store *Store, source Source, log *slog.Logger) *Reloader {
	if log == nil {
		log = logger.Get()
	}
	return &Reloader{store: store, source: source, log: log}
}

// Reload loads the source and publishes a new snapshot. On error the current
// snapshot stays in place.
func (r *Reloader) Reload(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.source.Load(ctx)
	if err != nil {
		metrics.ReloadsTotal.WithLabelValues("records", "error").Inc()
		r.log.Error("Failed to load dataset, keeping previous snapshot",
			"source", r.source.Name(), "error", err)
		return nil, err
	}

	snap := r.store.Replace(recs, r.source.Name())
	metrics.ReloadsTotal.WithLabelValues("records", "ok").Inc()
	metrics.SnapshotRecords.Set(float64(snap.Len()))
	metrics.SnapshotLoadedAt.Set(float64(snap.LoadedAt.Unix()))
	r.log.Info("Dataset loaded",
		"source", snap.Source, "records", snap.Len(), "fields", len(snap.Catalog), "version", snap.Version)
	return snap, nil
}

// Refresh is Reload without the snapshot, for callers that only need the error.
func (r *Reloader) Refresh(ctx context.Context) error {
	_, err := r.Reload(ctx)
	return err
}

// ReloadFunc adapts Reload to the watcher callback signature.
func (r *Reloader) ReloadFunc() func(context.Context) {
	return func(ctx context.Context) {
		_, _ = r.Reload(ctx)
	}
}
