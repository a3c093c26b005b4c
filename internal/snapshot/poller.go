package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

// Versioned is a source that can report a cheap change token (an ETag).
type Versioned interface {
	Version(ctx context.Context) (string, error)
}

// Poller reloads when a Versioned source reports a new version.
type Poller struct {
	source   Versioned
	interval time.Duration
	reload   func(context.Context) error
	log      *slog.Logger
	last     string
}

// NewPoller creates a poller checking source every interval. A version only
// counts as seen once reload returns nil, so failed loads are retried.
func NewPoller(source Versioned, interval time.Duration, reload func(context.Context) error, log *slog.Logger) *Poller {
	if log == nil {
		log = logger.Get()
	}
	return &Poller{source: source, interval: interval, reload: reload, log: log}
}

// Prime records the current version without reloading.
func (p *Poller) Prime(ctx context.Context) {
	if v, err := p.source.Version(ctx); err == nil {
		p.last = v
	}
}

// Check compares the source version with the last seen one and reloads when
// it changed. It reports whether a reload succeeded.
func (p *Poller) Check(ctx context.Context) bool {
	v, err := p.source.Version(ctx)
	if err != nil {
		p.log.Warn("Failed to check dataset version", "error", err)
		return false
	}
	if v == p.last {
		return false
	}
	p.log.Info("Dataset version changed, reloading", "from", p.last, "to", v)
	if err := p.reload(ctx); err != nil {
		p.log.Warn("Reload failed, will retry on next check", "version", v, "error", err)
		return false
	}
	p.last = v
	return true
}

// Run checks on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
