package reaper

import (
	"context"
	"log/slog"
	"time"
)

const staleReason = "worker stopped responding"

// Store is the slice of storage the reaper needs.
type Store interface {
	SweepStaleJobs(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// Config holds reaper configuration.
type Config struct {
	Logger *slog.Logger
	Store  Store

	// SweepInterval is how often the sweep runs.
	SweepInterval time.Duration

	// GracePeriod is how long a QUEUED or PROCESSING job may go without
	// an update before it is failed. PROGRESS reports reset the clock.
	GracePeriod time.Duration
}

// Reaper fails jobs abandoned by the remote worker. Without it a job
// whose worker crashed or whose user closed the browser would sit in
// PROCESSING forever, invisible to everyone but the exhausted poller.
type Reaper struct {
	logger        *slog.Logger
	store         Store
	sweepInterval time.Duration
	gracePeriod   time.Duration
}

func NewReaper(cfg *Config) *Reaper {
	return &Reaper{
		logger:        cfg.Logger,
		store:         cfg.Store,
		sweepInterval: cfg.SweepInterval,
		gracePeriod:   cfg.GracePeriod,
	}
}

// Run sweeps on a ticker until the context is canceled.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info("Starting staleness reaper",
		slog.Duration("sweep_interval", r.sweepInterval),
		slog.Duration("grace_period", r.gracePeriod),
	)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reaper stopping, context canceled")
			return nil

		case <-ticker.C:
			if err := r.SweepOnce(ctx); err != nil {
				r.logger.Error("Sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// SweepOnce fails every stuck job older than the grace period.
func (r *Reaper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-r.gracePeriod)

	swept, err := r.store.SweepStaleJobs(ctx, cutoff, staleReason)
	if err != nil {
		return err
	}

	if swept > 0 {
		r.logger.Info("Swept stale jobs",
			slog.Int64("count", swept),
			slog.Time("cutoff", cutoff),
		)
	}

	return nil
}
