package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
	"github.com/couchcryptid/ccaa-covid-etl/internal/observability"
)

// Runner produces a new snapshot.
type Runner interface {
	Run(ctx context.Context) (*domain.Snapshot, error)
}

// Publisher forwards a newly published snapshot downstream.
type Publisher interface {
	Publish(ctx context.Context, snap *domain.Snapshot) error
}

// Refresher owns the published snapshot. Concurrent refreshes for the same
// key share one run, and a failed run leaves the current snapshot in place.
type Refresher struct {
	runner    Runner
	key       string
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	group   singleflight.Group
	current atomic.Pointer[domain.Snapshot]
}

// NewRefresher creates a Refresher. key identifies the shared resource runs
// write to, normally the feed URL. publisher may be nil.
func NewRefresher(r Runner, key string, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	return &Refresher{
		runner:    r,
		key:       key,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Refresh runs the pipeline, or joins the run already in flight, and publishes
// the result. The run is detached from ctx cancellation so callers that join
// it are not failed by the caller that started it going away.
func (r *Refresher) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	runCtx := context.WithoutCancel(ctx)
	leader := false
	v, err, shared := r.group.Do(r.key, func() (any, error) {
		leader = true
		snap, err := r.runner.Run(runCtx)
		if err != nil {
			return nil, err
		}
		r.publish(runCtx, snap)
		return snap, nil
	})
	// shared is also set for the caller that ran fn; count only the joiners.
	if shared && !leader {
		r.metrics.RefreshesShared.Inc()
	}
	if err != nil {
		r.logger.Warn("refresh failed, keeping current snapshot", "error", err)
		return nil, err
	}
	return v.(*domain.Snapshot), nil
}

// Current returns the published snapshot, or nil before the first success.
func (r *Refresher) Current() *domain.Snapshot {
	return r.current.Load()
}

// CheckReadiness returns nil once a snapshot has been published.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if r.current.Load() == nil {
		return errors.New("no snapshot has been published yet")
	}
	return nil
}

func (r *Refresher) publish(ctx context.Context, snap *domain.Snapshot) {
	r.current.Store(snap)
	r.metrics.PipelineReady.Set(1)
	r.metrics.SnapshotRows.Set(float64(snap.National.Len()))
	r.metrics.LastSuccess.Set(float64(snap.GeneratedAt.Unix()))

	if r.publisher == nil {
		return
	}
	// The in-memory snapshot stays authoritative when the sink is down.
	if err := r.publisher.Publish(ctx, snap); err != nil {
		r.logger.Error("publish snapshot failed", "error", err)
	}
}
