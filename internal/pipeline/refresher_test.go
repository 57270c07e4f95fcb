package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
	"github.com/couchcryptid/ccaa-covid-etl/internal/observability"
	"github.com/couchcryptid/ccaa-covid-etl/internal/pipeline"
)

type stubRunner struct {
	calls   atomic.Int32
	results []runResult
	release chan struct{}
	started chan struct{}
}

type runResult struct {
	snap *domain.Snapshot
	err  error
}

func (s *stubRunner) Run(_ context.Context) (*domain.Snapshot, error) {
	i := int(s.calls.Add(1) - 1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	r := s.results[min(i, len(s.results)-1)]
	return r.snap, r.err
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []*domain.Snapshot
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, snap *domain.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, snap)
	return p.err
}

func snapshotAt(ts time.Time) *domain.Snapshot {
	return &domain.Snapshot{GeneratedAt: ts, National: &domain.Table{Rows: make([]domain.Record, 3)}}
}

func TestRefresher_NotReadyUntilPublished(t *testing.T) {
	r := pipeline.NewRefresher(&stubRunner{}, testFeedURL, nil, discardLogger(), observability.NewMetricsForTesting())

	assert.Nil(t, r.Current())
	require.Error(t, r.CheckReadiness(context.Background()))
}

func TestRefresher_Refresh_Publishes(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	snap := snapshotAt(generatedAt)
	pub := &recordingPublisher{}
	r := pipeline.NewRefresher(&stubRunner{results: []runResult{{snap: snap}}}, testFeedURL, pub, discardLogger(), metrics)

	got, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Same(t, snap, got)
	assert.Same(t, snap, r.Current())
	require.NoError(t, r.CheckReadiness(context.Background()))
	require.Len(t, pub.published, 1)
	assert.Same(t, snap, pub.published[0])

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineReady), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.SnapshotRows), 0)
	assert.InDelta(t, float64(generatedAt.Unix()), testutil.ToFloat64(metrics.LastSuccess), 0)
}

func TestRefresher_FailedRefreshKeepsSnapshot(t *testing.T) {
	first := snapshotAt(generatedAt)
	runner := &stubRunner{results: []runResult{
		{snap: first},
		{err: domain.ErrTransport},
	}}
	r := pipeline.NewRefresher(runner, testFeedURL, nil, discardLogger(), observability.NewMetricsForTesting())

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	got, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Same(t, first, r.Current())
	require.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRefresher_PublisherErrorDoesNotFailRefresh(t *testing.T) {
	snap := snapshotAt(generatedAt)
	pub := &recordingPublisher{err: errors.New("broker down")}
	r := pipeline.NewRefresher(&stubRunner{results: []runResult{{snap: snap}}}, testFeedURL, pub, discardLogger(), observability.NewMetricsForTesting())

	got, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, got)
	assert.Same(t, snap, r.Current())
}

func TestRefresher_ConcurrentRefreshesShareOneRun(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	snap := snapshotAt(generatedAt)
	runner := &stubRunner{
		results: []runResult{{snap: snap}},
		release: make(chan struct{}),
		started: make(chan struct{}, 8),
	}
	r := pipeline.NewRefresher(runner, testFeedURL, nil, discardLogger(), metrics)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*domain.Snapshot, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = r.Refresh(context.Background())
	}()
	<-runner.started

	entered := make(chan struct{}, callers)
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entered <- struct{}{}
			results[i], _ = r.Refresh(context.Background())
		}(i)
	}
	for i := 1; i < callers; i++ {
		<-entered
	}
	close(runner.release)
	wg.Wait()

	assert.Equal(t, int32(1), runner.calls.Load())
	for i, got := range results {
		assert.Same(t, snap, got, "caller %d", i)
	}
	// The caller that ran the pipeline is not counted.
	assert.InDelta(t, callers-1, testutil.ToFloat64(metrics.RefreshesShared), 0)
}

func TestRefresher_CancelledCallerDoesNotAbortRun(t *testing.T) {
	snap := snapshotAt(generatedAt)
	r := pipeline.NewRefresher(&stubRunner{results: []runResult{{snap: snap}}}, testFeedURL, nil, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.Same(t, snap, got)
}
