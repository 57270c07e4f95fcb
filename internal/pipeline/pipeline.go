package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
	"github.com/couchcryptid/ccaa-covid-etl/internal/observability"
)

// Fetcher writes a normalized copy of the feed at url to outputPath.
type Fetcher interface {
	Fetch(ctx context.Context, url, outputPath string) error
}

// Source locates the feed and the intermediate file its normalized copy is
// written to.
type Source struct {
	URL        string
	OutputPath string
}

// Pipeline runs one fetch-build-derive-partition-summarize pass per call to Run.
// It holds no state between runs.
type Pipeline struct {
	source      Source
	fetcher     Fetcher
	transformer *Transformer
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline. A nil clock uses the real clock.
func New(src Source, f Fetcher, t *Transformer, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		source:      src,
		fetcher:     f,
		transformer: t,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run fetches the feed and builds a new snapshot from it. Any error aborts the
// run and no snapshot is returned.
func (p *Pipeline) Run(ctx context.Context) (*domain.Snapshot, error) {
	start := p.clock.Now()
	outcome := "error"
	defer func() {
		p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
		p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())
	}()

	p.logger.Info("pipeline run started", "url", p.source.URL, "path", p.source.OutputPath)

	if err := p.fetcher.Fetch(ctx, p.source.URL, p.source.OutputPath); err != nil {
		p.logger.Error("fetch failed", "error", err)
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	snap, err := p.transformer.Transform(p.source.OutputPath)
	if err != nil {
		p.logger.Error("transform failed", "error", err)
		return nil, fmt.Errorf("transform feed: %w", err)
	}

	snap.GeneratedAt = p.clock.Now().UTC()
	snap.Source = p.source.URL

	p.metrics.RowsDropped.Add(float64(snap.Stats.RowsDropped))
	p.metrics.CellsCoerced.Add(float64(snap.Stats.CellsCoerced))
	outcome = "success"

	p.logger.Info("pipeline run complete",
		"rows", snap.National.Len(),
		"dates", len(snap.Summary.Rows),
		"regions_reporting", len(snap.Latest),
		"duration", p.clock.Since(start),
	)
	return snap, nil
}
