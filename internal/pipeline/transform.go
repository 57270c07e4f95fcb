package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
)

// Transformer runs the offline stages of a run: build, derive, partition,
// summarize, and the latest-date join.
type Transformer struct {
	registry *domain.Registry
	policy   domain.ReconciliationPolicy
	logger   *slog.Logger
}

// NewTransformer creates a Transformer for the given registry and
// reconciliation policy.
func NewTransformer(registry *domain.Registry, policy domain.ReconciliationPolicy, logger *slog.Logger) *Transformer {
	return &Transformer{
		registry: registry,
		policy:   policy,
		logger:   logger,
	}
}

// Transform builds a snapshot from the normalized CSV at path. GeneratedAt and
// Source are left for the caller to stamp.
func (t *Transformer) Transform(path string) (*domain.Snapshot, error) {
	national, stats, err := domain.BuildNationalTable(path)
	if err != nil {
		return nil, err
	}
	return t.TransformTable(national, stats)
}

// TransformTable runs the stages after the build on an already parsed table.
func (t *Transformer) TransformTable(national *domain.Table, stats domain.BuildStats) (*domain.Snapshot, error) {
	if stats.RowsDropped > 0 || stats.CellsCoerced > 0 {
		t.logger.Warn("feed required repairs",
			"rows_dropped", stats.RowsDropped,
			"cells_coerced", stats.CellsCoerced,
			"columns_dropped", stats.ColumnsDropped,
		)
	}

	derived := domain.DeriveActiveCases(national, t.policy)
	regions := domain.Partition(derived, t.registry)

	summary, err := domain.Summarize(regions)
	if err != nil {
		return nil, err
	}

	return &domain.Snapshot{
		Policy:   t.policy,
		National: derived,
		Regions:  regions,
		Summary:  summary,
		Latest:   domain.LatestByRegion(derived, t.registry),
		Stats:    stats,
	}, nil
}
