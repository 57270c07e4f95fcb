package pipeline

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
)

func testTransformer(policy domain.ReconciliationPolicy) *Transformer {
	return NewTransformer(domain.NewRegistry(), policy, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTransformer_TransformTable(t *testing.T) {
	national := &domain.Table{Rows: []domain.Record{
		{Code: "AN", Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), PCR: 4},
		{Code: "AN", Date: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), Confirmed: 6},
	}}

	snap, err := testTransformer(domain.ReplaceIfZero).TransformTable(national, domain.BuildStats{RowsRead: 2})
	require.NoError(t, err)

	assert.Equal(t, 4.0, snap.National.Rows[0].Confirmed)
	assert.Equal(t, 0.0, national.Rows[0].Confirmed, "input table must not change")
	require.Len(t, snap.Summary.Rows, 2)
	assert.Equal(t, 6.0, snap.Summary.Rows[1].ActiveCases)
	require.Len(t, snap.Latest, 1)
	assert.Equal(t, 16, snap.Latest[0].CartoID)
	assert.Equal(t, 2, snap.Stats.RowsRead)
	assert.Equal(t, domain.ReplaceIfZero, snap.Policy)
}

func TestTransformer_Transform_MissingFile(t *testing.T) {
	_, err := testTransformer(domain.AddAlways).Transform("does-not-exist.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIO)
}
