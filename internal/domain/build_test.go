package domain

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = "serie_historica_acumulados.csv"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseString(t *testing.T, csv string) (*Table, BuildStats) {
	t.Helper()
	table, stats, err := ParseNationalTable(strings.NewReader(csv))
	require.NoError(t, err)
	return table, stats
}

func TestBuildNationalTable_Sample(t *testing.T) {
	table, stats, err := BuildNationalTable(filepath.Join("testdata", sampleFeed))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CCAA", "FECHA", "CASOS", "PCR+", "TestAc+",
		"Hospitalizados", "UCI", "Fallecidos", "Recuperados",
	}, table.Columns)
	assert.Equal(t, BuildStats{RowsRead: 8, RowsDropped: 2, CellsCoerced: 22, ColumnsDropped: 2}, stats)
	require.Equal(t, 6, table.Len())

	assert.Equal(t, Record{
		Code: "AN", Date: day(2020, 2, 23),
		Confirmed: 0, PCR: 7, Antibody: 0, Hospitalized: 2, ICU: 1, Deaths: 1, Recovered: 1,
	}, table.Rows[4])
	assert.False(t, table.Derived)
}

func TestBuildNationalTable_MissingFile(t *testing.T) {
	_, _, err := BuildNationalTable(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
}

func TestParseNationalTable_SortedAndStable(t *testing.T) {
	csv := "code,date,a,b,c,d,e,f,g\n" +
		"MD,03/03/2020,3,0,0,0,0,0,0\n" +
		"AN,01/03/2020,1,0,0,0,0,0,0\n" +
		"CT,03/03/2020,30,0,0,0,0,0,0\n" +
		"MD,01/03/2020,10,0,0,0,0,0,0\n" +
		"AN,02/03/2020,2,0,0,0,0,0,0\n"

	table, _ := parseString(t, csv)

	var got []string
	for i, r := range table.Rows {
		got = append(got, r.Code+"@"+r.Date.Format("02"))
		if i > 0 {
			assert.False(t, r.Date.Before(table.Rows[i-1].Date), "row %d out of order", i)
		}
	}
	assert.Equal(t, []string{"AN@01", "MD@01", "AN@02", "MD@03", "CT@03"}, got)
}

func TestParseNationalTable_DropsBadDates(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{"month out of range", "31/13/2020"},
		{"day out of range", "31/02/2020"},
		{"iso layout", "2020-03-01"},
		{"empty", ""},
		{"text", "NOTA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csv := "code,date,a,b,c,d,e,f,g\n" +
				"AN,01/03/2020,1,0,0,0,0,0,0\n" +
				"AN," + tt.date + ",5,0,0,0,0,0,0\n"

			table, stats := parseString(t, csv)
			require.Equal(t, 1, table.Len())
			assert.Equal(t, day(2020, 3, 1), table.Rows[0].Date)
			assert.Equal(t, 1, stats.RowsDropped)
		})
	}
}

func TestParseNationalTable_DateLayouts(t *testing.T) {
	csv := "code,date,a,b,c,d,e,f,g\n" +
		"AN,1/3/2020,1,0,0,0,0,0,0\n" +
		"AN, 02/03/2020 ,1,0,0,0,0,0,0\n"

	table, _ := parseString(t, csv)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, day(2020, 3, 1), table.Rows[0].Date)
	assert.Equal(t, day(2020, 3, 2), table.Rows[1].Date)
}

func TestParseNationalTable_NumericNullFill(t *testing.T) {
	csv := "code,date,a,b,c,d,e,f,g\n" +
		"AN,01/03/2020,abc,,NaN,Inf, 4 ,1.5\n"

	table, stats := parseString(t, csv)
	require.Equal(t, 1, table.Len())
	r := table.Rows[0]

	assert.Equal(t, 0.0, r.Confirmed)
	assert.Equal(t, 0.0, r.PCR)
	assert.Equal(t, 0.0, r.Antibody)
	assert.Equal(t, 0.0, r.Hospitalized)
	assert.Equal(t, 4.0, r.ICU)
	assert.Equal(t, 1.5, r.Deaths)
	assert.Equal(t, 0.0, r.Recovered, "short row pads with zero")
	assert.Equal(t, 5, stats.CellsCoerced)
}

func TestParseNationalTable_PlaceholderColumns(t *testing.T) {
	csv := " code ,Unnamed: 1, date ,a,b,c,d,e,f,g  ,,Unnamed: 11\n" +
		"AN,x,01/03/2020,1,2,3,4,5,6,7,,\n"

	table, stats := parseString(t, csv)
	assert.Equal(t, []string{"code", "date", "a", "b", "c", "d", "e", "f", "g"}, table.Columns)
	assert.Equal(t, 3, stats.ColumnsDropped)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, Record{
		Code: "AN", Date: day(2020, 3, 1),
		Confirmed: 1, PCR: 2, Antibody: 3, Hospitalized: 4, ICU: 5, Deaths: 6, Recovered: 7,
	}, table.Rows[0])
}

func TestParseNationalTable_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty input", ""},
		{"eight columns", "a,b,c,d,e,f,g,h\nAN,01/03/2020,1,1,1,1,1,1\n"},
		{"placeholders hide columns", "a,b,c,d,e,f,g,h,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseNationalTable(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestBuildNationalTable_Idempotent(t *testing.T) {
	path := filepath.Join("testdata", sampleFeed)

	first, _, err := BuildNationalTable(path)
	require.NoError(t, err)
	second, _, err := BuildNationalTable(path)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("rebuild mismatch (-first +second):\n%s", diff)
	}
}
