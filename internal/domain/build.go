package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// feedDateLayout accepts one- or two-digit day and month, e.g. "1/3/2020" and "01/03/2020".
const feedDateLayout = "2/1/2006"

// placeholderRe matches the names dataframe tools give to unlabeled columns.
var placeholderRe = regexp.MustCompile(`^Unnamed: \d+`)

// BuildNationalTable reads the normalized feed at path into a NationalTable.
func BuildNationalTable(path string) (*Table, BuildStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("%w: open national csv: %w", ErrIO, err)
	}
	defer f.Close()

	return ParseNationalTable(f)
}

// ParseNationalTable parses a normalized (UTF-8, footnote-free) feed. Malformed
// cells and dates are repaired or dropped and counted in BuildStats; only
// schema and read failures are returned as errors.
func ParseNationalTable(r io.Reader) (*Table, BuildStats, error) {
	var stats BuildStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("%w: feed has no header row", ErrSchema)
		}
		return nil, stats, fmt.Errorf("%w: read header: %w", ErrSchema, err)
	}

	keep, names := namedColumns(header)
	stats.ColumnsDropped = len(header) - len(keep)
	if len(keep) < NumFeedColumns {
		return nil, stats, fmt.Errorf("%w: need %d named columns, got %d", ErrSchema, NumFeedColumns, len(keep))
	}
	keep, names = keep[:NumFeedColumns], names[:NumFeedColumns]

	t := &Table{Columns: names}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.RowsRead++
				stats.RowsDropped++
				continue
			}
			return nil, stats, fmt.Errorf("%w: read national csv: %w", ErrIO, err)
		}
		stats.RowsRead++

		row, coerced, ok := parseRecord(rec, keep)
		if !ok {
			stats.RowsDropped++
			continue
		}
		stats.CellsCoerced += coerced
		t.Rows = append(t.Rows, row)
	}

	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Date.Before(t.Rows[j].Date)
	})
	return t, stats, nil
}

// namedColumns returns the indexes and stripped names of header columns that
// are not unlabeled placeholders.
func namedColumns(header []string) ([]int, []string) {
	var (
		idx   []int
		names []string
	)
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.TrimSpace(h)
		if name == "" || placeholderRe.MatchString(name) {
			continue
		}
		idx = append(idx, i)
		names = append(names, name)
	}
	return idx, names
}

// parseRecord maps one CSV record onto a Record. It returns the number of
// numeric cells filled with zero and false when the date cannot be parsed.
func parseRecord(rec []string, keep []int) (Record, int, bool) {
	cell := func(pos int) string {
		i := keep[pos]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	date, err := time.Parse(feedDateLayout, strings.TrimSpace(cell(ColDate)))
	if err != nil {
		return Record{}, 0, false
	}

	coerced := 0
	num := func(pos int) float64 {
		v, ok := parseNumeric(cell(pos))
		if !ok {
			coerced++
		}
		return v
	}

	return Record{
		Code:         strings.TrimSpace(cell(ColCode)),
		Date:         date,
		Confirmed:    num(ColConfirmed),
		PCR:          num(ColPCR),
		Antibody:     num(ColAntibody),
		Hospitalized: num(ColHospitalized),
		ICU:          num(ColICU),
		Deaths:       num(ColDeaths),
		Recovered:    num(ColRecovered),
	}, coerced, true
}

// parseNumeric parses a float cell. Empty, unparseable, NaN and infinite values
// are null and come back as 0 with ok=false.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
