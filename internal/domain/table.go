package domain

import "time"

// Positional column contract of the upstream feed, counted after placeholder
// columns are removed. Header text is never interpreted.
const (
	ColCode = iota
	ColDate
	ColConfirmed
	ColPCR
	ColAntibody
	ColHospitalized
	ColICU
	ColDeaths
	ColRecovered

	NumFeedColumns
)

// ActiveCasesColumn labels the column appended by DeriveActiveCases.
const ActiveCasesColumn = "Casos Activos"

// Record is one typed row of the national table.
type Record struct {
	Code         string    `json:"code"`
	Date         time.Time `json:"date"`
	Confirmed    float64   `json:"confirmed"`
	PCR          float64   `json:"pcr"`
	Antibody     float64   `json:"antibody"`
	Hospitalized float64   `json:"hospitalized"`
	ICU          float64   `json:"icu"`
	Deaths       float64   `json:"deaths"`
	Recovered    float64   `json:"recovered"`
	ActiveCases  float64   `json:"active_cases"`
}

// Table is a date-ordered set of records. Row index is the slice position.
// Columns holds the cleaned upstream header names in positional order, plus
// ActiveCasesColumn once derived.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
	Derived bool     `json:"derived"`
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    append([]Record(nil), t.Rows...),
		Derived: t.Derived,
	}
}

// MaxDate returns the latest date in the table, or false if empty.
func (t *Table) MaxDate() (time.Time, bool) {
	if t.Empty() {
		return time.Time{}, false
	}
	// Rows are date-sorted, but don't rely on it for a derived subset.
	maxDate := t.Rows[0].Date
	for _, r := range t.Rows[1:] {
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	return maxDate, true
}

// BuildStats counts the per-row data quality repairs applied while building.
type BuildStats struct {
	RowsRead       int `json:"rows_read"`
	RowsDropped    int `json:"rows_dropped"`
	CellsCoerced   int `json:"cells_coerced"`
	ColumnsDropped int `json:"columns_dropped"`
}
