package domain

import (
	"fmt"
	"sort"
	"time"
)

// SummaryRow is one date of national totals.
type SummaryRow struct {
	Date        time.Time `json:"date"`
	Confirmed   float64   `json:"confirmed"`
	Deaths      float64   `json:"deaths"`
	Recovered   float64   `json:"recovered"`
	ActiveCases float64   `json:"active_cases"`
}

// Summary is the national time series re-summed from regional tables.
type Summary struct {
	Rows []SummaryRow `json:"rows"`
}

// Summarize sums confirmed, deaths, recovered and active cases across regional
// tables. Series are summed by row position, so every non-empty regional table
// must hold exactly one row per distinct date, in date order. Anything else is
// an ErrConsistency; rows are never truncated or padded.
func Summarize(rt *RegionalTables) (*Summary, error) {
	dates := distinctDates(rt)
	rows := make([]SummaryRow, len(dates))
	for i, d := range dates {
		rows[i].Date = d
	}

	var err error
	rt.Each(func(name string, t *Table) {
		if err != nil || t.Empty() {
			return
		}
		if t.Len() != len(dates) {
			err = fmt.Errorf("%w: region %q has %d rows, expected %d dates", ErrConsistency, name, t.Len(), len(dates))
			return
		}
		for i, r := range t.Rows {
			if !r.Date.Equal(dates[i]) {
				err = fmt.Errorf("%w: region %q row %d is %s, expected %s",
					ErrConsistency, name, i, r.Date.Format(time.DateOnly), dates[i].Format(time.DateOnly))
				return
			}
			rows[i].Confirmed += r.Confirmed
			rows[i].Deaths += r.Deaths
			rows[i].Recovered += r.Recovered
			rows[i].ActiveCases += r.ActiveCases
		}
	})
	if err != nil {
		return nil, err
	}
	return &Summary{Rows: rows}, nil
}

func distinctDates(rt *RegionalTables) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	rt.Each(func(_ string, t *Table) {
		for _, r := range t.Rows {
			if _, ok := seen[r.Date]; ok {
				continue
			}
			seen[r.Date] = struct{}{}
			dates = append(dates, r.Date)
		}
	})
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
