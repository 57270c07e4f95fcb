package domain

import "fmt"

// ReconciliationPolicy selects how PCR-confirmed counts are folded into the
// primary confirmed column. Some regions and periods report confirmed cases
// only in the PCR column.
type ReconciliationPolicy string

const (
	// ReplaceIfZero copies PCR into confirmed only where confirmed is exactly 0.
	ReplaceIfZero ReconciliationPolicy = "replace-if-zero"
	// AddAlways adds PCR to confirmed on every row.
	AddAlways ReconciliationPolicy = "add-always"
)

// ParseReconciliationPolicy validates a policy name.
func ParseReconciliationPolicy(s string) (ReconciliationPolicy, error) {
	switch p := ReconciliationPolicy(s); p {
	case ReplaceIfZero, AddAlways:
		return p, nil
	default:
		return "", fmt.Errorf("unknown reconciliation policy %q", s)
	}
}

// Reconcile returns the confirmed value for a row under the policy.
func (p ReconciliationPolicy) Reconcile(confirmed, pcr float64) float64 {
	switch p {
	case AddAlways:
		return confirmed + pcr
	default:
		if confirmed == 0 {
			return pcr
		}
		return confirmed
	}
}

// DeriveActiveCases returns a reconciled copy of t with ActiveCases set to
// confirmed - deaths - recovered. The input table is not modified.
func DeriveActiveCases(t *Table, policy ReconciliationPolicy) *Table {
	out := t.Clone()
	for i := range out.Rows {
		r := &out.Rows[i]
		r.Confirmed = policy.Reconcile(r.Confirmed, r.PCR)
		r.ActiveCases = r.Confirmed - r.Deaths - r.Recovered
	}
	if !out.Derived {
		out.Columns = append(out.Columns, ActiveCasesColumn)
		out.Derived = true
	}
	return out
}
