// Command validate performs offline integrity checks on a normalized feed CSV
// as written by the fetcher. It builds the national table twice and runs the
// rest of the pipeline, then verifies ordering, null-fill, idempotence,
// reconciliation, partitioning, aggregation alignment, and the region
// registry.
//
// Usage:
//
//	go run ./cmd/validate -csv data.csv [-policy replace-if-zero]
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to a normalized feed CSV")
	policyName := flag.String("policy", string(domain.ReplaceIfZero), "reconciliation policy: replace-if-zero or add-always")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *policyName); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, policyName string) int {
	policy, err := domain.ParseReconciliationPolicy(policyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== CCAA Feed Integrity Validation ===")
	fmt.Println()

	// ── Build ──
	national, stats, err := domain.BuildNationalTable(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build national table: %v\n", err)
		return 1
	}
	again, _, err := domain.BuildNationalTable(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: rebuild national table: %v\n", err)
		return 1
	}

	registry := domain.NewRegistry()
	derived := domain.DeriveActiveCases(national, policy)
	regions := domain.Partition(derived, registry)
	summary, sumErr := domain.Summarize(regions)

	// ── Run validation phases ──
	phases := []*phase{
		validateSorted(national),
		validateNullFill(national),
		validateIdempotent(national, again),
		validateReconciliation(national, derived, policy),
		validatePartition(derived, regions, registry),
		validateAlignment(regions, summary, sumErr),
		validateRegistry(registry),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d read, %d kept, %d dropped; %d cells coerced; %d placeholder columns\n",
		stats.RowsRead, national.Len(), stats.RowsDropped, stats.CellsCoerced, stats.ColumnsDropped)
	if summary != nil {
		fmt.Printf("Dates: %d, policy %s\n", len(summary.Rows), policy)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Ordering ──

func validateSorted(t *domain.Table) *phase {
	p := &phase{name: "Phase 1: Rows ordered by date"}
	for i := 1; i < t.Len(); i++ {
		if t.Rows[i].Date.Before(t.Rows[i-1].Date) {
			p.errorf("row %d (%s) precedes row %d (%s)",
				i, t.Rows[i].Date.Format(time.DateOnly), i-1, t.Rows[i-1].Date.Format(time.DateOnly))
		}
	}
	return p
}

// ── Phase 2: Null fill ──

func validateNullFill(t *domain.Table) *phase {
	p := &phase{name: "Phase 2: No null numeric cells"}
	for i, r := range t.Rows {
		for _, v := range []float64{r.Confirmed, r.PCR, r.Antibody, r.Hospitalized, r.ICU, r.Deaths, r.Recovered} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				p.errorf("row %d (%s %s): non-finite value %v", i, r.Code, r.Date.Format(time.DateOnly), v)
				break
			}
		}
		if r.Date.IsZero() {
			p.errorf("row %d (%s): missing date", i, r.Code)
		}
	}
	return p
}

// ── Phase 3: Idempotence ──

func validateIdempotent(first, second *domain.Table) *phase {
	p := &phase{name: "Phase 3: Build is idempotent"}
	if diff := cmp.Diff(first, second); diff != "" {
		p.errorf("second build differs (-first +second):\n%s", diff)
	}
	return p
}

// ── Phase 4: Reconciliation ──

func validateReconciliation(raw, derived *domain.Table, policy domain.ReconciliationPolicy) *phase {
	p := &phase{name: "Phase 4: Reconciliation and active cases"}
	if raw.Len() != derived.Len() {
		p.errorf("derived table has %d rows, national has %d", derived.Len(), raw.Len())
		return p
	}
	for i := range raw.Rows {
		in, out := raw.Rows[i], derived.Rows[i]
		if want := policy.Reconcile(in.Confirmed, in.PCR); out.Confirmed != want {
			p.errorf("row %d (%s): confirmed %v, expected %v", i, in.Code, out.Confirmed, want)
		}
		if want := out.Confirmed - out.Deaths - out.Recovered; out.ActiveCases != want {
			p.errorf("row %d (%s): active cases %v, expected %v", i, in.Code, out.ActiveCases, want)
		}
	}
	return p
}

// ── Phase 5: Partition ──

func validatePartition(derived *domain.Table, regions *domain.RegionalTables, reg *domain.Registry) *phase {
	p := &phase{name: "Phase 5: Regional tables partition the nation"}

	want := map[domain.Record]int{}
	for _, r := range derived.Rows {
		if _, ok := reg.Name(r.Code); ok {
			want[r]++
		}
	}

	got := map[domain.Record]int{}
	regions.Each(func(name string, t *domain.Table) {
		code, _ := reg.Code(name)
		for _, r := range t.Rows {
			if r.Code != code {
				p.errorf("region %s holds a row coded %q", name, r.Code)
			}
			got[r]++
		}
	})

	if diff := cmp.Diff(want, got); diff != "" {
		p.errorf("union of regional rows differs from national rows (-national +regions):\n%s", diff)
	}
	return p
}

// ── Phase 6: Aggregation alignment ──

func validateAlignment(regions *domain.RegionalTables, summary *domain.Summary, sumErr error) *phase {
	p := &phase{name: "Phase 6: Summary aligned with regions"}
	if sumErr != nil {
		p.errorf("summarize: %v", sumErr)
		return p
	}
	for i, row := range summary.Rows {
		var confirmed, deaths, recovered, active float64
		regions.Each(func(_ string, t *domain.Table) {
			if t.Empty() {
				return
			}
			confirmed += t.Rows[i].Confirmed
			deaths += t.Rows[i].Deaths
			recovered += t.Rows[i].Recovered
			active += t.Rows[i].ActiveCases
		})
		if row.Confirmed != confirmed || row.Deaths != deaths || row.Recovered != recovered || row.ActiveCases != active {
			p.errorf("%s: summary %+v does not match regional sums (%v, %v, %v, %v)",
				row.Date.Format(time.DateOnly), row, confirmed, deaths, recovered, active)
		}
	}
	return p
}

// ── Phase 7: Registry ──

func validateRegistry(reg *domain.Registry) *phase {
	p := &phase{name: "Phase 7: Region registry bijection"}

	nameToCode := reg.NameToCode()
	codeToID := reg.CodeToCartoID()
	if len(nameToCode) != len(codeToID) {
		p.errorf("%d names but %d cartographic ids", len(nameToCode), len(codeToID))
	}

	seenIDs := map[int]string{}
	for name, code := range nameToCode {
		back, ok := reg.Name(code)
		if !ok || back != name {
			p.errorf("code %q maps back to %q, expected %q", code, back, name)
		}
		id, ok := codeToID[code]
		if !ok {
			p.errorf("code %q has no cartographic id", code)
			continue
		}
		if other, dup := seenIDs[id]; dup {
			p.errorf("cartographic id %d shared by %q and %q", id, other, code)
		}
		seenIDs[id] = code
		if c, ok := reg.CodeForCartoID(id); !ok || c != code {
			p.errorf("cartographic id %d maps back to %q, expected %q", id, c, code)
		}
	}
	return p
}
