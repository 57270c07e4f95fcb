package domain

import "time"

// Snapshot is the published result of one pipeline run. Consumers treat it as
// read-only; a refresh publishes a new Snapshot instead of mutating this one.
type Snapshot struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Source      string               `json:"source"`
	Policy      ReconciliationPolicy `json:"policy"`
	National    *Table               `json:"national"`
	Regions     *RegionalTables      `json:"-"`
	Summary     *Summary             `json:"summary"`
	Latest      []LatestRow          `json:"latest"`
	Stats       BuildStats           `json:"stats"`
}
