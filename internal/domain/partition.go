package domain

import "fmt"

// RegionalTables holds one table per registry region, keyed by display name.
type RegionalTables struct {
	registry *Registry
	tables   map[string]*Table
}

// Partition splits t by region code, one table per registry name. Row order is
// preserved; regions absent from t get an empty table.
func Partition(t *Table, reg *Registry) *RegionalTables {
	byCode := make(map[string][]Record)
	for _, r := range t.Rows {
		byCode[r.Code] = append(byCode[r.Code], r)
	}

	rt := &RegionalTables{registry: reg, tables: make(map[string]*Table)}
	for _, region := range reg.Regions() {
		rt.tables[region.Name] = &Table{
			Columns: append([]string(nil), t.Columns...),
			Rows:    append([]Record(nil), byCode[region.Code]...),
			Derived: t.Derived,
		}
	}
	return rt
}

// Region returns the table for a display name. Unknown names yield
// ErrUnknownRegion; a known region with no data yields an empty table.
func (rt *RegionalTables) Region(name string) (*Table, error) {
	t, ok := rt.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}
	return t, nil
}

// Names returns region names in registry order.
func (rt *RegionalTables) Names() []string {
	return rt.registry.Names()
}

// Registry returns the registry the tables were partitioned with.
func (rt *RegionalTables) Registry() *Registry {
	return rt.registry
}

// Each calls fn for every region in registry order.
func (rt *RegionalTables) Each(fn func(name string, t *Table)) {
	for _, name := range rt.Names() {
		fn(name, rt.tables[name])
	}
}
