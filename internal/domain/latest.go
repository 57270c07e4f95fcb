package domain

// LatestRow is a region's most recent record joined to its cartographic id,
// ready to attach to boundary polygons.
type LatestRow struct {
	Record
	CartoID int `json:"carto_id"`
}

// LatestByRegion returns the rows of t dated on t's most recent date, in table
// order. Rows whose code is not in the registry have no geometry and are skipped.
func LatestByRegion(t *Table, reg *Registry) []LatestRow {
	maxDate, ok := t.MaxDate()
	if !ok {
		return nil
	}
	var out []LatestRow
	for _, r := range t.Rows {
		if !r.Date.Equal(maxDate) {
			continue
		}
		id, ok := reg.CartoID(r.Code)
		if !ok {
			continue
		}
		out = append(out, LatestRow{Record: r, CartoID: id})
	}
	return out
}
