package domain

import (
	"sort"
	"strconv"
	"strings"
)

// regionTable lists every comunidad autónoma as "code,name,cartoID". Codes follow
// ISO 3166-2:ES without the "ES-" prefix. Cartographic ids key the IGN boundary
// GeoJSON used by the map layer.
const regionTable = `
AN,Andalucía,16
AR,Aragón,15
AS,Asturias,14
CN,Canarias,19
CB,Cantabria,12
CM,Castilla La Mancha,10
CL,Castilla y León,11
CT,Catalunya,9
EX,Extremadura,7
GA,Galiza,6
IB,Illes Balears,13
RI,La Rioja,17
MD,Madrid,5
MC,Murcia,4
NC,Navarra,3
PV,Euskadi,2
VC,Comunitat Valenciana,8
CE,Ceuta,18
ML,Melilla,1
`

// Region is one registry entry.
type Region struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	CartoID int    `json:"carto_id"`
}

// Registry maps region display names, short codes and cartographic ids.
// It is immutable after construction; accessors that return maps hand out copies.
type Registry struct {
	regions    []Region // sorted by name
	nameToCode map[string]string
	codeToName map[string]string
	codeToID   map[string]int
	idToCode   map[int]string
}

// NewRegistry builds the registry from the fixed region table.
func NewRegistry() *Registry {
	r := &Registry{
		nameToCode: make(map[string]string),
		codeToName: make(map[string]string),
		codeToID:   make(map[string]int),
		idToCode:   make(map[int]string),
	}
	for _, line := range strings.Split(strings.TrimSpace(regionTable), "\n") {
		parts := strings.Split(strings.TrimSpace(line), ",")
		if len(parts) != 3 {
			panic("malformed region table line: " + line)
		}
		id, err := strconv.Atoi(parts[2])
		if err != nil {
			panic("malformed cartographic id: " + line)
		}
		code, name := parts[0], parts[1]
		r.regions = append(r.regions, Region{Name: name, Code: code, CartoID: id})
		r.nameToCode[name] = code
		r.codeToName[code] = name
		r.codeToID[code] = id
		r.idToCode[id] = code
	}
	sort.Slice(r.regions, func(i, j int) bool { return r.regions[i].Name < r.regions[j].Name })
	return r
}

// NameToCode returns a copy of the display name → code mapping.
func (r *Registry) NameToCode() map[string]string {
	out := make(map[string]string, len(r.nameToCode))
	for k, v := range r.nameToCode {
		out[k] = v
	}
	return out
}

// CodeToCartoID returns a copy of the code → cartographic id mapping.
func (r *Registry) CodeToCartoID() map[string]int {
	out := make(map[string]int, len(r.codeToID))
	for k, v := range r.codeToID {
		out[k] = v
	}
	return out
}

// Regions returns all entries ordered by display name.
func (r *Registry) Regions() []Region {
	return append([]Region(nil), r.regions...)
}

// Names returns the display names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.regions))
	for i, reg := range r.regions {
		names[i] = reg.Name
	}
	return names
}

// Code returns the region code for a display name.
func (r *Registry) Code(name string) (string, bool) {
	c, ok := r.nameToCode[name]
	return c, ok
}

// Name returns the display name for a region code.
func (r *Registry) Name(code string) (string, bool) {
	n, ok := r.codeToName[code]
	return n, ok
}

// CartoID returns the geometry feature id for a region code.
func (r *Registry) CartoID(code string) (int, bool) {
	id, ok := r.codeToID[code]
	return id, ok
}

// CodeForCartoID resolves a geometry feature id back to a region code.
func (r *Registry) CodeForCartoID(id int) (string, bool) {
	c, ok := r.idToCode[id]
	return c, ok
}
