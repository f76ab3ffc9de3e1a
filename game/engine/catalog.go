package engine

import "sort"

// Catalog bundles the read-only location and map data a session plays against.
type Catalog struct {
	Locations map[string]map[string]Location `json:"locations"`
	Maps      map[string]MapDescriptor       `json:"maps"`
}

// NewCatalog creates a catalog from already decoded documents. Nil maps are
// treated as empty.
func NewCatalog(locations map[string]map[string]Location, maps map[string]MapDescriptor) *Catalog {
	if locations == nil {
		locations = map[string]map[string]Location{}
	}
	if maps == nil {
		maps = map[string]MapDescriptor{}
	}
	return &Catalog{Locations: locations, Maps: maps}
}

// Map returns the descriptor for name
func (c *Catalog) Map(name string) (MapDescriptor, bool) {
	if c == nil {
		return MapDescriptor{}, false
	}
	m, ok := c.Maps[name]
	return m, ok
}

// Location returns a single location record
func (c *Catalog) Location(mapName, id string) (Location, bool) {
	if c == nil {
		return Location{}, false
	}
	loc, ok := c.Locations[mapName][id]
	return loc, ok
}

// LocationIDs returns the sorted location ids of a map.
func (c *Catalog) LocationIDs(mapName string) []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Locations[mapName]))
	for id := range c.Locations[mapName] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PlayableMaps returns the sorted names of maps with at least one location.
func (c *Catalog) PlayableMaps() []string {
	if c == nil {
		return nil
	}
	var names []string
	for name, locs := range c.Locations {
		if len(locs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// MapNames returns every map known to either catalog, sorted.
func (c *Catalog) MapNames() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	for name := range c.Maps {
		seen[name] = true
	}
	for name := range c.Locations {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CountLocations counts the locations of a map
func (c *Catalog) CountLocations(mapName string) int {
	if c == nil {
		return 0
	}
	return len(c.Locations[mapName])
}
