package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/wricardo/skyguessr/game/engine"
)

const (
	LocationFile = "location_data.json"
	MapFile      = "map_data.json"
)

// Locations is the location_data.json document: map name -> id -> record.
type Locations map[string]map[string]engine.Location

// Maps is the map_data.json document: map name -> descriptor.
type Maps map[string]engine.MapDescriptor

// ReadLocations decodes a location document. A missing file yields an empty
// document and os.ErrNotExist.
func ReadLocations(path string) (Locations, error) {
	locs := Locations{}
	if err := readDocument(path, &locs); err != nil {
		return Locations{}, err
	}
	if locs == nil {
		// a "null" document
		locs = Locations{}
	}
	return locs, nil
}

// ReadMaps decodes a map descriptor document. A missing file yields an empty
// document and os.ErrNotExist.
func ReadMaps(path string) (Maps, error) {
	maps := Maps{}
	if err := readDocument(path, &maps); err != nil {
		return Maps{}, err
	}
	if maps == nil {
		// a "null" document
		maps = Maps{}
	}
	return maps, nil
}

// WriteLocations encodes a location document with stable indentation.
func WriteLocations(path string, locs Locations) error {
	return writeDocument(path, locs)
}

// WriteMaps encodes a map descriptor document with stable indentation.
func WriteMaps(path string, maps Maps) error {
	return writeDocument(path, maps)
}

// Load reads both documents from dir. Missing documents are treated as empty
// and reported as warnings; malformed documents fail with ErrInvalidCatalog.
func Load(dir string) (*engine.Catalog, []string, error) {
	var warnings []string

	locs, err := ReadLocations(filepath.Join(dir, LocationFile))
	if errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, fmt.Sprintf("%s not found in %s", LocationFile, dir))
	} else if err != nil {
		return nil, nil, err
	}

	maps, err := ReadMaps(filepath.Join(dir, MapFile))
	if errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, fmt.Sprintf("%s not found in %s", MapFile, dir))
	} else if err != nil {
		return nil, nil, err
	}

	c := engine.NewCatalog(locs, maps)
	warnings = append(warnings, Validate(c, dir)...)
	return c, warnings, nil
}

// Validate reports inconsistencies that do not stop the game from running:
// mismatched keys, locations without descriptors, points outside the map
// bounds and, when dir is not empty, missing image files.
func Validate(c *engine.Catalog, dir string) []string {
	var warnings []string

	for _, mapName := range c.MapNames() {
		desc, hasDesc := c.Map(mapName)
		ids := c.LocationIDs(mapName)

		if !hasDesc && len(ids) > 0 {
			warnings = append(warnings, fmt.Sprintf("map %s: %d locations but no descriptor, guesses will score zero", mapName, len(ids)))
		}
		if hasDesc && len(ids) == 0 {
			warnings = append(warnings, fmt.Sprintf("map %s: descriptor without locations", mapName))
		}
		if hasDesc && desc.Bounds.End == desc.Bounds.Start {
			warnings = append(warnings, fmt.Sprintf("map %s: empty bounds", mapName))
		}
		if dir != "" && hasDesc && !fileExists(filepath.Join(dir, "maps", mapName+".png")) {
			warnings = append(warnings, fmt.Sprintf("map %s: missing image maps/%s.png", mapName, mapName))
		}

		for _, id := range ids {
			loc, _ := c.Location(mapName, id)
			prefix := fmt.Sprintf("location %s/%s", mapName, id)

			if loc.ID != id {
				warnings = append(warnings, fmt.Sprintf("%s: id field is %q", prefix, loc.ID))
			}
			if loc.Map != mapName {
				warnings = append(warnings, fmt.Sprintf("%s: map field is %q", prefix, loc.Map))
			}
			if loc.Image == "" {
				warnings = append(warnings, fmt.Sprintf("%s: no image", prefix))
			} else if dir != "" && !fileExists(filepath.Join(dir, mapName, loc.Image)) {
				warnings = append(warnings, fmt.Sprintf("%s: missing image %s/%s", prefix, mapName, loc.Image))
			}
			if hasDesc && !inBounds(loc.Location, desc.Bounds) {
				warnings = append(warnings, fmt.Sprintf("%s: point %s outside map bounds", prefix, loc.Location))
			}
			if loc.Underground && dir != "" && !fileExists(filepath.Join(dir, "maps", mapName+"_underground.png")) {
				warnings = append(warnings, fmt.Sprintf("%s: underground but maps/%s_underground.png is missing", prefix, mapName))
			}
		}
	}

	sort.Strings(warnings)
	return warnings
}

func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, filepath.Base(path), err)
	}
	return nil
}

func writeDocument(path string, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func inBounds(p engine.Point, b engine.Bounds) bool {
	minY, maxY := min(b.Start[0], b.End[0]), max(b.Start[0], b.End[0])
	minX, maxX := min(b.Start[1], b.End[1]), max(b.Start[1], b.End[1])
	return p[0] >= minY && p[0] <= maxY && p[1] >= minX && p[1] <= maxX
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
