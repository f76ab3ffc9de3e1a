package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/skyguessr/game/engine"
)

const testLocations = `{
    "hub": {
        "village": {"id": "village", "image": "village.png", "name": "Village", "map": "hub", "location": [500, 500], "difficulty": 1, "underground": false},
        "mountain": {"id": "mountain", "image": "mountain.png", "name": "Mountain", "map": "hub", "location": [100, 200], "difficulty": 2, "underground": false}
    },
    "mines": {
        "lapis": {"id": "lapis", "image": "lapis.png", "name": "Lapis", "map": "mines", "location": [50, 60], "difficulty": 3, "underground": true}
    },
    "empty": {}
}`

const testMaps = `{
    "hub": {"bounds": {"start": [0, 0], "end": [1000, 1000], "center": [500, 500]}, "zoom": {"min": -2, "max": 2, "default": 0}},
    "mines": {"bounds": {"start": [0, 0], "end": [200, 200], "center": [100, 100]}, "zoom": {"min": -1, "max": 3, "default": 1}}
}`

func createTestContentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, LocationFile, testLocations)
	writeFile(t, dir, MapFile, testMaps)
	for _, f := range []string{"maps/hub.png", "maps/mines.png", "maps/mines_underground.png", "hub/village.png", "hub/mountain.png", "mines/lapis.png"} {
		writeFile(t, dir, f, "png")
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestNewManager(t *testing.T) {
	dir := createTestContentDir(t)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	c := manager.Catalog()
	if c.CountLocations("hub") != 2 {
		t.Errorf("Expected 2 hub locations, got %d", c.CountLocations("hub"))
	}
	loc, ok := c.Location("mines", "lapis")
	if !ok {
		t.Fatal("Expected mines/lapis to exist")
	}
	if !loc.Underground || loc.Location != (engine.Point{50, 60}) || loc.Difficulty != 3 {
		t.Errorf("Unexpected decoded location %+v", loc)
	}
	desc, ok := c.Map("hub")
	if !ok || desc.Bounds.End != (engine.Point{1000, 1000}) || desc.Zoom.Min != -2 {
		t.Errorf("Unexpected decoded descriptor %+v", desc)
	}

	info := manager.Info()
	if info.Maps != 3 || info.Locations != 3 {
		t.Errorf("Expected 3 maps and 3 locations, got %d and %d", info.Maps, info.Locations)
	}
	if strings.Join(info.Playable, ",") != "hub,mines" {
		t.Errorf("Unexpected playable maps %v", info.Playable)
	}
	if len(info.Warnings) != 0 {
		t.Errorf("Expected a clean catalog, got warnings %v", info.Warnings)
	}
}

func TestNewManager_MissingDirectory(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("Expected error for missing content directory")
	}
}

func TestNewManager_MissingDocuments(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if len(manager.Catalog().PlayableMaps()) != 0 {
		t.Error("Expected an empty catalog")
	}
	if len(manager.Info().Warnings) != 2 {
		t.Errorf("Expected a warning per missing document, got %v", manager.Info().Warnings)
	}
}

func TestNewManager_MalformedDocument(t *testing.T) {
	dir := createTestContentDir(t)
	writeFile(t, dir, MapFile, `{"hub": {"bounds": `)

	_, err := NewManager(dir)
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("Expected ErrInvalidCatalog, got %v", err)
	}
}

func TestManager_ListMaps(t *testing.T) {
	manager, err := NewManager(createTestContentDir(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	maps, err := manager.ListMaps()
	if err != nil {
		t.Fatalf("ListMaps failed: %v", err)
	}

	var names []string
	for _, m := range maps {
		names = append(names, m.Name)
	}
	if strings.Join(names, ",") != "empty,hub,mines" {
		t.Errorf("Unexpected map order %v", names)
	}

	hub := maps[1]
	if !hub.Playable || hub.Locations != 2 || hub.Descriptor == nil || hub.ImageURL != "/content/maps/hub.png" {
		t.Errorf("Unexpected hub info %+v", hub)
	}
	if maps[0].Playable || maps[0].Descriptor != nil {
		t.Errorf("Expected empty map to be unplayable without descriptor, got %+v", maps[0])
	}
}

func TestManager_GetMap(t *testing.T) {
	manager, err := NewManager(createTestContentDir(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	info, err := manager.GetMap("mines")
	if err != nil {
		t.Fatalf("GetMap failed: %v", err)
	}
	if info.Locations != 1 {
		t.Errorf("Expected 1 location, got %d", info.Locations)
	}

	if _, err := manager.GetMap("atlantis"); !errors.Is(err, ErrMapNotFound) {
		t.Errorf("Expected ErrMapNotFound, got %v", err)
	}
}

func TestManager_Refresh(t *testing.T) {
	dir := createTestContentDir(t)
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	before := manager.Catalog()

	writeFile(t, dir, LocationFile, `{"hub": {"village": {"id": "village", "image": "village.png", "map": "hub", "location": [1, 1]}}}`)
	info, err := manager.Refresh()
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if info.Locations != 1 {
		t.Errorf("Expected 1 location after refresh, got %d", info.Locations)
	}
	if before.CountLocations("hub") != 2 {
		t.Error("Refresh must not mutate a catalog already handed out")
	}

	writeFile(t, dir, LocationFile, `not json`)
	if _, err := manager.Refresh(); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("Expected ErrInvalidCatalog, got %v", err)
	}
	if manager.Catalog().CountLocations("hub") != 1 {
		t.Error("Failed refresh must keep the previous catalog")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager, err := NewManager(createTestContentDir(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			manager.ListMaps()
			manager.Catalog().PlayableMaps()
		}()
		go func() {
			defer wg.Done()
			manager.Refresh()
		}()
	}
	wg.Wait()
}

func TestValidate(t *testing.T) {
	dir := createTestContentDir(t)
	os.Remove(filepath.Join(dir, "hub", "mountain.png"))

	c := engine.NewCatalog(
		map[string]map[string]engine.Location{
			"hub": {
				"village":  {ID: "village", Image: "village.png", Map: "hub", Location: engine.Point{500, 500}},
				"mountain": {ID: "mountain", Image: "mountain.png", Map: "hub", Location: engine.Point{100, 200}},
				"stray":    {ID: "other", Image: "village.png", Map: "park", Location: engine.Point{1500, 10}},
				"blank":    {ID: "blank", Map: "hub", Location: engine.Point{1, 1}},
			},
			"void": {
				"x": {ID: "x", Image: "x.png", Map: "void"},
			},
		},
		map[string]engine.MapDescriptor{
			"hub":  {Bounds: engine.Bounds{End: engine.Point{1000, 1000}}},
			"flat": {},
		},
	)

	warnings := Validate(c, dir)
	joined := strings.Join(warnings, "\n")

	expected := []string{
		"location hub/mountain: missing image hub/mountain.png",
		`location hub/stray: id field is "other"`,
		`location hub/stray: map field is "park"`,
		"location hub/stray: point [1500, 10] outside map bounds",
		"location hub/blank: no image",
		"map void: 1 locations but no descriptor",
		"map flat: descriptor without locations",
		"map flat: empty bounds",
	}
	for _, want := range expected {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected warning containing %q in:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "hub/village") {
		t.Errorf("Valid location reported:\n%s", joined)
	}

	if w := Validate(c, ""); strings.Contains(strings.Join(w, "\n"), "missing image") {
		t.Error("Validate without a directory must not check files")
	}
}

func TestWriteLocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), LocationFile)
	locs := Locations{
		"hub": {"village": {ID: "village", Image: "village.png", Map: "hub", Location: engine.Point{12, 34}}},
	}

	if err := WriteLocations(path, locs); err != nil {
		t.Fatalf("WriteLocations failed: %v", err)
	}
	got, err := ReadLocations(path)
	if err != nil {
		t.Fatalf("ReadLocations failed: %v", err)
	}
	if got["hub"]["village"] != locs["hub"]["village"] {
		t.Errorf("Expected %+v, got %+v", locs["hub"]["village"], got["hub"]["village"])
	}

	if _, err := ReadLocations(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestReadDocuments_Null(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, LocationFile, "null")
	writeFile(t, dir, MapFile, "null")

	locs, err := ReadLocations(filepath.Join(dir, LocationFile))
	if err != nil {
		t.Fatalf("ReadLocations failed: %v", err)
	}
	if locs == nil {
		t.Fatal("Expected an empty, writable location document")
	}
	locs["hub"] = map[string]engine.Location{}

	maps, err := ReadMaps(filepath.Join(dir, MapFile))
	if err != nil {
		t.Fatalf("ReadMaps failed: %v", err)
	}
	if maps == nil {
		t.Fatal("Expected an empty, writable map document")
	}
}
