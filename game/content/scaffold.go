package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/skyguessr/game/catalog"
	"github.com/wricardo/skyguessr/game/engine"
)

// ImageExtensions are the panorama and map formats the tooling recognises.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

func logger() *zerolog.Logger {
	l := log.With().Str("module", "content").Logger()
	return &l
}

// ScaffoldResult lists what Scaffold did for one map
type ScaffoldResult struct {
	Map     string   `json:"map"`
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// Scaffold adds a skeleton location record to location_data.json for every
// image in contentDir/mapName that has none yet. Skeletons point at [0, 0]
// with no name and difficulty 0; existing records are never touched.
func Scaffold(contentDir, mapName string) (*ScaffoldResult, error) {
	mapName = strings.TrimSpace(mapName)
	if mapName == "" || mapName == engine.AnyMap || mapName == "maps" {
		return nil, fmt.Errorf("invalid map name %q", mapName)
	}

	images, err := listImages(filepath.Join(contentDir, mapName))
	if err != nil {
		return nil, err
	}

	path := filepath.Join(contentDir, catalog.LocationFile)
	locs, err := catalog.ReadLocations(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if locs[mapName] == nil {
		locs[mapName] = map[string]engine.Location{}
	}

	result := &ScaffoldResult{Map: mapName, Added: []string{}, Skipped: []string{}}
	for _, image := range images {
		id := strings.TrimSuffix(image, filepath.Ext(image))
		if _, exists := locs[mapName][id]; exists {
			logger().Debug().Str("map", mapName).Str("id", id).Msg("location already exists")
			result.Skipped = append(result.Skipped, id)
			continue
		}

		locs[mapName][id] = engine.Location{
			ID:       id,
			Image:    image,
			Map:      mapName,
			Location: engine.Point{0, 0},
		}
		logger().Info().Str("map", mapName).Str("id", id).Msg("added location")
		result.Added = append(result.Added, id)
	}

	if len(result.Added) == 0 {
		return result, nil
	}
	if err := catalog.WriteLocations(path, locs); err != nil {
		return nil, err
	}
	return result, nil
}

// listImages returns the sorted image file names directly inside dir
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}
		images = append(images, entry.Name())
	}
	slices.Sort(images)
	return images, nil
}

func isImage(name string) bool {
	return slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(name)))
}
