package content

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "golang.org/x/image/webp"

	"github.com/wricardo/skyguessr/game/catalog"
	"github.com/wricardo/skyguessr/game/engine"
)

// Report captures the outcome of validating a content directory. Errors stop
// the game from loading the catalog; warnings mark content that loads but will
// play badly.
type Report struct {
	Maps      int      `json:"maps"`
	Locations int      `json:"locations"`
	Playable  []string `json:"playable"`
	Skeletons int      `json:"skeletons"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
}

// Valid reports whether the catalog loads at all
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Validate loads the catalogs in contentDir and checks them against the
// images on disk: everything catalog.Validate reports, plus map images whose
// pixel size disagrees with the descriptor bounds, unreadable panoramas, and
// scaffolded records that were never filled in.
func Validate(contentDir string) *Report {
	report := &Report{Errors: []string{}, Warnings: []string{}}

	c, warnings, err := catalog.Load(contentDir)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.Warnings = append(report.Warnings, warnings...)
	report.Playable = c.PlayableMaps()

	for _, mapName := range c.MapNames() {
		report.Maps++

		if desc, ok := c.Map(mapName); ok {
			if w := checkMapImage(contentDir, mapName, desc); w != "" {
				report.Warnings = append(report.Warnings, w)
			}
		}

		for _, id := range c.LocationIDs(mapName) {
			report.Locations++
			loc, _ := c.Location(mapName, id)

			if isSkeleton(loc) {
				report.Skeletons++
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("location %s/%s: still a skeleton (no name, point [0, 0])", mapName, id))
			}
			if loc.Image != "" {
				if err := checkDecodable(filepath.Join(contentDir, mapName, loc.Image)); err != nil {
					report.Warnings = append(report.Warnings, fmt.Sprintf("location %s/%s: %v", mapName, id, err))
				}
			}
		}
	}

	sort.Strings(report.Warnings)
	return report
}

func isSkeleton(loc engine.Location) bool {
	return loc.Name == "" && loc.Location == engine.Point{0, 0}
}

// checkMapImage compares maps/<name>.png against the descriptor's end bound,
// which is the image size in the renderer's [y, x] space.
func checkMapImage(contentDir, mapName string, desc engine.MapDescriptor) string {
	path := filepath.Join(contentDir, "maps", mapName+".png")
	cfg, err := decodeConfig(path)
	if err != nil {
		// Missing files are already reported by catalog.Validate.
		return ""
	}

	end := desc.Bounds.End
	if !sameSize(end.Y(), cfg.Height) || !sameSize(end.X(), cfg.Width) {
		return fmt.Sprintf("map %s: image is %dx%d but bounds end at [%.0f, %.0f]",
			mapName, cfg.Width, cfg.Height, end.Y(), end.X())
	}
	return ""
}

func sameSize(bound float64, pixels int) bool {
	return math.Abs(bound-float64(pixels)) < 1
}

// checkDecodable reports panoramas that exist but cannot be read. Missing
// files are left to catalog.Validate.
func checkDecodable(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if _, err := decodeConfig(path); err != nil {
		return fmt.Errorf("unreadable image %s", filepath.Base(path))
	}
	return nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}
