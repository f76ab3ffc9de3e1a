package engine

import (
	"fmt"
	"math"
)

// Distance is the Euclidean distance between two points in map space.
func Distance(a, b Point) float64 {
	dy := a[0] - b[0]
	dx := a[1] - b[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// FormatElapsed renders seconds as m:ss for the round timer
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ImageURL is where the renderer finds a location's panorama.
func ImageURL(loc Location) string {
	return fmt.Sprintf("/content/%s/%s", loc.Map, loc.Image)
}

// MapImageURL is where the renderer finds the map overlay for a location.
func MapImageURL(loc Location) string {
	if loc.Underground {
		return fmt.Sprintf("/content/maps/%s_underground.png", loc.Map)
	}
	return fmt.Sprintf("/content/maps/%s.png", loc.Map)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func pointPtr(p Point) *Point {
	return &p
}
