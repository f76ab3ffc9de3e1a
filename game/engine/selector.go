package engine

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// ErrNoLocations is returned when a selection has no content to choose from.
var ErrNoLocations = errors.New("no locations available")

// Random is the uniform source the selector draws from. *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRandom returns a time-seeded source
func NewRandom() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// NewSeededRandom returns a deterministic source for tests and replays.
func NewSeededRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Selector picks locations. In "any" mode it keeps a short FIFO of the maps it
// chose so consecutive rounds drift across maps.
type Selector struct {
	catalog *Catalog
	rng     Random
	history []string
	mu      sync.Mutex
}

// NewSelector creates a selector over catalog. A nil rng uses NewRandom.
func NewSelector(catalog *Catalog, rng Random) *Selector {
	if rng == nil {
		rng = NewRandom()
	}
	return &Selector{
		catalog: catalog,
		rng:     rng,
	}
}

// Select returns a random location from mapName, or from any playable map when
// mapName is AnyMap. It returns ErrNoLocations when nothing can be chosen.
func (s *Selector) Select(mapName string) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mapName == AnyMap {
		return s.selectAny()
	}
	return s.selectFrom(mapName)
}

// History returns the recently chosen maps, oldest first.
func (s *Selector) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Selector) selectFrom(mapName string) (Location, error) {
	ids := s.catalog.LocationIDs(mapName)
	if len(ids) == 0 {
		logger().Warn().Str("map", mapName).Msg("no locations found for map")
		return Location{}, ErrNoLocations
	}

	id := ids[s.rng.IntN(len(ids))]
	loc, _ := s.catalog.Location(mapName, id)
	return loc, nil
}

func (s *Selector) selectAny() (Location, error) {
	available := s.catalog.PlayableMaps()
	if len(available) == 0 {
		logger().Warn().Msg("no maps with locations found")
		return Location{}, ErrNoLocations
	}

	s.rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})

	candidates := make([]string, 0, len(available))
	for _, m := range available {
		if !slices.Contains(s.history, m) {
			candidates = append(candidates, m)
		}
	}
	// Every playable map was seen recently; repeating beats stalling.
	if len(candidates) == 0 {
		candidates = available
	}

	chosen := candidates[s.rng.IntN(len(candidates))]
	loc, err := s.selectFrom(chosen)
	if err != nil {
		return Location{}, err
	}

	s.remember(chosen)
	return loc, nil
}

func (s *Selector) remember(mapName string) {
	if slices.Contains(s.history, mapName) {
		return
	}
	s.history = append(s.history, mapName)
	if len(s.history) > MapHistorySize {
		s.history = s.history[1:]
	}
}
