package engine

import (
	"sync"
	"time"
)

// manualScheduler records the scheduled callback so tests can fire ticks.
type manualScheduler struct {
	mu      sync.Mutex
	fn      func()
	started int
	stopped int
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.started++
	done := false
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !done {
			done = true
			s.stopped++
		}
	}
}

func (s *manualScheduler) fire(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		fn := s.fn
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}

func (s *manualScheduler) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started - s.stopped
}

func square(size float64) MapDescriptor {
	return MapDescriptor{
		Bounds: Bounds{
			Start:  Point{0, 0},
			End:    Point{size, size},
			Center: Point{size / 2, size / 2},
		},
		Zoom: Zoom{Min: -2, Max: 2, Default: 0},
	}
}

func createTestCatalog() *Catalog {
	return NewCatalog(
		map[string]map[string]Location{
			"hub": {
				"village":  {ID: "village", Image: "village.png", Map: "hub", Location: Point{500, 500}},
				"mountain": {ID: "mountain", Image: "mountain.png", Map: "hub", Location: Point{100, 200}},
			},
			"park": {
				"birch": {ID: "birch", Image: "birch.png", Map: "park", Location: Point{300, 300}},
			},
			"mines": {
				"lapis": {ID: "lapis", Image: "lapis.png", Map: "mines", Location: Point{50, 60}, Underground: true},
			},
			"end": {
				"dragon": {ID: "dragon", Image: "dragon.png", Map: "end", Location: Point{10, 10}},
			},
			"empty": {},
		},
		map[string]MapDescriptor{
			"hub":   square(1000),
			"park":  square(600),
			"mines": square(200),
			"end":   square(40),
		},
	)
}

func singleMapCatalog() *Catalog {
	return NewCatalog(
		map[string]map[string]Location{
			"hub": {
				"village": {ID: "village", Image: "village.png", Map: "hub", Location: Point{500, 500}},
			},
		},
		map[string]MapDescriptor{"hub": square(1000)},
	)
}
