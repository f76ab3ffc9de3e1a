package session

import (
	"sync"
	"time"

	"github.com/wricardo/skyguessr/game/engine"
)

type staticCatalog struct {
	catalog *engine.Catalog
}

func (s staticCatalog) Catalog() *engine.Catalog { return s.catalog }

// manualScheduler only ticks when a test calls fire
type manualScheduler struct {
	mu  sync.Mutex
	fns []func()
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
	return func() {}
}

// fire ticks the most recently started timer n times
func (s *manualScheduler) fire(n int) {
	s.mu.Lock()
	fn := s.fns[len(s.fns)-1]
	s.mu.Unlock()
	for i := 0; i < n; i++ {
		fn()
	}
}

func createTestCatalog() staticCatalog {
	return staticCatalog{catalog: engine.NewCatalog(
		map[string]map[string]engine.Location{
			"hub": {
				"village": {ID: "village", Image: "village.png", Map: "hub", Location: engine.Point{500, 500}},
			},
			"empty": {},
		},
		map[string]engine.MapDescriptor{
			"hub": {Bounds: engine.Bounds{End: engine.Point{1000, 1000}}},
		},
	)}
}

func newTestManager(persistence SessionPersistence) (*Manager, *manualScheduler) {
	sched := &manualScheduler{}
	var m *Manager
	if persistence != nil {
		m = NewManagerWithPersistence(createTestCatalog(), persistence)
	} else {
		m = NewManager(createTestCatalog())
	}
	m.SetEngineOptions(engine.WithScheduler(sched))
	return m, sched
}

func createTestConfig() engine.SessionConfig {
	return engine.SessionConfig{Map: "hub", TimeLimit: 10}
}
