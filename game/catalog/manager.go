package catalog

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/skyguessr/game/engine"
	"github.com/wricardo/skyguessr/game/service"
)

var (
	ErrMapNotFound    = service.ErrMapNotFound
	ErrInvalidCatalog = errors.New("invalid catalog")
)

func logger() *zerolog.Logger {
	l := log.With().Str("module", "catalog").Logger()
	return &l
}

// Manager loads the content catalogs and caches them until Refresh
type Manager struct {
	contentDir string
	catalog    *engine.Catalog
	warnings   []string
	loadedAt   time.Time
	mu         sync.RWMutex
}

// NewManager creates a catalog manager over contentDir and performs the first load
func NewManager(contentDir string) (*Manager, error) {
	if _, err := os.Stat(contentDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("content directory does not exist: %s", contentDir)
	}

	m := &Manager{contentDir: contentDir}
	if _, err := m.Refresh(); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return m, nil
}

// ContentDir returns the directory the catalog is read from
func (m *Manager) ContentDir() string {
	return m.contentDir
}

// Catalog returns the current catalog. The returned value is never mutated;
// a refresh swaps in a new one.
func (m *Manager) Catalog() *engine.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

// ListMaps returns information about every known map, sorted by name
func (m *Manager) ListMaps() ([]*service.MapInfo, error) {
	c := m.Catalog()

	names := c.MapNames()
	maps := make([]*service.MapInfo, 0, len(names))
	for _, name := range names {
		maps = append(maps, mapInfo(c, name))
	}
	return maps, nil
}

// GetMap returns information about a single map
func (m *Manager) GetMap(name string) (*service.MapInfo, error) {
	c := m.Catalog()

	_, hasDesc := c.Map(name)
	if !hasDesc && c.CountLocations(name) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	return mapInfo(c, name), nil
}

// Refresh reloads both documents from disk. On failure the previous catalog
// stays in place.
func (m *Manager) Refresh() (*service.CatalogInfo, error) {
	c, warnings, err := Load(m.contentDir)
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		logger().Warn().Str("dir", m.contentDir).Msg(w)
	}

	m.mu.Lock()
	m.catalog = c
	m.warnings = warnings
	m.loadedAt = time.Now()
	m.mu.Unlock()

	info := m.Info()
	logger().Info().
		Int("maps", info.Maps).
		Int("locations", info.Locations).
		Strs("playable", info.Playable).
		Msg("catalog loaded")
	return info, nil
}

// Info summarises the current catalog
func (m *Manager) Info() *service.CatalogInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, name := range m.catalog.MapNames() {
		total += m.catalog.CountLocations(name)
	}

	return &service.CatalogInfo{
		Maps:      len(m.catalog.MapNames()),
		Locations: total,
		Playable:  m.catalog.PlayableMaps(),
		Warnings:  append([]string(nil), m.warnings...),
		LoadedAt:  m.loadedAt,
	}
}

func mapInfo(c *engine.Catalog, name string) *service.MapInfo {
	info := &service.MapInfo{
		Name:      name,
		Locations: c.CountLocations(name),
		Playable:  c.CountLocations(name) > 0,
		ImageURL:  engine.MapImageURL(engine.Location{Map: name}),
	}
	if desc, ok := c.Map(name); ok {
		info.Descriptor = &desc
	}
	return info
}
