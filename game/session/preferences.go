package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wricardo/skyguessr/game/engine"
)

// PreferencesStore keeps the configuration last chosen on the home screen in
// a single JSON file.
type PreferencesStore struct {
	path string
	mu   sync.Mutex
}

// NewPreferencesStore creates a store backed by path. The file is created on
// the first Save.
func NewPreferencesStore(path string) *PreferencesStore {
	return &PreferencesStore{path: path}
}

// Load returns the stored configuration. A missing file yields the defaults;
// a malformed one yields the defaults and a warning.
func (p *PreferencesStore) Load() engine.SessionConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger().Warn().Err(err).Str("path", p.path).Msg("failed to read preferences, using defaults")
		}
		return engine.DefaultSessionConfig()
	}

	cfg, err := engine.DecodeSessionConfig(data)
	if err != nil {
		logger().Warn().Err(err).Str("path", p.path).Msg("malformed preferences, using defaults")
	}
	return cfg
}

// Save writes cfg to the preferences file
func (p *PreferencesStore) Save(cfg engine.SessionConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(cfg.Normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
