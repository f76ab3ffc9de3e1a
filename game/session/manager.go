package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/skyguessr/game/engine"
	"github.com/wricardo/skyguessr/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

func logger() *zerolog.Logger {
	l := log.With().Str("module", "session").Logger()
	return &l
}

// CatalogSource supplies the catalog new sessions play against
type CatalogSource interface {
	Catalog() *engine.Catalog
}

// Notifier receives every round event of every session
type Notifier func(sessionID string, ev engine.Event)

// Manager handles play session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	catalogs    CatalogSource
	persistence SessionPersistence
	mu          sync.RWMutex

	// hooks are read from engine listeners, which may run while mu is held
	notifier   Notifier
	engineOpts []engine.Option
	hookMu     sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(catalogs CatalogSource) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		catalogs: catalogs,
	}
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(catalogs CatalogSource, persistence SessionPersistence) *Manager {
	m := NewManager(catalogs)
	m.persistence = persistence
	return m
}

// SetNotifier registers fn to receive round events. Sessions created before
// the call are notified too.
func (m *Manager) SetNotifier(fn Notifier) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.notifier = fn
}

// SetEngineOptions adds options applied to every engine created afterwards
func (m *Manager) SetEngineOptions(opts ...engine.Option) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.engineOpts = opts
}

// Create creates a new session with the given ID and configuration
func (m *Manager) Create(id string, config engine.SessionConfig) (*service.Session, error) {
	if id != "" && !validSessionID(id) {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.uniqueSessionIDLocked()
	} else if _, exists := m.sessions[strings.ToLower(id)]; exists {
		// Check if session already exists (case-insensitive)
		return nil, ErrSessionAlreadyExists
	}

	round, err := m.newEngine(id, config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	session := &service.Session{
		ID:        id,
		Round:     round,
		Config:    round.Config(),
		CreatedAt: now,
	}
	session.Touch(now)
	m.sessions[strings.ToLower(id)] = session

	// Auto-save if persistence is enabled
	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			logger().Warn().Err(err).Str("session", id).Msg("failed to persist session")
		}
	}

	logger().Debug().Str("session", id).Str("map", session.Config.Map).Int("time_limit", session.Config.TimeLimit).Msg("session created")
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	if !validSessionID(id) {
		return nil, ErrSessionNotFound
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Try loading from persistence if not in memory
	if m.persistence != nil && m.persistence.Exists(id) {
		m.mu.Lock()
		defer m.mu.Unlock()

		// Another request may have restored it meanwhile
		if session, exists := m.sessions[strings.ToLower(id)]; exists {
			return session, nil
		}

		session, err := m.restore(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}
		m.sessions[strings.ToLower(id)] = session
		return session, nil
	}

	return nil, ErrSessionNotFound
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and storage and stops its timer
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	session, inMemory := m.sessions[lowerID]
	if inMemory {
		session.Round.Close()
		delete(m.sessions, lowerID)
	}

	// Delete from persistence if it exists
	if m.persistence != nil && validSessionID(id) && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	session.Touch(time.Now())
	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.persistence.Save(session)
}

// CleanupExpiredSessions closes and unloads sessions that haven't been
// accessed in the given duration. Persisted records are kept, so a cleaned
// session can still be reopened.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.LastAccessedAt().Before(cutoff) {
			session.Round.Close()
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll stops every round timer, e.g. on shutdown
func (m *Manager) CloseAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, session := range m.sessions {
		session.Round.Close()
	}
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		if _, exists := m.sessions[strings.ToLower(id)]; exists {
			continue
		}

		session, err := m.restore(id)
		if err != nil {
			logger().Warn().Err(err).Str("session", id).Msg("failed to load persisted session")
			continue
		}

		m.sessions[strings.ToLower(id)] = session
		loadedCount++
	}

	if loadedCount > 0 {
		logger().Info().Int("count", loadedCount).Msg("loaded persisted sessions")
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sessions := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()

	errorCount := 0
	for _, session := range sessions {
		if err := m.persistence.Save(session); err != nil {
			logger().Warn().Err(err).Str("session", session.ID).Msg("failed to save session")
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// restore rebuilds a session from its stored record. Must be called with mu held.
func (m *Manager) restore(id string) (*service.Session, error) {
	data, err := m.persistence.Load(id)
	if err != nil {
		return nil, err
	}

	round, err := m.newEngine(data.ID, data.Config, data.History)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	session := &service.Session{
		ID:        data.ID,
		Round:     round,
		Config:    round.Config(),
		CreatedAt: data.CreatedAt,
	}
	session.Touch(data.LastAccessedAt)
	return session, nil
}

func (m *Manager) newEngine(id string, config engine.SessionConfig, history []engine.RoundSummary) (*engine.RoundEngine, error) {
	m.hookMu.RLock()
	opts := append([]engine.Option{}, m.engineOpts...)
	m.hookMu.RUnlock()

	opts = append(opts, engine.WithListener(m.listener(id)))
	if len(history) > 0 {
		opts = append(opts, engine.WithHistory(history))
	}
	return engine.NewEngine(m.catalogs.Catalog(), config, opts...)
}

// listener forwards engine events to the notifier and persists every
// finished round, including rounds that end on the timer.
func (m *Manager) listener(id string) func(engine.Event) {
	return func(ev engine.Event) {
		m.hookMu.RLock()
		notify := m.notifier
		m.hookMu.RUnlock()

		if notify != nil {
			notify(id, ev)
		}

		if ev.Type == engine.EventGuessSubmitted || ev.Type == engine.EventRoundExpired {
			if err := m.Save(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
				logger().Warn().Err(err).Str("session", id).Msg("failed to persist finished round")
			}
		}
	}
}

// uniqueSessionIDLocked draws IDs until one is free in memory and storage
func (m *Manager) uniqueSessionIDLocked() string {
	for {
		id := m.generateSessionID()
		if _, exists := m.sessions[id]; exists {
			continue
		}
		if m.persistence != nil && m.persistence.Exists(id) {
			continue
		}
		return id
	}
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func validSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
