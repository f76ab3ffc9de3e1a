package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/wricardo/skyguessr/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMapNotFound     = errors.New("map not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, config *engine.SessionConfig) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Round Operations
	GetRoundState(ctx context.Context, sessionID string) (*engine.RoundState, error)
	PlaceGuess(ctx context.Context, sessionID string, point engine.Point) (*engine.RoundState, error)
	SubmitGuess(ctx context.Context, sessionID string, point *engine.Point) (*GuessResult, error)
	NextRound(ctx context.Context, sessionID string) (*engine.RoundState, error)
	GetRoundHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Catalog
	ListMaps(ctx context.Context) ([]*MapInfo, error)
	GetMap(ctx context.Context, name string) (*MapInfo, error)
	RefreshCatalog(ctx context.Context) (*CatalogInfo, error)

	// Preferences
	GetPreferences(ctx context.Context) (*engine.SessionConfig, error)
	SavePreferences(ctx context.Context, config *engine.SessionConfig) (*engine.SessionConfig, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config engine.SessionConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// CatalogManager serves the location and map catalogs
type CatalogManager interface {
	Catalog() *engine.Catalog
	ListMaps() ([]*MapInfo, error)
	GetMap(name string) (*MapInfo, error)
	Refresh() (*CatalogInfo, error)
}

// PreferenceStore keeps the last configuration chosen on the home screen.
type PreferenceStore interface {
	Load() engine.SessionConfig
	Save(config engine.SessionConfig) error
}

// Session represents an active play session
type Session struct {
	ID        string
	Round     *engine.RoundEngine
	Config    engine.SessionConfig
	CreatedAt time.Time

	// unix nanos; written by HTTP handlers, read by timer-driven saves
	lastAccessed atomic.Int64
}

// Touch records t as the last access time. Safe for concurrent use.
func (s *Session) Touch(t time.Time) {
	s.lastAccessed.Store(t.UnixNano())
}

// LastAccessedAt returns the time recorded by the latest Touch
func (s *Session) LastAccessedAt() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}
