package session

import (
	"time"

	"github.com/wricardo/skyguessr/game/engine"
	"github.com/wricardo/skyguessr/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves the stored record for a session ID
	Load(id string) (*PersistedSessionData, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// Only finished rounds are stored; a reloaded session starts a fresh round.
type PersistedSessionData struct {
	ID             string                `json:"id"`
	Config         engine.SessionConfig  `json:"config"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	History        []engine.RoundSummary `json:"history"`
	TotalScore     int                   `json:"total_score"`
}
