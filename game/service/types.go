package service

import (
	"time"

	"github.com/wricardo/skyguessr/game/engine"
)

// SessionInfo provides information about a play session
type SessionInfo struct {
	ID             string               `json:"id"`
	Config         engine.SessionConfig `json:"config"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	Round          *engine.RoundState   `json:"round"`
	RoundsPlayed   int                  `json:"rounds_played"`
	TotalScore     int                  `json:"total_score"`
}

// GuessResult contains the outcome of a submitted guess
type GuessResult struct {
	Round   *engine.RoundState `json:"round"`
	Message string             `json:"message"`
	// ScoreBar is the score as a percentage of the maximum, for the header bar.
	ScoreBar float64 `json:"score_bar"`
}

// HistoryOptions configures round history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated round history
type HistoryResponse struct {
	Rounds      []engine.RoundSummary `json:"rounds"`
	TotalRounds int                   `json:"total_rounds"`
	TotalScore  int                   `json:"total_score"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	TotalPages  int                   `json:"total_pages"`
	HasNext     bool                  `json:"has_next"`
	HasPrevious bool                  `json:"has_previous"`
}

// MapInfo describes one map of the catalog
type MapInfo struct {
	Name       string                `json:"name"`
	Locations  int                   `json:"locations"`
	Playable   bool                  `json:"playable"`
	Descriptor *engine.MapDescriptor `json:"descriptor,omitempty"`
	ImageURL   string                `json:"image_url"`
}

// CatalogInfo summarises a catalog load
type CatalogInfo struct {
	Maps      int       `json:"maps"`
	Locations int       `json:"locations"`
	Playable  []string  `json:"playable"`
	Warnings  []string  `json:"warnings,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}
