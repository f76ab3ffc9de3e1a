package engine

import (
	"fmt"
	"time"
)

const (
	// AnyMap selects a random map for every round.
	AnyMap = "any"

	// Scoring constants
	MaxScore      = 5000
	PerfectRadius = 25.0
	FalloffScale  = 0.5
	ScoreExponent = 1.5

	// MapHistorySize is how many recently chosen maps "any" mode avoids.
	MapHistorySize = 3

	DefaultMaxDifficulty = "hard"
	TickInterval         = time.Second
)

// Point is a position in a map's local coordinate space, stored as [y, x]
// to match the catalog's `location` field.
type Point [2]float64

// Y returns the row coordinate
func (p Point) Y() float64 { return p[0] }

// X returns the column coordinate
func (p Point) X() float64 { return p[1] }

func (p Point) String() string {
	return fmt.Sprintf("[%.0f, %.0f]", p[0], p[1])
}

// Location is one authored panorama with its true position on a map.
type Location struct {
	ID          string `json:"id"`
	Image       string `json:"image"`
	Name        string `json:"name"`
	Map         string `json:"map"`
	Location    Point  `json:"location"`
	Difficulty  int    `json:"difficulty"`
	Underground bool   `json:"underground"`
}

// Bounds is the rendered extent of a map image.
type Bounds struct {
	Start  Point `json:"start"`
	End    Point `json:"end"`
	Center Point `json:"center"`
}

// Zoom holds the map viewer zoom limits.
type Zoom struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// MapDescriptor describes how a map is rendered and how far a guess can miss.
type MapDescriptor struct {
	Bounds Bounds `json:"bounds"`
	Zoom   Zoom   `json:"zoom"`
}

// Modifiers gate presentation-only behaviour.
type Modifiers struct {
	NoPan  bool `json:"noPan"`
	NoZoom bool `json:"noZoom"`
}

// SessionConfig is fixed for the lifetime of a play session.
type SessionConfig struct {
	Map           string    `json:"map"`
	MaxDifficulty string    `json:"max_difficulty"`
	Modifiers     Modifiers `json:"modifiers"`
	TimeLimit     int       `json:"timeLimit,omitempty"` // seconds, 0 means no limit
	DevMode       bool      `json:"devMode,omitempty"`
}

// Phase is the round controller state.
type Phase string

const (
	PhaseViewing Phase = "viewing"
	PhaseGuessed Phase = "guessed"
)

// Scene is what the renderer may show before the answer is revealed.
type Scene struct {
	LocationID  string `json:"location_id"`
	Map         string `json:"map"`
	Image       string `json:"image"`
	Underground bool   `json:"underground"`
	ImageURL    string `json:"image_url"`
	MapImageURL string `json:"map_image_url"`
}

// RoundState is a snapshot of the current round. Answer and Revealed are
// only populated once the round has been guessed or has expired.
type RoundState struct {
	ID             string    `json:"id"`
	Number         int       `json:"number"`
	Phase          Phase     `json:"phase"`
	Scene          Scene     `json:"scene"`
	Guess          *Point    `json:"guess"`
	Revealed       *Point    `json:"revealed"`
	Answer         *Location `json:"answer,omitempty"`
	Distance       *float64  `json:"distance,omitempty"`
	Score          *int      `json:"score"`
	HasGuessed     bool      `json:"has_guessed"`
	Expired        bool      `json:"expired"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	TimeLimit      int       `json:"time_limit,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	TotalScore     int       `json:"total_score"`
}

// ScoreResult is the output of the scoring engine.
type ScoreResult struct {
	Distance float64 `json:"distance"`
	Score    int     `json:"score"`
}

// RoundSummary is recorded once per finished round.
type RoundSummary struct {
	Round          int       `json:"round"`
	LocationID     string    `json:"location_id"`
	Map            string    `json:"map"`
	Guess          *Point    `json:"guess,omitempty"`
	Answer         Point     `json:"answer"`
	Distance       *float64  `json:"distance,omitempty"`
	Score          *int      `json:"score,omitempty"`
	Expired        bool      `json:"expired"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	FinishedAt     time.Time `json:"finished_at"`
}

// EventType names a controller transition.
type EventType string

const (
	EventRoundStarted   EventType = "round_started"
	EventGuessPlaced    EventType = "guess_placed"
	EventGuessSubmitted EventType = "guess_submitted"
	EventRoundExpired   EventType = "round_expired"
	EventTick           EventType = "tick"
)

// Event is delivered to listeners after every state change.
type Event struct {
	Type  EventType  `json:"type"`
	Round RoundState `json:"round"`
}
