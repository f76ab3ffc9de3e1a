package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyGuessed  = errors.New("round already guessed")
	ErrNoGuess         = errors.New("no guess point placed")
	ErrRoundInProgress = errors.New("round still in progress")
	ErrClosed          = errors.New("round engine closed")
)

// Engine provides the round lifecycle operations
type Engine interface {
	// Round state
	State() RoundState
	Config() SessionConfig

	// Transitions
	PlaceGuess(p Point) (RoundState, error)
	SubmitGuess(p *Point) (RoundState, error)
	Expire() RoundState
	Advance() (RoundState, error)

	// History
	History() []RoundSummary
	TotalScore() int

	Close()
}

// Option customises a RoundEngine
type Option func(*RoundEngine)

// WithScheduler replaces the wall-clock ticker
func WithScheduler(s Scheduler) Option {
	return func(e *RoundEngine) { e.scheduler = s }
}

// WithRandom seeds selection with a specific source
func WithRandom(r Random) Option {
	return func(e *RoundEngine) { e.rng = r }
}

// WithListener registers fn to receive every event. fn is called without the
// engine lock held and may call back into the engine.
func WithListener(fn func(Event)) Option {
	return func(e *RoundEngine) { e.listener = fn }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *RoundEngine) { e.now = now }
}

// WithHistory restores previously finished rounds, e.g. after a reload.
func WithHistory(history []RoundSummary) Option {
	return func(e *RoundEngine) { e.history = slices.Clone(history) }
}

// RoundEngine implements Engine. It owns exactly one round at a time and at
// most one live timer.
type RoundEngine struct {
	catalog   *Catalog
	config    SessionConfig
	selector  *Selector
	rng       Random
	scheduler Scheduler
	listener  func(Event)
	now       func() time.Time

	// current round
	roundID    string
	number     int
	location   Location
	guess      *Point
	revealed   *Point
	distance   *float64
	score      *int
	hasGuessed bool
	expired    bool
	elapsed    int
	startedAt  time.Time

	history []RoundSummary

	stopTimer func()
	timerGen  uint64
	closed    bool

	mu sync.Mutex
}

// NewEngine validates the configuration, selects the first location and starts
// the round timer.
func NewEngine(catalog *Catalog, config SessionConfig, opts ...Option) (*RoundEngine, error) {
	config = config.Normalize()
	if err := ValidateSessionConfig(config, catalog); err != nil {
		return nil, err
	}

	e := &RoundEngine{
		catalog:   catalog,
		config:    config,
		scheduler: TickerScheduler{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.selector = NewSelector(catalog, e.rng)
	e.number = len(e.history)

	loc, err := e.selector.Select(config.Map)
	if err != nil {
		return nil, fmt.Errorf("select first location: %w", err)
	}

	e.mu.Lock()
	ev := e.startRoundLocked(loc)
	e.mu.Unlock()

	e.emit(ev)
	return e, nil
}

// State returns a snapshot of the current round
func (e *RoundEngine) State() RoundState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Config returns the session configuration
func (e *RoundEngine) Config() SessionConfig {
	return e.config
}

// Selector exposes the engine's selector, mainly for its map history.
func (e *RoundEngine) Selector() *Selector {
	return e.selector
}

// PlaceGuess records a pending guess point. Once the round is guessed the
// input is frozen and ErrAlreadyGuessed is returned with the state untouched.
func (e *RoundEngine) PlaceGuess(p Point) (RoundState, error) {
	e.mu.Lock()
	if e.closed {
		defer e.mu.Unlock()
		return e.snapshotLocked(), ErrClosed
	}
	if e.hasGuessed {
		defer e.mu.Unlock()
		return e.snapshotLocked(), ErrAlreadyGuessed
	}
	e.guess = pointPtr(p)
	ev := e.eventLocked(EventGuessPlaced)
	e.mu.Unlock()

	e.emit(ev)
	return ev.Round, nil
}

// SubmitGuess scores p, or the pending guess when p is nil, and reveals the
// answer. A second submit in the same round changes nothing.
func (e *RoundEngine) SubmitGuess(p *Point) (RoundState, error) {
	e.mu.Lock()
	if e.closed {
		defer e.mu.Unlock()
		return e.snapshotLocked(), ErrClosed
	}
	ev, err := e.submitLocked(p)
	if err != nil {
		defer e.mu.Unlock()
		return e.snapshotLocked(), err
	}
	e.mu.Unlock()

	e.emit(ev)
	return ev.Round, nil
}

// Expire applies the time-limit transition immediately. A pending guess is
// submitted as is; otherwise the answer is revealed without a score.
func (e *RoundEngine) Expire() RoundState {
	e.mu.Lock()
	events := e.expireLocked()
	st := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(events...)
	return st
}

// Advance starts the next round from the session's configured map. It is only
// valid once the current round has been guessed.
func (e *RoundEngine) Advance() (RoundState, error) {
	e.mu.Lock()
	if e.closed {
		defer e.mu.Unlock()
		return e.snapshotLocked(), ErrClosed
	}
	if !e.hasGuessed {
		defer e.mu.Unlock()
		return e.snapshotLocked(), ErrRoundInProgress
	}

	loc, err := e.selector.Select(e.config.Map)
	if err != nil {
		defer e.mu.Unlock()
		return e.snapshotLocked(), fmt.Errorf("select next location: %w", err)
	}

	ev := e.startRoundLocked(loc)
	e.mu.Unlock()

	e.emit(ev)
	return ev.Round, nil
}

// History returns the finished rounds, oldest first
func (e *RoundEngine) History() []RoundSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

// TotalScore sums the scores of every finished round
func (e *RoundEngine) TotalScore() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalLocked()
}

// Close cancels the timer. Further transitions return ErrClosed.
func (e *RoundEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.closed = true
}

func (e *RoundEngine) startRoundLocked(loc Location) Event {
	e.stopTimerLocked()

	e.roundID = uuid.NewString()
	e.number++
	e.location = loc
	e.guess = nil
	e.revealed = nil
	e.distance = nil
	e.score = nil
	e.hasGuessed = false
	e.expired = false
	e.elapsed = 0
	e.startedAt = e.now()

	e.startTimerLocked()
	return e.eventLocked(EventRoundStarted)
}

func (e *RoundEngine) submitLocked(p *Point) (Event, error) {
	if e.hasGuessed {
		return Event{}, ErrAlreadyGuessed
	}
	if p == nil {
		p = e.guess
	}
	if p == nil {
		return Event{}, ErrNoGuess
	}

	guess := *p
	truth := e.location.Location
	result := Score(&guess, &truth, e.location.Map, e.catalog)

	e.stopTimerLocked()
	e.guess = pointPtr(guess)
	e.revealed = pointPtr(truth)
	e.distance = floatPtr(result.Distance)
	e.score = intPtr(result.Score)
	e.hasGuessed = true
	e.recordLocked()

	if e.config.DevMode {
		logger().Info().
			Str("guess", guess.String()).
			Str("correct", truth.String()).
			Float64("distance", result.Distance).
			Int("score", result.Score).
			Msg("dev: guess submitted")
	}

	return e.eventLocked(EventGuessSubmitted), nil
}

func (e *RoundEngine) expireLocked() []Event {
	if e.closed || e.hasGuessed {
		return nil
	}
	if e.guess != nil {
		ev, err := e.submitLocked(nil)
		if err != nil {
			return nil
		}
		return []Event{ev}
	}

	e.stopTimerLocked()
	e.revealed = pointPtr(e.location.Location)
	e.score = nil
	e.hasGuessed = true
	e.expired = true
	e.recordLocked()
	return []Event{e.eventLocked(EventRoundExpired)}
}

func (e *RoundEngine) tick(gen uint64) {
	e.mu.Lock()
	if e.closed || e.hasGuessed || gen != e.timerGen {
		e.mu.Unlock()
		return
	}

	e.elapsed++
	events := []Event{e.eventLocked(EventTick)}
	if e.config.TimeLimit > 0 && e.elapsed >= e.config.TimeLimit {
		events = append(events, e.expireLocked()...)
	}
	e.mu.Unlock()

	e.emit(events...)
}

func (e *RoundEngine) startTimerLocked() {
	e.stopTimerLocked()
	gen := e.timerGen
	e.stopTimer = e.scheduler.Every(TickInterval, func() { e.tick(gen) })
}

// stopTimerLocked cancels the live timer and bumps the generation so a tick
// already in flight is discarded.
func (e *RoundEngine) stopTimerLocked() {
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
	e.timerGen++
}

func (e *RoundEngine) recordLocked() {
	summary := RoundSummary{
		Round:          e.number,
		LocationID:     e.location.ID,
		Map:            e.location.Map,
		Answer:         e.location.Location,
		Expired:        e.expired,
		ElapsedSeconds: e.elapsed,
		FinishedAt:     e.now(),
	}
	if e.guess != nil {
		summary.Guess = pointPtr(*e.guess)
	}
	if e.distance != nil {
		summary.Distance = floatPtr(*e.distance)
	}
	if e.score != nil {
		summary.Score = intPtr(*e.score)
	}
	e.history = append(e.history, summary)
}

func (e *RoundEngine) totalLocked() int {
	total := 0
	for _, r := range e.history {
		if r.Score != nil {
			total += *r.Score
		}
	}
	return total
}

func (e *RoundEngine) eventLocked(t EventType) Event {
	return Event{Type: t, Round: e.snapshotLocked()}
}

func (e *RoundEngine) snapshotLocked() RoundState {
	st := RoundState{
		ID:     e.roundID,
		Number: e.number,
		Phase:  PhaseViewing,
		Scene: Scene{
			LocationID:  e.location.ID,
			Map:         e.location.Map,
			Image:       e.location.Image,
			Underground: e.location.Underground,
			ImageURL:    ImageURL(e.location),
			MapImageURL: MapImageURL(e.location),
		},
		HasGuessed:     e.hasGuessed,
		Expired:        e.expired,
		ElapsedSeconds: e.elapsed,
		TimeLimit:      e.config.TimeLimit,
		StartedAt:      e.startedAt,
		TotalScore:     e.totalLocked(),
	}
	if e.guess != nil {
		st.Guess = pointPtr(*e.guess)
	}
	if e.hasGuessed {
		st.Phase = PhaseGuessed
		answer := e.location
		st.Answer = &answer
		st.Revealed = pointPtr(*e.revealed)
	}
	if e.distance != nil {
		st.Distance = floatPtr(*e.distance)
	}
	if e.score != nil {
		st.Score = intPtr(*e.score)
	}
	return st
}

func (e *RoundEngine) emit(events ...Event) {
	if e.listener == nil {
		return
	}
	for _, ev := range events {
		e.listener(ev)
	}
}
