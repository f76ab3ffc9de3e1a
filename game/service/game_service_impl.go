package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wricardo/skyguessr/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	catalogs CatalogManager
	prefs    PreferenceStore
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. prefs may be nil, in
// which case sessions created without a configuration use the defaults.
func NewGameService(sessions SessionManager, catalogs CatalogManager, prefs PreferenceStore) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		catalogs: catalogs,
		prefs:    prefs,
	}
}

// CreateSession starts a new session. A nil config uses the stored preferences.
func (s *gameServiceImpl) CreateSession(ctx context.Context, config *engine.SessionConfig) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg engine.SessionConfig
	if config != nil {
		cfg = config.Normalize()
	} else {
		cfg = s.loadPreferences()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", cfg)
	if err != nil {
		if errors.Is(err, engine.ErrNoLocations) {
			return nil, fmt.Errorf("map %q has no locations. Use /api/maps to list playable maps: %w", cfg.Map, err)
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session and stops its round timer
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

// GetRoundState returns the current round of a session
func (s *gameServiceImpl) GetRoundState(ctx context.Context, sessionID string) (*engine.RoundState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	st := session.Round.State()
	return &st, nil
}

// PlaceGuess records a pending guess point
func (s *gameServiceImpl) PlaceGuess(ctx context.Context, sessionID string, point engine.Point) (*engine.RoundState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	st, err := session.Round.PlaceGuess(point)
	if err != nil {
		return &st, fmt.Errorf("place guess: %w", err)
	}
	return &st, nil
}

// SubmitGuess scores the explicit point, or the pending guess when point is nil
func (s *gameServiceImpl) SubmitGuess(ctx context.Context, sessionID string, point *engine.Point) (*GuessResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	st, err := session.Round.SubmitGuess(point)
	if err != nil {
		return &GuessResult{Round: &st}, fmt.Errorf("submit guess: %w", err)
	}
	return guessResult(&st), nil
}

// NextRound advances a guessed session to a new location
func (s *gameServiceImpl) NextRound(ctx context.Context, sessionID string) (*engine.RoundState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	st, err := session.Round.Advance()
	if err != nil {
		return &st, fmt.Errorf("next round: %w", err)
	}
	return &st, nil
}

// GetRoundHistory retrieves paginated round history
func (s *gameServiceImpl) GetRoundHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := session.Round.History()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var rounds []engine.RoundSummary
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			rounds = append(rounds, history[i])
		}
	} else if start < total {
		rounds = history[start:end]
	}

	if rounds == nil {
		rounds = []engine.RoundSummary{}
	}

	return &HistoryResponse{
		Rounds:      rounds,
		TotalRounds: total,
		TotalScore:  session.Round.TotalScore(),
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListMaps returns every map in the catalog
func (s *gameServiceImpl) ListMaps(ctx context.Context) ([]*MapInfo, error) {
	return s.catalogs.ListMaps()
}

// GetMap returns a single map
func (s *gameServiceImpl) GetMap(ctx context.Context, name string) (*MapInfo, error) {
	return s.catalogs.GetMap(name)
}

// RefreshCatalog reloads the catalog from disk. Running sessions keep the
// catalog they were created with.
func (s *gameServiceImpl) RefreshCatalog(ctx context.Context) (*CatalogInfo, error) {
	return s.catalogs.Refresh()
}

// GetPreferences returns the stored home-screen configuration
func (s *gameServiceImpl) GetPreferences(ctx context.Context) (*engine.SessionConfig, error) {
	cfg := s.loadPreferences()
	return &cfg, nil
}

// SavePreferences validates and stores the home-screen configuration
func (s *gameServiceImpl) SavePreferences(ctx context.Context, config *engine.SessionConfig) (*engine.SessionConfig, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: missing configuration", ErrInvalidInput)
	}

	cfg := config.Normalize()
	if err := engine.ValidateSessionConfig(cfg, s.catalogs.Catalog()); err != nil {
		return nil, err
	}
	if s.prefs == nil {
		return &cfg, nil
	}
	if err := s.prefs.Save(cfg); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return &cfg, nil
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return session, nil
}

func (s *gameServiceImpl) loadPreferences() engine.SessionConfig {
	if s.prefs == nil {
		return engine.DefaultSessionConfig()
	}
	return s.prefs.Load()
}

func sessionInfo(session *Session) *SessionInfo {
	st := session.Round.State()
	return &SessionInfo{
		ID:             session.ID,
		Config:         session.Config,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt(),
		Round:          &st,
		RoundsPlayed:   len(session.Round.History()),
		TotalScore:     st.TotalScore,
	}
}

func guessResult(st *engine.RoundState) *GuessResult {
	result := &GuessResult{Round: st}
	if st.Score == nil || st.Distance == nil {
		return result
	}
	result.Message = fmt.Sprintf("Score: %d (%.1f away)", *st.Score, *st.Distance)
	result.ScoreBar = float64(*st.Score) / engine.MaxScore * 100
	return result
}
