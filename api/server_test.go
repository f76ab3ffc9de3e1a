package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/skyguessr/game/engine"
	"github.com/wricardo/skyguessr/game/service"
	"github.com/wricardo/skyguessr/transport/websocket"
)

// MockGameService is a mock implementation of service.GameService
type MockGameService struct {
	CreateSessionFunc   func(ctx context.Context, config *engine.SessionConfig) (*service.SessionInfo, error)
	GetSessionFunc      func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc    func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc   func(ctx context.Context, sessionID string) error
	GetRoundStateFunc   func(ctx context.Context, sessionID string) (*engine.RoundState, error)
	PlaceGuessFunc      func(ctx context.Context, sessionID string, point engine.Point) (*engine.RoundState, error)
	SubmitGuessFunc     func(ctx context.Context, sessionID string, point *engine.Point) (*service.GuessResult, error)
	NextRoundFunc       func(ctx context.Context, sessionID string) (*engine.RoundState, error)
	GetRoundHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	ListMapsFunc        func(ctx context.Context) ([]*service.MapInfo, error)
	GetMapFunc          func(ctx context.Context, name string) (*service.MapInfo, error)
	RefreshCatalogFunc  func(ctx context.Context) (*service.CatalogInfo, error)
	GetPreferencesFunc  func(ctx context.Context) (*engine.SessionConfig, error)
	SavePreferencesFunc func(ctx context.Context, config *engine.SessionConfig) (*engine.SessionConfig, error)
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, config *engine.SessionConfig) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, config)
	}
	return &service.SessionInfo{ID: "test-session", Config: engine.DefaultSessionConfig(), CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, Config: engine.DefaultSessionConfig(), CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Round Operations
func (m *MockGameService) GetRoundState(ctx context.Context, sessionID string) (*engine.RoundState, error) {
	if m.GetRoundStateFunc != nil {
		return m.GetRoundStateFunc(ctx, sessionID)
	}
	return viewingRound(), nil
}

func (m *MockGameService) PlaceGuess(ctx context.Context, sessionID string, point engine.Point) (*engine.RoundState, error) {
	if m.PlaceGuessFunc != nil {
		return m.PlaceGuessFunc(ctx, sessionID, point)
	}
	st := viewingRound()
	st.Guess = &point
	return st, nil
}

func (m *MockGameService) SubmitGuess(ctx context.Context, sessionID string, point *engine.Point) (*service.GuessResult, error) {
	if m.SubmitGuessFunc != nil {
		return m.SubmitGuessFunc(ctx, sessionID, point)
	}
	return &service.GuessResult{Round: guessedRound(1768, 262.5), Message: "Score: 1768 (262.5 away)", ScoreBar: 35.36}, nil
}

func (m *MockGameService) NextRound(ctx context.Context, sessionID string) (*engine.RoundState, error) {
	if m.NextRoundFunc != nil {
		return m.NextRoundFunc(ctx, sessionID)
	}
	st := viewingRound()
	st.Number = 2
	return st, nil
}

func (m *MockGameService) GetRoundHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetRoundHistoryFunc != nil {
		return m.GetRoundHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Rounds:     []engine.RoundSummary{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

// Catalog
func (m *MockGameService) ListMaps(ctx context.Context) ([]*service.MapInfo, error) {
	if m.ListMapsFunc != nil {
		return m.ListMapsFunc(ctx)
	}
	return []*service.MapInfo{}, nil
}

func (m *MockGameService) GetMap(ctx context.Context, name string) (*service.MapInfo, error) {
	if m.GetMapFunc != nil {
		return m.GetMapFunc(ctx, name)
	}
	return &service.MapInfo{Name: name}, nil
}

func (m *MockGameService) RefreshCatalog(ctx context.Context) (*service.CatalogInfo, error) {
	if m.RefreshCatalogFunc != nil {
		return m.RefreshCatalogFunc(ctx)
	}
	return &service.CatalogInfo{}, nil
}

// Preferences
func (m *MockGameService) GetPreferences(ctx context.Context) (*engine.SessionConfig, error) {
	if m.GetPreferencesFunc != nil {
		return m.GetPreferencesFunc(ctx)
	}
	cfg := engine.DefaultSessionConfig()
	return &cfg, nil
}

func (m *MockGameService) SavePreferences(ctx context.Context, config *engine.SessionConfig) (*engine.SessionConfig, error) {
	if m.SavePreferencesFunc != nil {
		return m.SavePreferencesFunc(ctx, config)
	}
	return config, nil
}

// Test helpers
func viewingRound() *engine.RoundState {
	return &engine.RoundState{
		ID:     "round-1",
		Number: 1,
		Phase:  engine.PhaseViewing,
		Scene:  engine.Scene{LocationID: "1", Map: "hub", Image: "1.jpg"},
	}
}

func guessedRound(score int, distance float64) *engine.RoundState {
	st := viewingRound()
	guess := engine.Point{500, 762.5}
	answer := engine.Point{500, 500}
	st.Phase = engine.PhaseGuessed
	st.HasGuessed = true
	st.Guess = &guess
	st.Revealed = &answer
	st.Score = &score
	st.Distance = &distance
	return st
}

func setupTestServer(mockService *MockGameService) *Server {
	hub := websocket.NewHub()
	go hub.Run()
	return NewServer(mockService, hub, Options{})
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (body %q)", err, w.Body.String())
	}
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           interface{}
		wantConfig     *engine.SessionConfig
		serviceErr     error
		expectedStatus int
	}{
		{
			name:           "no configuration defers to preferences",
			path:           "/api/sessions",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "query parameters",
			path:           "/api/sessions?map=hub&timeLimit=30&noPan=true",
			wantConfig:     &engine.SessionConfig{Map: "hub", MaxDifficulty: "hard", Modifiers: engine.Modifiers{NoPan: true}, TimeLimit: 30},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "query parameters win over body",
			path:           "/api/sessions?map=hub",
			body:           map[string]interface{}{"map": "dungeon"},
			wantConfig:     &engine.SessionConfig{Map: "hub", MaxDifficulty: "hard"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "json body",
			path:           "/api/sessions",
			body:           map[string]interface{}{"map": "dungeon", "timeLimit": 10},
			wantConfig:     &engine.SessionConfig{Map: "dungeon", MaxDifficulty: "hard", TimeLimit: 10},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed body",
			path:           "/api/sessions",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "map without locations",
			path:           "/api/sessions?map=empty",
			serviceErr:     fmt.Errorf("map %q has no locations: %w", "empty", engine.ErrNoLocations),
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "unexpected service error",
			path:           "/api/sessions",
			serviceErr:     fmt.Errorf("service error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *engine.SessionConfig
			mockService := &MockGameService{
				CreateSessionFunc: func(ctx context.Context, config *engine.SessionConfig) (*service.SessionInfo, error) {
					got = config
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					info := &service.SessionInfo{ID: "a1b2", Config: engine.DefaultSessionConfig(), CreatedAt: time.Now()}
					if config != nil {
						info.Config = *config
					}
					return info, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", tt.path, tt.body))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusCreated {
				return
			}

			if tt.wantConfig == nil {
				if got != nil {
					t.Errorf("Expected nil config, got %+v", *got)
				}
			} else if got == nil || *got != *tt.wantConfig {
				t.Errorf("Expected config %+v, got %+v", *tt.wantConfig, got)
			}

			var resp service.SessionInfo
			parseResponse(t, w, &resp)
			if resp.ID != "a1b2" {
				t.Errorf("Expected session ID a1b2, got %s", resp.ID)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "old", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-1 * time.Minute)},
			{ID: "mid", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-2 * time.Hour)},
			{ID: "new", CreatedAt: now.Add(-1 * time.Hour), LastAccessedAt: now.Add(-3 * time.Hour)},
		}
	}

	tests := []struct {
		name    string
		query   string
		wantIDs []string
		total   int
	}{
		{"default sorts by access desc", "", []string{"old", "mid", "new"}, 3},
		{"created desc", "?sort=created", []string{"new", "mid", "old"}, 3},
		{"created asc", "?sort=created&order=asc", []string{"old", "mid", "new"}, 3},
		{"limit", "?sort=created&limit=2", []string{"new", "mid"}, 3},
		{"limit above count ignored", "?limit=10", []string{"old", "mid", "new"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, resp.Total)
			}
			if resp.Count != len(tt.wantIDs) {
				t.Fatalf("Expected count %d, got %d", len(tt.wantIDs), resp.Count)
			}
			for i, id := range tt.wantIDs {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "a1b2" {
				return nil, fmt.Errorf("session %s: %w", sessionID, service.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "a1b2" {
				return fmt.Errorf("session %s: %w", sessionID, service.ErrSessionNotFound)
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/sessions/a1b2", http.StatusOK},
		{"GET", "/api/sessions/zzzz", http.StatusNotFound},
		{"DELETE", "/api/sessions/a1b2", http.StatusOK},
		{"DELETE", "/api/sessions/zzzz", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(server, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

// Round Tests

func TestGetRound(t *testing.T) {
	w := serve(setupTestServer(&MockGameService{}), makeRequest("GET", "/api/sessions/a1b2/round", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp engine.RoundState
	parseResponse(t, w, &resp)
	if resp.Phase != engine.PhaseViewing {
		t.Errorf("Expected viewing phase, got %s", resp.Phase)
	}
	if resp.Answer != nil || resp.Revealed != nil {
		t.Error("Answer must not be exposed while viewing")
	}
}

func TestPlaceGuess(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		serviceErr     error
		expectedStatus int
	}{
		{"valid point", map[string]interface{}{"point": []float64{120, 340}}, nil, http.StatusOK},
		{"missing point", map[string]interface{}{}, nil, http.StatusBadRequest},
		{"empty body", nil, nil, http.StatusBadRequest},
		{"malformed point", `{"point": "here"}`, nil, http.StatusBadRequest},
		{"round already guessed", map[string]interface{}{"point": []float64{1, 1}}, engine.ErrAlreadyGuessed, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got engine.Point
			mockService := &MockGameService{
				PlaceGuessFunc: func(ctx context.Context, sessionID string, point engine.Point) (*engine.RoundState, error) {
					got = point
					if tt.serviceErr != nil {
						return guessedRound(0, 0), fmt.Errorf("place guess: %w", tt.serviceErr)
					}
					st := viewingRound()
					st.Guess = &point
					return st, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/a1b2/guess", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusOK && got != (engine.Point{120, 340}) {
				t.Errorf("Expected point [120 340], got %v", got)
			}
			if tt.expectedStatus == http.StatusConflict {
				var resp struct {
					Error string             `json:"error"`
					Round *engine.RoundState `json:"round"`
				}
				parseResponse(t, w, &resp)
				if resp.Round == nil || !resp.Round.HasGuessed {
					t.Error("Expected the current round alongside the conflict")
				}
			}
		})
	}
}

func TestSubmitGuess(t *testing.T) {
	explicit := engine.Point{500, 762.5}

	tests := []struct {
		name           string
		body           interface{}
		wantPoint      *engine.Point
		serviceErr     error
		expectedStatus int
	}{
		{"pending guess", nil, nil, nil, http.StatusOK},
		{"empty object", map[string]interface{}{}, nil, nil, http.StatusOK},
		{"explicit point", map[string]interface{}{"point": []float64{500, 762.5}}, &explicit, nil, http.StatusOK},
		{"malformed body", "[[", nil, nil, http.StatusBadRequest},
		{"no guess", nil, nil, engine.ErrNoGuess, http.StatusConflict},
		{"double submit", nil, nil, engine.ErrAlreadyGuessed, http.StatusConflict},
		{"unknown session", nil, nil, service.ErrSessionNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *engine.Point
			mockService := &MockGameService{
				SubmitGuessFunc: func(ctx context.Context, sessionID string, point *engine.Point) (*service.GuessResult, error) {
					got = point
					if tt.serviceErr != nil {
						return nil, fmt.Errorf("submit guess: %w", tt.serviceErr)
					}
					return &service.GuessResult{Round: guessedRound(1768, 262.5), ScoreBar: 35.36}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/a1b2/submit", tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}

			if tt.wantPoint == nil && got != nil {
				t.Errorf("Expected pending guess submit, got point %v", *got)
			}
			if tt.wantPoint != nil && (got == nil || *got != *tt.wantPoint) {
				t.Errorf("Expected point %v, got %v", *tt.wantPoint, got)
			}

			var resp service.GuessResult
			parseResponse(t, w, &resp)
			if resp.Round == nil || resp.Round.Score == nil || *resp.Round.Score != 1768 {
				t.Errorf("Expected score 1768 in response, got %+v", resp.Round)
			}
		})
	}
}

func TestNextRound(t *testing.T) {
	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
	}{
		{"advance", nil, http.StatusOK},
		{"round in progress", engine.ErrRoundInProgress, http.StatusConflict},
		{"catalog emptied", engine.ErrNoLocations, http.StatusUnprocessableEntity},
		{"closed engine", engine.ErrClosed, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				NextRoundFunc: func(ctx context.Context, sessionID string) (*engine.RoundState, error) {
					if tt.serviceErr != nil {
						return viewingRound(), fmt.Errorf("next round: %w", tt.serviceErr)
					}
					st := viewingRound()
					st.Number = 2
					return st, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions/a1b2/next", nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"explicit", "?page=2&limit=5&order=asc", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}},
		{"invalid values fall back", "?page=-1&limit=abc&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetRoundHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Rounds: []engine.RoundSummary{}}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("GET", "/api/sessions/a1b2/history"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.expected {
				t.Errorf("Expected options %+v, got %+v", tt.expected, got)
			}
		})
	}
}

// Catalog Tests

func TestListMaps(t *testing.T) {
	mockService := &MockGameService{
		ListMapsFunc: func(ctx context.Context) ([]*service.MapInfo, error) {
			return []*service.MapInfo{
				{Name: "dungeon", Locations: 0},
				{Name: "hub", Locations: 3, Playable: true},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?playable=true", 1},
	}

	for _, tt := range tests {
		t.Run("maps"+tt.query, func(t *testing.T) {
			w := serve(server, makeRequest("GET", "/api/maps"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp []*service.MapInfo
			parseResponse(t, w, &resp)
			if len(resp) != tt.want {
				t.Errorf("Expected %d maps, got %d", tt.want, len(resp))
			}
		})
	}
}

func TestGetMap(t *testing.T) {
	mockService := &MockGameService{
		GetMapFunc: func(ctx context.Context, name string) (*service.MapInfo, error) {
			if name != "hub" {
				return nil, fmt.Errorf("map %q: %w", name, service.ErrMapNotFound)
			}
			return &service.MapInfo{Name: "hub", Locations: 3, Playable: true}, nil
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, makeRequest("GET", "/api/maps/hub", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/maps/atlantis", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRefreshCatalog(t *testing.T) {
	called := false
	mockService := &MockGameService{
		RefreshCatalogFunc: func(ctx context.Context) (*service.CatalogInfo, error) {
			called = true
			return &service.CatalogInfo{Maps: 2, Locations: 5, Warnings: []string{"w"}}, nil
		},
	}

	w := serve(setupTestServer(mockService), makeRequest("POST", "/api/catalog/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !called {
		t.Error("Expected RefreshCatalog to be called")
	}

	var resp service.CatalogInfo
	parseResponse(t, w, &resp)
	if resp.Locations != 5 {
		t.Errorf("Expected 5 locations, got %d", resp.Locations)
	}
}

// Preference Tests

func TestPreferences(t *testing.T) {
	var saved *engine.SessionConfig
	mockService := &MockGameService{
		SavePreferencesFunc: func(ctx context.Context, config *engine.SessionConfig) (*engine.SessionConfig, error) {
			if config.Map == "atlantis" {
				return nil, fmt.Errorf("config validation: %w", engine.ErrNoLocations)
			}
			saved = config
			return config, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/preferences", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var cfg engine.SessionConfig
	parseResponse(t, w, &cfg)
	if cfg.Map != engine.AnyMap {
		t.Errorf("Expected default map, got %s", cfg.Map)
	}

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"save", map[string]interface{}{"map": "hub", "modifiers": map[string]bool{"noZoom": true}}, http.StatusOK},
		{"unplayable map", map[string]interface{}{"map": "atlantis"}, http.StatusUnprocessableEntity},
		{"empty body", nil, http.StatusBadRequest},
		{"malformed", "nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("PUT", "/api/preferences", tt.body))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}

	if saved == nil || saved.Map != "hub" || !saved.Modifiers.NoZoom {
		t.Errorf("Expected saved hub preferences with noZoom, got %+v", saved)
	}
}

// Transport Tests

func TestWebSocketRequiresSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, service.ErrSessionNotFound
		},
	}
	server := setupTestServer(mockService)

	if w := serve(server, makeRequest("GET", "/ws", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without session, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/ws?session=zzzz", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown session, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(&MockGameService{}), makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %s", resp["status"])
	}
}

func TestContentFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "maps"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "maps", "hub.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	hub := websocket.NewHub()
	server := NewServer(&MockGameService{}, hub, Options{ContentDir: dir, StaticDir: dir})

	w := serve(server, makeRequest("GET", "/content/maps/hub.png", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "png" {
		t.Errorf("Expected file contents, got %q", w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	hub := websocket.NewHub()
	server := NewServer(&MockGameService{}, hub, Options{AllowedOrigins: []string{"http://localhost:5173"}})
	handler := server.Handler()

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := makeRequest("GET", "/health", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Expected Access-Control-Allow-Origin %q, got %q", tt.want, got)
			}
		})
	}
}
