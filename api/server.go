package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/skyguessr/game/engine"
	"github.com/wricardo/skyguessr/game/service"
	"github.com/wricardo/skyguessr/transport/websocket"
)

// maxBodySize bounds request bodies; every payload is a small JSON object.
const maxBodySize = 64 << 10

func logger() *zerolog.Logger {
	l := log.With().Str("module", "api").Logger()
	return &l
}

// Options configures what the server serves besides the REST API
type Options struct {
	// ContentDir holds location panoramas and map images, served under /content/.
	ContentDir string
	// StaticDir holds the renderer page, served at /.
	StaticDir string
	// AllowedOrigins is passed to the CORS layer. Empty means same-origin only.
	AllowedOrigins []string
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	opts    Options
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, opts Options) *Server {
	if opts.StaticDir == "" {
		opts.StaticDir = "./static/"
	}

	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		opts:    opts,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Round operations
	api.HandleFunc("/sessions/{id}/round", s.handleGetRound).Methods("GET")
	api.HandleFunc("/sessions/{id}/guess", s.handlePlaceGuess).Methods("POST")
	api.HandleFunc("/sessions/{id}/submit", s.handleSubmitGuess).Methods("POST")
	api.HandleFunc("/sessions/{id}/next", s.handleNextRound).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Catalog
	api.HandleFunc("/maps", s.handleListMaps).Methods("GET")
	api.HandleFunc("/maps/{name}", s.handleGetMap).Methods("GET")
	api.HandleFunc("/catalog/refresh", s.handleRefreshCatalog).Methods("POST")

	// Preferences
	api.HandleFunc("/preferences", s.handleGetPreferences).Methods("GET")
	api.HandleFunc("/preferences", s.handlePutPreferences).Methods("PUT")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Panoramas and map images
	if s.opts.ContentDir != "" {
		s.router.PathPrefix("/content/").Handler(
			http.StripPrefix("/content/", http.FileServer(http.Dir(s.opts.ContentDir))))
	}

	// Renderer page
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir)))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router wrapped in the CORS layer, for mounting on a
// real listener.
func (s *Server) Handler() http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	}
	// cors treats an empty list as "*"
	if len(corsOptions.AllowedOrigins) == 0 {
		corsOptions.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(corsOptions).Handler(s.router)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors onto HTTP status codes.
// A round snapshot is attached when the service returned one alongside the
// error, so a rejected transition still shows the client where it stands.
func respondServiceError(w http.ResponseWriter, err error, round *engine.RoundState) {
	status := statusFor(err)
	if round == nil || round.ID == "" {
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"round": round,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrMapNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyGuessed),
		errors.Is(err, engine.ErrRoundInProgress),
		errors.Is(err, engine.ErrNoGuess),
		errors.Is(err, engine.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNoLocations):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readBody returns the request body, or nil when it is empty or whitespace.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// sessionConfigKeys are the query parameters that select a configuration
var sessionConfigKeys = []string{"map", "max_difficulty", "noPan", "noZoom", "timeLimit", "devMode"}

// Session Handlers

// handleCreateSession reads the configuration from query parameters when any
// are present, then from a JSON body, and otherwise leaves it to the stored
// preferences.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var config *engine.SessionConfig

	query := r.URL.Query()
	for _, key := range sessionConfigKeys {
		if query.Has(key) {
			cfg := engine.ParseSessionConfig(query)
			config = &cfg
			break
		}
	}

	if config == nil {
		body, err := readBody(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if body != nil {
			cfg, err := engine.DecodeSessionConfig(body)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			config = &cfg
		}
	}

	session, err := s.service.CreateSession(r.Context(), config)
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	logger().Info().Msgf("[SESSION] created session=%s map=%s timeLimit=%d",
		session.ID, session.Config.Map, session.Config.TimeLimit)

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	limit := total
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err, nil)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastData(sessionID, "session_deleted", map[string]string{"session_id": sessionID})
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Round Handlers

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	round, err := s.service.GetRoundState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, round)
}

type pointRequest struct {
	Point *engine.Point `json:"point"`
}

func (s *Server) handlePlaceGuess(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req pointRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Point == nil {
		respondError(w, http.StatusBadRequest, "point is required as [y, x]")
		return
	}

	round, err := s.service.PlaceGuess(r.Context(), sessionID, *req.Point)
	if err != nil {
		respondServiceError(w, err, round)
		return
	}

	logger().Debug().Msgf("[GUESS] session=%s round=%d point=%s", sessionID, round.Number, req.Point)

	respondJSON(w, http.StatusOK, round)
}

// handleSubmitGuess accepts an optional point; without one the pending guess
// is submitted.
func (s *Server) handleSubmitGuess(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	body, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var req pointRequest
	if body != nil {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := s.service.SubmitGuess(r.Context(), sessionID, req.Point)
	if err != nil {
		var round *engine.RoundState
		if result != nil {
			round = result.Round
		}
		respondServiceError(w, err, round)
		return
	}

	// Compact server log for observability
	round := result.Round
	if round.Score != nil && round.Distance != nil {
		logger().Info().Msgf("[SUBMIT] session=%s round=%d map=%s guess=%s answer=%s dist=%.1f score=%d",
			sessionID, round.Number, round.Scene.Map, round.Guess, round.Revealed, *round.Distance, *round.Score)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	round, err := s.service.NextRound(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err, round)
		return
	}

	logger().Info().Msgf("[NEXT] session=%s round=%d map=%s location=%s",
		sessionID, round.Number, round.Scene.Map, round.Scene.LocationID)

	respondJSON(w, http.StatusOK, round)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetRoundHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Catalog Handlers

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.service.ListMaps(r.Context())
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	if r.URL.Query().Get("playable") == "true" {
		playable := make([]*service.MapInfo, 0, len(maps))
		for _, m := range maps {
			if m.Playable {
				playable = append(playable, m)
			}
		}
		maps = playable
	}

	respondJSON(w, http.StatusOK, maps)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(mux.Vars(r)["name"])

	m, err := s.service.GetMap(r.Context(), name)
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.RefreshCatalog(r.Context())
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	logger().Info().Msgf("[CATALOG] refreshed maps=%d locations=%d warnings=%d",
		info.Maps, info.Locations, len(info.Warnings))

	respondJSON(w, http.StatusOK, info)
}

// Preference Handlers

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.service.GetPreferences(r.Context())
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil || body == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := engine.DecodeSessionConfig(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := s.service.SavePreferences(r.Context(), &cfg)
	if err != nil {
		respondServiceError(w, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, saved)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
