package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/skyguessr/game/engine"
	"github.com/wricardo/skyguessr/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"SkyGuessr",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`SkyGuessr - MCP Interface

This is a thin client that proxies all requests to the local REST API server.

GAME OBJECTIVE:
Each round shows a panorama taken somewhere on a map. Guess where it was taken by
placing a point [y, x] on the map, then submit. The closer the guess, the higher the
score, up to 5000 per round.

AVAILABLE TOOLS:
- list_maps: List maps and how many locations each has
- create_session: Start a session (map, time limit, modifiers)
- list_sessions / get_session: Inspect sessions
- round_state: Current round (panorama, map image, timer)
- place_guess: Mark a pending guess without scoring it
- submit_guess: Score the pending guess or an explicit point
- next_round: Move on once the round is guessed
- round_history: Finished rounds with scores
- game_instructions: Full rules and scoring`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func coordinateProperty(axis string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": fmt.Sprintf("%s coordinate on the map image, in pixels", axis),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Catalog
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_maps",
		Description: "List the maps of the catalog with their location counts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"playable_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only list maps that have at least one location",
				},
			},
		},
	}, c.handleListMaps)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new session. Without arguments the stored preferences are used",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map": map[string]interface{}{
					"type":        "string",
					"description": `Map to play, or "any" for a random map every round`,
				},
				"time_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Seconds per round, 0 for no limit",
				},
				"no_pan": map[string]interface{}{
					"type":        "boolean",
					"description": "Disable panning the panorama",
				},
				"no_zoom": map[string]interface{}{
					"type":        "boolean",
					"description": "Disable zooming the panorama",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Round operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "round_state",
		Description: "Get the current round of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRoundState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_guess",
		Description: "Place a pending guess on the map without scoring it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"y":          coordinateProperty("Row"),
				"x":          coordinateProperty("Column"),
			},
			Required: []string{"session_id", "y", "x"},
		},
	}, c.handlePlaceGuess)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_guess",
		Description: "Submit a guess. With y and x the point is submitted directly, otherwise the pending guess is used",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"y":          coordinateProperty("Row"),
				"x":          coordinateProperty("Column"),
				"reasoning": map[string]interface{}{
					"type":        "string",
					"description": "What in the panorama led to this guess",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSubmitGuess)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "next_round",
		Description: "Start the next round once the current one is guessed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleNextRound)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "round_history",
		Description: "Get finished rounds with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Rounds per page (default 20)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRoundHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules and the scoring formula",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// pointArgument reads y and x. It returns nil when neither is given and an
// error when only one is.
func pointArgument(args map[string]interface{}) (*engine.Point, error) {
	y, hasY := args["y"].(float64)
	x, hasX := args["x"].(float64)
	if !hasY && !hasX {
		return nil, nil
	}
	if !hasY || !hasX {
		return nil, fmt.Errorf("both y and x are required")
	}
	return &engine.Point{y, x}, nil
}

// Tool handlers

func (c *Client) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := "/api/maps"
	if playable, _ := args["playable_only"].(bool); playable {
		path += "?playable=true"
	}

	var maps []service.MapInfo
	if err := c.apiCall(ctx, "GET", path, nil, &maps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMaps(maps)), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	path := "/api/sessions"
	if len(args) > 0 {
		cfg := engine.DefaultSessionConfig()
		if m, _ := args["map"].(string); m != "" {
			cfg.Map = m
		}
		if limit, ok := args["time_limit"].(float64); ok && limit > 0 {
			cfg.TimeLimit = int(limit)
		}
		cfg.Modifiers.NoPan, _ = args["no_pan"].(bool)
		cfg.Modifiers.NoZoom, _ = args["no_zoom"].(bool)
		path += "?" + cfg.Query().Encode()
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatSessionInfo(&session))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Map: %s, Rounds: %d, Score: %d, Created: %s)\n",
			s.ID, s.Config.Map, s.RoundsPlayed, s.TotalScore, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleRoundState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var round engine.RoundState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/round", url.PathEscape(sessionID)), nil, &round); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRound(&round)), nil
}

func (c *Client) handlePlaceGuess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	point, err := pointArgument(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if point == nil {
		return mcp.NewToolResultError("y and x are required"), nil
	}

	var round engine.RoundState
	body := map[string]interface{}{"point": point}
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/guess", url.PathEscape(sessionID)), body, &round); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Guess placed at %s. Call submit_guess to score it.\n\n%s", point, formatRound(&round))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSubmitGuess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	// reasoning is only there to make the agent explain itself
	_, _ = args["reasoning"].(string)

	point, err := pointArgument(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var body interface{}
	if point != nil {
		body = map[string]interface{}{"point": point}
	}

	var result service.GuessResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/submit", url.PathEscape(sessionID)), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGuessResult(&result)), nil
}

func (c *Client) handleNextRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var round engine.RoundState
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/next", url.PathEscape(sessionID)), nil, &round); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRound(&round)), nil
}

func (c *Client) handleRoundHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, ok := args["order"].(string); ok {
		params.Set("order", order)
	}

	path := fmt.Sprintf("/api/sessions/%s/history", url.PathEscape(sessionID))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`SkyGuessr - Complete Instructions

GAME OBJECTIVE:
Every round shows a 360 degree panorama taken somewhere on one of the maps. Work out
where it was taken and place your guess on the map. You get one guess per round.

ROUND FLOW:
1. round_state shows the panorama (scene.image_url) and the map (scene.map_image_url).
2. place_guess marks a pending point; you may move it as often as you like.
3. submit_guess scores the pending point (or an explicit y/x). The answer is revealed.
4. next_round starts a new round. It is rejected until the current round is guessed.

COORDINATES:
Points are [y, x] in the map image's pixel space: y is the row from the top edge,
x is the column from the left edge. list_maps shows each map's size.

SCORING:
- Within %.0f pixels of the answer: %d points.
- Further away the score falls off with ratio^%.1f, where
  ratio = 1 - (distance - %.0f) / (%.1f * mean map size - %.0f).
- Half a map away or more scores 0.
- A round that runs out of time with no pending guess scores nothing. A pending guess
  is submitted automatically when the timer runs out.

MAPS:
- "any" picks a random map every round and avoids the last %d maps it used.
- Some maps have underground layers; scene.underground tells you which image is shown.

STRATEGY:
- Look for landmarks, lighting and architecture before committing.
- Use round_history to see how far off your previous guesses were.

Good luck!`,
		engine.PerfectRadius, engine.MaxScore, engine.ScoreExponent,
		engine.PerfectRadius, engine.FalloffScale, engine.PerfectRadius,
		engine.MapHistorySize)

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatMaps(maps []service.MapInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Maps (%d):\n\n", len(maps))
	for _, m := range maps {
		status := "playable"
		if !m.Playable {
			status = "no locations"
		}
		fmt.Fprintf(&b, "- %s: %d locations (%s)", m.Name, m.Locations, status)
		if m.Descriptor != nil {
			end := m.Descriptor.Bounds.End
			fmt.Fprintf(&b, ", size %.0fx%.0f", end.X(), end.Y())
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Map: %s\n", session.Config.Map)
	if session.Config.TimeLimit > 0 {
		fmt.Fprintf(&b, "Time limit: %ds\n", session.Config.TimeLimit)
	}
	if session.Config.Modifiers.NoPan || session.Config.Modifiers.NoZoom {
		fmt.Fprintf(&b, "Modifiers: noPan=%t noZoom=%t\n", session.Config.Modifiers.NoPan, session.Config.Modifiers.NoZoom)
	}
	fmt.Fprintf(&b, "Rounds played: %d\n", session.RoundsPlayed)
	fmt.Fprintf(&b, "Total score: %d\n", session.TotalScore)
	if session.Round != nil {
		b.WriteString("\n")
		b.WriteString(formatRound(session.Round))
	}
	return b.String()
}

func formatRound(round *engine.RoundState) string {
	if round == nil {
		return "No round"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Round %d on %s (%s)\n", round.Number, round.Scene.Map, round.Phase)
	fmt.Fprintf(&b, "Panorama: %s\n", round.Scene.ImageURL)
	fmt.Fprintf(&b, "Map image: %s\n", round.Scene.MapImageURL)
	if round.Scene.Underground {
		b.WriteString("Underground: yes\n")
	}

	timer := engine.FormatElapsed(round.ElapsedSeconds)
	if round.TimeLimit > 0 {
		timer += fmt.Sprintf(" / %s", engine.FormatElapsed(round.TimeLimit))
	}
	fmt.Fprintf(&b, "Time: %s\n", timer)

	if round.Guess != nil {
		fmt.Fprintf(&b, "Guess: %s\n", round.Guess)
	}
	if round.HasGuessed {
		if round.Revealed != nil {
			fmt.Fprintf(&b, "Answer: %s\n", round.Revealed)
		}
		if round.Answer != nil && round.Answer.Name != "" {
			fmt.Fprintf(&b, "Location: %s\n", round.Answer.Name)
		}
		switch {
		case round.Score != nil:
			fmt.Fprintf(&b, "Score: %d\n", *round.Score)
		case round.Expired:
			b.WriteString("⏰ Time's up, no score\n")
		}
	}
	fmt.Fprintf(&b, "Total score: %d\n", round.TotalScore)
	return b.String()
}

func formatGuessResult(result *service.GuessResult) string {
	var b strings.Builder
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	if result.Round != nil && result.Round.Score != nil {
		fmt.Fprintf(&b, "%s %.0f%%\n", scoreBar(result.ScoreBar), result.ScoreBar)
	}
	b.WriteString("\n")
	b.WriteString(formatRound(result.Round))
	return b.String()
}

// scoreBar renders a 20-cell bar for a percentage
func scoreBar(percent float64) string {
	filled := int(percent / 5)
	if filled < 0 {
		filled = 0
	}
	if filled > 20 {
		filled = 20
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 20-filled) + "]"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round History (page %d/%d, %d rounds, total score %d):\n\n",
		history.Page, history.TotalPages, history.TotalRounds, history.TotalScore)

	for _, r := range history.Rounds {
		switch {
		case r.Score != nil && r.Distance != nil:
			fmt.Fprintf(&b, "#%d %s/%s: %d points, %.1f away\n", r.Round, r.Map, r.LocationID, *r.Score, *r.Distance)
		case r.Expired:
			fmt.Fprintf(&b, "#%d %s/%s: expired\n", r.Round, r.Map, r.LocationID)
		default:
			fmt.Fprintf(&b, "#%d %s/%s: no score\n", r.Round, r.Map, r.LocationID)
		}
	}

	if history.HasNext {
		fmt.Fprintf(&b, "\nMore rounds on page %d\n", history.Page+1)
	}
	return b.String()
}
