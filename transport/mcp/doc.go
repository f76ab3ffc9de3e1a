// Package mcp exposes SkyGuessr to MCP clients.
//
// The Client registers one tool per game operation and forwards every call to
// the REST API, so agents see exactly the state the browser renderer sees:
//   - list_maps: Maps and their location counts
//   - create_session: New session from map, time_limit, no_pan, no_zoom
//   - list_sessions, get_session: Session inspection
//   - round_state: Current round with panorama and map image URLs
//   - place_guess: Pending guess at [y, x]
//   - submit_guess: Score the pending guess or an explicit point
//   - next_round: Advance a guessed round
//   - round_history: Paginated finished rounds
//   - game_instructions: Rules and the scoring formula
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp, handled with GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://127.0.0.1:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
