// Package api provides the HTTP REST API for SkyGuessr.
//
// The api package implements:
//   - Session endpoints (create, list, inspect, delete)
//   - Round endpoints (place guess, submit, next round, history)
//   - Catalog and preference endpoints
//   - WebSocket upgrade handling
//   - Static file serving for panoramas, map images and the renderer page
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session. The configuration is taken from
//     query parameters (map, max_difficulty, noPan, noZoom, timeLimit, devMode)
//     when any are present, otherwise from a JSON body, otherwise from the
//     stored preferences
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Rounds:
//   - GET /api/sessions/{id}/round - Current round
//   - POST /api/sessions/{id}/guess - Place a pending guess: {"point": [y, x]}
//   - POST /api/sessions/{id}/submit - Score the pending guess, or {"point": [y, x]}
//   - POST /api/sessions/{id}/next - Start the next round
//   - GET /api/sessions/{id}/history - Finished rounds (page, limit, order)
//
// Catalog:
//   - GET /api/maps - List maps (playable=true filters)
//   - GET /api/maps/{name} - Get a map
//   - POST /api/catalog/refresh - Reload the catalog from disk
//
// Preferences:
//   - GET /api/preferences - Stored home-screen configuration
//   - PUT /api/preferences - Replace it
//
// Other:
//   - GET /ws?session={id} - WebSocket round events
//   - GET /content/... - Panoramas and map images
//   - GET /health - Health check
//
// Error Handling:
//
// Errors are returned as JSON. Rejected round transitions also carry the
// current round so the client can resynchronise:
//
//	{
//	  "error": "submit guess: round already guessed",
//	  "round": { ... }
//	}
//
// Status codes: 404 unknown session or map, 409 invalid round transition,
// 422 no playable locations, 400 malformed input.
//
// Usage:
//
//	server := api.NewServer(gameService, hub, api.Options{ContentDir: "content"})
//	http.ListenAndServe("127.0.0.1:8080", server.Handler())
package api
