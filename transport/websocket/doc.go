// Package websocket provides the WebSocket push channel for SkyGuessr.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Broadcasting of every round event (start, guess, submit, expiry, tick)
//   - Connection lifecycle management with ping/pong keepalive
//   - Origin checks for the local renderer
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine; the hub's event loop owns registration and fan-out.
//
// Message Protocol:
//
// Clients connect with ?session=<id> and only receive messages for that
// session. Each frame is one JSON document:
//
//	{"session_id": "a1b2", "event": "tick", "round": {...RoundState...}}
//
// Deleting a session sends a final "session_deleted" frame with a data
// payload instead of a round.
//
// Commands (guess, submit, next) go through the REST API; incoming frames
// are read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub("http://localhost:5173")
//	go hub.Run()
//	defer hub.Stop()
//
//	sessions.SetNotifier(hub.BroadcastEvent)
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Concurrency:
//
// Broadcasts never block the caller. Round timers publish ticks from their
// own goroutines, so a full queue drops the message with a warning instead
// of stalling the round, and a client that cannot keep up is disconnected.
package websocket
