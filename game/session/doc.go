// Package session provides session management for SkyGuessr.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Round event fan-out to a single Notifier (the WebSocket hub)
//   - File persistence of finished rounds
//   - Session cleanup and expiration
//   - The home-screen preferences file
//
// Core Types:
//
// Manager owns every session and creates one engine.RoundEngine per session
// against the catalog current at creation time. FilePersistence stores one
// JSON record per session with its configuration and finished rounds.
// PreferencesStore keeps the last configuration chosen by the player.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. The manager retries
// generation until the ID is free in memory and on disk. IDs are looked up
// case-insensitively.
//
// Usage:
//
//	persistence, _ := session.NewFilePersistence(".skyguessr/sessions")
//	manager := session.NewManagerWithPersistence(catalogs, persistence)
//	manager.SetNotifier(hub.BroadcastEvent)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", engine.SessionConfig{Map: "hub"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Persistence:
//
// Only finished rounds are stored. A session restored after a restart keeps
// its history and total score and starts a new round on its configured map.
// Every finished round triggers a save, including rounds that end on the
// timer.
//
// Cleanup:
//
// CleanupExpiredSessions unloads idle sessions and stops their timers. Their
// records stay on disk and are restored on the next Get.
package session
