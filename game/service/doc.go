// Package service provides the use-case layer for SkyGuessr.
//
// The service package implements:
//   - Session creation from an explicit configuration or stored preferences
//   - Round operations: place, submit, advance and state snapshots
//   - Paginated round history with running totals
//   - Catalog listing and refresh
//   - Home-screen preference storage
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SessionManager handles session creation, retrieval and lifecycle.
// CatalogManager serves the location and map catalogs.
// PreferenceStore keeps the last configuration chosen by the player.
//
// Architecture:
//
// The service layer sits between the transports (HTTP/WebSocket/MCP) and the
// round engine. Each session owns one engine.RoundEngine; the engine guards
// its own state, so the service only serialises session creation and
// deletion.
//
// Usage:
//
//	catalogs, _ := catalog.NewManager("public/content")
//	sessions := session.NewManager(catalogs)
//	svc := service.NewGameService(sessions, catalogs, session.NewPreferencesStore("sessions/prefs.json"))
//
//	info, err := svc.CreateSession(ctx, &engine.SessionConfig{Map: "hub", TimeLimit: 60})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc.PlaceGuess(ctx, info.ID, engine.Point{412, 377})
//	result, err := svc.SubmitGuess(ctx, info.ID, nil)
//	fmt.Println(result.Message)
//
//	next, err := svc.NextRound(ctx, info.ID)
package service
