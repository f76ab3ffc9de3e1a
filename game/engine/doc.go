// Package engine provides the core game logic for SkyGuessr.
//
// The engine package implements the game mechanics including:
//   - Distance-to-score transformation on a map's local coordinate space
//   - Random location selection with short-term map repetition avoidance
//   - The round lifecycle: view, guess, reveal, advance
//   - Time-limited rounds driven by a cancellable one-second timer
//   - Session configuration parsing with documented defaults
//
// Core Types:
//
// The Engine interface defines the round lifecycle contract, implemented by
// RoundEngine. Catalog holds the read-only location and map documents,
// Selector picks locations from it, and Score converts a guess into points.
//
// Usage:
//
//	catalog := engine.NewCatalog(locations, maps)
//	cfg := engine.ParseSessionConfig(r.URL.Query())
//
//	round, err := engine.NewEngine(catalog, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer round.Close()
//
//	round.PlaceGuess(engine.Point{412, 380})
//	state, err := round.SubmitGuess(nil)
//	next, err := round.Advance()
//
// Scoring:
//
// A guess within 25 units of the answer scores 5000. Beyond that the score
// falls off over half the mean extent of the map with an exponent of 1.5, so
// medium misses lose the most points.
package engine
