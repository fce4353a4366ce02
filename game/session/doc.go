// Package session stores matches for the game service.
//
// Manager keeps every live match in memory and implements
// service.MatchManager. Each match has its own lock: Update hands the
// callback a private copy of the match while holding that lock, and the
// copy replaces the stored match only when the callback succeeds. Moves on
// one match are therefore applied one at a time, while different matches
// proceed in parallel.
//
// Persistence:
//
// A Manager can be given a MatchPersistence. Every successful Create and
// Update is written through to it, and matches missing from memory are
// loaded from it on demand. Two backends are provided:
//
//   - FilePersistence writes one indented JSON file per match
//   - RedisPersistence stores one key per match plus an index set
//
// Usage:
//
//	fp, err := session.NewFilePersistence("matches")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManager(session.WithPersistence(fp), session.WithLogger(logger))
//	if err := manager.LoadPersisted(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Cleanup:
//
// CleanupExpired drops idle matches from memory. Persisted copies stay on
// disk (or in Redis) and are reloaded the next time they are requested.
package session
