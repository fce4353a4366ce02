// Package service is the match layer between the transports and the game
// engines.
//
// GameService owns the match lifecycle: a player creates a match from a
// preset, a second player joins it, and the two take turns until the engine
// reports the game over, a player resigns, or a player runs out of time on a
// timed preset. Only the seat on move is charged time, and Battleship fleet
// placement is untimed. A match can also be a private challenge addressed to
// one opponent, who accepts or declines it; nobody else may take the seat.
// The service never interprets game state itself. It looks up
// the engine for the match's game type, deserializes the stored state, and
// lets the engine validate and apply each move.
//
// Storage and presets are behind two small interfaces so the service can be
// tested with in-memory fakes:
//
//   - MatchManager stores matches and serializes updates per match
//   - PresetManager resolves preset ids to game type and time limit
//
// Usage:
//
//	matches := session.NewManager(session.WithLogger(logger))
//	presets, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc := service.NewGameService(matches, presets, service.WithLogger(logger))
//
//	info, err := svc.CreateMatch(ctx, "blitz_chess", "alice")
//	_, err = svc.JoinMatch(ctx, info.ID, "bob")
//	result, err := svc.MakeMove(ctx, info.ID, "alice", json.RawMessage(`{"from":"e2","to":"e4"}`))
//
// Views:
//
// MatchInfo is always built for one caller. Seated players receive the
// engine's view for their seat, which hides the opponent's fleet in
// Battleship, plus their valid moves when it is their turn. Callers without
// a seat receive no board at all for hidden-information games.
//
// Errors:
//
// Failures are reported with the sentinel errors declared in this package
// (ErrMatchNotFound, ErrInvalidMove, ErrNotAPlayer, ...), possibly wrapped,
// so callers should compare with errors.Is. A rejected move wraps
// ErrInvalidMove with the engine's reason text.
package service
