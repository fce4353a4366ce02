// Package engine provides the rule engines for the turn-based board games
// served by the platform.
//
// The engine package implements:
//   - Connect Four: gravity drop on a 6x7 grid, four in a row wins
//   - Checkers: diagonal movement, forced capture, multi-jump continuation
//     and king promotion on an 8x8 board
//   - Battleship: a private setup phase followed by alternating attacks on
//     two 10x10 boards
//   - Chess: per-piece move generation with check detection and promotion
//
// Core Types:
//
// The Engine interface is the contract shared by all games. Engines hold no
// per-match data: a State is created once with CreateInitialState and then
// threaded through ApplyMove calls, each returning a fresh State and leaving
// its input untouched. Callers keep history by retaining prior states and
// must serialize access per match themselves.
//
// ValidateMove returns a human readable reason for rejected moves. Invalid
// moves are ordinary data, never errors. Passing a state or move that
// belongs to another game, or applying a move that was not validated, is a
// programming error and panics.
//
// Engines whose state contains hidden information implement Viewer. Use
// ViewFor, not the raw state, when relaying a match to one of its players.
//
// Usage:
//
//	eng, err := engine.New(engine.ConnectFour)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	state := eng.CreateInitialState()
//	move, _ := eng.DecodeMove([]byte(`{"column": 3}`))
//	if ok, reason := eng.ValidateMove(state, engine.Player1, move); !ok {
//		log.Printf("rejected: %s", reason)
//	}
//	state = eng.ApplyMove(state, engine.Player1, move)
//
// Chess deliberately stops short of the full rules: castling and en passant
// are carried in the state but never generated, and there is no repetition
// or fifty-move draw. A position with no legal moves and no check is game
// over without a winner.
package engine
