// Package mcp exposes the match server to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// a running server, sent with the X-Player-ID header, and the JSON reply is
// rendered as text. Boards are drawn per game type from the player's view, so
// a Battleship agent only ever sees its own fleet and its own shots.
//
// Tools:
//   - list_game_types, list_presets, game_rules: catalog and move formats
//   - list_matches, create_match, join_match: match lifecycle
//   - challenge_player, list_challenges, accept_challenge, decline_challenge: private matches
//   - match_state, make_move, resign, move_history: play
//
// Every player-facing tool takes an optional player_id. Without it the id
// given to NewClient is used, which lets one stdio process act for one player.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", "agent-1")
//	server.ServeStdio(client.GetMCPServer())
package mcp
