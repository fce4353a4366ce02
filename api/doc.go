// Package api exposes the match service over HTTP.
//
// Endpoints:
//
// Catalog:
//   - GET /api/game-types - Games the server can host
//   - GET /api/configs - Match presets (file presets plus one per game type)
//
// Matches:
//   - POST /api/matches - Create a match ({"preset_id": "blitz_chess"} or {"game_type": "chess"})
//   - GET /api/matches - List matches (?game_type=, ?status=, ?player_id=, ?limit=)
//   - GET /api/matches/{id} - Match as seen by the caller
//   - DELETE /api/matches/{id} - Delete a match (seated players only)
//   - POST /api/matches/{id}/join - Take the second seat
//
// Challenges:
//   - POST /api/challenges - Challenge one opponent ({"opponent_id": "bob", "preset_id": "blitz_chess"})
//   - GET /api/challenges - Open challenges addressed to the caller
//   - POST /api/matches/{id}/accept - Accept and take the second seat
//   - POST /api/matches/{id}/decline - Decline, abandoning the match
//
// Play:
//   - POST /api/matches/{id}/move - Submit {"move": {...}} in the game's move format
//   - POST /api/matches/{id}/resign - Concede the match
//   - GET /api/matches/{id}/history - Paginated move log (?page=, ?limit=, ?order=asc|desc)
//
// Other:
//   - GET /health - Liveness check
//   - GET /ws?match={id}&player={id} - WebSocket updates for one match
//
// Identity:
//
// The caller's player id is read from the X-Player-ID header. The server
// does not authenticate it. Requests without the header act as spectators.
//
// Errors:
//
// Failures are returned as {"error": "..."} with a status derived from the
// service error: 404 for unknown matches or presets, 403 for callers who
// are not seated or not challenged, 400 for rejected moves and bad challenges, 409 for lifecycle conflicts such
// as joining a full match.
package api
