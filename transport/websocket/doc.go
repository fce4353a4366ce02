// Package websocket pushes live match updates to browsers and bots.
//
// Clients connect to /ws?match=<id>&player=<id> and are subscribed to that
// match. The hub sends the current view right away and again after every
// NotifyMatch call for the match. Views are rendered per player through a
// MatchViewer (normally GameService.GetMatch), so a Battleship player only
// ever receives their own fleet and a client without a player id receives
// the spectator view.
//
// Message Protocol:
//
// Outgoing messages are JSON objects, one per frame:
//
//	{"match_id": "...", "event": "state_update", "match": {...}}
//	{"match_id": "...", "event": "resign", "data": {...}}
//	{"match_id": "...", "event": "error", "data": "match not found"}
//
// Incoming messages are read only to keep the connection alive.
//
// Architecture:
//
// A single Hub goroutine (Run) owns registration and delivery. Each client
// has a read pump and a write pump goroutine. Clients whose send buffer is
// full are dropped rather than blocking the hub.
package websocket
