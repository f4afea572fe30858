// Package websocket streams episode snapshots to observers over WebSocket.
//
// A single Hub goroutine owns the client registry. Clients connect with a
// session ID (the api package serves /ws?session=abc1), receive the current
// snapshot once, and then one JSON Message per state change:
//
//	{"session_id": "abc1", "event": "state_update", "state": {...snapshot...}}
//
// Observers are read-only; anything they send is discarded. A client whose
// send buffer fills up is dropped.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.ServeWS(w, r, sessionID, &snapshot)
//	hub.BroadcastToSession(sessionID, &snapshot)
package websocket
