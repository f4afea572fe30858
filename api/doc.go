// Package api provides the HTTP REST API for hosted EV taxi episodes.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id": "classic"}, body optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session info with current snapshot
//   - DELETE /api/sessions/{id} - Delete a session
//
// Episodes:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/step - {"action": "left" | 3, "reset": false}
//   - POST /api/sessions/{id}/bulk-step - {"actions": ["down", 2], "reset": false}
//   - POST /api/sessions/{id}/reset - Start a new episode
//   - GET /api/sessions/{id}/render - Text frame (?styled=true for ANSI colour)
//
// Configuration:
//   - GET /api/configs - List configurations
//   - GET /api/configs/{name} - Load one configuration
//   - POST /api/configs - Save a configuration (?id= overrides the derived ID)
//
// Other:
//   - GET /api/health - Liveness check
//   - GET /ws?session={id} - WebSocket stream of snapshots for a session
//
// Errors are returned as {"error": "..."} with 404 for unknown sessions or
// configs, 400 for invalid actions or configurations and 409 when stepping a
// finished episode.
package api
