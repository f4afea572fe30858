// Package mcp exposes hosted episodes to LLM agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so agents, HTTP clients and WebSocket observers all see the same
// sessions.
//
// Tools:
//   - create_session: Start an episode, optionally with a config_id
//   - list_sessions / get_session: Inspect hosted sessions
//   - episode_state: Positions, battery, reward, distance and battery risk
//   - step: One action ("down", "up", "right", "left" or "0".."3")
//   - bulk_step: Up to 50 actions, stops when the episode ends
//   - reset_episode: New random layout
//   - render: Text frame of the grid
//   - list_configs: Available configurations
//   - instructions: Rules and reward table
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
