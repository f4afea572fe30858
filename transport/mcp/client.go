package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
	"github.com/wricardo/mcp-training/evtaxi/game/render"
	"github.com/wricardo/mcp-training/evtaxi/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"EV Taxi Grid World",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`EV Taxi Grid World - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Drive the electric taxi (C) to the waiting passenger (P), then to the destination (D).
Every step drains the battery; charging stations (E) refill it once each.

AVAILABLE TOOLS:
- create_session: Start a new episode (optionally with a config)
- list_sessions / get_session: Inspect hosted sessions
- episode_state: Current positions, battery, reward and risk
- step: One action (down/up/right/left or 0-3)
- bulk_step: Up to 50 actions, stops when the episode ends
- reset_episode: New random layout
- render: ASCII frame of the grid
- list_configs: Available configurations
- instructions: Full rules and reward table

The 'intent' parameter on step/bulk_step is for explaining your plan; it is not sent to the server.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new episode session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all hosted sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Episode operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "episode_state",
		Description: "Get the current episode state: positions, battery, reward, distance and battery risk",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleEpisodeState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Drive one cell. down=+y, up=-y, right=+x, left=-x. Moves off the grid are clamped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"down", "up", "right", "left", "0", "1", "2", "3"},
					"description": "Action name or index",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of why you are taking this action",
				},
				"reset": map[string]any{
					"type":        "boolean",
					"description": "Reset the episode before stepping",
				},
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_step",
		Description: fmt.Sprintf("Execute up to %d actions in sequence; stops early when the episode ends", engine.MaxBulkSteps),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"actions": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": []string{"down", "up", "right", "left", "0", "1", "2", "3"},
					},
					"description": "Actions to execute in order",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the plan behind this sequence",
				},
				"reset": map[string]any{
					"type":        "boolean",
					"description": "Reset the episode before stepping",
				},
			},
			Required: []string{"session_id", "actions"},
		},
	}, c.handleBulkStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_episode",
		Description: "Start a new episode with a fresh random layout",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "render",
		Description: "Render the grid as text: C car, P passenger, D destination, X obstacle, E charging station",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleRender)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available episode configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "instructions",
		Description: "Get the complete rules, reward table and driving tips",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}

	if text, ok := result.(*string); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		*text = string(data)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// actionArg accepts "left", "3" or a JSON number
func actionArg(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case float64:
		return fmt.Sprintf("%d", int(a))
	case int:
		return fmt.Sprintf("%d", a)
	default:
		return ""
	}
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.State != nil {
		result += "\n" + formatSnapshot(session.State)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "unknown"
		if s.State != nil {
			status = string(s.State.Status)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Status: %s, Created: %s)\n",
			s.ID, s.ConfigName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleEpisodeState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&state)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	reset, _ := args["reset"].(bool)

	body := map[string]any{
		"action": actionArg(args["action"]),
		"reset":  reset,
	}

	var result service.StepResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleBulkStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	reset, _ := args["reset"].(bool)
	raw, _ := args["actions"].([]any)

	actions := make([]string, 0, len(raw))
	for _, a := range raw {
		if s := actionArg(a); s != "" {
			actions = append(actions, s)
		}
	}

	body := map[string]any{
		"actions": actions,
		"reset":   reset,
	}

	var result service.BulkStepResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkStepResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.State))), nil
}

func (c *Client) handleRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var frame string
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/render"), nil, &frame); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(frame), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (id: %s)\n  %s\n  Grid: %dx%d, Battery: %g, Obstacles: %d, Stations: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.GridSize, config.GridSize,
			config.MaxBattery, config.ObstacleCount, config.ChargerCount)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `EV Taxi Grid World - Complete Instructions

OBJECTIVE:
Pick up the waiting passenger (P) and drop them off at the destination (D)
before the battery runs out.

GRID LEGEND:
• C = your car
• P = passenger waiting for pickup (disappears once picked up)
• D = destination
• X = obstacle (driving onto it costs reward, it does not block you)
• E = charging station (single use, refills the battery to full)
• . = empty road

COORDINATES AND ACTIONS:
• x grows to the right, y grows downward; (0,0) is the top-left cell
• down (0) = y+1, up (1) = y-1, right (2) = x+1, left (3) = x-1
• Moves off the edge are clamped: you stay in place but still pay for the step

BATTERY:
• Every step costs battery_decrement (0.1 on the classic config)
• Reaching 0 ends the episode
• Stations refill to max_battery and are then removed

REWARDS (classic config):
• Obstacle: -1
• Charging: +5
• Pickup: +10
• Dropoff: +20 (ends the episode)
• Any other step: 0
Only the first matching rule pays on each step, in the order above.

TIPS:
• Use episode_state to read exact positions and the battery risk
• Plan with Manhattan distance: each step moves one cell
• Detour to a station only when battery_risk says you will not make it
• Prefer bulk_step for straight runs; it stops as soon as the episode ends

Good luck, driver!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast Access: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.State != nil {
		result += "\n" + formatSnapshot(session.State)
	}
	return result
}

func formatSnapshot(state *engine.Snapshot) string {
	if state == nil {
		return "State: unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", state.Status)
	fmt.Fprintf(&b, "Car: (%d,%d)\n", state.CarPos.X, state.CarPos.Y)
	if state.PassengerPicked {
		b.WriteString("Passenger: in car\n")
	} else {
		fmt.Fprintf(&b, "Passenger: waiting at (%d,%d)\n", state.PassengerPos.X, state.PassengerPos.Y)
	}
	fmt.Fprintf(&b, "Destination: (%d,%d)\n", state.DestinationPos.X, state.DestinationPos.Y)
	fmt.Fprintf(&b, "Battery: %.2f/%.2f\n", state.Battery, state.MaxBattery)
	fmt.Fprintf(&b, "Stations left: %s\n", formatPositions(state.Chargers))
	fmt.Fprintf(&b, "Obstacles: %s\n", formatPositions(state.Obstacles))
	fmt.Fprintf(&b, "Steps: %d | Reward: %.2f | Distance to goal: %.2f\n",
		state.StepsTaken, state.TotalReward, state.DistanceToGoal)
	if state.BatteryRisk != "" {
		fmt.Fprintf(&b, "Battery risk: %s\n", state.BatteryRisk)
	}

	if state.GridSize > 0 {
		b.WriteString("\n")
		b.WriteString(render.FrameString(*state, false))
	}

	return b.String()
}

func formatPositions(ps []engine.Position) string {
	if len(ps) == 0 {
		return "none"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

func formatStepResult(result *service.StepResult) string {
	var b strings.Builder

	if st := result.Step; st != nil {
		fmt.Fprintf(&b, "%s (%d,%d)->(%d,%d) outcome=%s reward=%.2f battery %.2f->%.2f\n",
			st.Action, st.From.X, st.From.Y, st.To.X, st.To.Y, st.Outcome, st.Reward, st.BatteryBefore, st.BatteryAfter)
	} else {
		fmt.Fprintf(&b, "%s outcome=%s reward=%.2f\n", result.Action, result.Outcome, result.Reward)
	}

	for _, ev := range result.Events {
		if ev.Type != service.EventStep {
			fmt.Fprintf(&b, "• %s\n", ev.Message)
		}
	}

	if result.Done {
		b.WriteString("EPISODE FINISHED - use reset_episode or step with reset=true\n")
	}

	if len(result.LocalView3x3) > 0 {
		b.WriteString("\nLocal view:\n")
		b.WriteString(strings.Join(result.LocalView3x3, "\n"))
		b.WriteString("\n")
	}

	if result.State != nil {
		b.WriteString("\n")
		b.WriteString(formatSnapshot(result.State))
	}

	return b.String()
}

func formatBulkStepResult(sessionID string, result *service.BulkStepResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session %s: executed %d/%d actions", sessionID, result.StepsExecuted, result.RequestedSteps)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "(%d,%d)->(%d,%d) battery %.2f->%.2f reward %+.2f\n",
		result.StartPos.X, result.StartPos.Y, result.EndPos.X, result.EndPos.Y,
		result.StartBattery, result.EndBattery, result.RewardDelta)

	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "Stopped on action %d: %s (%s)\n", result.StoppedOnStep, result.StoppedReason, result.StopReasonCode)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, st := range result.Steps {
			fmt.Fprintf(&b, "%d. %s (%d,%d)->(%d,%d) %s %.2f\n",
				st.Idx, st.Action, st.From.X, st.From.Y, st.To.X, st.To.Y, st.Outcome, st.Reward)
		}
	}

	if result.BatteryRisk != "" {
		fmt.Fprintf(&b, "\nBattery risk: %s\n", result.BatteryRisk)
	}

	if len(result.LocalView3x3) > 0 {
		b.WriteString("\nLocal view:\n")
		b.WriteString(strings.Join(result.LocalView3x3, "\n"))
		b.WriteString("\n")
	}

	if result.State != nil {
		b.WriteString("\n")
		b.WriteString(formatSnapshot(result.State))
	}

	return b.String()
}
