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
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/journal"
	"github.com/wiemBe/RoboMap/nav/service"
	"github.com/wiemBe/RoboMap/nav/targets"
)

const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
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
		"RoboMap Navigation",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`RoboMap Navigation - MCP Interface

This is a thin client that proxies all requests to the navigation REST API.

The robot drives on an occupancy grid (# wall, . free, P active POI, A agent).
Rows grow downward: "forward" moves up one row, "backward" down one row.

TYPICAL FLOW:
1. list_pois to see the stations
2. dispatch_station to choose one
3. start_navigation, then poll nav_status until the mode returns to idle
4. navigation_history to review the trip

AVAILABLE TOOLS:
- nav_status, start_navigation, stop_navigation
- move_agent: manual one-cell move (forward/backward/left/right)
- plan_route: route preview without moving
- list_pois, describe_cell, show_grid
- navigation_history, dispatch_station`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func noArgs() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "nav_status",
		Description: "Get the navigation status: mode, target, agent cell, remaining route and last signal",
		InputSchema: noArgs(),
	}, c.handleStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_navigation",
		Description: "Acquire the dispatched station and start autonomous navigation toward it",
		InputSchema: noArgs(),
	}, c.handleStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_navigation",
		Description: "Halt autonomous navigation and stop the motors",
		InputSchema: noArgs(),
	}, c.handleStop)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_agent",
		Description: "Move the agent one cell by hand. While navigating, the route is replanned from the new cell.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"forward", "backward", "left", "right"},
					"description": "Direction to move",
				},
				"intent": stringProp("Brief explanation of why this move is needed"),
			},
			Required: []string{"direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "plan_route",
		Description: "Compute the shortest route without moving. Cells are written \"row,col\"; to may also be a POI id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"from": stringProp("Start cell \"row,col\" (defaults to the agent)"),
				"to":   stringProp("Goal cell \"row,col\" or POI id"),
			},
			Required: []string{"to"},
		},
	}, c.handlePlanRoute)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_pois",
		Description: "List the points of interest and their cells",
		InputSchema: noArgs(),
	}, c.handleListPOIs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get the state of one grid cell (free, wall, poi, agent) and the POI registered there",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"row": intProp("Row of the cell (0-based)"),
				"col": intProp("Column of the cell (0-based)"),
			},
			Required: []string{"row", "col"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "show_grid",
		Description: "Render the occupancy grid as text",
		InputSchema: noArgs(),
	}, c.handleShowGrid)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "navigation_history",
		Description: "Get journaled navigation events, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"page":  intProp("Page number"),
				"limit": intProp("Items per page"),
				"trip":  stringProp("Only events of this trip id"),
				"kind":  stringProp("Only events of this kind (signal, advance, replan, intent, agent_moved, reading_rejected)"),
			},
		},
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dispatch_station",
		Description: "Set the station the robot should drive to, or clear it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"station": stringProp("Station (POI) id"),
				"clear": map[string]interface{}{
					"type":        "boolean",
					"description": "Clear the dispatched station instead",
				},
			},
		},
	}, c.handleDispatch)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP handles a single JSON-RPC message posted to /mcp
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)
	if response == nil {
		// Notifications have no response
		w.WriteHeader(http.StatusAccepted)
		return
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseData)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
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

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads an integer argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// stringArg reads a string argument, accepting numbers for ids
func stringArg(args map[string]interface{}, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%d", int(v))
	}
	return ""
}

// Tool handlers

func (c *Client) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status service.Status
	if err := c.apiCall(ctx, "GET", "/api/status", nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(&status)), nil
}

type signalResponse struct {
	Signal engine.Signal  `json:"signal"`
	Status service.Status `json:"status"`
}

func (c *Client) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp signalResponse
	if err := c.apiCall(ctx, "POST", "/api/navigation/start", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSignal(resp)), nil
}

func (c *Client) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp signalResponse
	if err := c.apiCall(ctx, "POST", "/api/navigation/stop", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSignal(resp)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	direction := stringArg(args, "direction")
	if direction == "" {
		return mcp.NewToolResultError("direction is required"), nil
	}

	var resp struct {
		Intent engine.Intent  `json:"intent"`
		From   grid.Cell      `json:"from"`
		To     grid.Cell      `json:"to"`
		Status service.Status `json:"status"`
	}
	body := map[string]string{"direction": direction}
	if err := c.apiCall(ctx, "POST", "/api/agent/move", body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Moved %s: %s -> %s\n", resp.Intent, resp.From, resp.To)
	if resp.Status.Mode == engine.Autonomous {
		result += fmt.Sprintf("Route replanned, %d moves remaining\n", resp.Status.Remaining())
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePlanRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	if from := stringArg(args, "from"); from != "" {
		query.Set("from", from)
	}
	to := stringArg(args, "to")
	if to == "" {
		return mcp.NewToolResultError("to is required"), nil
	}
	query.Set("to", to)

	var resp struct {
		From    grid.Cell       `json:"from"`
		To      grid.Cell       `json:"to"`
		Steps   int             `json:"steps"`
		Path    []grid.Cell     `json:"path"`
		Intents []engine.Intent `json:"intents"`
	}
	if err := c.apiCall(ctx, "GET", "/api/route?"+query.Encode(), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Route %s -> %s: %d moves\n", resp.From, resp.To, resp.Steps)
	cells := make([]string, len(resp.Path))
	for i, cell := range resp.Path {
		cells[i] = cell.String()
	}
	fmt.Fprintf(&sb, "Path: %s\n", strings.Join(cells, " -> "))
	if len(resp.Intents) > 0 {
		fmt.Fprintf(&sb, "Moves: %s\n", compressIntents(resp.Intents))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListPOIs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count int        `json:"count"`
		POIs  []grid.POI `json:"pois"`
	}
	if err := c.apiCall(ctx, "GET", "/api/pois", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Points of interest (%d):\n", resp.Count)
	for _, poi := range resp.POIs {
		marker := ""
		if poi.Active {
			marker = " [active]"
		}
		result += fmt.Sprintf("- %s at %s%s\n", poi.ID, poi.Cell, marker)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	row, okR := intArg(args, "row")
	col, okC := intArg(args, "col")
	if !okR || !okC {
		return mcp.NewToolResultError("row and col are required integers"), nil
	}

	var info service.CellInfo
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/grid/cells/%d/%d", row, col), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Cell %s: %s\n", info.Cell, info.State)
	if info.POI != "" {
		result += fmt.Sprintf("POI: %s\n", info.POI)
	}
	if info.State == grid.Wall {
		result += "Impassable\n"
	} else {
		result += "Passable\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleShowGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var view service.GridView
	if err := c.apiCall(ctx, "GET", "/api/grid", nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Grid %dx%d at %.2f m/cell, agent at %s\n", view.Rows, view.Cols, view.Resolution, view.Agent)
	sb.WriteString("Legend: # wall, . free, P active POI, A agent\n\n")
	for _, line := range view.Lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprintf("%d", page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if trip := stringArg(args, "trip"); trip != "" {
		query.Set("trip", trip)
	}
	if kind := stringArg(args, "kind"); kind != "" {
		query.Set("kind", kind)
	}

	path := "/api/history"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page journal.Page
	if err := c.apiCall(ctx, "GET", path, nil, &page); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&page)), nil
}

func (c *Client) handleDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	clearBoard, _ := args["clear"].(bool)
	station := stringArg(args, "station")

	var avail targets.Availability
	var err error
	switch {
	case clearBoard:
		err = c.apiCall(ctx, "DELETE", "/api/dispatch", nil, &avail)
	case station != "":
		err = c.apiCall(ctx, "PUT", "/api/dispatch", targets.NewAvailability(station), &avail)
	default:
		err = c.apiCall(ctx, "GET", "/api/dispatch", nil, &avail)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if id, ok := avail.ID(); ok {
		return mcp.NewToolResultText(fmt.Sprintf("Dispatched station: %s\n", id)), nil
	}
	return mcp.NewToolResultText("No station dispatched\n"), nil
}

// Formatting helpers

func formatStatus(s *service.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mode: %s\n", s.Mode)
	if !s.Running {
		sb.WriteString("Control loop: stopped\n")
	}
	fmt.Fprintf(&sb, "Agent: %s (%.2f m, %.2f m)\n", s.Agent, s.Position.X(), s.Position.Y())
	if s.Target != "" {
		fmt.Fprintf(&sb, "Target: %s", s.Target)
		if s.TargetCell != nil {
			fmt.Fprintf(&sb, " at %s", *s.TargetCell)
		}
		sb.WriteByte('\n')
	}
	if s.Mode == engine.Autonomous {
		fmt.Fprintf(&sb, "Remaining moves: %d\n", s.Remaining())
	}
	if s.LastIntent != "" {
		fmt.Fprintf(&sb, "Last intent: %s\n", s.LastIntent)
	}
	if s.LastSignal != "" {
		fmt.Fprintf(&sb, "Last signal: %s\n", s.LastSignal)
	}
	if s.Trip != "" {
		fmt.Fprintf(&sb, "Trip: %s\n", s.Trip)
	}
	return sb.String()
}

func formatSignal(resp signalResponse) string {
	switch resp.Signal {
	case engine.SignalNone:
		return fmt.Sprintf("No change (mode %s)\n", resp.Status.Mode)
	case engine.SignalStarted:
		return fmt.Sprintf("Navigation started toward %s, %d moves\n", resp.Status.Target, resp.Status.Remaining())
	}
	return fmt.Sprintf("Signal: %s\n%s", resp.Signal, formatStatus(&resp.Status))
}

// compressIntents writes runs of equal intents as "right x3"
func compressIntents(intents []engine.Intent) string {
	var parts []string
	for i := 0; i < len(intents); {
		j := i
		for j < len(intents) && intents[j] == intents[i] {
			j++
		}
		if n := j - i; n > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", intents[i], n))
		} else {
			parts = append(parts, string(intents[i]))
		}
		i = j
	}
	return strings.Join(parts, ", ")
}

func formatHistory(page *journal.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "History page %d/%d (%d events)\n", page.Page, page.TotalPages, page.Total)
	for _, e := range page.Entries {
		fmt.Fprintf(&sb, "#%d %s %s", e.Seq, e.Time.Format("15:04:05.000"), e.Kind)
		if e.Signal != "" {
			fmt.Fprintf(&sb, " %s", e.Signal)
		}
		if e.Intent != "" {
			fmt.Fprintf(&sb, " %s", e.Intent)
		}
		fmt.Fprintf(&sb, " at (%d,%d)", e.Row, e.Col)
		if e.Message != "" {
			fmt.Fprintf(&sb, ": %s", e.Message)
		}
		sb.WriteByte('\n')
	}
	if page.HasNext {
		fmt.Fprintf(&sb, "More: page %d\n", page.Page+1)
	}
	return sb.String()
}
