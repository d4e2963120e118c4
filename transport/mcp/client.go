package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Cloud Cover Simulator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Cloud Cover Simulator - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A rectangular terrain holds airports and clouds. Every day each cloud spreads
to its up/right/down/left neighbours. A run ends on the day the last airport
is covered.

AVAILABLE TOOLS:
- run_simulation: Run and store a simulation (explicit params or a preset)
- list_runs: List stored runs
- get_run: Summary of a stored run
- describe_day: ASCII picture of one day of a stored run
- list_presets: List parameter presets
- simulation_rules: Full description of the rules`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	intProp := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "integer",
			"description": desc,
		}
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_simulation",
		Description: "Run a cloud cover simulation and store it. Give either a preset or all of airports, clouds, height and width.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"airports": intProp("Number of airports (at least 3)"),
				"clouds":   intProp("Number of cloud placements (at least 4)"),
				"height":   intProp("Terrain height (at least 10)"),
				"width":    intProp("Terrain width (at least 10)"),
				"seed": map[string]interface{}{
					"type":        "string",
					"description": "Random seed for a reproducible run, as decimal digits (optional)",
				},
				"preset": map[string]interface{}{
					"type":        "string",
					"description": "Preset name to use instead of explicit parameters (optional)",
				},
			},
		},
	}, c.handleRunSimulation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List stored simulation runs, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": intProp("Maximum number of runs to return (optional)"),
			},
		},
	}, c.handleListRuns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_run",
		Description: "Get the summary of a stored run",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleGetRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_day",
		Description: "Show the terrain of one day of a stored run before and after spreading",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
				"day": intProp("Day number, starting at 1"),
			},
			Required: []string{"run_id", "day"},
		},
	}, c.handleDescribeDay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List available parameter presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_rules",
		Description: "Explain the simulation rules, limits and rendering legend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSimulationRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
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
		if msg, ok := errResp["message"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool arguments as a map
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a numeric argument; JSON numbers arrive as float64
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

// maxExactSeed is the largest integer a JSON number decoded as float64 holds
// exactly
const maxExactSeed = 1 << 53

// seedArg reads a seed given as decimal digits, or as a JSON number small
// enough to have survived float64 decoding
func seedArg(v interface{}) (uint64, error) {
	switch v := v.(type) {
	case string:
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("seed must be a non-negative integer, got %q", v)
		}
		return seed, nil
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, fmt.Errorf("seed must be a non-negative integer, got %v", v)
		}
		if v > maxExactSeed {
			return 0, fmt.Errorf("seed %v is too large for a JSON number, pass it as a string", v)
		}
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("seed must be a non-negative integer, got %d", v)
		}
		return uint64(v), nil
	}
	return 0, fmt.Errorf("seed must be a string of digits, got %T", v)
}

// Tool handlers

func (c *Client) handleRunSimulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if preset, _ := args["preset"].(string); preset != "" {
		body["preset"] = preset
	} else {
		for _, key := range []string{"airports", "clouds", "height", "width"} {
			if v, ok := intArg(args, key); ok {
				body[key] = v
			}
		}
	}
	if _, present := args["seed"]; present {
		seed, err := seedArg(args["seed"])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		body["seed"] = seed
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "POST", "/api/simulations", body, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunInfo(&run)), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	path := "/api/simulations"
	if limit, ok := intArg(args, "limit"); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Count int                `json:"count"`
		Runs  []*service.RunInfo `json:"runs"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stored Runs (%d):\n\n", response.Count)
	for _, run := range response.Runs {
		fmt.Fprintf(&b, "- %s (%dx%d, %d airports, %d clouds, %d days, created %s)\n",
			run.ID, run.Params.Height, run.Params.Width, run.Params.Airports, run.Params.Clouds,
			run.Summary.Days, run.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, _ := arguments(request)["run_id"].(string)
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "GET", "/api/simulations/"+url.PathEscape(runID), nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunInfo(&run)), nil
}

func (c *Client) handleDescribeDay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	runID, _ := args["run_id"].(string)
	day, ok := intArg(args, "day")
	if runID == "" || !ok {
		return mcp.NewToolResultError("run_id and day are required"), nil
	}

	var view service.DayView
	path := fmt.Sprintf("/api/simulations/%s/days/%d", url.PathEscape(runID), day)
	if err := c.apiCall(ctx, "GET", path, nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDayView(&view)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                   `json:"count"`
		Presets []*service.PresetInfo `json:"presets"`
	}
	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Presets (%d):\n\n", response.Count)
	for _, p := range response.Presets {
		marker := ""
		if p.Default {
			marker = " [default]"
		}
		fmt.Fprintf(&b, "- %s: %s (%dx%d, %d airports, %d clouds)%s\n",
			p.PresetID, p.Name, p.Height, p.Width, p.Airports, p.Clouds, marker)
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s\n", p.Description)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSimulationRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := fmt.Sprintf(`Cloud Cover Simulator - Rules

TERRAIN:
A height x width grid stored row by row. Every cell is empty, an airport or
a cloud.

PLACEMENT:
Airports are placed first on distinct random cells. Clouds are placed next on
random cells that are empty or already cloudy, so placements may stack and
fewer cloud cells than requested can appear.

SPREADING:
Each day, every cloud that existed at the start of the day covers its
neighbours in the order up, right, down, left. Clouds created today start
spreading tomorrow. Neighbours are computed on the row-by-row index, so
left of a row's first cell is the previous row's last cell.

ARRIVALS:
The first-airport day is the first day any airport is covered. The
all-airports day is the day the last airport is covered. The run stops at the
end of that day.

LIMITS:
airports >= %d, clouds >= %d, height >= %d, width >= %d

LEGEND (describe_day):
  %c empty
  %c airport
  %c cloud
  %c cloud that appeared today`,
		engine.MinAirports, engine.MinClouds, engine.MinHeight, engine.MinWidth,
		engine.CellChar(engine.Cell{Kind: engine.Empty}),
		engine.CellChar(engine.Cell{Kind: engine.Airport}),
		engine.CellChar(engine.Cell{Kind: engine.Cloud}),
		engine.CellChar(engine.Cell{Kind: engine.Cloud, NewCloud: true}),
	)

	return mcp.NewToolResultText(rules), nil
}

// Formatting helpers

func formatRunInfo(run *service.RunInfo) string {
	var b strings.Builder
	if run.ID != "" {
		fmt.Fprintf(&b, "Run: %s\n", run.ID)
	}
	fmt.Fprintf(&b, "Terrain: %dx%d\n", run.Params.Height, run.Params.Width)
	fmt.Fprintf(&b, "Airports: %d, Clouds: %d\n", run.Params.Airports, run.Params.Clouds)
	fmt.Fprintf(&b, "Seed: %d\n", run.Summary.Seed)
	fmt.Fprintf(&b, "Days: %d\n", run.Summary.Days)
	fmt.Fprintf(&b, "First airport covered: %s\n", formatDay(run.Summary.FirstAirportDay))
	fmt.Fprintf(&b, "All airports covered: %s\n", formatDay(run.Summary.AllAirportsDay))
	fmt.Fprintf(&b, "Cloud cells: %d at start, %d at end\n", run.Summary.CloudCellsStart, run.Summary.CloudCellsFinal)
	return b.String()
}

func formatDay(day *int) string {
	if day == nil {
		return "never"
	}
	return fmt.Sprintf("day %d", *day)
}

func formatDayView(view *service.DayView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s, day %d of %d\n\n", view.RunID, view.Day, view.Days)

	b.WriteString("Start of day:\n")
	for _, row := range view.Initial {
		b.WriteString(row)
		b.WriteByte('\n')
	}

	b.WriteString("\nEnd of day:\n")
	for _, row := range view.Final {
		b.WriteString(row)
		b.WriteByte('\n')
	}

	return b.String()
}
