// Package mcp exposes the cloud cover simulator to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API, so the MCP server and the HTTP server always agree.
//
// MCP Tools:
//   - run_simulation: Run and store a simulation from params or a preset
//   - list_runs: List stored runs
//   - get_run: Summary of one stored run
//   - describe_day: ASCII rendering of one day of a run
//   - list_presets: List parameter presets
//   - simulation_rules: Rules, limits and legend
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp, handled with GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
