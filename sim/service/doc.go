// Package service provides the business logic layer for the cloud cover
// simulation server.
//
// The service package implements:
//   - Input validation with a fixed vocabulary of error messages
//   - Seeded simulation runs, one private random source per run
//   - Retention of completed runs for later inspection and replay
//   - Preset lookup and storage
//
// Core Interfaces:
//
// SimulationService is the main service interface used by the transport
// layer. RunStore keeps completed runs in memory and ConfigManager loads named
// presets of simulation parameters.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP)
// and the simulation engine. Requests are validated here before the engine is
// touched, so a rejected request never allocates a grid.
//
// Usage:
//
//	runs := runs.NewManager(runs.DefaultMaxRuns)
//	presets, _ := config.NewManager("configs")
//	svc := service.NewSimulationService(runs, presets)
//
//	params, err := service.ParseQuery(r.URL.Query())
//	if err != nil {
//		// respond 400 with err.Error()
//	}
//	run, err := svc.Simulate(ctx, service.SimulationRequest{Params: params})
package service
