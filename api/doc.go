// Package api provides the HTTP REST API for the cloud cover simulator.
//
// Endpoints:
//
// Simulation:
//   - GET /api/simulation?airports=&clouds=&height=&width= - Run one simulation
//     and return its full result (also served at GET /api and GET /api/)
//
// Stored runs:
//   - POST /api/simulations - Run and store a simulation
//   - GET /api/simulations - List stored runs, newest first (limit, order)
//   - GET /api/simulations/{id} - Get a stored run
//   - GET /api/simulations/{id}/days/{day} - Get one day with an ASCII rendering
//   - DELETE /api/simulations/{id} - Delete a stored run
//
// Presets:
//   - GET /api/presets - List presets
//   - GET /api/presets/{name} - Get one preset
//   - POST /api/presets - Save a preset
//
// Other:
//   - GET /ws?run={id} - Replay a stored run day by day over WebSocket
//   - GET /health - Liveness check
//
// Request/Response Format:
//
// POST /api/simulations accepts either explicit parameters or a preset:
//
//	{"airports": 3, "clouds": 4, "height": 10, "width": 10, "seed": 42}
//	{"preset": "classic"}
//
// The one-shot result looks like:
//
//	{
//	  "history": [{"day": 1, "grid": {"initial": [...], "final": [...]}}],
//	  "arrivedFirstAirport": {"didArrive": true, "day": 1},
//	  "arrivedAllTheAirports": {"didArrive": true, "day": 5},
//	  "terrain": {"height": 10, "width": 10}
//	}
//
// Error Handling:
//
// Errors are returned as JSON:
//
//	{"status": "Error", "message": "Provide a valid width"}
//
// Validation failures are 400, unknown runs, presets or days are 404, and
// parameters that cannot produce a simulation (more airports than cells) are
// 422.
package api
