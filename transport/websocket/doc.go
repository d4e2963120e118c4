// Package websocket replays stored simulation runs over WebSocket.
//
// A client connects with the ID of a stored run (?run=<id>). The hub first
// writes one "day" message per day of the run, in order, followed by a
// "done" message carrying the run summary. The connection then stays
// subscribed to later events for that run, such as "deleted".
//
// Message Protocol:
//
//	{"run_id": "...", "event": "day", "day": 3, "snapshot": {...}}
//	{"run_id": "...", "event": "done", "day": 8, "summary": {...}}
//	{"run_id": "...", "event": "deleted"}
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.ServeRun(w, r, run.ID, websocket.ReplayMessages(run))
//
// Concurrency:
//
// The hub owns client registration through channels. Each connection gets a
// read goroutine and a write goroutine; a slow client whose buffer fills up
// is dropped.
package websocket
