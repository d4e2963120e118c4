package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

func testRun(t *testing.T) *service.RunInfo {
	t.Helper()
	params := engine.Params{Airports: 3, Clouds: 4, Height: 10, Width: 10}
	result, err := engine.Simulate(params, engine.NewSource(11))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	return &service.RunInfo{
		ID:     "run-1",
		Params: params,
		Result: result,
		Summary: service.Summary{
			Days:           result.Days(),
			AllAirportsDay: result.AllAirports.Day,
			Seed:           11,
		},
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.runs == nil {
		t.Error("Hub runs map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels are not initialized")
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := &Client{
		hub:   hub,
		runID: "run-1",
		send:  make(chan []byte, 4),
	}

	hub.registerClient(client)
	if got := hub.ClientCount("run-1"); got != 1 {
		t.Fatalf("Expected 1 client, got %d", got)
	}

	hub.unregisterClient(client)
	if got := hub.ClientCount("run-1"); got != 0 {
		t.Errorf("Expected 0 clients, got %d", got)
	}
	if _, exists := hub.runs["run-1"]; exists {
		t.Error("Empty run entry should be removed")
	}

	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, runID: "run-1", send: make(chan []byte)}
	other := &Client{hub: hub, runID: "run-2", send: make(chan []byte, 1)}

	hub.registerClient(slow)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{RunID: "run-1", Event: EventDeleted})

	if got := hub.ClientCount("run-1"); got != 0 {
		t.Errorf("Slow client should be dropped, got %d clients", got)
	}
	if got := hub.ClientCount("run-2"); got != 1 {
		t.Errorf("Other run should be untouched, got %d clients", got)
	}
	if len(other.send) != 0 {
		t.Error("Other run should not receive the message")
	}
}

func TestReplayMessages(t *testing.T) {
	run := testRun(t)
	messages := ReplayMessages(run)

	days := run.Result.Days()
	if len(messages) != days+1 {
		t.Fatalf("Expected %d messages, got %d", days+1, len(messages))
	}

	for i, msg := range messages[:days] {
		if msg.Event != EventDay {
			t.Errorf("message %d: expected day event, got %s", i, msg.Event)
		}
		if msg.Day != i+1 || msg.Snapshot == nil || msg.Snapshot.Day != i+1 {
			t.Errorf("message %d: wrong day", i)
		}
	}

	done := messages[days]
	if done.Event != EventDone || done.Summary == nil || done.Summary.Days != days {
		t.Errorf("Unexpected done message: %+v", done)
	}

	if ReplayMessages(nil) != nil {
		t.Error("Expected nil replay for nil run")
	}
}

func TestServeRunStreamsReplay(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	run := testRun(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeRun(w, r, run.ID, ReplayMessages(run))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readMessage := func() Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return msg
	}

	days := run.Result.Days()
	for day := 1; day <= days; day++ {
		msg := readMessage()
		if msg.Event != EventDay || msg.Day != day {
			t.Fatalf("Expected day %d, got %s %d", day, msg.Event, msg.Day)
		}
		if msg.RunID != run.ID {
			t.Errorf("Expected run id %s, got %s", run.ID, msg.RunID)
		}
		if len(msg.Snapshot.Grid.Final) != 100 {
			t.Errorf("Expected 100 cells, got %d", len(msg.Snapshot.Grid.Final))
		}
	}

	done := readMessage()
	if done.Event != EventDone || done.Summary == nil || done.Summary.Seed != 11 {
		t.Fatalf("Unexpected done message: %+v", done)
	}

	// Wait for registration before broadcasting
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount(run.ID) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastEvent(run.ID, EventDeleted, nil)
	if msg := readMessage(); msg.Event != EventDeleted {
		t.Errorf("Expected deleted event, got %s", msg.Event)
	}
}
