package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/service"
)

func testStatus() service.Status {
	return service.Status{
		Snapshot: engine.Snapshot{
			Mode:   engine.Autonomous,
			Target: "3",
			Agent:  grid.Cell{Row: 5, Col: 5},
		},
		Running: true,
		Ticks:   42,
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if cap(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected broadcast buffer %d, got %d", broadcastBuffer, cap(hub.broadcast))
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(testStatus)

	client := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.registerClient(client)

	if !hub.clients[client] {
		t.Error("Client was not registered")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount())
	}

	// New clients are greeted with the current status
	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != EventStatus {
			t.Errorf("Expected event %q, got %q", EventStatus, message.Event)
		}
		if message.Status == nil || message.Status.Ticks != 42 {
			t.Errorf("Status not transmitted: %+v", message.Status)
		}
	default:
		t.Error("No greeting sent to new client")
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)

	client1 := &Client{hub: hub, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.unregisterClient(client1)

	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client remaining, got %d", hub.ClientCount())
	}
	if !hub.clients[client2] {
		t.Error("client2 should still be registered")
	}
	if _, ok := <-client1.send; ok {
		t.Error("Unregistered client's send channel should be closed")
	}

	// Unregistering twice is harmless
	hub.unregisterClient(client1)
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub(testStatus)
	client := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.clients[client] = true

	ev := engine.Event{Seq: 7, Kind: engine.EventSignal, Signal: engine.SignalTargetReached, Mode: engine.Idle}
	hub.Observe(ev)
	hub.broadcastMessage(<-hub.broadcast)

	select {
	case data := <-client.send:
		var message struct {
			Event  string          `json:"event"`
			Status *service.Status `json:"status"`
			Data   engine.Event    `json:"data"`
		}
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != EventEngine {
			t.Errorf("Expected event %q, got %q", EventEngine, message.Event)
		}
		if message.Data.Seq != 7 || message.Data.Signal != engine.SignalTargetReached {
			t.Errorf("Event not transmitted: %+v", message.Data)
		}
		if message.Status.Agent != (grid.Cell{Row: 5, Col: 5}) {
			t.Errorf("Status agent not transmitted: %+v", message.Status.Agent)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}
}

func TestHubSlowClientIsDropped(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, send: make(chan []byte)}
	hub.clients[client] = true
	hub.count.Store(1)

	hub.broadcastMessage(&Message{Event: EventStatus})

	if hub.ClientCount() != 0 {
		t.Errorf("Expected blocked client to be unregistered, got %d clients", hub.ClientCount())
	}
}

func TestHubObserveNeverBlocks(t *testing.T) {
	hub := NewHub(nil)

	// Nothing drains the queue
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.Observe(engine.Event{Seq: i})
	}

	if hub.Dropped() != 10 {
		t.Errorf("Expected 10 dropped messages, got %d", hub.Dropped())
	}
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := NewHub(testStatus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var greeting Message
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatalf("Failed to read greeting: %v", err)
	}
	if greeting.Event != EventStatus {
		t.Errorf("Expected greeting event %q, got %q", EventStatus, greeting.Event)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount())
	}

	hub.BroadcastEvent("dispatch", map[string]string{"station": "2"})

	var message Message
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}
	if message.Event != "dispatch" {
		t.Errorf("Expected event 'dispatch', got %q", message.Event)
	}
	data, ok := message.Data.(map[string]interface{})
	if !ok || data["station"] != "2" {
		t.Errorf("Data not transmitted: %v", message.Data)
	}

	conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Error("Client should have been unregistered after close")
	}
}
