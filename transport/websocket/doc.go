// Package websocket streams navigation telemetry to browser and tool
// clients.
//
// A central Hub owns every connection. Each client gets a read and a write
// goroutine; the hub goroutine alone touches the client set. The hub is a
// service.Observer: every engine event is broadcast together with the
// latest controller status.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"event": "engine_event", "status": {...}, "data": {...engine event...}}
//	{"event": "status", "status": {...}}
//
// A "status" message is sent to each client on connect. Incoming messages
// are read only to service pings and detect disconnects.
//
// Usage:
//
//	hub := websocket.NewHub(controller.Status)
//	go hub.Run(ctx)
//	controller.AddObserver(hub)
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
