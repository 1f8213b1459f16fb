package targets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var ErrUnknownStation = errors.New("unknown station")

// Board is an in-memory dispatch service. It serves the Availability
// payload over HTTP and can be used directly as an engine target provider.
type Board struct {
	mu      sync.RWMutex
	station string
	updated time.Time
	valid   func(id string) bool
	notify  []func(id string)
}

// NewBoard creates an empty board. valid, when non-nil, restricts which
// station ids can be dispatched.
func NewBoard(valid func(id string) bool) *Board {
	return &Board{valid: valid}
}

// Set dispatches id. An empty id clears the board.
func (b *Board) Set(id string) error {
	if id != "" && b.valid != nil && !b.valid(id) {
		return fmt.Errorf("%w: %q", ErrUnknownStation, id)
	}

	b.mu.Lock()
	b.station = id
	b.updated = time.Now()
	listeners := append([]func(string){}, b.notify...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(id)
	}
	return nil
}

// Clear removes the active station
func (b *Board) Clear() {
	_ = b.Set("")
}

// Get returns the active station
func (b *Board) Get() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.station, b.station != ""
}

// Updated returns when the board last changed
func (b *Board) Updated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}

// OnChange registers fn to be called after every Set
func (b *Board) OnChange(fn func(id string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify = append(b.notify, fn)
}

// ActiveTarget implements engine.TargetProvider
func (b *Board) ActiveTarget(ctx context.Context) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	return b.Get()
}

// ServeHTTP answers GET with the current payload, PUT/POST with a payload
// body to dispatch and DELETE to clear.
func (b *Board) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPost:
		var avail Availability
		if err := json.NewDecoder(r.Body).Decode(&avail); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			return
		}
		id, _ := avail.ID()
		if err := b.Set(id); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
	case http.MethodDelete:
		b.Clear()
	default:
		w.Header().Set("Allow", "GET, PUT, POST, DELETE")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	id, _ := b.Get()
	writeJSON(w, http.StatusOK, NewAvailability(id))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
