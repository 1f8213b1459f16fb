package journal

import (
	"context"
	"errors"
	"time"

	"github.com/wiemBe/RoboMap/nav/engine"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrClosed = errors.New("journal closed")

// Entry is one persisted event
type Entry struct {
	ID      int64     `json:"id"`
	TripID  string    `json:"trip_id,omitempty"`
	Seq     int       `json:"seq"`
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Signal  string    `json:"signal,omitempty"`
	Mode    string    `json:"mode"`
	Target  string    `json:"target,omitempty"`
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	Intent  string    `json:"intent,omitempty"`
	Message string    `json:"message,omitempty"`
}

// FromEvent converts an engine event
func FromEvent(ev engine.Event, tripID string) Entry {
	return Entry{
		TripID:  tripID,
		Seq:     ev.Seq,
		Time:    ev.Time,
		Kind:    string(ev.Kind),
		Signal:  string(ev.Signal),
		Mode:    string(ev.Mode),
		Target:  ev.Target,
		Row:     ev.Agent.Row,
		Col:     ev.Agent.Col,
		Intent:  string(ev.Intent),
		Message: ev.Message,
	}
}

// Query selects a page of entries
type Query struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Order  string `json:"order"` // "asc" or "desc"
	TripID string `json:"trip_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Normalize applies defaults: page 1, DefaultLimit, newest first
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Order != "asc" {
		q.Order = "desc"
	}
	return q
}

// Page is a paginated list of entries
type Page struct {
	Entries     []Entry `json:"entries"`
	Total       int     `json:"total"`
	Page        int     `json:"page"`
	PageSize    int     `json:"page_size"`
	TotalPages  int     `json:"total_pages"`
	HasNext     bool    `json:"has_next"`
	HasPrevious bool    `json:"has_previous"`
}

func newPage(entries []Entry, total int, q Query) Page {
	totalPages := (total + q.Limit - 1) / q.Limit
	if entries == nil {
		entries = []Entry{}
	}
	return Page{
		Entries:     entries,
		Total:       total,
		Page:        q.Page,
		PageSize:    q.Limit,
		TotalPages:  totalPages,
		HasNext:     q.Page < totalPages,
		HasPrevious: q.Page > 1,
	}
}

// Store persists entries
type Store interface {
	// Record appends an entry
	Record(ctx context.Context, e Entry) error

	// List returns one page of entries matching q
	List(ctx context.Context, q Query) (Page, error)

	// Close releases the store
	Close() error
}
