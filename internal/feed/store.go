package feed

import (
	"context"
	"encoding/json"
)

// EventKind is the kind of change carried by a push event
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is one change pushed by the backend
type Event struct {
	Table  string
	Kind   EventKind
	Record json.RawMessage
}

// Query describes a bulk read
type Query struct {
	Filter     map[string]string // column = value
	OrderBy    string
	Descending bool
	Limit      int
	Before     string // key of the record to page behind, if any
}

// Subscription is a handle on an open push subscription
type Subscription interface {
	// Unsubscribe closes the subscription. Calling it again is a no-op.
	Unsubscribe() error
}

// Store is what a feed needs from the backend.
//
// Errors wrap ErrValidation, ErrTransport or ErrNotFound.
type Store interface {
	BulkRead(ctx context.Context, table string, q Query) ([]json.RawMessage, error)
	Write(ctx context.Context, table string, row any) (json.RawMessage, error)
	PointRead(ctx context.Context, table, key string) (json.RawMessage, error)
	// Subscribe delivers every event of the given kinds on table to fn,
	// from a transport goroutine, until the subscription is closed.
	Subscribe(ctx context.Context, table string, kinds []EventKind, fn func(Event)) (Subscription, error)
}
