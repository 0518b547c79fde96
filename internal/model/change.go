package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Tables exposed on the realtime change feed
const (
	TableMessages = "messages"
	TableAlerts   = "emergency_alerts"
	TableProfiles = "profiles"
)

// ChangeKind is the kind of row change carried by a ChangeEvent
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ChangeEvent describes one stored row change. Record is the row as
// stored, without joined relations.
type ChangeEvent struct {
	Table  string      `json:"table"`
	Event  ChangeKind  `json:"event"`
	Record interface{} `json:"record"`
}

// Audience restricts who receives a change. An empty UserIDs list means
// every connected user.
type Audience struct {
	UserIDs []uuid.UUID `json:"user_ids,omitempty"`
	Exclude uuid.UUID   `json:"exclude,omitempty"`
}

// Allows reports whether userID is part of the audience
func (a Audience) Allows(userID uuid.UUID) bool {
	if a.Exclude != uuid.Nil && a.Exclude == userID {
		return false
	}
	if len(a.UserIDs) == 0 {
		return true
	}
	for _, id := range a.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ========== WebSocket Event DTOs ==========

// ChangePayload is the payload of a change frame
type ChangePayload struct {
	Table  string          `json:"table"`
	Event  ChangeKind      `json:"event"`
	Record json.RawMessage `json:"record"`
}

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types
const (
	WSEventSubscribe    = "subscribe"
	WSEventUnsubscribe  = "unsubscribe"
	WSEventSubscribed   = "subscribed" // ack, payload echoes the table
	WSEventUnsubscribed = "unsubscribed"
	WSEventChange       = "change"
	WSEventPing         = "ping"
	WSEventPong         = "pong"
	WSEventError        = "error"
)

// SubscribePayload selects a table (and optionally event kinds) on the feed
type SubscribePayload struct {
	Table  string       `json:"table"`
	Events []ChangeKind `json:"events,omitempty"`
}
