// Package dispatch performs user-initiated writes and folds the
// authoritative responses back into the live feeds.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/feed"
	"github.com/parksafe/parksafe/internal/model"
)

// Merger is the part of a feed the dispatcher writes into
type Merger[T feed.Record] interface {
	Merge(recs ...T)
}

type discard[T feed.Record] struct{}

func (discard[T]) Merge(...T) {}

// SendMessageRequest is a direct or group message. Exactly one of
// RecipientID and GroupID must be set.
type SendMessageRequest struct {
	Content     string
	RecipientID *uuid.UUID
	GroupID     *uuid.UUID
	Type        model.MessageType // defaults to normal
}

// BroadcastError is returned when an emergency broadcast message was sent
// but the accompanying alert could not be stored. The message stays sent.
type BroadcastError struct {
	Message *model.Message
	Err     error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast message %s sent but alert failed: %v", e.Message.ID, e.Err)
}

func (e *BroadcastError) Unwrap() error { return e.Err }

// Dispatcher writes messages and alerts through a feed.Store
type Dispatcher struct {
	store    feed.Store
	messages Merger[*model.Message]
	alerts   Merger[*model.Alert]

	decodeMessage func(json.RawMessage) (*model.Message, error)
	decodeAlert   func(json.RawMessage) (*model.Alert, error)
}

// New returns a dispatcher. Pass an untyped nil for messages or alerts
// when the corresponding feed is not running; a nil *feed.Feed is not
// accepted.
func New(store feed.Store, messages Merger[*model.Message], alerts Merger[*model.Alert]) *Dispatcher {
	if messages == nil {
		messages = discard[*model.Message]{}
	}
	if alerts == nil {
		alerts = discard[*model.Alert]{}
	}
	return &Dispatcher{
		store:         store,
		messages:      messages,
		alerts:        alerts,
		decodeMessage: feed.Decoder[model.Message](),
		decodeAlert:   feed.Decoder[model.Alert](),
	}
}

// SendMessage validates and writes a message. On success the stored
// message, sender included, is merged into the messages feed and returned.
// Invalid requests fail with feed.ErrValidation before anything is written.
func (d *Dispatcher) SendMessage(ctx context.Context, req SendMessageRequest) (*model.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", feed.ErrValidation)
	}
	hasRecipient := req.RecipientID != nil && *req.RecipientID != uuid.Nil
	hasGroup := req.GroupID != nil && *req.GroupID != uuid.Nil
	if hasRecipient == hasGroup {
		return nil, fmt.Errorf("%w: exactly one of recipient or group is required", feed.ErrValidation)
	}

	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageTypeNormal
	}
	row := model.SendMessageRequest{Content: content, Type: msgType}
	if hasRecipient {
		row.RecipientID = req.RecipientID
	} else {
		row.GroupID = req.GroupID
	}

	return d.writeMessage(ctx, row)
}

// BroadcastEmergency sends an emergency message to every signed-in user
// and raises an active broadcast alert.
//
// The two writes are not atomic. When the alert write fails the message
// has already been delivered; a *BroadcastError carrying it is returned
// and nothing is rolled back.
func (d *Dispatcher) BroadcastEmergency(ctx context.Context, message string) (*model.Message, *model.Alert, error) {
	content := strings.TrimSpace(message)
	if content == "" {
		return nil, nil, fmt.Errorf("%w: broadcast message is empty", feed.ErrValidation)
	}

	msg, err := d.writeMessage(ctx, model.SendMessageRequest{
		Content: content,
		Type:    model.MessageTypeEmergency,
	})
	if err != nil {
		return nil, nil, err
	}

	raw, err := d.store.Write(ctx, model.TableAlerts, model.CreateAlertRequest{
		Type:    model.AlertTypeBroadcast,
		Message: content,
		Status:  model.AlertStatusActive,
	})
	if err != nil {
		return msg, nil, &BroadcastError{Message: msg, Err: err}
	}
	alert, err := d.decodeAlert(raw)
	if err != nil {
		return msg, nil, &BroadcastError{Message: msg, Err: fmt.Errorf("%w: decode alert: %v", feed.ErrTransport, err)}
	}
	d.alerts.Merge(alert)
	return msg, alert, nil
}

func (d *Dispatcher) writeMessage(ctx context.Context, row model.SendMessageRequest) (*model.Message, error) {
	raw, err := d.store.Write(ctx, model.TableMessages, row)
	if err != nil {
		return nil, err
	}
	msg, err := d.decodeMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode message: %v", feed.ErrTransport, err)
	}
	d.messages.Merge(msg)
	return msg, nil
}
