// Package session holds everything that lives between sign-in and
// sign-out: the API client, the live feeds and the dispatcher.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/parksafe/parksafe/internal/client"
	"github.com/parksafe/parksafe/internal/dispatch"
	"github.com/parksafe/parksafe/internal/feed"
	"github.com/parksafe/parksafe/internal/model"
)

const (
	DefaultMessagePageSize = 50
	DefaultAlertLimit      = 5
)

// Config sizes the feeds
type Config struct {
	MessagePageSize int // K for the messages feed
	AlertLimit      int // K and N for the alerts feed
}

// Session is the signed-in state of one user
type Session struct {
	Client     *client.Client
	Profile    model.ProfileResponse
	Messages   *feed.Feed[*model.Message]
	Alerts     *feed.Feed[*model.Alert]
	Dispatcher *dispatch.Dispatcher
}

// MessagesConfig is the messages feed: every visible message, paged
func MessagesConfig(pageSize int) feed.Config[*model.Message] {
	if pageSize <= 0 {
		pageSize = DefaultMessagePageSize
	}
	return feed.Config[*model.Message]{
		Table:          model.TableMessages,
		Query:          feed.Query{OrderBy: "created_at", Descending: true, Limit: pageSize},
		Decode:         feed.Decoder[model.Message](),
		ResolvePartial: true,
	}
}

// AlertsConfig is the alerts feed: the newest active alerts only
func AlertsConfig(limit int) feed.Config[*model.Alert] {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	return feed.Config[*model.Alert]{
		Table: model.TableAlerts,
		Query: feed.Query{
			Filter:     map[string]string{"status": string(model.AlertStatusActive)},
			OrderBy:    "created_at",
			Descending: true,
			Limit:      limit,
		},
		Capacity: limit,
		Events:   []feed.EventKind{feed.EventInsert, feed.EventUpdate},
		Decode:   feed.Decoder[model.Alert](),
		Match:    func(a *model.Alert) bool { return a.Status == model.AlertStatusActive },
	}
}

// Start loads the profile and starts both feeds. c must carry a token.
//
// A feed that fails to load keeps its error in State and does not fail
// Start; Resync retries it.
func Start(ctx context.Context, c *client.Client, cfg Config) (*Session, error) {
	profile, err := c.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s := &Session{
		Client:   c,
		Profile:  *profile,
		Messages: feed.New(c, MessagesConfig(cfg.MessagePageSize)),
		Alerts:   feed.New(c, AlertsConfig(cfg.AlertLimit)),
	}
	s.Dispatcher = dispatch.New(c, s.Messages, s.Alerts)

	if err := s.Resync(ctx); err != nil {
		log.Printf("session: initial load incomplete: %v", err)
	}

	// Pushes are lost while disconnected; reload once the socket is back
	c.OnReconnect(func() {
		if err := s.Resync(context.Background()); err != nil {
			log.Printf("session: resync after reconnect: %v", err)
		}
	})
	return s, nil
}

// Resync re-initializes both feeds
func (s *Session) Resync(ctx context.Context) error {
	return errors.Join(
		s.Messages.Initialize(ctx),
		s.Alerts.Initialize(ctx),
	)
}

// Teardown stops both feeds. It is safe to call more than once.
func (s *Session) Teardown() error {
	return errors.Join(
		s.Messages.Teardown(),
		s.Alerts.Teardown(),
	)
}

// SignOut tears the session down and revokes its token
func (s *Session) SignOut(ctx context.Context) error {
	return errors.Join(s.Teardown(), s.Client.Logout(ctx))
}
