package service

import (
	"context"
	"time"

	"github.com/parksafe/parksafe/internal/model"
)

// Publisher pushes stored row changes onto the realtime feed
type Publisher interface {
	Publish(event model.ChangeEvent, audience model.Audience)
}

// AlertNotifier tells users outside the app about a new alert
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert *model.Alert, raisedBy *model.Profile) error
}

// TokenRevoker invalidates issued tokens before they expire
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}
