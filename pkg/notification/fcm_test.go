package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/stretchr/testify/require"
)

func TestBuildAlertMessage(t *testing.T) {
	name := "Ranger Rick"
	alert := &model.Alert{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Type:     model.AlertTypePanic,
		Severity: model.SeverityHigh,
		Location: &model.Location{Lat: 35.6532, Lng: -83.507},
	}

	msg := BuildAlertMessage(alert, &model.Profile{FullName: &name}, []string{"tok-1"})
	require.Equal(t, []string{"tok-1"}, msg.Tokens)
	require.Equal(t, "🚨 Ranger Rick", msg.Notification.Title)
	require.Equal(t, "New panic alert", msg.Notification.Body)
	require.Equal(t, alert.ID.String(), msg.Data["alert_id"])
	require.Equal(t, "high", msg.Data["severity"])
	require.Equal(t, "35.653200", msg.Data["lat"])
	require.Equal(t, "high", msg.Android.Priority)
}

func TestNotifyAlert_DisabledServiceIsNoop(t *testing.T) {
	var s *NotificationService
	require.NoError(t, s.NotifyAlert(context.Background(), &model.Alert{}, &model.Profile{}))
}
