package notification

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"google.golang.org/api/option"
)

// FCM allows at most 500 tokens per multicast
const maxTokensPerBatch = 500

// NotificationService pushes emergency alerts to registered devices over FCM
type NotificationService struct {
	client      *messaging.Client
	profileRepo *repository.ProfileRepository
}

// NewNotificationService creates a new FCM notification service.
// It returns nil when Firebase is not configured or cannot start.
func NewNotificationService(credentialsFile string, profileRepo *repository.ProfileRepository) *NotificationService {
	if credentialsFile == "" {
		log.Println("⚠️ Firebase credentials not provided, push notifications disabled")
		return nil
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		log.Printf("⚠️ Failed to initialize Firebase app: %v (push notifications disabled)", err)
		return nil
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Printf("⚠️ Failed to get messaging client: %v", err)
		return nil
	}

	log.Println("✅ Firebase FCM initialized")
	return &NotificationService{
		client:      client,
		profileRepo: profileRepo,
	}
}

// NotifyAlert sends the alert to every device except the ones owned by its author
func (s *NotificationService) NotifyAlert(ctx context.Context, alert *model.Alert, raisedBy *model.Profile) error {
	if s == nil || s.client == nil {
		return nil
	}

	tokens, err := s.profileRepo.GetDeviceTokens(alert.UserID)
	if err != nil {
		return err
	}

	for start := 0; start < len(tokens); start += maxTokensPerBatch {
		end := start + maxTokensPerBatch
		if end > len(tokens) {
			end = len(tokens)
		}
		if err := s.send(ctx, BuildAlertMessage(alert, raisedBy, tokens[start:end])); err != nil {
			return err
		}
	}
	return nil
}

// BuildAlertMessage builds the multicast payload for an alert
func BuildAlertMessage(alert *model.Alert, raisedBy *model.Profile, tokens []string) *messaging.MulticastMessage {
	data := map[string]string{
		"type":     "emergency_alert",
		"alert_id": alert.ID.String(),
		"kind":     alert.Type,
		"severity": string(alert.Severity),
		"user_id":  alert.UserID.String(),
	}
	if alert.Location != nil {
		data["lat"] = fmt.Sprintf("%f", alert.Location.Lat)
		data["lng"] = fmt.Sprintf("%f", alert.Location.Lng)
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "🚨 " + raisedBy.DisplayName(),
			Body:  alert.Title(),
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "emergency",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

func (s *NotificationService) send(ctx context.Context, message *messaging.MulticastMessage) error {
	br, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	if br.FailureCount > 0 {
		for idx, resp := range br.Responses {
			if !resp.Success {
				log.Printf("⚠️ FCM failure for token %s: %v", message.Tokens[idx], resp.Error)
			}
		}
	}
	return nil
}
