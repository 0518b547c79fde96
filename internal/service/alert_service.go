package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/metrics"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"gorm.io/gorm"
)

const maxAlertPage = 100

// AlertService handles emergency alerts
type AlertService struct {
	alertRepo   *repository.AlertRepository
	profileRepo *repository.ProfileRepository
	publisher   Publisher
	notifiers   []AlertNotifier
	limit       int
	now         func() time.Time
}

func NewAlertService(
	alertRepo *repository.AlertRepository,
	profileRepo *repository.ProfileRepository,
	publisher Publisher,
	limit int,
	notifiers ...AlertNotifier,
) *AlertService {
	return &AlertService{
		alertRepo:   alertRepo,
		profileRepo: profileRepo,
		publisher:   publisher,
		notifiers:   notifiers,
		limit:       limit,
		now:         time.Now,
	}
}

// Create raises an alert owned by userID and fans it out
func (s *AlertService) Create(userID uuid.UUID, req model.CreateAlertRequest) (*model.Alert, error) {
	alertType := strings.TrimSpace(req.Type)
	if alertType == "" {
		return nil, ErrEmptyAlertType
	}

	status := req.Status
	if status == "" {
		status = model.AlertStatusActive
	}

	alert := &model.Alert{
		UserID:   userID,
		Type:     alertType,
		Message:  strings.TrimSpace(req.Message),
		Status:   status,
		Severity: req.Severity,
		Location: req.Location,
	}

	if err := s.alertRepo.Create(alert); err != nil {
		return nil, errors.New("failed to create alert")
	}
	metrics.AlertsRaised.WithLabelValues(alert.Type).Inc()

	s.publisher.Publish(model.ChangeEvent{
		Table:  model.TableAlerts,
		Event:  model.ChangeInsert,
		Record: alert,
	}, model.Audience{})

	if len(s.notifiers) > 0 {
		raisedBy, err := s.profileRepo.FindByID(userID)
		if err != nil {
			log.Printf("Error loading alert owner %s: %v", userID, err)
		} else {
			go s.notify(*alert, raisedBy)
		}
	}

	return alert, nil
}

func (s *AlertService) notify(alert model.Alert, raisedBy *model.Profile) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, n := range s.notifiers {
		if err := n.NotifyAlert(ctx, &alert, raisedBy); err != nil {
			log.Printf("⚠️  Alert %s notification failed: %v", alert.ID, err)
		}
	}
}

// List returns alerts newest first, optionally filtered by status
func (s *AlertService) List(status, before string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = s.limit
	}
	if limit > maxAlertPage {
		limit = maxAlertPage
	}

	var cursor *uuid.UUID
	if before != "" {
		parsed, err := uuid.Parse(before)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		cursor = &parsed
	}

	alerts, err := s.alertRepo.List(model.AlertStatus(status), cursor, limit)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCursor
	}
	return alerts, err
}

// Get returns one alert
func (s *AlertService) Get(id uuid.UUID) (*model.Alert, error) {
	alert, err := s.alertRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return alert, nil
}

// Resolve closes an alert. Only its owner may resolve it.
func (s *AlertService) Resolve(userID, id uuid.UUID) (*model.Alert, error) {
	alert, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, ErrForbidden
	}
	if alert.Status == model.AlertStatusResolved {
		return alert, nil
	}

	if err := s.alertRepo.UpdateStatus(id, model.AlertStatusResolved); err != nil {
		return nil, err
	}
	alert.Status = model.AlertStatusResolved

	s.publisher.Publish(model.ChangeEvent{
		Table:  model.TableAlerts,
		Event:  model.ChangeUpdate,
		Record: alert,
	}, model.Audience{})
	return alert, nil
}

// ExpireStale resolves active alerts older than ttl and returns how many changed
func (s *AlertService) ExpireStale(ttl time.Duration) (int, error) {
	expired, err := s.alertRepo.ResolveActiveBefore(s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}

	for i := range expired {
		s.publisher.Publish(model.ChangeEvent{
			Table:  model.TableAlerts,
			Event:  model.ChangeUpdate,
			Record: &expired[i],
		}, model.Audience{})
	}
	return len(expired), nil
}
