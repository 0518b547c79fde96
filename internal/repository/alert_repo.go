package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"gorm.io/gorm"
)

// AlertRepository handles database operations for Alert
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert
func (r *AlertRepository) Create(alert *model.Alert) error {
	return r.db.Create(alert).Error
}

// FindByID finds an alert by ID
func (r *AlertRepository) FindByID(id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	err := r.db.Where("id = ?", id).First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// List returns alerts newest first, optionally filtered by status
func (r *AlertRepository) List(status model.AlertStatus, before *uuid.UUID, limit int) ([]model.Alert, error) {
	alerts := []model.Alert{}
	query := r.db.Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if before != nil {
		var beforeAlert model.Alert
		if err := r.db.Select("created_at").Where("id = ?", before).First(&beforeAlert).Error; err != nil {
			return nil, err
		}
		query = query.Where("created_at < ?", beforeAlert.CreatedAt)
	}

	err := query.Find(&alerts).Error
	return alerts, err
}

// UpdateStatus sets the status of an alert
func (r *AlertRepository) UpdateStatus(id uuid.UUID, status model.AlertStatus) error {
	return r.db.Model(&model.Alert{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ResolveActiveBefore resolves every active alert created before cutoff and
// returns the alerts it changed
func (r *AlertRepository) ResolveActiveBefore(cutoff time.Time) ([]model.Alert, error) {
	stale := []model.Alert{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ? AND created_at < ?", model.AlertStatusActive, cutoff).
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(stale))
		for i := range stale {
			ids = append(ids, stale[i].ID)
			stale[i].Status = model.AlertStatusResolved
		}
		return tx.Model(&model.Alert{}).
			Where("id IN ?", ids).
			Update("status", model.AlertStatusResolved).Error
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}
