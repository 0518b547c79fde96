package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository handles database operations for Profile
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile
func (r *ProfileRepository) Create(p *model.Profile) error {
	return r.db.Create(p).Error
}

// FindByID finds a profile by UUID
func (r *ProfileRepository) FindByID(id uuid.UUID) (*model.Profile, error) {
	var p model.Profile
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByEmail finds a profile by email
func (r *ProfileRepository) FindByEmail(email string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.Where("email = ?", email).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Exists reports whether a profile with the given id exists
func (r *ProfileRepository) Exists(id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.Profile{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateProfile updates the full name and/or avatar URL
func (r *ProfileRepository) UpdateProfile(id uuid.UUID, fullName, avatarURL *string) error {
	updates := map[string]interface{}{}
	if fullName != nil {
		updates["full_name"] = *fullName
	}
	if avatarURL != nil {
		updates["avatar_url"] = *avatarURL
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&model.Profile{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateLocation records a new position and bumps last_active
func (r *ProfileRepository) UpdateLocation(id uuid.UUID, lat, lng float64, at time.Time) error {
	return r.db.Model(&model.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"location_lat": lat,
			"location_lng": lng,
			"location_at":  at,
			"last_active":  at,
		}).Error
}

// TouchLastActive bumps last_active without moving the user
func (r *ProfileRepository) TouchLastActive(id uuid.UUID, at time.Time) error {
	return r.db.Model(&model.Profile{}).
		Where("id = ?", id).
		Update("last_active", at).Error
}

// FindActiveWithLocation returns other users that reported a location since the given time
func (r *ProfileRepository) FindActiveWithLocation(excludeID uuid.UUID, since time.Time) ([]model.Profile, error) {
	profiles := []model.Profile{}
	err := r.db.
		Where("id <> ?", excludeID).
		Where("location_lat IS NOT NULL AND location_lng IS NOT NULL").
		Where("last_active >= ?", since).
		Order("last_active DESC").
		Find(&profiles).Error
	return profiles, err
}

// FindAllExcept returns every profile other than excludeID
func (r *ProfileRepository) FindAllExcept(excludeID uuid.UUID) ([]model.Profile, error) {
	profiles := []model.Profile{}
	err := r.db.Where("id <> ?", excludeID).Find(&profiles).Error
	return profiles, err
}

// AddDevice adds or updates a device token
func (r *ProfileRepository) AddDevice(userID uuid.UUID, token string, deviceType string) error {
	device := model.UserDevice{
		UserID:       userID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: time.Now(),
	}
	// Upsert: on conflict do update
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "fcm_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active_at": time.Now(),
			"device_type":    deviceType,
		}),
	}).Create(&device).Error
}

// GetDeviceTokens returns the FCM tokens of every device not owned by excludeID
func (r *ProfileRepository) GetDeviceTokens(excludeID uuid.UUID) ([]string, error) {
	var tokens []string
	err := r.db.Model(&model.UserDevice{}).
		Where("user_id <> ?", excludeID).
		Pluck("fcm_token", &tokens).Error
	return tokens, err
}
