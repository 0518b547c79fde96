package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertStatus defines whether an alert is still in effect
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
)

// Severity is advisory metadata on an alert
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

const (
	AlertTypeBroadcast = "broadcast"
	AlertTypePanic     = "panic"
)

// Alert is an emergency alert raised by a user
type Alert struct {
	ID       uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID   `json:"user_id" gorm:"type:uuid;index;not null"`
	Type     string      `json:"type" gorm:"size:50;not null;index"`
	Message  string      `json:"message" gorm:"type:text"`
	Status   AlertStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	Severity Severity    `json:"severity,omitempty" gorm:"type:varchar(10)"`

	LocationLat *float64  `json:"-"`
	LocationLng *float64  `json:"-"`
	Location    *Location `json:"location,omitempty" gorm:"-"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name used by existing clients
func (Alert) TableName() string {
	return TableAlerts
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BeforeSave copies Location into its columns
func (a *Alert) BeforeSave(tx *gorm.DB) error {
	if a.Location != nil {
		a.LocationLat = &a.Location.Lat
		a.LocationLng = &a.Location.Lng
	}
	return nil
}

// AfterFind rebuilds Location from its columns
func (a *Alert) AfterFind(tx *gorm.DB) error {
	a.Location = nil
	if a.LocationLat != nil && a.LocationLng != nil {
		a.Location = &Location{Lat: *a.LocationLat, Lng: *a.LocationLng}
	}
	return nil
}

// Title is the text shown in notifications
func (a *Alert) Title() string {
	if a.Message != "" {
		return a.Message
	}
	return "New " + a.Type + " alert"
}

func (a *Alert) Key() string          { return a.ID.String() }
func (a *Alert) Timestamp() time.Time { return a.CreatedAt }
func (a *Alert) Complete() bool       { return true }
