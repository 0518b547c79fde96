package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a point on the map reported by a user's device
type Location struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp,omitempty"` // unix seconds
}

// Profile represents a signed-up user and their last known position
type Profile struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password  string    `json:"-" gorm:"size:255;not null"`
	FullName  *string   `json:"full_name" gorm:"size:255"`
	AvatarURL *string   `json:"avatar_url" gorm:"size:500"`

	// Location columns, exposed through Location
	LocationLat *float64   `json:"-"`
	LocationLng *float64   `json:"-"`
	LocationAt  *time.Time `json:"-"`
	Location    *Location  `json:"location,omitempty" gorm:"-"`

	LastActive *time.Time `json:"last_active" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the primary key
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AfterFind rebuilds Location from its columns
func (p *Profile) AfterFind(tx *gorm.DB) error {
	p.Location = nil
	if p.LocationLat != nil && p.LocationLng != nil {
		loc := &Location{Lat: *p.LocationLat, Lng: *p.LocationLng}
		if p.LocationAt != nil {
			loc.Timestamp = p.LocationAt.Unix()
		}
		p.Location = loc
	}
	return nil
}

// DisplayName returns the full name, falling back to the email
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}

// ProfileResponse is the safe version of Profile for API responses
type ProfileResponse struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FullName   *string    `json:"full_name"`
	AvatarURL  *string    `json:"avatar_url"`
	Location   *Location  `json:"location,omitempty"`
	LastActive *time.Time `json:"last_active"`
}

// ToResponse converts Profile to safe ProfileResponse
func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		ID:         p.ID,
		Email:      p.Email,
		FullName:   p.FullName,
		AvatarURL:  p.AvatarURL,
		Location:   p.Location,
		LastActive: p.LastActive,
	}
}
