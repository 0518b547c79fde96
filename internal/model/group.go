package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group is a named set of users that can share group messages
type Group struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Members []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// MemberRole defines the role of a member in a group
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// GroupMember represents a user's membership in a group
type GroupMember struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID  `json:"group_id" gorm:"type:uuid;uniqueIndex:idx_group_user;not null"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_group_user;index;not null"`
	Role      MemberRole `json:"role" gorm:"type:varchar(20);default:'member'"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relations
	User *Profile `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
