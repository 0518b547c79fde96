package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageType defines how a message is presented
type MessageType string

const (
	MessageTypeNormal    MessageType = "normal"
	MessageTypeEmergency MessageType = "emergency"
	MessageTypeSystem    MessageType = "system"
)

// Message represents a direct, group or emergency broadcast message.
// Exactly one of RecipientID/GroupID is set, except for emergency
// broadcasts which have neither.
type Message struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	SenderID    uuid.UUID   `json:"sender_id" gorm:"type:uuid;index;not null"`
	RecipientID *uuid.UUID  `json:"recipient_id,omitempty" gorm:"type:uuid;index"`
	GroupID     *uuid.UUID  `json:"group_id,omitempty" gorm:"type:uuid;index"`
	Content     string      `json:"content" gorm:"type:text;not null"`
	Type        MessageType `json:"type" gorm:"type:varchar(20);default:'normal'"`
	CreatedAt   time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Relations. Nil when the row comes straight off the change feed.
	Sender *Profile `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsBroadcast reports whether the message targets every signed-in user
func (m *Message) IsBroadcast() bool {
	return m.RecipientID == nil && m.GroupID == nil
}

// Key, Timestamp and Complete make Message a feed record.

func (m *Message) Key() string          { return m.ID.String() }
func (m *Message) Timestamp() time.Time { return m.CreatedAt }
func (m *Message) Complete() bool       { return m.Sender != nil }
