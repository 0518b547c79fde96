package repository

import (
	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"gorm.io/gorm"
)

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message
func (r *MessageRepository) Create(msg *model.Message) error {
	return r.db.Create(msg).Error
}

// FindByID finds a message by ID with its sender
func (r *MessageRepository) FindByID(id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.
		Preload("Sender").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// visibleTo restricts a query to the messages a user may read: their own,
// those addressed to them, those of their groups and emergency broadcasts.
func (r *MessageRepository) visibleTo(query *gorm.DB, userID uuid.UUID) *gorm.DB {
	memberOf := r.db.Model(&model.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	return query.Where(
		r.db.Where("sender_id = ?", userID).
			Or("recipient_id = ?", userID).
			Or("group_id IN (?)", memberOf).
			Or("recipient_id IS NULL AND group_id IS NULL AND type = ?", model.MessageTypeEmergency),
	)
}

// FindVisibleByID finds a message by ID if the user may read it
func (r *MessageRepository) FindVisibleByID(id, userID uuid.UUID) (*model.Message, error) {
	var msg model.Message
	query := r.db.Preload("Sender").Where("id = ?", id)
	err := r.visibleTo(query, userID).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetVisibleMessages returns a page of messages readable by the user, newest first
func (r *MessageRepository) GetVisibleMessages(userID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	query := r.db.
		Preload("Sender").
		Order("created_at DESC").
		Limit(limit)

	// Cursor-based pagination: get messages before a specific message
	if before != nil {
		var beforeMsg model.Message
		if err := r.db.Select("created_at").Where("id = ?", before).First(&beforeMsg).Error; err != nil {
			return nil, err
		}
		query = query.Where("created_at < ?", beforeMsg.CreatedAt)
	}

	err := r.visibleTo(query, userID).Find(&messages).Error
	return messages, err
}
