package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/metrics"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"gorm.io/gorm"
)

// MessageService handles direct, group and emergency messages
type MessageService struct {
	msgRepo     *repository.MessageRepository
	groupRepo   *repository.GroupRepository
	profileRepo *repository.ProfileRepository
	publisher   Publisher
	pageSize    int
	maxPage     int
}

func NewMessageService(
	msgRepo *repository.MessageRepository,
	groupRepo *repository.GroupRepository,
	profileRepo *repository.ProfileRepository,
	publisher Publisher,
	pageSize, maxPage int,
) *MessageService {
	return &MessageService{
		msgRepo:     msgRepo,
		groupRepo:   groupRepo,
		profileRepo: profileRepo,
		publisher:   publisher,
		pageSize:    pageSize,
		maxPage:     maxPage,
	}
}

// Send stores a message from senderID and returns it with its sender joined.
// The stored row is published on the change feed without the join.
func (s *MessageService) Send(senderID uuid.UUID, req model.SendMessageRequest) (*model.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageTypeNormal
	}
	switch msgType {
	case model.MessageTypeNormal, model.MessageTypeEmergency, model.MessageTypeSystem:
	default:
		return nil, ErrInvalidType
	}

	hasRecipient := req.RecipientID != nil && *req.RecipientID != uuid.Nil
	hasGroup := req.GroupID != nil && *req.GroupID != uuid.Nil
	if hasRecipient && hasGroup {
		return nil, ErrInvalidTarget
	}
	// Only emergency broadcasts may go without a target
	if !hasRecipient && !hasGroup && msgType != model.MessageTypeEmergency {
		return nil, ErrInvalidTarget
	}

	msg := &model.Message{
		SenderID: senderID,
		Content:  content,
		Type:     msgType,
	}

	var audience model.Audience
	switch {
	case hasRecipient:
		exists, err := s.profileRepo.Exists(*req.RecipientID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrRecipientNotFound
		}
		msg.RecipientID = req.RecipientID
		audience.UserIDs = []uuid.UUID{senderID, *req.RecipientID}

	case hasGroup:
		isMember, err := s.groupRepo.IsMember(*req.GroupID, senderID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, ErrForbidden
		}
		memberIDs, err := s.groupRepo.GetMemberIDs(*req.GroupID)
		if err != nil {
			return nil, err
		}
		msg.GroupID = req.GroupID
		audience.UserIDs = memberIDs
	}

	if err := s.msgRepo.Create(msg); err != nil {
		return nil, errors.New("failed to send message")
	}
	metrics.MessagesSent.WithLabelValues(string(msg.Type)).Inc()

	stored := *msg
	s.publisher.Publish(model.ChangeEvent{
		Table:  model.TableMessages,
		Event:  model.ChangeInsert,
		Record: &stored,
	}, audience)

	// Reload with sender info
	return s.msgRepo.FindByID(msg.ID)
}

// List returns a page of messages visible to userID, newest first
func (s *MessageService) List(userID uuid.UUID, before string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}

	var cursor *uuid.UUID
	if before != "" {
		parsed, err := uuid.Parse(before)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		cursor = &parsed
	}

	messages, err := s.msgRepo.GetVisibleMessages(userID, cursor, limit)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCursor
	}
	return messages, err
}

// Get returns one message if userID may read it
func (s *MessageService) Get(userID, messageID uuid.UUID) (*model.Message, error) {
	msg, err := s.msgRepo.FindVisibleByID(messageID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}
