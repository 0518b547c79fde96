package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/service"
)

// MessageHandler handles message endpoints
type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessage godoc
// @Summary Send a direct, group or emergency broadcast message
// @Description Exactly one of recipient_id or group_id is required, except for type "emergency" which may have neither.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.SendMessageRequest true "Send message request"
// @Success 201 {object} model.Message
// @Failure 403 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.messageService.Send(currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// GetMessages godoc
// @Summary List messages visible to the current user, newest first
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param before query string false "Cursor: message ID to get messages before"
// @Param limit query int false "Number of messages to return (default: 50)"
// @Success 200 {array} model.Message
// @Router /messages [get]
func (h *MessageHandler) GetMessages(c *gin.Context) {
	var req model.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	messages, err := h.messageService.List(currentUser(c), req.Before, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// GetMessage godoc
// @Summary Get one message with its sender
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} model.Message
// @Failure 404 {object} model.ErrorResponse
// @Router /messages/{id} [get]
func (h *MessageHandler) GetMessage(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	msg, err := h.messageService.Get(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}
