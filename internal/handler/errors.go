package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/service"
)

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrRecipientNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidLogin):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrAlreadyMember):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, service.ErrInvalidType),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrEmptyAlertType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidCursor):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, model.ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
}

// paramUUID parses a path parameter, writing a 400 when it is malformed
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet("user_id").(uuid.UUID)
}
