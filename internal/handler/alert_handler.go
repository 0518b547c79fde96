package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/service"
)

// AlertHandler handles emergency alert endpoints
type AlertHandler struct {
	alertService *service.AlertService
}

func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// CreateAlert godoc
// @Summary Raise an emergency alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateAlertRequest true "Create alert request"
// @Success 201 {object} model.Alert
// @Failure 400 {object} model.ErrorResponse
// @Router /alerts [post]
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req model.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	alert, err := h.alertService.Create(currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// GetAlerts godoc
// @Summary List alerts, newest first
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(active, resolved)
// @Param before query string false "Cursor: alert ID to get alerts before"
// @Param limit query int false "Number of alerts to return (default: 5)"
// @Success 200 {array} model.Alert
// @Router /alerts [get]
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	var req model.AlertListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	alerts, err := h.alertService.List(req.Status, req.Before, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// GetAlert godoc
// @Summary Get one alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.Alert
// @Failure 404 {object} model.ErrorResponse
// @Router /alerts/{id} [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	alert, err := h.alertService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ResolveAlert godoc
// @Summary Resolve one of your alerts
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.Alert
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	alert, err := h.alertService.Resolve(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}
