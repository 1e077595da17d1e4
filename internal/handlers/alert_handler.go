package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
	"github.com/alvarovalenzuelac/presuapp/internal/services"
)

// AlertHandler handles alert-related requests
type AlertHandler struct {
	alertService services.AlertServicer
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alertService services.AlertServicer) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlerts returns a paginated list of the user's alerts
// @Summary     List alerts
// @Description Get the user's alerts, newest first, optionally unread only
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       unread query bool false "Only unread alerts"
// @Success     200 {object} pagination.PageResponse[models.Alert] "Alerts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alerts [get]
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	unreadOnly := c.Query("unread") == "true"

	result, err := h.alertService.GetUserAlerts(userID, page, unreadOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MarkAlertRead marks an alert as read
// @Summary     Mark alert read
// @Description Mark one of the user's alerts as read
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Alert ID"
// @Success     204 "Alert marked read"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alerts/{id}/read [post]
func (h *AlertHandler) MarkAlertRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	alertID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.alertService.MarkRead(userID, alertID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
