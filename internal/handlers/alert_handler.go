package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinel/internal/engine"
	"sentinel/internal/models"
	"sentinel/internal/services"
)

// AlertHandler handles alert evaluation and advisory requests.
type AlertHandler struct {
	alertService services.AlertServicer
	auditService services.AuditServicer
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService services.AlertServicer, auditService services.AuditServicer) *AlertHandler {
	return &AlertHandler{alertService: alertService, auditService: auditService}
}

// GetAlert handles retrieving the latest alert state for a period.
// @Summary     Get alert state
// @Description Get the most recent alert snapshot for a period, computing one if none exists
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Period ID"
// @Success     200 {object} models.AlertState "Alert state"
// @Failure     400 {object} ErrorResponse "Invalid period ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/alert [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	periodID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	alert, err := h.alertService.GetLatestAlert(userID, periodID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert, "message": engine.MessageFor(*alert)})
}

// Evaluate handles recomputing the alert state for a period.
// @Summary     Evaluate period
// @Description Recompute and persist the alert state for a period as of today
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Period ID"
// @Success     200 {object} models.AlertState "Recomputed alert state"
// @Failure     400 {object} ErrorResponse "Invalid period ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/evaluate [post]
func (h *AlertHandler) Evaluate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	periodID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	alert, err := h.alertService.Evaluate(userID, periodID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alert": alert, "message": engine.MessageFor(*alert)})
}

// Advise handles deriving recommended actions for a period.
// @Summary     Get recommended actions
// @Description Evaluate the period and derive recommended actions; emergency mode locks the triggered categories
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Period ID"
// @Success     200 {object} services.Advice "Alert state with recommended actions"
// @Failure     400 {object} ErrorResponse "Invalid period ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period not found"
// @Failure     409 {object} ErrorResponse "Period archived"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/advice [post]
func (h *AlertHandler) Advise(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	periodID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	advice, err := h.alertService.Advise(userID, periodID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if advice.Alert.Mode == models.AlertModeEmergency {
		h.auditService.Log(userID, "EMERGENCY_LOCKDOWN", "period", periodID, c.ClientIP(),
			map[string]interface{}{"triggered": advice.Alert.TriggeredCategories})
	}

	c.JSON(http.StatusOK, advice)
}
