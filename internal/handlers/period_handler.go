package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "sentinel/internal/errors"
	"sentinel/internal/pagination"
	"sentinel/internal/services"
)

// PeriodHandler handles budget period requests.
type PeriodHandler struct {
	periodService services.PeriodServicer
	auditService  services.AuditServicer
}

// NewPeriodHandler creates a new PeriodHandler.
func NewPeriodHandler(periodService services.PeriodServicer, auditService services.AuditServicer) *PeriodHandler {
	return &PeriodHandler{periodService: periodService, auditService: auditService}
}

// CategorySpecRequest is one category allocation in a period creation request.
type CategorySpecRequest struct {
	Name         string          `json:"name" binding:"required,category_name"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

// CreatePeriodRequest represents the request payload for creating a period.
type CreatePeriodRequest struct {
	StartDate   time.Time             `json:"start_date" binding:"required"`
	EndDate     time.Time             `json:"end_date" binding:"required"`
	TotalIncome decimal.Decimal       `json:"total_income"`
	Categories  []CategorySpecRequest `json:"categories" binding:"omitempty,dive"`
}

// UnlockCategoryRequest represents the request payload for unlocking a category.
type UnlockCategoryRequest struct {
	Category string `json:"category" binding:"required,category_name"`
}

// CreatePeriod handles the creation of a new budget period.
// @Summary     Create a budget period
// @Description Create a budget period with its fixed category allocations
// @Tags        periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePeriodRequest true "Period details"
// @Success     201 {object} models.BudgetPeriod "Period created"
// @Failure     400 {object} ErrorResponse "Invalid input or date range"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate category name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods [post]
func (h *PeriodHandler) CreatePeriod(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	specs := make([]services.CategorySpec, 0, len(req.Categories))
	for _, cat := range req.Categories {
		specs = append(specs, services.CategorySpec{Name: cat.Name, MonthlyLimit: cat.MonthlyLimit})
	}

	period, err := h.periodService.CreatePeriod(userID, req.StartDate, req.EndDate, req.TotalIncome, specs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_PERIOD", "period", period.ID, c.ClientIP(),
		map[string]interface{}{"start_date": req.StartDate, "end_date": req.EndDate, "categories": len(specs)})

	c.JSON(http.StatusCreated, gin.H{"period": period})
}

// GetPeriods handles listing periods for the authenticated user.
// @Summary     Get budget periods
// @Description Get a paginated list of the user's budget periods, newest first
// @Tags        periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       archived  query bool false "Filter by archived status"
// @Param       page      query int  false "Page number (default 1)"
// @Param       page_size query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.BudgetPeriod] "Paginated periods"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods [get]
func (h *PeriodHandler) GetPeriods(c *gin.Context) {
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

	var archived *bool
	if v := c.Query("archived"); v != "" {
		switch v {
		case "true":
			b := true
			archived = &b
		case "false":
			b := false
			archived = &b
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "archived must be 'true' or 'false'"))
			return
		}
	}

	result, err := h.periodService.GetUserPeriods(userID, page, archived)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPeriod handles retrieving a specific period.
// @Summary     Get period by ID
// @Description Get a budget period with its category budgets
// @Tags        periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Period ID"
// @Success     200 {object} models.BudgetPeriod "Period details"
// @Failure     400 {object} ErrorResponse "Invalid period ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id} [get]
func (h *PeriodHandler) GetPeriod(c *gin.Context) {
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

	period, err := h.periodService.GetPeriodByID(userID, periodID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"period": period})
}

// ArchivePeriod handles marking a period read-only.
// @Summary     Archive period
// @Description Mark a budget period as archived; archived periods reject transactions
// @Tags        periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Period ID"
// @Success     200 {object} MessageResponse "Period archived"
// @Failure     400 {object} ErrorResponse "Invalid period ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/archive [post]
func (h *PeriodHandler) ArchivePeriod(c *gin.Context) {
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

	if err := h.periodService.ArchivePeriod(userID, periodID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ARCHIVE_PERIOD", "period", periodID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Period archived successfully"})
}

// RolloverPeriod handles rolling a period into the next month.
// @Summary     Roll over period
// @Description Archive the period and create the next one with the same limits, spending reset and locks cleared
// @Tags        periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Period ID"
// @Success     201 {object} models.BudgetPeriod "Next period created"
// @Failure     400 {object} ErrorResponse "Invalid period ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period not found"
// @Failure     409 {object} ErrorResponse "Period already archived"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/rollover [post]
func (h *PeriodHandler) RolloverPeriod(c *gin.Context) {
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

	next, err := h.periodService.RolloverPeriod(userID, periodID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ROLLOVER_PERIOD", "period", periodID, c.ClientIP(),
		map[string]interface{}{"next_period_id": next.ID})

	c.JSON(http.StatusCreated, gin.H{"period": next})
}

// UnlockCategory handles clearing an emergency lock on a category.
// @Summary     Unlock category
// @Description Explicitly clear the emergency lock on a category budget
// @Tags        periods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                   true "Period ID"
// @Param       request body UnlockCategoryRequest true "Category to unlock"
// @Success     200 {object} models.CategoryBudget "Unlocked category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period or category not found"
// @Failure     409 {object} ErrorResponse "Period archived"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/unlock [post]
func (h *PeriodHandler) UnlockCategory(c *gin.Context) {
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

	var req UnlockCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.periodService.UnlockCategory(userID, periodID, req.Category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UNLOCK_CATEGORY", "category", category.ID, c.ClientIP(),
		map[string]interface{}{"category": req.Category, "period_id": periodID})

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}
