package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "sentinel/internal/errors"
	"sentinel/internal/models"
	"sentinel/internal/pagination"
	"sentinel/internal/services"
)

// LedgerHandler handles transaction requests against budget periods.
type LedgerHandler struct {
	ledgerService services.LedgerServicer
	auditService  services.AuditServicer
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService services.LedgerServicer, auditService services.AuditServicer) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService, auditService: auditService}
}

// RecordTransactionRequest represents the request payload for a spend.
type RecordTransactionRequest struct {
	Category    string          `json:"category" binding:"required,category_name"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at" binding:"required"`
	Description string          `json:"description" binding:"max=255"`
	Override    bool            `json:"override"`
}

// ReverseTransactionRequest represents the request payload for a reversal.
type ReverseTransactionRequest struct {
	Category    string          `json:"category" binding:"required,category_name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=255"`
}

// TransactionFilterRequest represents the query filters for listing entries.
type TransactionFilterRequest struct {
	Type     string `form:"type" binding:"omitempty,entry_type"`
	Category string `form:"category" binding:"omitempty,category_name"`
	From     string `form:"from"`
	To       string `form:"to"`
}

// TransactionResponse pairs a ledger entry with the alert state recomputed
// after it was applied.
type TransactionResponse struct {
	Entry *models.LedgerEntry `json:"entry"`
	Alert *models.AlertState  `json:"alert"`
}

// RecordTransaction handles recording a spend against a category.
// @Summary     Record a transaction
// @Description Record a spend against a category; the period's alert state is recomputed atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                      true "Period ID"
// @Param       request body RecordTransactionRequest true "Transaction details"
// @Success     201 {object} TransactionResponse "Transaction recorded"
// @Failure     400 {object} ErrorResponse "Invalid amount or date outside the period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period or category not found"
// @Failure     409 {object} ErrorResponse "Period archived"
// @Failure     423 {object} ErrorResponse "Category locked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/transactions [post]
func (h *LedgerHandler) RecordTransaction(c *gin.Context) {
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

	var req RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, alert, err := h.ledgerService.RecordTransaction(
		userID, periodID, req.Category, req.Amount, req.OccurredAt, req.Description, req.Override,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if req.Override {
		h.auditService.Log(userID, "OVERRIDE_SPEND", "entry", entry.ID, c.ClientIP(),
			map[string]interface{}{"category": req.Category, "amount": req.Amount.String()})
	}

	c.JSON(http.StatusCreated, TransactionResponse{Entry: entry, Alert: alert})
}

// ReverseTransaction handles reversing previously recorded spending.
// @Summary     Reverse a transaction
// @Description Remove an amount from a category's spent total, flooring at zero
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                       true "Period ID"
// @Param       request body ReverseTransactionRequest true "Reversal details"
// @Success     201 {object} TransactionResponse "Reversal recorded"
// @Failure     400 {object} ErrorResponse "Invalid amount"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period or category not found"
// @Failure     409 {object} ErrorResponse "Period archived"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/reversals [post]
func (h *LedgerHandler) ReverseTransaction(c *gin.Context) {
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

	var req ReverseTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, alert, err := h.ledgerService.ReverseTransaction(userID, periodID, req.Category, req.Amount, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransactionResponse{Entry: entry, Alert: alert})
}

// GetTransactions handles listing ledger entries for a period.
// @Summary     Get transactions
// @Description Get a paginated list of ledger entries for a period, newest first
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  int    true  "Period ID"
// @Param       type      query string false "Filter by entry type (spend/reversal)"
// @Param       category  query string false "Filter by category name"
// @Param       from      query string false "Earliest occurrence date (RFC 3339)"
// @Param       to        query string false "Latest occurrence date (RFC 3339)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.LedgerEntry] "Paginated entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/transactions [get]
func (h *LedgerHandler) GetTransactions(c *gin.Context) {
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

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filterReq TransactionFilterRequest
	if err := c.ShouldBindQuery(&filterReq); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.EntryFilter
	if filterReq.Type != "" {
		entryType := models.EntryType(filterReq.Type)
		filter.Type = &entryType
	}
	if filterReq.Category != "" {
		filter.Category = &filterReq.Category
	}
	if filterReq.From != "" {
		from, err := time.Parse(time.RFC3339, filterReq.From)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must be an RFC 3339 timestamp"))
			return
		}
		filter.FromDate = &from
	}
	if filterReq.To != "" {
		to, err := time.Parse(time.RFC3339, filterReq.To)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must be an RFC 3339 timestamp"))
			return
		}
		filter.ToDate = &to
	}

	result, err := h.ledgerService.GetPeriodEntries(userID, periodID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRemaining handles retrieving a category's unspent balance.
// @Summary     Get remaining balance
// @Description Get a category's remaining monthly budget; negative values signal overspend
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id       path  int    true "Period ID"
// @Param       category query string true "Category name"
// @Success     200 {object} map[string]string "Remaining balance"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/remaining [get]
func (h *LedgerHandler) GetRemaining(c *gin.Context) {
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

	category := c.Query("category")
	if category == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required"))
		return
	}

	remaining, err := h.ledgerService.Remaining(userID, periodID, category)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "remaining": remaining})
}

// GetDailyAllowance handles retrieving a category's per-day budget.
// @Summary     Get daily allowance
// @Description Get how much a category can spend per remaining day of the period
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id       path  int    true  "Period ID"
// @Param       category query string true  "Category name"
// @Param       as_of    query string false "Reference date (RFC 3339, default now)"
// @Success     200 {object} map[string]string "Daily allowance"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Period or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /periods/{id}/allowance [get]
func (h *LedgerHandler) GetDailyAllowance(c *gin.Context) {
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

	category := c.Query("category")
	if category == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required"))
		return
	}

	asOf := time.Now()
	if v := c.Query("as_of"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "as_of must be an RFC 3339 timestamp"))
			return
		}
		asOf = parsed
	}

	allowance, err := h.ledgerService.DailyAllowance(userID, periodID, category, asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "daily_allowance": allowance, "as_of": asOf})
}
