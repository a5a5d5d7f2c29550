package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "sentinel/internal/errors"
	"sentinel/internal/models"
	"sentinel/internal/pagination"
	"sentinel/internal/services"
)

// --- mock ledger service ---

type mockLedgerService struct {
	recordTransactionFn  func(userID, periodID uint, category string, amount decimal.Decimal, occurredAt time.Time, description string, override bool) (*models.LedgerEntry, *models.AlertState, error)
	reverseTransactionFn func(userID, periodID uint, category string, amount decimal.Decimal, description string) (*models.LedgerEntry, *models.AlertState, error)
	getPeriodEntriesFn   func(userID, periodID uint, page pagination.PageRequest, filter services.EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error)
	remainingFn          func(userID, periodID uint, category string) (decimal.Decimal, error)
	dailyAllowanceFn     func(userID, periodID uint, category string, asOf time.Time) (decimal.Decimal, error)
}

func (m *mockLedgerService) RecordTransaction(userID, periodID uint, category string, amount decimal.Decimal, occurredAt time.Time, description string, override bool) (*models.LedgerEntry, *models.AlertState, error) {
	if m.recordTransactionFn != nil {
		return m.recordTransactionFn(userID, periodID, category, amount, occurredAt, description, override)
	}
	return &models.LedgerEntry{}, &models.AlertState{}, nil
}

func (m *mockLedgerService) ReverseTransaction(userID, periodID uint, category string, amount decimal.Decimal, description string) (*models.LedgerEntry, *models.AlertState, error) {
	if m.reverseTransactionFn != nil {
		return m.reverseTransactionFn(userID, periodID, category, amount, description)
	}
	return &models.LedgerEntry{}, &models.AlertState{}, nil
}

func (m *mockLedgerService) GetPeriodEntries(userID, periodID uint, page pagination.PageRequest, filter services.EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error) {
	if m.getPeriodEntriesFn != nil {
		return m.getPeriodEntriesFn(userID, periodID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.LedgerEntry{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockLedgerService) Remaining(userID, periodID uint, category string) (decimal.Decimal, error) {
	if m.remainingFn != nil {
		return m.remainingFn(userID, periodID, category)
	}
	return decimal.Zero, nil
}

func (m *mockLedgerService) DailyAllowance(userID, periodID uint, category string, asOf time.Time) (decimal.Decimal, error) {
	if m.dailyAllowanceFn != nil {
		return m.dailyAllowanceFn(userID, periodID, category, asOf)
	}
	return decimal.Zero, nil
}

var _ services.LedgerServicer = (*mockLedgerService)(nil)

func setupLedgerRouter(handler *LedgerHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(1))
	auth.POST("/periods/:id/transactions", handler.RecordTransaction)
	auth.GET("/periods/:id/transactions", handler.GetTransactions)
	auth.POST("/periods/:id/reversals", handler.ReverseTransaction)
	auth.GET("/periods/:id/remaining", handler.GetRemaining)
	auth.GET("/periods/:id/allowance", handler.GetDailyAllowance)
	return r
}

func TestLedgerHandler_RecordTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockLedgerService{
			recordTransactionFn: func(_, periodID uint, category string, amount decimal.Decimal, occurredAt time.Time, _ string, _ bool) (*models.LedgerEntry, *models.AlertState, error) {
				return &models.LedgerEntry{
						Base:       models.Base{ID: 1},
						PeriodID:   periodID,
						Category:   category,
						Type:       models.EntryTypeSpend,
						Amount:     amount,
						OccurredAt: occurredAt,
					}, &models.AlertState{
						PeriodID:            periodID,
						Mode:                models.AlertModeNormal,
						RiskScore:           0.35,
						TriggeredCategories: models.CategoryList{},
					}, nil
			},
		}
		handler := NewLedgerHandler(svc, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "POST", "/periods/5/transactions",
			`{"category":"ruoka","amount":"45.50","occurred_at":"2025-01-10T12:00:00Z","description":"ruokakauppa"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		entry := result["entry"].(map[string]interface{})
		if entry["category"] != "ruoka" {
			t.Errorf("expected category ruoka, got %v", entry["category"])
		}
		alert := result["alert"].(map[string]interface{})
		if alert["mode"] != "normal" {
			t.Errorf("expected normal mode, got %v", alert["mode"])
		}
	})

	t.Run("returns 400 on missing category", func(t *testing.T) {
		handler := NewLedgerHandler(&mockLedgerService{}, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "POST", "/periods/5/transactions",
			`{"amount":"45.50","occurred_at":"2025-01-10T12:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid category name", func(t *testing.T) {
		handler := NewLedgerHandler(&mockLedgerService{}, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "POST", "/periods/5/transactions",
			`{"category":"Not Valid!","amount":"10","occurred_at":"2025-01-10T12:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 423 on locked category", func(t *testing.T) {
		svc := &mockLedgerService{
			recordTransactionFn: func(_, _ uint, _ string, _ decimal.Decimal, _ time.Time, _ string, _ bool) (*models.LedgerEntry, *models.AlertState, error) {
				return nil, nil, apperrors.ErrCategoryLocked
			},
		}
		handler := NewLedgerHandler(svc, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "POST", "/periods/5/transactions",
			`{"category":"ruoka","amount":"10","occurred_at":"2025-01-10T12:00:00Z"}`)

		if rec.Code != http.StatusLocked {
			t.Fatalf("expected 423, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_LOCKED")
	})

	t.Run("returns 400 on invalid period id", func(t *testing.T) {
		handler := NewLedgerHandler(&mockLedgerService{}, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "POST", "/periods/abc/transactions",
			`{"category":"ruoka","amount":"10","occurred_at":"2025-01-10T12:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestLedgerHandler_ReverseTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockLedgerService{
			reverseTransactionFn: func(_, periodID uint, category string, amount decimal.Decimal, _ string) (*models.LedgerEntry, *models.AlertState, error) {
				return &models.LedgerEntry{
					Base:     models.Base{ID: 2},
					PeriodID: periodID,
					Category: category,
					Type:     models.EntryTypeReversal,
					Amount:   amount,
				}, &models.AlertState{PeriodID: periodID, Mode: models.AlertModeNormal}, nil
			},
		}
		handler := NewLedgerHandler(svc, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "POST", "/periods/5/reversals", `{"category":"ruoka","amount":"20"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		entry := result["entry"].(map[string]interface{})
		if entry["type"] != "reversal" {
			t.Errorf("expected reversal entry, got %v", entry["type"])
		}
	})
}

func TestLedgerHandler_GetTransactions(t *testing.T) {
	t.Run("passes filters to the service", func(t *testing.T) {
		var captured services.EntryFilter
		svc := &mockLedgerService{
			getPeriodEntriesFn: func(_, _ uint, _ pagination.PageRequest, filter services.EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error) {
				captured = filter
				resp := pagination.NewPageResponse([]models.LedgerEntry{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewLedgerHandler(svc, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "GET", "/periods/5/transactions?type=spend&category=ruoka", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.Type == nil || *captured.Type != models.EntryTypeSpend {
			t.Error("expected spend type filter")
		}
		if captured.Category == nil || *captured.Category != "ruoka" {
			t.Error("expected category filter")
		}
	})

	t.Run("returns 400 on bad type", func(t *testing.T) {
		handler := NewLedgerHandler(&mockLedgerService{}, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "GET", "/periods/5/transactions?type=bogus", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on bad category filter", func(t *testing.T) {
		handler := NewLedgerHandler(&mockLedgerService{}, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "GET", "/periods/5/transactions?category=Not%20Valid!", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestLedgerHandler_GetRemaining(t *testing.T) {
	t.Run("returns the balance", func(t *testing.T) {
		svc := &mockLedgerService{
			remainingFn: func(_, _ uint, _ string) (decimal.Decimal, error) {
				return decimal.NewFromFloat(-12.50), nil
			},
		}
		handler := NewLedgerHandler(svc, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "GET", "/periods/5/remaining?category=ruoka", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["remaining"] != "-12.5" {
			t.Errorf("expected remaining -12.5, got %v", result["remaining"])
		}
	})

	t.Run("returns 400 without category", func(t *testing.T) {
		handler := NewLedgerHandler(&mockLedgerService{}, &mockAuditService{})
		r := setupLedgerRouter(handler)

		rec := doRequest(r, "GET", "/periods/5/remaining", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
