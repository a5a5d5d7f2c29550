package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sentinel/internal/engine"
	apperrors "sentinel/internal/errors"
	"sentinel/internal/logger"
	"sentinel/internal/models"
	"sentinel/internal/notify"
	"sentinel/internal/pagination"
)

// ledgerService records and reads transactions. Every mutation runs in a
// transaction that row-locks the period, applies the spend through the
// budget core, appends a ledger entry, and persists a fresh alert snapshot.
type ledgerService struct {
	db       *gorm.DB
	notifier notify.Notifier
}

// NewLedgerService creates a new LedgerServicer. Pass notify.Nop{} when no
// broker is configured.
func NewLedgerService(db *gorm.DB, notifier notify.Notifier) LedgerServicer {
	return &ledgerService{db: db, notifier: notifier}
}

// forUpdate adds a FOR UPDATE row lock on dialects that support it.
// SQLite, used in tests, serializes writes on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockPeriod loads the period and its categories inside tx with a row lock
// on the period, serializing concurrent mutations.
func lockPeriod(tx *gorm.DB, userID, periodID uint) (*models.BudgetPeriod, error) {
	var period models.BudgetPeriod
	err := forUpdate(tx).
		Where("id = ? AND user_id = ?", periodID, userID).First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPeriodNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if period.Archived {
		return nil, apperrors.ErrPeriodArchived
	}
	if err := tx.Where("period_id = ?", period.ID).Order("name").Find(&period.Categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &period, nil
}

// latestMode returns the mode of the most recent alert snapshot, or normal
// when the period has never been evaluated.
func latestMode(tx *gorm.DB, periodID uint) (models.AlertMode, error) {
	var alert models.AlertState
	err := tx.Where("period_id = ?", periodID).Order("id DESC").First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AlertModeNormal, nil
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return alert.Mode, nil
}

// RecordTransaction applies a spend against a category and returns the new
// ledger entry together with the recomputed alert state. The spend and the
// re-evaluation commit atomically; a rejected spend changes nothing.
func (s *ledgerService) RecordTransaction(userID, periodID uint, category string, amount decimal.Decimal, occurredAt time.Time, description string, override bool) (*models.LedgerEntry, *models.AlertState, error) {
	var (
		entry        *models.LedgerEntry
		state        models.AlertState
		previousMode models.AlertMode
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		period, err := lockPeriod(tx, userID, periodID)
		if err != nil {
			return err
		}

		previousMode, err = latestMode(tx, period.ID)
		if err != nil {
			return err
		}

		c, err := engine.RecordSpend(period, category, amount, occurredAt, override)
		if err != nil {
			return err
		}

		if err := tx.Model(c).Update("spent_amount", c.SpentAmount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		entry = &models.LedgerEntry{
			UserID:      userID,
			PeriodID:    period.ID,
			CategoryID:  c.ID,
			Category:    c.Name,
			Type:        models.EntryTypeSpend,
			Amount:      amount,
			Description: description,
			OccurredAt:  occurredAt,
			Override:    override,
		}
		if err := tx.Create(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		state = engine.Evaluate(period, time.Now())
		if err := tx.Create(&state).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifyModeChange(userID, previousMode, state)
	return entry, &state, nil
}

// ReverseTransaction removes a previously recorded amount from a category,
// flooring the spent total at zero, and records a reversal entry.
func (s *ledgerService) ReverseTransaction(userID, periodID uint, category string, amount decimal.Decimal, description string) (*models.LedgerEntry, *models.AlertState, error) {
	var (
		entry        *models.LedgerEntry
		state        models.AlertState
		previousMode models.AlertMode
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		period, err := lockPeriod(tx, userID, periodID)
		if err != nil {
			return err
		}

		previousMode, err = latestMode(tx, period.ID)
		if err != nil {
			return err
		}

		c, err := engine.ReverseSpend(period, category, amount)
		if err != nil {
			return err
		}

		if err := tx.Model(c).Update("spent_amount", c.SpentAmount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		entry = &models.LedgerEntry{
			UserID:      userID,
			PeriodID:    period.ID,
			CategoryID:  c.ID,
			Category:    c.Name,
			Type:        models.EntryTypeReversal,
			Amount:      amount,
			Description: description,
			OccurredAt:  time.Now(),
		}
		if err := tx.Create(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		state = engine.Evaluate(period, time.Now())
		if err := tx.Create(&state).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifyModeChange(userID, previousMode, state)
	return entry, &state, nil
}

// GetPeriodEntries returns a paginated, filtered list of ledger entries for
// a period, newest first.
func (s *ledgerService) GetPeriodEntries(userID, periodID uint, page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error) {
	page.Defaults()

	// Ownership check before exposing entries.
	var count int64
	if err := s.db.Model(&models.BudgetPeriod{}).Where("id = ? AND user_id = ?", periodID, userID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrPeriodNotFound
	}

	base := s.db.Model(&models.LedgerEntry{}).Where("period_id = ?", periodID)
	if filter.FromDate != nil {
		base = base.Where("occurred_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("occurred_at <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.Category != nil {
		base = base.Where("category = ?", *filter.Category)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.LedgerEntry
	if err := base.Order("occurred_at DESC, id DESC").Scopes(pagination.Paginate(page)).Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Remaining returns the category's unspent balance, negative on overspend.
func (s *ledgerService) Remaining(userID, periodID uint, category string) (decimal.Decimal, error) {
	period, err := s.loadPeriod(userID, periodID)
	if err != nil {
		return decimal.Zero, err
	}
	return engine.Remaining(period, category)
}

// DailyAllowance returns the category's per-day budget for the rest of the
// period as of the given date.
func (s *ledgerService) DailyAllowance(userID, periodID uint, category string, asOf time.Time) (decimal.Decimal, error) {
	period, err := s.loadPeriod(userID, periodID)
	if err != nil {
		return decimal.Zero, err
	}
	return engine.DailyAllowance(period, category, asOf)
}

func (s *ledgerService) loadPeriod(userID, periodID uint) (*models.BudgetPeriod, error) {
	var period models.BudgetPeriod
	err := s.db.Preload("Categories").Where("id = ? AND user_id = ?", periodID, userID).First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPeriodNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &period, nil
}

// notifyModeChange publishes an event when the alert mode moved. Publishing
// is best effort after commit; a broker outage never fails the transaction.
func (s *ledgerService) notifyModeChange(userID uint, previousMode models.AlertMode, state models.AlertState) {
	if s.notifier == nil || state.Mode == previousMode {
		return
	}
	event := notify.AlertChangeEvent{
		UserID:              userID,
		PeriodID:            state.PeriodID,
		Mode:                state.Mode,
		PreviousMode:        previousMode,
		RiskScore:           state.RiskScore,
		TriggeredCategories: state.TriggeredCategories,
		Message:             engine.MessageFor(state),
		EvaluatedAt:         state.EvaluatedAt,
	}
	if err := s.notifier.PublishAlertChange(context.Background(), event); err != nil {
		logger.Get().Warnw("failed to publish alert change",
			"period_id", state.PeriodID,
			"mode", state.Mode,
			"error", err.Error(),
		)
	}
}
