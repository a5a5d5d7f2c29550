// Package engine implements the budget core: category bookkeeping, the
// threshold evaluator that classifies spending risk, and the advisor that
// turns a risk level into recommended actions. Everything here operates on
// in-memory period state and performs no I/O; persistence and transport
// are the service layer's concern.
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "sentinel/internal/errors"
	"sentinel/internal/models"
)

// RecordSpend applies a spend of amount against the named category and
// returns the updated category budget. The operation either fully applies
// or fully rejects; on error no period state changes.
//
// A locked category rejects the spend unless override is set. Override is
// reserved for the explicit user-override path, not normal entry.
func RecordSpend(p *models.BudgetPeriod, category string, amount decimal.Decimal, occurredAt time.Time, override bool) (*models.CategoryBudget, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount,
			fmt.Sprintf("Amount must be greater than zero, got %s", amount))
	}

	c := p.Category(category)
	if c == nil {
		return nil, unknownCategory(category)
	}

	if !p.Contains(occurredAt) {
		return nil, apperrors.WithMessage(apperrors.ErrOutOfPeriod,
			fmt.Sprintf("Date %s is outside the period %s – %s",
				occurredAt.Format("2006-01-02"),
				p.StartDate.Format("2006-01-02"),
				p.EndDate.Format("2006-01-02")))
	}

	if c.Locked && !override {
		msg := fmt.Sprintf("Category %q is locked", category)
		if c.LockedAt != nil {
			msg = fmt.Sprintf("Category %q is locked since %s", category, c.LockedAt.Format("2006-01-02"))
		}
		return nil, apperrors.WithMessage(apperrors.ErrCategoryLocked, msg)
	}

	c.SpentAmount = c.SpentAmount.Add(amount)
	return c, nil
}

// ReverseSpend removes amount from the category's spent total, flooring at
// zero. Used for corrections and refunds.
func ReverseSpend(p *models.BudgetPeriod, category string, amount decimal.Decimal) (*models.CategoryBudget, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount,
			fmt.Sprintf("Amount must be greater than zero, got %s", amount))
	}

	c := p.Category(category)
	if c == nil {
		return nil, unknownCategory(category)
	}

	c.SpentAmount = c.SpentAmount.Sub(amount)
	if c.SpentAmount.IsNegative() {
		c.SpentAmount = decimal.Zero
	}
	return c, nil
}

// Remaining returns monthly limit minus spent for the named category.
// Negative values signal overspend and are valid.
func Remaining(p *models.BudgetPeriod, category string) (decimal.Decimal, error) {
	c := p.Category(category)
	if c == nil {
		return decimal.Zero, unknownCategory(category)
	}
	return c.Remaining(), nil
}

// DailyAllowance returns how much the category can spend per remaining day
// of the period, counting asOf itself. Once no days are left the remaining
// balance is returned as-is.
func DailyAllowance(p *models.BudgetPeriod, category string, asOf time.Time) (decimal.Decimal, error) {
	c := p.Category(category)
	if c == nil {
		return decimal.Zero, unknownCategory(category)
	}

	daysLeft := p.DaysLeft(asOf)
	if daysLeft == 0 {
		return c.Remaining(), nil
	}
	return c.Remaining().DivRound(decimal.NewFromInt(int64(daysLeft)), 2), nil
}

func unknownCategory(name string) *apperrors.AppError {
	return apperrors.WithMessage(apperrors.ErrUnknownCategory,
		fmt.Sprintf("Category %q does not exist in this period", name))
}
