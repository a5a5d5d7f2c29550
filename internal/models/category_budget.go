package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryBudget holds one spending category's allocation within a period.
type CategoryBudget struct {
	Base
	PeriodID     uint            `gorm:"not null;uniqueIndex:idx_period_category" json:"period_id"`
	Name         string          `gorm:"not null;uniqueIndex:idx_period_category" json:"name"`
	MonthlyLimit decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"monthly_limit"`
	DailyLimit   decimal.Decimal `gorm:"type:decimal(20,2)" json:"daily_limit"`
	SpentAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"spent_amount"`
	Locked       bool            `gorm:"default:false" json:"locked"`
	LockedAt     *time.Time      `json:"locked_at,omitempty"`
}

// Remaining returns monthly limit minus spent amount. A negative value is
// a valid overspend signal, not an error.
func (c *CategoryBudget) Remaining() decimal.Decimal {
	return c.MonthlyLimit.Sub(c.SpentAmount)
}

// Utilization returns spent/limit as a ratio. A category with no limit
// counts as fully consumed the moment anything is spent against it.
func (c *CategoryBudget) Utilization() float64 {
	if c.MonthlyLimit.IsZero() {
		if c.SpentAmount.IsZero() {
			return 0
		}
		return 1
	}
	return c.SpentAmount.Div(c.MonthlyLimit).InexactFloat64()
}
