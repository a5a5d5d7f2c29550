package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod represents one user's budget envelope for a calendar month.
// The category set is fixed once the period is created; transactions only
// move spent amounts within it.
type BudgetPeriod struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	StartDate   time.Time       `gorm:"not null" json:"start_date"`
	EndDate     time.Time       `gorm:"not null" json:"end_date"`
	TotalIncome decimal.Decimal `gorm:"type:decimal(20,2)" json:"total_income"`
	Archived    bool            `gorm:"default:false" json:"archived"`

	// Relationships
	Categories []CategoryBudget `gorm:"foreignKey:PeriodID" json:"categories,omitempty"`
}

// TotalDays returns the number of calendar days in the period, inclusive
// of both start and end dates.
func (p *BudgetPeriod) TotalDays() int {
	return daysBetween(p.StartDate, p.EndDate) + 1
}

// ElapsedDays returns how many days of the period have elapsed as of the
// given date, inclusive of the date itself. Clamped to [0, TotalDays].
func (p *BudgetPeriod) ElapsedDays(asOf time.Time) int {
	if asOf.Before(startOfDay(p.StartDate)) {
		return 0
	}
	elapsed := daysBetween(p.StartDate, asOf) + 1
	if total := p.TotalDays(); elapsed > total {
		return total
	}
	return elapsed
}

// DaysLeft returns the remaining calendar days from asOf through the end
// of the period, inclusive of asOf. Zero once the period has passed.
func (p *BudgetPeriod) DaysLeft(asOf time.Time) int {
	if asOf.After(endOfDay(p.EndDate)) {
		return 0
	}
	if asOf.Before(startOfDay(p.StartDate)) {
		return p.TotalDays()
	}
	return daysBetween(asOf, p.EndDate) + 1
}

// Contains reports whether t falls within the period's date bounds.
func (p *BudgetPeriod) Contains(t time.Time) bool {
	return !t.Before(startOfDay(p.StartDate)) && !t.After(endOfDay(p.EndDate))
}

// Category returns the category budget with the given name, or nil if the
// period has no such category.
func (p *BudgetPeriod) Category(name string) *CategoryBudget {
	for i := range p.Categories {
		if p.Categories[i].Name == name {
			return &p.Categories[i]
		}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// daysBetween counts whole calendar days from a to b. Rounding absorbs
// DST transitions that make a day 23 or 25 hours long.
func daysBetween(a, b time.Time) int {
	return int(math.Round(startOfDay(b).Sub(startOfDay(a)).Hours() / 24))
}
