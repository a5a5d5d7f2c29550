package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType distinguishes spends from corrections.
type EntryType string

const (
	EntryTypeSpend    EntryType = "spend"
	EntryTypeReversal EntryType = "reversal"
)

// LedgerEntry is the immutable record of a single transaction event applied
// to a category budget. Category spent amounts are always the sum of these.
type LedgerEntry struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	PeriodID    uint            `gorm:"not null;index" json:"period_id"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Category    string          `gorm:"not null" json:"category"`
	Type        EntryType       `gorm:"not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `gorm:"not null" json:"occurred_at"`
	Override    bool            `gorm:"default:false" json:"override"`
}
