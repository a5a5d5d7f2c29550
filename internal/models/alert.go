package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AlertMode is the discrete risk classification of a budget period.
type AlertMode string

const (
	AlertModeNormal    AlertMode = "normal"
	AlertModeCaution   AlertMode = "caution"
	AlertModeAlert     AlertMode = "alert"
	AlertModeEmergency AlertMode = "emergency"
)

// Severity orders modes from normal (0) to emergency (3).
func (m AlertMode) Severity() int {
	switch m {
	case AlertModeCaution:
		return 1
	case AlertModeAlert:
		return 2
	case AlertModeEmergency:
		return 3
	default:
		return 0
	}
}

// CategoryList is a JSON-encoded string slice column.
type CategoryList []string

// Value implements driver.Valuer.
func (l CategoryList) Value() (driver.Value, error) {
	if l == nil {
		l = CategoryList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *CategoryList) Scan(value interface{}) error {
	if value == nil {
		*l = CategoryList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for CategoryList", value)
	}
}

// Contains reports whether the list includes the given category name.
func (l CategoryList) Contains(name string) bool {
	for _, c := range l {
		if c == name {
			return true
		}
	}
	return false
}

// AlertState is a snapshot of the risk assessment for a budget period.
// It is a pure function of the period's category state and the evaluation
// date; snapshots are superseded by recomputation, never edited.
type AlertState struct {
	Base
	PeriodID            uint         `gorm:"not null;index" json:"period_id"`
	Mode                AlertMode    `gorm:"not null" json:"mode"`
	RiskScore           float64      `gorm:"not null" json:"risk_score"`
	TriggeredCategories CategoryList `gorm:"type:text" json:"triggered_categories"`
	EvaluatedAt         time.Time    `gorm:"not null" json:"evaluated_at"`
}
