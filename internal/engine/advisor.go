package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/models"
)

// ActionType classifies recommended actions by what they demand of the user.
type ActionType string

const (
	ActionAdvisory       ActionType = "advisory"
	ActionLockdown       ActionType = "lockdown"
	ActionLimitReduction ActionType = "limit_reduction"
	ActionIncomeRequest  ActionType = "income_request"
)

// Priority orders action types from most to least severe.
func (t ActionType) Priority() int {
	switch t {
	case ActionLockdown:
		return 3
	case ActionLimitReduction:
		return 2
	case ActionIncomeRequest:
		return 1
	default:
		return 0
	}
}

// RecommendedAction is a single suggested or enforced action. Actions are
// derived views generated fresh on each Advise call and are never persisted.
type RecommendedAction struct {
	Type        ActionType      `json:"type"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description"`
	Mandatory   bool            `json:"mandatory"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	NewLimit    decimal.Decimal `json:"new_limit,omitempty"`
}

// Daily limits shrink by this factor under a mandatory limit reduction.
var limitReductionFactor = decimal.NewFromFloat(0.20)

const incomeRequestDeadline = 7 * 24 * time.Hour

// Advise translates an alert state into an ordered action list, most severe
// first. The emergency path is the single place where the advisor mutates
// ledger state: it sets the sticky Locked flag on every triggered category.
// Every other mode is read-only with respect to the period.
func Advise(p *models.BudgetPeriod, state models.AlertState, now time.Time) []RecommendedAction {
	var actions []RecommendedAction

	switch state.Mode {
	case models.AlertModeNormal:
		actions = append(actions, RecommendedAction{
			Type:        ActionAdvisory,
			Description: messageFor(state.Mode, state.TriggeredCategories),
		})

	case models.AlertModeCaution:
		if len(state.TriggeredCategories) == 0 {
			actions = append(actions, RecommendedAction{
				Type:        ActionAdvisory,
				Description: messageFor(state.Mode, state.TriggeredCategories),
			})
		}
		for _, name := range state.TriggeredCategories {
			actions = append(actions, RecommendedAction{
				Type:        ActionAdvisory,
				Category:    name,
				Description: categoryAdvisory(name),
			})
			if c := p.Category(name); c != nil && c.DailyLimit.IsPositive() {
				actions = append(actions, RecommendedAction{
					Type:        ActionLimitReduction,
					Category:    name,
					Description: limitSuggestion(name, reducedLimit(c.DailyLimit)),
					NewLimit:    reducedLimit(c.DailyLimit),
				})
			}
		}

	case models.AlertModeAlert:
		for _, name := range state.TriggeredCategories {
			newLimit := decimal.Zero
			if c := p.Category(name); c != nil {
				newLimit = reducedLimit(c.DailyLimit)
			}
			actions = append(actions, RecommendedAction{
				Type:        ActionLimitReduction,
				Category:    name,
				Description: limitOrder(name, newLimit),
				Mandatory:   true,
				NewLimit:    newLimit,
			})
		}
		actions = append(actions, RecommendedAction{
			Type:        ActionIncomeRequest,
			Description: incomeRequest(),
		})

	case models.AlertModeEmergency:
		for _, name := range state.TriggeredCategories {
			if c := p.Category(name); c != nil && !c.Locked {
				lockedAt := now
				c.Locked = true
				c.LockedAt = &lockedAt
			}
			actions = append(actions, RecommendedAction{
				Type:        ActionLockdown,
				Category:    name,
				Description: lockdownNotice(name),
				Mandatory:   true,
			})
		}
		deadline := now.Add(incomeRequestDeadline)
		actions = append(actions, RecommendedAction{
			Type:        ActionIncomeRequest,
			Description: urgentIncomeRequest(deadline),
			Mandatory:   true,
			Deadline:    &deadline,
		})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Mandatory != actions[j].Mandatory {
			return actions[i].Mandatory
		}
		return actions[i].Type.Priority() > actions[j].Type.Priority()
	})
	return actions
}

func reducedLimit(dailyLimit decimal.Decimal) decimal.Decimal {
	return dailyLimit.Sub(dailyLimit.Mul(limitReductionFactor)).Round(2)
}
