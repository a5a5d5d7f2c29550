package engine

import (
	"sort"
	"time"

	"sentinel/internal/models"
)

// Canonical threshold table. The risk score is anchored so an on-pace
// budget sits at riskBaseline, below the caution boundary, and each unit
// of weighted pressure moves the score by pressureWeight. Direction is a
// hard contract: more pressure never lowers the score.
const (
	cautionThreshold   = 0.40
	alertThreshold     = 0.65
	emergencyThreshold = 0.85

	riskBaseline   = 0.35
	pressureWeight = 0.5

	// A category surfaces in triggered_categories when its own pressure
	// reaches this value, even if the aggregate mode stays low.
	categoryPressureTrigger = 0.25
)

// Evaluate derives the alert state for a period as of the given date. It is
// deterministic and idempotent: repeated calls with unchanged period state
// produce identical output. It never fails on valid period data; a period
// with no categories evaluates to normal with risk zero.
func Evaluate(p *models.BudgetPeriod, asOf time.Time) models.AlertState {
	state := models.AlertState{
		PeriodID:            p.ID,
		Mode:                models.AlertModeNormal,
		TriggeredCategories: models.CategoryList{},
		EvaluatedAt:         asOf,
	}

	if len(p.Categories) == 0 {
		return state
	}

	tf := TimeFraction(p, asOf)

	totalLimit := 0.0
	for i := range p.Categories {
		totalLimit += p.Categories[i].MonthlyLimit.InexactFloat64()
	}

	weighted := 0.0
	for i := range p.Categories {
		c := &p.Categories[i]
		pr := Pressure(c, tf)

		if totalLimit > 0 {
			weighted += pr * c.MonthlyLimit.InexactFloat64() / totalLimit
		} else {
			// All limits are zero, fall back to an unweighted mean.
			weighted += pr / float64(len(p.Categories))
		}

		if c.Utilization() > 1.0 || pr >= categoryPressureTrigger {
			state.TriggeredCategories = append(state.TriggeredCategories, c.Name)
		}
	}
	sort.Strings(state.TriggeredCategories)

	state.RiskScore = clamp01(riskBaseline + pressureWeight*weighted)
	state.Mode = modeFor(state.RiskScore)
	return state
}

// TimeFraction returns the elapsed share of the period as of the given
// date, counting the date itself, clamped to [0, 1].
func TimeFraction(p *models.BudgetPeriod, asOf time.Time) float64 {
	total := p.TotalDays()
	if total <= 0 {
		return 1
	}
	return float64(p.ElapsedDays(asOf)) / float64(total)
}

// Pressure is utilization minus the elapsed time fraction: positive means
// the category is spending faster than the month is passing.
func Pressure(c *models.CategoryBudget, timeFraction float64) float64 {
	return c.Utilization() - timeFraction
}

func modeFor(risk float64) models.AlertMode {
	switch {
	case risk < cautionThreshold:
		return models.AlertModeNormal
	case risk < alertThreshold:
		return models.AlertModeCaution
	case risk < emergencyThreshold:
		return models.AlertModeAlert
	default:
		return models.AlertModeEmergency
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
