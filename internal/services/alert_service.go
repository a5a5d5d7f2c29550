package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"sentinel/internal/engine"
	apperrors "sentinel/internal/errors"
	"sentinel/internal/logger"
	"sentinel/internal/models"
	"sentinel/internal/notify"
)

// alertService evaluates periods and derives recommended actions. Evaluate
// never touches category state; Advise persists lockdowns when the mode
// reaches emergency.
type alertService struct {
	db       *gorm.DB
	notifier notify.Notifier
}

// NewAlertService creates a new AlertServicer.
func NewAlertService(db *gorm.DB, notifier notify.Notifier) AlertServicer {
	return &alertService{db: db, notifier: notifier}
}

// Evaluate recomputes the alert state for a period as of now and persists
// the snapshot. Safe to call repeatedly; unchanged spending yields an
// identical classification.
func (s *alertService) Evaluate(userID, periodID uint) (*models.AlertState, error) {
	period, err := s.loadPeriod(userID, periodID)
	if err != nil {
		return nil, err
	}

	previousMode, err := latestMode(s.db, period.ID)
	if err != nil {
		return nil, err
	}

	state := engine.Evaluate(period, time.Now())
	if err := s.db.Create(&state).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.notifyModeChange(userID, previousMode, state)
	return &state, nil
}

// Advise evaluates the period and translates the result into an ordered
// action list. On emergency the triggered categories are locked and the
// locks persisted; this is the only evaluation path with side effects.
func (s *alertService) Advise(userID, periodID uint) (*Advice, error) {
	var (
		state        models.AlertState
		actions      []engine.RecommendedAction
		previousMode models.AlertMode
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var period models.BudgetPeriod
		err := forUpdate(tx).
			Where("id = ? AND user_id = ?", periodID, userID).First(&period).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrPeriodNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if period.Archived {
			return apperrors.ErrPeriodArchived
		}
		if err := tx.Where("period_id = ?", period.ID).Order("name").Find(&period.Categories).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		previousMode, err = latestMode(tx, period.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		state = engine.Evaluate(&period, now)
		actions = engine.Advise(&period, state, now)

		// Persist any locks the advisor set on the emergency path.
		for i := range period.Categories {
			c := &period.Categories[i]
			if c.Locked && c.LockedAt != nil && c.LockedAt.Equal(now) {
				updates := map[string]interface{}{
					"locked":    true,
					"locked_at": *c.LockedAt,
				}
				if err := tx.Model(c).Updates(updates).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			}
		}

		if err := tx.Create(&state).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyModeChange(userID, previousMode, state)
	return &Advice{
		Alert:   &state,
		Actions: actions,
		Message: engine.MessageFor(state),
	}, nil
}

// GetLatestAlert returns the most recent alert snapshot for a period,
// computing and persisting one if the period has never been evaluated.
func (s *alertService) GetLatestAlert(userID, periodID uint) (*models.AlertState, error) {
	period, err := s.loadPeriod(userID, periodID)
	if err != nil {
		return nil, err
	}

	var alert models.AlertState
	err = s.db.Where("period_id = ?", period.ID).Order("id DESC").First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.Evaluate(userID, periodID)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &alert, nil
}

func (s *alertService) loadPeriod(userID, periodID uint) (*models.BudgetPeriod, error) {
	var period models.BudgetPeriod
	err := s.db.Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("name")
	}).Where("id = ? AND user_id = ?", periodID, userID).First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPeriodNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &period, nil
}

func (s *alertService) notifyModeChange(userID uint, previousMode models.AlertMode, state models.AlertState) {
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
