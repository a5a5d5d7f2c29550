package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "sentinel/internal/errors"
	"sentinel/internal/models"
	"sentinel/internal/pagination"
)

// periodService handles budget period lifecycle logic.
type periodService struct {
	db *gorm.DB
}

// NewPeriodService creates a new PeriodServicer.
func NewPeriodService(db *gorm.DB) PeriodServicer {
	return &periodService{db: db}
}

// CreatePeriod creates a budget period with its fixed category set. Daily
// limits are derived from the monthly limit spread over the period length.
func (s *periodService) CreatePeriod(userID uint, start, end time.Time, totalIncome decimal.Decimal, categories []CategorySpec) (*models.BudgetPeriod, error) {
	if end.Before(start) {
		return nil, apperrors.ErrInvalidPeriodRange
	}
	if totalIncome.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "total income must not be negative")
	}

	seen := make(map[string]bool, len(categories))
	for _, spec := range categories {
		if spec.Name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name must not be empty")
		}
		if seen[spec.Name] {
			return nil, apperrors.WithMessage(apperrors.ErrDuplicateCategory,
				fmt.Sprintf("Category %q appears more than once", spec.Name))
		}
		seen[spec.Name] = true
		if spec.MonthlyLimit.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("Monthly limit for %q must not be negative", spec.Name))
		}
	}

	period := &models.BudgetPeriod{
		UserID:      userID,
		StartDate:   start,
		EndDate:     end,
		TotalIncome: totalIncome,
	}

	totalDays := decimal.NewFromInt(int64(period.TotalDays()))
	for _, spec := range categories {
		period.Categories = append(period.Categories, models.CategoryBudget{
			Name:         spec.Name,
			MonthlyLimit: spec.MonthlyLimit,
			DailyLimit:   spec.MonthlyLimit.DivRound(totalDays, 2),
			SpentAmount:  decimal.Zero,
		})
	}

	if err := s.db.Create(period).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return period, nil
}

// GetPeriodByID returns a period with its categories if it belongs to the user.
func (s *periodService) GetPeriodByID(userID, periodID uint) (*models.BudgetPeriod, error) {
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

// GetUserPeriods returns a paginated list of the user's periods, newest first.
func (s *periodService) GetUserPeriods(userID uint, page pagination.PageRequest, archived *bool) (*pagination.PageResponse[models.BudgetPeriod], error) {
	page.Defaults()

	base := s.db.Model(&models.BudgetPeriod{}).Where("user_id = ?", userID)
	if archived != nil {
		base = base.Where("archived = ?", *archived)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var periods []models.BudgetPeriod
	if err := base.Preload("Categories").Order("start_date DESC").Scopes(pagination.Paginate(page)).Find(&periods).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(periods, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ArchivePeriod marks a period read-only. Archiving is idempotent.
func (s *periodService) ArchivePeriod(userID, periodID uint) error {
	period, err := s.GetPeriodByID(userID, periodID)
	if err != nil {
		return err
	}

	if period.Archived {
		return nil
	}
	if err := s.db.Model(period).Update("archived", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RolloverPeriod archives the given period and creates the next one: same
// category names and monthly limits, spent amounts reset to zero, locks
// cleared. The new period starts the day after the old one ends and covers
// one calendar month.
func (s *periodService) RolloverPeriod(userID, periodID uint) (*models.BudgetPeriod, error) {
	var next *models.BudgetPeriod

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

		start := period.EndDate.AddDate(0, 0, 1)
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		end := start.AddDate(0, 1, -1)

		next = &models.BudgetPeriod{
			UserID:      userID,
			StartDate:   start,
			EndDate:     end,
			TotalIncome: period.TotalIncome,
		}
		totalDays := decimal.NewFromInt(int64(next.TotalDays()))
		for _, c := range period.Categories {
			next.Categories = append(next.Categories, models.CategoryBudget{
				Name:         c.Name,
				MonthlyLimit: c.MonthlyLimit,
				DailyLimit:   c.MonthlyLimit.DivRound(totalDays, 2),
				SpentAmount:  decimal.Zero,
			})
		}

		if err := tx.Create(next).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&period).Update("archived", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return next, nil
}

// UnlockCategory clears the emergency lock on a category. Unlocking is the
// explicit user escape hatch; evaluation alone never releases a lock.
func (s *periodService) UnlockCategory(userID, periodID uint, category string) (*models.CategoryBudget, error) {
	period, err := s.GetPeriodByID(userID, periodID)
	if err != nil {
		return nil, err
	}
	if period.Archived {
		return nil, apperrors.ErrPeriodArchived
	}

	c := period.Category(category)
	if c == nil {
		return nil, apperrors.WithMessage(apperrors.ErrUnknownCategory,
			fmt.Sprintf("Category %q does not exist in this period", category))
	}
	if !c.Locked {
		return c, nil
	}

	updates := map[string]interface{}{
		"locked":    false,
		"locked_at": nil,
	}
	if err := s.db.Model(c).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	c.Locked = false
	c.LockedAt = nil
	return c, nil
}
