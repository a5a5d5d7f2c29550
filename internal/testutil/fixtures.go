package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sentinel/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestPeriod creates a budget period spanning the current calendar
// month, so time.Now() always falls inside it.
func CreateTestPeriod(t *testing.T, db *gorm.DB, userID uint) *models.BudgetPeriod {
	t.Helper()

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	period := &models.BudgetPeriod{
		UserID:      userID,
		StartDate:   start,
		EndDate:     end,
		TotalIncome: decimal.NewFromInt(3000),
	}
	if err := db.Create(period).Error; err != nil {
		t.Fatalf("failed to create test period: %v", err)
	}
	return period
}

// CreateTestCategory creates a category budget in the period with the given
// monthly limit and spent amount, both given as decimal strings.
func CreateTestCategory(t *testing.T, db *gorm.DB, periodID uint, name, limit, spent string) *models.CategoryBudget {
	t.Helper()

	monthlyLimit, err := decimal.NewFromString(limit)
	if err != nil {
		t.Fatalf("invalid limit %q: %v", limit, err)
	}
	spentAmount, err := decimal.NewFromString(spent)
	if err != nil {
		t.Fatalf("invalid spent amount %q: %v", spent, err)
	}

	category := &models.CategoryBudget{
		PeriodID:     periodID,
		Name:         name,
		MonthlyLimit: monthlyLimit,
		DailyLimit:   monthlyLimit.DivRound(decimal.NewFromInt(30), 2),
		SpentAmount:  spentAmount,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestPeriodWithCategories creates a period plus one category per
// map entry, each with the given monthly limit and nothing spent.
func CreateTestPeriodWithCategories(t *testing.T, db *gorm.DB, userID uint, limits map[string]string) *models.BudgetPeriod {
	t.Helper()

	period := CreateTestPeriod(t, db, userID)
	for name, limit := range limits {
		CreateTestCategory(t, db, period.ID, name, limit, "0")
	}
	if err := db.Where("period_id = ?", period.ID).Order("name").Find(&period.Categories).Error; err != nil {
		t.Fatalf("failed to reload test categories: %v", err)
	}
	return period
}
