package services

import (
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/engine"
	"sentinel/internal/models"
	"sentinel/internal/pagination"
)

// ProfileUpdate holds the optional fields of a profile update. Nil fields
// are left untouched.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	SavingsGoal *decimal.Decimal
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// CategorySpec describes one category allocation when creating a period.
type CategorySpec struct {
	Name         string
	MonthlyLimit decimal.Decimal
}

// PeriodServicer defines the contract for budget period management. The
// category set of a period is fixed at creation; later mutation happens
// only through the ledger and the emergency lockdown path.
type PeriodServicer interface {
	CreatePeriod(userID uint, start, end time.Time, totalIncome decimal.Decimal, categories []CategorySpec) (*models.BudgetPeriod, error)
	GetPeriodByID(userID, periodID uint) (*models.BudgetPeriod, error)
	GetUserPeriods(userID uint, page pagination.PageRequest, archived *bool) (*pagination.PageResponse[models.BudgetPeriod], error)
	ArchivePeriod(userID, periodID uint) error
	RolloverPeriod(userID, periodID uint) (*models.BudgetPeriod, error)
	UnlockCategory(userID, periodID uint, category string) (*models.CategoryBudget, error)
}

// EntryFilter holds optional filter parameters for listing ledger entries.
type EntryFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Type     *models.EntryType
	Category *string
}

// LedgerServicer defines the contract for recording and reading
// transactions against a period's category budgets. Every mutation
// re-evaluates the period's alert state.
type LedgerServicer interface {
	RecordTransaction(userID, periodID uint, category string, amount decimal.Decimal, occurredAt time.Time, description string, override bool) (*models.LedgerEntry, *models.AlertState, error)
	ReverseTransaction(userID, periodID uint, category string, amount decimal.Decimal, description string) (*models.LedgerEntry, *models.AlertState, error)
	GetPeriodEntries(userID, periodID uint, page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error)
	Remaining(userID, periodID uint, category string) (decimal.Decimal, error)
	DailyAllowance(userID, periodID uint, category string, asOf time.Time) (decimal.Decimal, error)
}

// Advice bundles an alert state with the actions derived from it.
type Advice struct {
	Alert   *models.AlertState         `json:"alert"`
	Actions []engine.RecommendedAction `json:"actions"`
	Message string                     `json:"message"`
}

// AlertServicer defines the contract for alert evaluation and advisory.
// Evaluate and GetLatestAlert are read-only with respect to category
// state; Advise may persist lockdowns when the mode is emergency.
type AlertServicer interface {
	Evaluate(userID, periodID uint) (*models.AlertState, error)
	Advise(userID, periodID uint) (*Advice, error)
	GetLatestAlert(userID, periodID uint) (*models.AlertState, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
