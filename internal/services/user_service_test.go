package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Matti@Example.com", "password123", "Matti", "Meikäläinen")
		testutil.AssertNoError(t, err)

		if user.Email != "matti@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
		if user.Password == "password123" {
			t.Error("expected password to be hashed")
		}
		if !user.IsActive {
			t.Error("expected user to be active")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("matti@example.com", "password123", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser("matti@example.com", "different", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("", "password123", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAttemptLogin(t *testing.T) {
	t.Run("success_resets_failures", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.AttemptLogin(user.Email, "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

		loggedIn, err := svc.AttemptLogin(user.Email, "password123")
		testutil.AssertNoError(t, err)
		if loggedIn.FailedLoginAttempts != 0 {
			t.Errorf("expected failure counter reset, got %d", loggedIn.FailedLoginAttempts)
		}
		if loggedIn.LastLoginAt == nil {
			t.Error("expected last login timestamp")
		}
	})

	t.Run("unknown_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.AttemptLogin("nobody@example.com", "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("locks_after_repeated_failures", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		for i := 0; i < maxFailedLogins; i++ {
			_, err := svc.AttemptLogin(user.Email, "wrong")
			testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
		}

		// Even the correct password is rejected while locked.
		_, err := svc.AttemptLogin(user.Email, "password123")
		testutil.AssertAppError(t, err, "ACCOUNT_LOCKED")
	})

	t.Run("lock_expires", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		expired := time.Now().Add(-time.Minute)
		testutil.AssertNoError(t, db.Model(user).Updates(map[string]interface{}{
			"failed_login_attempts": maxFailedLogins,
			"locked_until":          expired,
		}).Error)

		_, err := svc.AttemptLogin(user.Email, "password123")
		testutil.AssertNoError(t, err)
	})
}

func TestRefreshTokenHash(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "abc123"))

		hash, err := svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "abc123" {
			t.Errorf("expected stored hash, got %q", hash)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		err := svc.StoreRefreshTokenHash(9999, "abc123")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("sets_savings_goal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		goal := decimal.NewFromInt(100000)
		updated, err := svc.UpdateProfile(user.ID, ProfileUpdate{SavingsGoal: &goal})
		testutil.AssertNoError(t, err)
		if !updated.SavingsGoal.Equal(goal) {
			t.Errorf("expected savings goal 100000, got %s", updated.SavingsGoal)
		}

		reloaded, err := svc.GetUserByID(user.ID)
		testutil.AssertNoError(t, err)
		if !reloaded.SavingsGoal.Equal(goal) {
			t.Errorf("expected persisted savings goal 100000, got %s", reloaded.SavingsGoal)
		}
	})

	t.Run("leaves_omitted_fields_untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		first := "Maija"
		updated, err := svc.UpdateProfile(user.ID, ProfileUpdate{FirstName: &first})
		testutil.AssertNoError(t, err)
		if updated.FirstName != "Maija" {
			t.Errorf("expected first name Maija, got %q", updated.FirstName)
		}
		if updated.LastName != user.LastName {
			t.Errorf("expected last name unchanged, got %q", updated.LastName)
		}
	})

	t.Run("rejects_negative_goal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		goal := decimal.NewFromInt(-1)
		_, err := svc.UpdateProfile(user.ID, ProfileUpdate{SavingsGoal: &goal})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		goal := decimal.NewFromInt(10)
		_, err := svc.UpdateProfile(9999, ProfileUpdate{SavingsGoal: &goal})
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}
