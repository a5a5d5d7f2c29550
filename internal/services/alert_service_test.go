package services

import (
	"testing"

	"sentinel/internal/engine"
	"sentinel/internal/models"
	"sentinel/internal/notify"
	"sentinel/internal/testutil"
)

func TestEvaluate(t *testing.T) {
	t.Run("fresh_period_is_normal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriodWithCategories(t, db, user.ID, map[string]string{
			"ruoka":  "1000",
			"viihde": "500",
		})

		state, err := svc.Evaluate(user.ID, period.ID)
		testutil.AssertNoError(t, err)
		if state.Mode != models.AlertModeNormal {
			t.Errorf("expected normal mode, got %s", state.Mode)
		}
		if len(state.TriggeredCategories) != 0 {
			t.Errorf("expected no triggered categories, got %v", state.TriggeredCategories)
		}

		var count int64
		testutil.AssertNoError(t, db.Model(&models.AlertState{}).Where("period_id = ?", period.ID).Count(&count).Error)
		if count != 1 {
			t.Errorf("expected 1 persisted snapshot, got %d", count)
		}
	})

	t.Run("overspent_period_is_emergency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriod(t, db, user.ID)
		testutil.CreateTestCategory(t, db, period.ID, "ruoka", "100", "200")

		state, err := svc.Evaluate(user.ID, period.ID)
		testutil.AssertNoError(t, err)
		if state.Mode != models.AlertModeEmergency {
			t.Errorf("expected emergency mode, got %s", state.Mode)
		}
		if !state.TriggeredCategories.Contains("ruoka") {
			t.Errorf("expected ruoka triggered, got %v", state.TriggeredCategories)
		}
	})

	t.Run("repeated_evaluation_is_stable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriod(t, db, user.ID)
		testutil.CreateTestCategory(t, db, period.ID, "ruoka", "100", "200")

		first, err := svc.Evaluate(user.ID, period.ID)
		testutil.AssertNoError(t, err)
		second, err := svc.Evaluate(user.ID, period.ID)
		testutil.AssertNoError(t, err)

		if first.Mode != second.Mode || first.RiskScore != second.RiskScore {
			t.Errorf("expected stable evaluation, got %s/%.3f then %s/%.3f",
				first.Mode, first.RiskScore, second.Mode, second.RiskScore)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)

		_, err := svc.Evaluate(user.ID, 9999)
		testutil.AssertAppError(t, err, "PERIOD_NOT_FOUND")
	})
}

func TestAdvise(t *testing.T) {
	t.Run("emergency_locks_triggered_categories", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		notifier := &recordingNotifier{}
		svc := NewAlertService(db, notifier)
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriod(t, db, user.ID)
		testutil.CreateTestCategory(t, db, period.ID, "ruoka", "100", "200")

		advice, err := svc.Advise(user.ID, period.ID)
		testutil.AssertNoError(t, err)
		if advice.Alert.Mode != models.AlertModeEmergency {
			t.Fatalf("expected emergency mode, got %s", advice.Alert.Mode)
		}
		if len(advice.Actions) == 0 {
			t.Fatal("expected actions")
		}
		if advice.Actions[0].Type != engine.ActionLockdown || !advice.Actions[0].Mandatory {
			t.Errorf("expected a mandatory lockdown first, got %+v", advice.Actions[0])
		}
		if advice.Message == "" {
			t.Error("expected a localized message")
		}

		var cat models.CategoryBudget
		testutil.AssertNoError(t, db.Where("period_id = ? AND name = ?", period.ID, "ruoka").First(&cat).Error)
		if !cat.Locked || cat.LockedAt == nil {
			t.Error("expected lock persisted")
		}

		if len(notifier.events) != 1 {
			t.Errorf("expected 1 published event, got %d", len(notifier.events))
		}
	})

	t.Run("normal_period_stays_unlocked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriod(t, db, user.ID)
		testutil.CreateTestCategory(t, db, period.ID, "ruoka", "1000", "1")

		advice, err := svc.Advise(user.ID, period.ID)
		testutil.AssertNoError(t, err)
		if advice.Alert.Mode != models.AlertModeNormal {
			t.Fatalf("expected normal mode, got %s", advice.Alert.Mode)
		}

		var cat models.CategoryBudget
		testutil.AssertNoError(t, db.Where("period_id = ? AND name = ?", period.ID, "ruoka").First(&cat).Error)
		if cat.Locked {
			t.Error("expected category to stay unlocked")
		}
	})

	t.Run("archived_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriod(t, db, user.ID)
		testutil.AssertNoError(t, db.Model(period).Update("archived", true).Error)

		_, err := svc.Advise(user.ID, period.ID)
		testutil.AssertAppError(t, err, "PERIOD_ARCHIVED")
	})
}

func TestGetLatestAlert(t *testing.T) {
	t.Run("returns_latest_snapshot", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriod(t, db, user.ID)
		testutil.CreateTestCategory(t, db, period.ID, "ruoka", "100", "200")

		evaluated, err := svc.Evaluate(user.ID, period.ID)
		testutil.AssertNoError(t, err)

		latest, err := svc.GetLatestAlert(user.ID, period.ID)
		testutil.AssertNoError(t, err)
		if latest.ID != evaluated.ID {
			t.Errorf("expected snapshot %d, got %d", evaluated.ID, latest.ID)
		}
	})

	t.Run("computes_when_never_evaluated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db, notify.Nop{})
		user := testutil.CreateTestUser(t, db)
		period := testutil.CreateTestPeriodWithCategories(t, db, user.ID, map[string]string{"ruoka": "1000"})

		latest, err := svc.GetLatestAlert(user.ID, period.ID)
		testutil.AssertNoError(t, err)
		if latest.Mode != models.AlertModeNormal {
			t.Errorf("expected normal mode, got %s", latest.Mode)
		}
	})
}
