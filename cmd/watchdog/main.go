package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/database"
	"sentinel/internal/logger"
	"sentinel/internal/models"
	"sentinel/internal/notify"
	"sentinel/internal/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get().Named("watchdog")

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if appConfig.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	}

	db := dbManager.DB()
	alertService := services.NewAlertService(db, notifier)

	log.Infow("Watchdog configured", "interval", appConfig.WatchdogInterval)

	// Sweep once on startup, then on every tick.
	sweep(db, alertService, log)

	ticker := time.NewTicker(appConfig.WatchdogInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sweep(db, alertService, log)
		case sig := <-sigChan:
			log.Infow("Shutdown signal received", "signal", sig.String())
			return nil
		}
	}
}

// sweep re-evaluates every active period so alert states stay fresh even on
// days without any recorded spending. Failures are logged and skipped so one
// broken period cannot stall the rest of the sweep.
func sweep(db *gorm.DB, alertService services.AlertServicer, log *zap.SugaredLogger) {
	var periods []models.BudgetPeriod
	if err := db.Where("archived = ?", false).Find(&periods).Error; err != nil {
		log.Warnw("Failed to list active periods", "error", err)
		return
	}

	evaluated := 0
	for _, period := range periods {
		if _, err := alertService.Evaluate(period.UserID, period.ID); err != nil {
			log.Warnw("Failed to evaluate period", "period_id", period.ID, "error", err)
			continue
		}
		evaluated++
	}
	log.Infow("Sweep complete", "periods", len(periods), "evaluated", evaluated)
}
