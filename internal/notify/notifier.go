// Package notify publishes alert-mode change events to the notification
// collaborator. The budget core itself performs no I/O; the service layer
// hands finished alert states to a Notifier.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"sentinel/internal/models"
)

// Notifier delivers alert change events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	PublishAlertChange(ctx context.Context, event AlertChangeEvent) error
	Close() error
}

// AlertChangeEvent is the message emitted when a period's alert mode moves.
// The consumer (push/chat notification layer) decides how to surface it.
type AlertChangeEvent struct {
	UserID              uint             `json:"user_id"`
	PeriodID            uint             `json:"period_id"`
	Mode                models.AlertMode `json:"mode"`
	PreviousMode        models.AlertMode `json:"previous_mode,omitempty"`
	RiskScore           float64          `json:"risk_score"`
	TriggeredCategories []string         `json:"triggered_categories"`
	Message             string           `json:"message"`
	EvaluatedAt         time.Time        `json:"evaluated_at"`
}

// ToJSON converts the event to JSON bytes.
func (e AlertChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Nop is a Notifier that discards events, used when AMQP is not configured.
type Nop struct{}

// PublishAlertChange implements Notifier.
func (Nop) PublishAlertChange(context.Context, AlertChangeEvent) error { return nil }

// Close implements Notifier.
func (Nop) Close() error { return nil }
