package sync

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Alert Errors
// ---------------------------------------------------------------------------

var (
	// ErrAlertInvalidCondition is returned for unknown alert conditions
	ErrAlertInvalidCondition = errors.New("sync: invalid alert condition")

	// ErrAlertInvalidThreshold is returned for non-positive thresholds
	ErrAlertInvalidThreshold = errors.New("sync: alert threshold must be positive")

	// ErrAlertNotFound is returned when an alert is not found
	ErrAlertNotFound = errors.New("sync: alert not found")
)

// ---------------------------------------------------------------------------
// Alert Condition and Severity
// ---------------------------------------------------------------------------

// AlertCondition identifies what the monitor evaluates
type AlertCondition string

const (
	// AlertErrorRate triggers when the error rate over the window exceeds the threshold
	AlertErrorRate AlertCondition = "error_rate"
	// AlertResponseTime triggers when average response time exceeds the threshold (ms)
	AlertResponseTime AlertCondition = "response_time"
	// AlertConsecutiveFailures triggers on consecutive adapter failures
	AlertConsecutiveFailures AlertCondition = "consecutive_failures"
	// AlertSyncFailureRate triggers when the job failure rate exceeds the threshold
	AlertSyncFailureRate AlertCondition = "sync_failure_rate"
	// AlertChannelDown triggers when a channel's availability drops to zero
	AlertChannelDown AlertCondition = "channel_down"
)

// IsValid returns true if the condition is valid
func (c AlertCondition) IsValid() bool {
	switch c {
	case AlertErrorRate, AlertResponseTime, AlertConsecutiveFailures,
		AlertSyncFailureRate, AlertChannelDown:
		return true
	default:
		return false
	}
}

// String returns the string representation of AlertCondition
func (c AlertCondition) String() string {
	return string(c)
}

// AlertSeverity ranks alert importance
type AlertSeverity string

const (
	// SeverityInfo is informational
	SeverityInfo AlertSeverity = "info"
	// SeverityWarning requires attention
	SeverityWarning AlertSeverity = "warning"
	// SeverityCritical requires immediate action
	SeverityCritical AlertSeverity = "critical"
)

// ---------------------------------------------------------------------------
// Alert Entity
// ---------------------------------------------------------------------------

// Alert is an operator-configured condition evaluated on every monitor tick.
// Once triggered it stays quiet for its cooldown even if the condition holds,
// which keeps a flapping channel from producing an alert storm.
type Alert struct {
	// ID is the unique identifier of the alert
	ID uuid.UUID
	// TenantID is the tenant this alert belongs to
	TenantID uuid.UUID
	// ChannelCode scopes the alert to one channel (nil for tenant-wide)
	ChannelCode *channel.Code
	// Condition is what the monitor evaluates
	Condition AlertCondition
	// Threshold is the trigger threshold (unit depends on the condition)
	Threshold float64
	// Severity ranks the alert's importance
	Severity AlertSeverity
	// Cooldown is the minimum time between triggers
	Cooldown time.Duration
	// IsEnabled indicates if the alert is evaluated
	IsEnabled bool
	// LastTriggeredAt is when the alert last fired
	LastTriggeredAt *time.Time
	// TriggerCount is the total number of times the alert fired
	TriggerCount int
	// CreatedAt is when the alert was created
	CreatedAt time.Time
	// UpdatedAt is when the alert was last updated
	UpdatedAt time.Time
}

// NewAlert creates an enabled alert
func NewAlert(tenantID uuid.UUID, code *channel.Code, condition AlertCondition, threshold float64, severity AlertSeverity, cooldown time.Duration) (*Alert, error) {
	if !condition.IsValid() {
		return nil, ErrAlertInvalidCondition
	}
	if threshold <= 0 {
		return nil, ErrAlertInvalidThreshold
	}
	now := time.Now()
	return &Alert{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ChannelCode: code,
		Condition:   condition,
		Threshold:   threshold,
		Severity:    severity,
		Cooldown:    cooldown,
		IsEnabled:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Matches reports whether the alert applies to the given channel
func (a *Alert) Matches(code channel.Code) bool {
	return a.ChannelCode == nil || *a.ChannelCode == code
}

// InCooldown reports whether the alert is still suppressed
func (a *Alert) InCooldown(now time.Time) bool {
	if a.LastTriggeredAt == nil {
		return false
	}
	return now.Sub(*a.LastTriggeredAt) < a.Cooldown
}

// Trigger records a firing. Returns false when suppressed by the cooldown.
func (a *Alert) Trigger(now time.Time) bool {
	if !a.IsEnabled || a.InCooldown(now) {
		return false
	}
	a.LastTriggeredAt = &now
	a.TriggerCount++
	a.UpdatedAt = now
	return true
}
