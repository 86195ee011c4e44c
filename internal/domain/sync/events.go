package sync

import (
	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/shared"
)

// Lifecycle event types published on the event bus. The transport layer
// (websocket fan-out, notification sinks) subscribes to these; the core
// never calls the transport directly.
const (
	EventJobQueued            = "job.queued"
	EventJobStarted           = "job.started"
	EventJobProgress          = "job.progress"
	EventJobCompleted         = "job.completed"
	EventJobFailed            = "job.failed"
	EventJobCancelled         = "job.cancelled"
	EventAdapterHealthChanged = "adapter.health.changed"
	EventAlertTriggered       = "alert.triggered"
)

// aggregateTypeSyncJob is the aggregate type carried on job events
const aggregateTypeSyncJob = "sync_job"

// JobEvent is the payload of every job lifecycle event
type JobEvent struct {
	shared.BaseDomainEvent
	// JobID is the sync job identifier
	JobID uuid.UUID `json:"job_id"`
	// ChannelAssignmentID is the assignment being synced
	ChannelAssignmentID uuid.UUID `json:"channel_assignment_id"`
	// ChannelCode identifies the marketplace
	ChannelCode channel.Code `json:"channel_code"`
	// SyncType is the kind of sync
	SyncType Type `json:"sync_type"`
	// Status is the job status after the transition
	Status JobStatus `json:"status"`
	// Attempts is the attempt count after the transition
	Attempts int `json:"attempts"`
	// TotalItems is the item count (progress/completion events)
	TotalItems int `json:"total_items,omitempty"`
	// SuccessItems is the success count (progress/completion events)
	SuccessItems int `json:"success_items,omitempty"`
	// FailedItems is the failure count (progress/completion events)
	FailedItems int `json:"failed_items,omitempty"`
	// ErrorMessage is the failure message (failure events)
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewJobEvent builds a lifecycle event from the job's current state
func NewJobEvent(eventType string, j *Job) *JobEvent {
	return &JobEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(eventType, aggregateTypeSyncJob, j.ID, j.TenantID),
		JobID:               j.ID,
		ChannelAssignmentID: j.ChannelAssignmentID,
		ChannelCode:         j.ChannelCode,
		SyncType:            j.SyncType,
		Status:              j.Status,
		Attempts:            j.Attempts,
		TotalItems:          j.TotalItems,
		SuccessItems:        j.SuccessItems,
		FailedItems:         j.FailedItems,
		ErrorMessage:        j.ErrorMessage,
	}
}

// AlertTriggeredEvent is published when a monitor alert fires
type AlertTriggeredEvent struct {
	shared.BaseDomainEvent
	// AlertID is the alert that fired
	AlertID uuid.UUID `json:"alert_id"`
	// ChannelCode is the channel the firing applies to
	ChannelCode channel.Code `json:"channel_code"`
	// Condition is the evaluated condition
	Condition AlertCondition `json:"condition"`
	// Threshold is the configured trigger threshold
	Threshold float64 `json:"threshold"`
	// Value is the measured value that crossed the threshold
	Value float64 `json:"value"`
	// Severity ranks the alert's importance
	Severity AlertSeverity `json:"severity"`
}

// NewAlertTriggeredEvent builds a firing event
func NewAlertTriggeredEvent(a *Alert, code channel.Code, value float64) *AlertTriggeredEvent {
	return &AlertTriggeredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventAlertTriggered, "alert", a.ID, a.TenantID),
		AlertID:         a.ID,
		ChannelCode:     code,
		Condition:       a.Condition,
		Threshold:       a.Threshold,
		Value:           value,
		Severity:        a.Severity,
	}
}

// AdapterHealthEvent is published when an adapter's health state flips
type AdapterHealthEvent struct {
	shared.BaseDomainEvent
	// ChannelCode identifies the marketplace
	ChannelCode channel.Code `json:"channel_code"`
	// IsHealthy is the new health state
	IsHealthy bool `json:"is_healthy"`
	// CircuitState is the breaker state after the flip
	CircuitState channel.CircuitState `json:"circuit_state"`
	// ConsecutiveErrors is the failure count at flip time
	ConsecutiveErrors int `json:"consecutive_errors"`
}

// NewAdapterHealthEvent builds a health-change event
func NewAdapterHealthEvent(tenantID uuid.UUID, code channel.Code, health channel.HealthStatus) *AdapterHealthEvent {
	return &AdapterHealthEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventAdapterHealthChanged, "channel_adapter", uuid.New(), tenantID),
		ChannelCode:       code,
		IsHealthy:         health.IsHealthy,
		CircuitState:      health.CircuitState,
		ConsecutiveErrors: health.ConsecutiveErrors,
	}
}
