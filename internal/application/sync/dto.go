package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// SubmitRequest is the input for submitting a sync job
type SubmitRequest struct {
	// ChannelAssignmentID is the assignment to sync
	ChannelAssignmentID uuid.UUID `json:"channel_assignment_id" binding:"required"`
	// SyncType is the kind of sync to perform
	SyncType string `json:"sync_type" binding:"required"`
	// Priority controls dispatch ordering (defaults to normal)
	Priority string `json:"priority"`
	// Force submits even when a sync for the assignment is already pending
	Force bool `json:"force"`
	// MaxRetries overrides the default retry budget (nil for default)
	MaxRetries *int `json:"max_retries"`
	// ScheduledAt defers dispatch until this time
	ScheduledAt *time.Time `json:"scheduled_at"`
	// IntervalMinutes re-queues the job periodically (0 for one-shot)
	IntervalMinutes int `json:"interval_minutes" binding:"min=0"`
	// RequestPayload carries sync-type-specific parameters
	RequestPayload map[string]any `json:"request_payload"`
}

// ListJobsQuery filters a tenant's job listing
type ListJobsQuery struct {
	// Status filters by job status (empty for all)
	Status string `form:"status"`
	// ChannelCode filters by marketplace (empty for all)
	ChannelCode string `form:"channel_code"`
	// SyncType filters by sync type (empty for all)
	SyncType string `form:"sync_type"`
	// Limit caps the number of rows returned
	Limit int `form:"limit,default=50" binding:"min=0,max=500"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// JobView is the external representation of a sync job
type JobView struct {
	ID                  uuid.UUID             `json:"id"`
	ChannelAssignmentID uuid.UUID             `json:"channel_assignment_id"`
	ChannelCode         string                `json:"channel_code"`
	SyncType            string                `json:"sync_type"`
	Priority            string                `json:"priority"`
	Status              string                `json:"status"`
	Attempts            int                   `json:"attempts"`
	MaxRetries          int                   `json:"max_retries"`
	Progress            float64               `json:"progress"`
	TotalItems          int                   `json:"total_items"`
	SuccessItems        int                   `json:"success_items"`
	FailedItems         int                   `json:"failed_items"`
	ItemFailures        []channel.ItemFailure `json:"item_failures,omitempty"`
	ErrorMessage        string                `json:"error_message,omitempty"`
	ScheduledAt         *time.Time            `json:"scheduled_at,omitempty"`
	IntervalMinutes     int                   `json:"interval_minutes,omitempty"`
	NextRetryAt         *time.Time            `json:"next_retry_at,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	StartedAt           *time.Time            `json:"started_at,omitempty"`
	CompletedAt         *time.Time            `json:"completed_at,omitempty"`
}

// JobViewFromDomain converts a job to its external representation
func JobViewFromDomain(j *syncdomain.Job) *JobView {
	return &JobView{
		ID:                  j.ID,
		ChannelAssignmentID: j.ChannelAssignmentID,
		ChannelCode:         string(j.ChannelCode),
		SyncType:            j.SyncType.String(),
		Priority:            j.Priority.String(),
		Status:              j.Status.String(),
		Attempts:            j.Attempts,
		MaxRetries:          j.MaxRetries,
		Progress:            j.Progress(),
		TotalItems:          j.TotalItems,
		SuccessItems:        j.SuccessItems,
		FailedItems:         j.FailedItems,
		ItemFailures:        j.ItemFailures,
		ErrorMessage:        j.ErrorMessage,
		ScheduledAt:         j.ScheduledAt,
		IntervalMinutes:     j.IntervalMinutes,
		NextRetryAt:         j.NextRetryAt,
		CreatedAt:           j.CreatedAt,
		StartedAt:           j.StartedAt,
		CompletedAt:         j.CompletedAt,
	}
}

// QueuedOperationView is one queued entry in the queue status response
type QueuedOperationView struct {
	JobID       uuid.UUID `json:"job_id"`
	ChannelCode string    `json:"channel_code"`
	SyncType    string    `json:"sync_type"`
	Priority    string    `json:"priority"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActiveOperationView is one in-flight entry in the queue status response
type ActiveOperationView struct {
	JobID       uuid.UUID `json:"job_id"`
	ChannelCode string    `json:"channel_code"`
	SyncType    string    `json:"sync_type"`
	Priority    string    `json:"priority"`
	Attempts    int       `json:"attempts"`
}

// QueueStatusView is the tenant's queue introspection response
type QueueStatusView struct {
	// Queued lists waiting operations in dispatch order
	Queued []QueuedOperationView `json:"queued"`
	// Active lists in-flight operations
	Active []ActiveOperationView `json:"active"`
	// MaxConcurrentSyncs is the tenant's concurrency cap
	MaxConcurrentSyncs int `json:"max_concurrent_syncs"`
}

// AdapterHealthView is one channel's health in the health response
type AdapterHealthView struct {
	ChannelCode       string     `json:"channel_code"`
	IsHealthy         bool       `json:"is_healthy"`
	CircuitState      string     `json:"circuit_state"`
	ConsecutiveErrors int        `json:"consecutive_errors"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
	LastErrorAt       *time.Time `json:"last_error_at,omitempty"`
	RateLimitUsed     int        `json:"rate_limit_used"`
	RateLimitMax      int        `json:"rate_limit_max"`
	WindowResetAt     time.Time  `json:"window_reset_at"`
}

// AdapterHealthViewFromDomain converts a health snapshot
func AdapterHealthViewFromDomain(code channel.Code, h channel.HealthStatus) AdapterHealthView {
	return AdapterHealthView{
		ChannelCode:       string(code),
		IsHealthy:         h.IsHealthy,
		CircuitState:      h.CircuitState.String(),
		ConsecutiveErrors: h.ConsecutiveErrors,
		LastSuccessAt:     h.LastSuccessAt,
		LastErrorAt:       h.LastErrorAt,
		RateLimitUsed:     h.RateLimit.Used,
		RateLimitMax:      h.RateLimit.Limit,
		WindowResetAt:     h.RateLimit.WindowResetAt,
	}
}

// LogEntryView is one line of a job's execution history
type LogEntryView struct {
	Status    string    `json:"status"`
	Attempt   int       `json:"attempt"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
