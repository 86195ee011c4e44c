package sync

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Sync Job Errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidSyncType is returned for unknown sync types
	ErrInvalidSyncType = errors.New("sync: invalid sync type")

	// ErrInvalidPriority is returned for unknown priorities
	ErrInvalidPriority = errors.New("sync: invalid priority")

	// ErrInvalidStatusFilter is returned for unknown status values in queries
	ErrInvalidStatusFilter = errors.New("sync: invalid status filter")

	// ErrInvalidTransition is returned when a job status transition is not allowed
	ErrInvalidTransition = errors.New("sync: invalid job status transition")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("sync: job not found")

	// ErrJobTerminal is returned when mutating an already-terminal job
	ErrJobTerminal = errors.New("sync: job already in a terminal state")

	// ErrRetryBudgetExhausted is returned when a retry is scheduled past maxRetries
	ErrRetryBudgetExhausted = errors.New("sync: retry budget exhausted")
)

// ---------------------------------------------------------------------------
// Sync Type and Priority
// ---------------------------------------------------------------------------

// Type represents the kind of sync a job performs
type Type string

const (
	// TypeFullMenu pushes the complete menu
	TypeFullMenu Type = "full_menu"
	// TypePricesOnly pushes price updates only
	TypePricesOnly Type = "prices_only"
	// TypeAvailabilityOnly pushes availability toggles only
	TypeAvailabilityOnly Type = "availability_only"
	// TypeCategorySync pushes a single category
	TypeCategorySync Type = "category_sync"
)

// IsValid returns true if the sync type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeFullMenu, TypePricesOnly, TypeAvailabilityOnly, TypeCategorySync:
		return true
	default:
		return false
	}
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// Priority controls dispatch ordering within a tenant's queue
type Priority string

const (
	// PriorityImmediate jumps the queue (rank 0)
	PriorityImmediate Priority = "immediate"
	// PriorityHigh is for user-initiated syncs (rank 1)
	PriorityHigh Priority = "high"
	// PriorityNormal is the default (rank 2)
	PriorityNormal Priority = "normal"
	// PriorityLow is for background refreshes (rank 3)
	PriorityLow Priority = "low"
	// PriorityBatch is for bulk scheduled work (rank 4)
	PriorityBatch Priority = "batch"
)

// IsValid returns true if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityImmediate, PriorityHigh, PriorityNormal, PriorityLow, PriorityBatch:
		return true
	default:
		return false
	}
}

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// Rank returns the numeric dispatch rank; lower dispatches first
func (p Priority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	case PriorityBatch:
		return 4
	default:
		return 5
	}
}

// ---------------------------------------------------------------------------
// Job Status
// ---------------------------------------------------------------------------

// JobStatus represents the lifecycle state of a sync job
type JobStatus string

const (
	// JobStatusQueued means the job is waiting for dispatch
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning means the adapter call is in flight
	JobStatusRunning JobStatus = "running"
	// JobStatusRetrying means a recoverable failure occurred and a re-enqueue
	// is scheduled
	JobStatusRetrying JobStatus = "retrying"
	// JobStatusCompleted means the job finished successfully
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means the job exhausted its retries or hit a terminal error
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled means the job was cancelled by a user
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValid returns true if the status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusRetrying,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a final state
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// canTransition encodes the job state machine
func (s JobStatus) canTransition(to JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return to == JobStatusRunning || to == JobStatusCancelled
	case JobStatusRunning:
		return to == JobStatusCompleted || to == JobStatusFailed ||
			to == JobStatusRetrying || to == JobStatusCancelled
	case JobStatusRetrying:
		return to == JobStatusRunning || to == JobStatusCancelled
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// SyncJob Aggregate
// ---------------------------------------------------------------------------

// Job is the durable record of one sync intent. It is created by the job
// service and mutated only through its state-machine methods; adapters never
// touch it directly.
type Job struct {
	// ID is the unique identifier of the job
	ID uuid.UUID
	// TenantID is the tenant this job belongs to
	TenantID uuid.UUID
	// ChannelAssignmentID is the assignment being synced
	ChannelAssignmentID uuid.UUID
	// ChannelCode identifies the marketplace
	ChannelCode channel.Code
	// SyncType is the kind of sync to perform
	SyncType Type
	// Priority controls dispatch ordering
	Priority Priority
	// Status is the current lifecycle state
	Status JobStatus
	// Attempts is the number of dispatch attempts made so far
	Attempts int
	// MaxRetries is the number of additional attempts allowed after the first
	MaxRetries int
	// Force skips the in-progress dedup check on submission
	Force bool
	// RequestPayload carries sync-type-specific parameters (category ID, item
	// filters); opaque to the orchestrator
	RequestPayload map[string]any
	// ErrorMessage holds the most recent failure message
	ErrorMessage string
	// TotalItems is the number of items in the sync
	TotalItems int
	// SuccessItems is the number of successfully synced items
	SuccessItems int
	// FailedItems is the number of failed items
	FailedItems int
	// ItemFailures lists per-item failures from the last attempt
	ItemFailures []channel.ItemFailure
	// ScheduledAt defers dispatch until this time (nil for immediate)
	ScheduledAt *time.Time
	// IntervalMinutes re-queues the job this many minutes after each run
	// (0 for one-shot jobs)
	IntervalMinutes int
	// NextRetryAt is when the next retry attempt is due
	NextRetryAt *time.Time
	// CreatedAt is when the job was created
	CreatedAt time.Time
	// StartedAt is when the first attempt began
	StartedAt *time.Time
	// CompletedAt is when the job reached a terminal state
	CompletedAt *time.Time
	// UpdatedAt is when the job record was last modified
	UpdatedAt time.Time
}

// NewJob creates a queued sync job
func NewJob(tenantID, assignmentID uuid.UUID, code channel.Code, syncType Type, priority Priority, maxRetries int) *Job {
	now := time.Now()
	return &Job{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		ChannelAssignmentID: assignmentID,
		ChannelCode:         code,
		SyncType:            syncType,
		Priority:            priority,
		Status:              JobStatusQueued,
		MaxRetries:          maxRetries,
		RequestPayload:      make(map[string]any),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Start marks the job as running and counts the attempt
func (j *Job) Start() error {
	if !j.Status.canTransition(JobStatusRunning) {
		return ErrInvalidTransition
	}
	now := time.Now()
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	j.Status = JobStatusRunning
	j.Attempts++
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

// Complete marks the job as completed with its item counts
func (j *Job) Complete(result *channel.PushResult) error {
	if !j.Status.canTransition(JobStatusCompleted) {
		return ErrInvalidTransition
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.ErrorMessage = ""
	if result != nil {
		j.TotalItems = result.TotalItems
		j.SuccessItems = result.SuccessItems
		j.FailedItems = result.FailedItems
		j.ItemFailures = result.Failures
	}
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Fail marks the job as terminally failed
func (j *Job) Fail(errMsg string) error {
	if !j.Status.canTransition(JobStatusFailed) {
		return ErrInvalidTransition
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// ScheduleRetry moves the job into retrying and computes the next attempt
// time using exponential backoff: baseDelay * 2^(attempts-1)
func (j *Job) ScheduleRetry(baseDelay time.Duration, errMsg string) error {
	if !j.Status.canTransition(JobStatusRetrying) {
		return ErrInvalidTransition
	}
	if j.Attempts > j.MaxRetries {
		return ErrRetryBudgetExhausted
	}
	delay := baseDelay
	if j.Attempts > 1 {
		delay = baseDelay * time.Duration(1<<(j.Attempts-1))
	}
	now := time.Now()
	next := now.Add(delay)
	j.Status = JobStatusRetrying
	j.ErrorMessage = errMsg
	j.NextRetryAt = &next
	j.UpdatedAt = now
	return nil
}

// Resume returns a retrying job to running for its next attempt
func (j *Job) Resume() error {
	if j.Status != JobStatusRetrying {
		return ErrInvalidTransition
	}
	now := time.Now()
	j.Status = JobStatusRunning
	j.Attempts++
	j.NextRetryAt = nil
	j.UpdatedAt = now
	return nil
}

// Cancel marks the job as cancelled. Cancelling a terminal job is rejected.
func (j *Job) Cancel() error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// CanRetry returns true if another attempt is allowed after a transient failure
func (j *Job) CanRetry() bool {
	return j.Attempts <= j.MaxRetries
}

// IsDue returns true if a scheduled job should be promoted into the queue
func (j *Job) IsDue(now time.Time) bool {
	if j.Status != JobStatusQueued {
		return false
	}
	return j.ScheduledAt == nil || !j.ScheduledAt.After(now)
}

// IsPeriodic returns true if the job re-queues itself after each run
func (j *Job) IsPeriodic() bool {
	return j.IntervalMinutes > 0
}

// NextOccurrence builds the follow-up job for a periodic schedule
func (j *Job) NextOccurrence() *Job {
	next := NewJob(j.TenantID, j.ChannelAssignmentID, j.ChannelCode, j.SyncType, j.Priority, j.MaxRetries)
	at := time.Now().Add(time.Duration(j.IntervalMinutes) * time.Minute)
	next.ScheduledAt = &at
	next.IntervalMinutes = j.IntervalMinutes
	next.RequestPayload = j.RequestPayload
	return next
}

// Progress returns the completion percentage of the last attempt
func (j *Job) Progress() float64 {
	if j.Status == JobStatusCompleted {
		return 100
	}
	if j.TotalItems == 0 {
		return 0
	}
	return float64(j.SuccessItems+j.FailedItems) / float64(j.TotalItems) * 100
}
