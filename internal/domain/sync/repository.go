package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Repository Interfaces
// ---------------------------------------------------------------------------

// JobFilter narrows job queries
type JobFilter struct {
	// Statuses filters by job status (empty for all)
	Statuses []JobStatus
	// ChannelCode filters by marketplace (empty for all)
	ChannelCode channel.Code
	// SyncType filters by sync type (empty for all)
	SyncType Type
	// CreatedAfter restricts to jobs created after this time
	CreatedAfter *time.Time
	// Limit caps the number of rows returned (0 for no cap)
	Limit int
}

// JobRepository persists sync jobs
type JobRepository interface {
	// Save inserts or updates a job record
	Save(ctx context.Context, job *Job) error

	// FindByID finds a job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// FindForTenant returns jobs for a tenant matching the filter,
	// newest first
	FindForTenant(ctx context.Context, tenantID uuid.UUID, filter JobFilter) ([]*Job, error)

	// FindResumable returns all non-terminal jobs across tenants, used for
	// crash recovery on startup
	FindResumable(ctx context.Context) ([]*Job, error)

	// FindDueScheduled returns queued jobs whose ScheduledAt has passed
	FindDueScheduled(ctx context.Context, now time.Time) ([]*Job, error)

	// CountByStatus returns per-status job counts for a tenant since the
	// given time, for failure-rate alerting
	CountByStatus(ctx context.Context, tenantID uuid.UUID, since time.Time) (map[JobStatus]int64, error)

	// DeleteTerminalBefore removes terminal jobs older than the cutoff and
	// returns the number removed
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LogEntry is one append-only line in a job's execution history
type LogEntry struct {
	// ID is the unique identifier of the entry
	ID uuid.UUID
	// JobID is the job this entry belongs to
	JobID uuid.UUID
	// TenantID is the owning tenant
	TenantID uuid.UUID
	// Status is the job status after the logged transition
	Status JobStatus
	// Attempt is the attempt number at log time
	Attempt int
	// Message is the human-readable description
	Message string
	// CreatedAt is when the entry was written
	CreatedAt time.Time
}

// NewLogEntry creates a log entry for a job transition
func NewLogEntry(j *Job, message string) LogEntry {
	return LogEntry{
		ID:        uuid.New(),
		JobID:     j.ID,
		TenantID:  j.TenantID,
		Status:    j.Status,
		Attempt:   j.Attempts,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// LogRepository persists append-only job log entries
type LogRepository interface {
	// Append writes a log entry
	Append(ctx context.Context, entry LogEntry) error

	// FindByJob returns a job's log entries in chronological order
	FindByJob(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error)
}

// MetricRepository persists channel metric points
type MetricRepository interface {
	// Record writes a metric point
	Record(ctx context.Context, point MetricPoint) error

	// FindWindow returns points for a (tenant, channel, type) within the window
	FindWindow(ctx context.Context, tenantID uuid.UUID, code channel.Code, metricType MetricType, since time.Time) ([]MetricPoint, error)

	// DeleteBefore removes points recorded before the cutoff and returns the
	// number removed
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertRepository persists alerts
type AlertRepository interface {
	// Save inserts or updates an alert
	Save(ctx context.Context, alert *Alert) error

	// FindByID finds an alert by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Alert, error)

	// FindAllForTenant returns all alerts for a tenant, enabled or not
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Alert, error)

	// FindEnabledForTenant returns all enabled alerts for a tenant
	FindEnabledForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Alert, error)

	// FindAllEnabled returns all enabled alerts across tenants
	FindAllEnabled(ctx context.Context) ([]*Alert, error)

	// Delete removes an alert
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
