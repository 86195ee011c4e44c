package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
)

// Operation is the transient queue entry for one in-flight attempt of a job.
// It is owned exclusively by the orchestrator's per-tenant queue and active
// set; once the attempt reaches a terminal outcome the durable Job record is
// the sole source of truth.
type Operation struct {
	// JobID is the durable job this operation belongs to
	JobID uuid.UUID
	// TenantID is the owning tenant
	TenantID uuid.UUID
	// ChannelAssignmentID is the assignment being synced
	ChannelAssignmentID uuid.UUID
	// ChannelCode identifies the marketplace
	ChannelCode channel.Code
	// SyncType is the kind of sync to perform
	SyncType Type
	// Priority controls dispatch ordering
	Priority Priority
	// Force skips the in-progress dedup check
	Force bool
	// Attempts mirrors the job's attempt count at enqueue time
	Attempts int
	// RequestPayload carries type-specific parameters (category ID, item IDs)
	RequestPayload map[string]any
	// CreatedAt breaks priority ties FIFO
	CreatedAt time.Time
}

// OperationFromJob builds the queue entry for a job
func OperationFromJob(j *Job) *Operation {
	return &Operation{
		JobID:               j.ID,
		TenantID:            j.TenantID,
		ChannelAssignmentID: j.ChannelAssignmentID,
		ChannelCode:         j.ChannelCode,
		SyncType:            j.SyncType,
		Priority:            j.Priority,
		Force:               j.Force,
		Attempts:            j.Attempts,
		RequestPayload:      j.RequestPayload,
		CreatedAt:           j.CreatedAt,
	}
}

// Before reports whether this operation dispatches ahead of other:
// lower priority rank first, ties broken by CreatedAt ascending
func (o *Operation) Before(other *Operation) bool {
	if o.Priority.Rank() != other.Priority.Rank() {
		return o.Priority.Rank() < other.Priority.Rank()
	}
	return o.CreatedAt.Before(other.CreatedAt)
}
