package sync

import (
	"github.com/google/uuid"

	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// tenantQueue is one tenant's pending operations, kept sorted by priority
// rank then createdAt at all times. Ordering is re-established on every
// insert rather than at dequeue so that queue introspection always reflects
// true dispatch order. Callers synchronize access; the queue itself holds
// no lock.
type tenantQueue struct {
	ops []*syncdomain.Operation
}

func newTenantQueue() *tenantQueue {
	return &tenantQueue{ops: make([]*syncdomain.Operation, 0, 16)}
}

// push inserts op at its sorted position (insertion sort)
func (q *tenantQueue) push(op *syncdomain.Operation) {
	pos := len(q.ops)
	for i, existing := range q.ops {
		if op.Before(existing) {
			pos = i
			break
		}
	}
	q.ops = append(q.ops, nil)
	copy(q.ops[pos+1:], q.ops[pos:])
	q.ops[pos] = op
}

// pop removes and returns the head, or nil when empty
func (q *tenantQueue) pop() *syncdomain.Operation {
	if len(q.ops) == 0 {
		return nil
	}
	head := q.ops[0]
	copy(q.ops, q.ops[1:])
	q.ops[len(q.ops)-1] = nil
	q.ops = q.ops[:len(q.ops)-1]
	return head
}

// remove deletes the operation for jobID, returning true if it was queued
func (q *tenantQueue) remove(jobID uuid.UUID) bool {
	for i, op := range q.ops {
		if op.JobID == jobID {
			copy(q.ops[i:], q.ops[i+1:])
			q.ops[len(q.ops)-1] = nil
			q.ops = q.ops[:len(q.ops)-1]
			return true
		}
	}
	return false
}

// contains reports whether an operation for the assignment is queued
func (q *tenantQueue) contains(assignmentID uuid.UUID) bool {
	for _, op := range q.ops {
		if op.ChannelAssignmentID == assignmentID {
			return true
		}
	}
	return false
}

// len returns the number of queued operations
func (q *tenantQueue) len() int {
	return len(q.ops)
}

// snapshot returns the queued operations in dispatch order
func (q *tenantQueue) snapshot() []*syncdomain.Operation {
	out := make([]*syncdomain.Operation, len(q.ops))
	copy(out, q.ops)
	return out
}
