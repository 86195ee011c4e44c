package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Orchestrator Configuration
// ---------------------------------------------------------------------------

// OrchestratorConfig holds dispatch settings
type OrchestratorConfig struct {
	// MaxConcurrentSyncs caps in-flight operations per tenant
	MaxConcurrentSyncs int
	// OperationTimeout bounds a single adapter call
	OperationTimeout time.Duration
}

// DefaultOrchestratorConfig returns default dispatch settings
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxConcurrentSyncs: 5,
		OperationTimeout:   5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *OrchestratorConfig) Validate() error {
	if c.MaxConcurrentSyncs <= 0 || c.OperationTimeout <= 0 {
		return ErrInvalidOrchestratorConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collaborator Interfaces
// ---------------------------------------------------------------------------

// Executor performs one sync operation against the marketplace. The job
// service provides an implementation that resolves the adapter and branches
// on sync type.
type Executor interface {
	Execute(ctx context.Context, op *syncdomain.Operation) (*channel.PushResult, error)
}

// RetryDecision is the store's verdict after a failed attempt
type RetryDecision struct {
	// Retry is true when another attempt is allowed
	Retry bool
	// NextAttemptAt is when the retry is due (valid when Retry is true)
	NextAttemptAt time.Time
}

// JobStore receives operation outcomes and owns the durable job record.
// The orchestrator never mutates jobs directly.
type JobStore interface {
	// MarkStarted transitions the job to running and counts the attempt
	MarkStarted(ctx context.Context, jobID uuid.UUID) error

	// MarkCompleted transitions the job to completed with its item counts
	MarkCompleted(ctx context.Context, jobID uuid.UUID, result *channel.PushResult) error

	// RecordFailure classifies the failure, transitions the job to retrying
	// or failed, and reports whether the orchestrator should re-enqueue
	RecordFailure(ctx context.Context, jobID uuid.UUID, callErr error) (RetryDecision, error)
}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// Orchestrator owns one priority queue and one concurrency budget per
// tenant. Operations dispatch strictly in priority-then-FIFO order within a
// tenant; tenants never compete for each other's budget. All queue and
// active-set mutations happen under a single mutex, so cancel requests,
// dispatch and retry timers cannot race on ordering.
type Orchestrator struct {
	config   OrchestratorConfig
	executor Executor
	store    JobStore
	logger   *zap.Logger

	mu        stdsync.Mutex
	queues    map[uuid.UUID]*tenantQueue
	active    map[uuid.UUID]map[uuid.UUID]*syncdomain.Operation
	discarded map[uuid.UUID]bool
	retries   map[uuid.UUID]*pendingRetry
	running   bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      stdsync.WaitGroup
}

// pendingRetry is an operation waiting out its backoff window. It is neither
// queued nor active, but its assignment still counts as busy.
type pendingRetry struct {
	op    *syncdomain.Operation
	timer *time.Timer
}

// NewOrchestrator creates a stopped orchestrator. The store may be nil at
// construction time and bound later with SetStore; the job service and the
// orchestrator reference each other, so one of them has to come first.
func NewOrchestrator(config OrchestratorConfig, executor Executor, store JobStore, logger *zap.Logger) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		config:    config,
		executor:  executor,
		store:     store,
		logger:    logger,
		queues:    make(map[uuid.UUID]*tenantQueue),
		active:    make(map[uuid.UUID]map[uuid.UUID]*syncdomain.Operation),
		discarded: make(map[uuid.UUID]bool),
		retries:   make(map[uuid.UUID]*pendingRetry),
	}, nil
}

// SetStore binds the job store. Must be called before Start.
func (o *Orchestrator) SetStore(store JobStore) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.store = store
}

// Start enables dispatch
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}
	if o.store == nil {
		return ErrNoJobStore
	}
	o.baseCtx, o.cancel = context.WithCancel(context.WithoutCancel(ctx))
	o.running = true
	o.logger.Info("sync orchestrator started",
		zap.Int("max_concurrent_syncs", o.config.MaxConcurrentSyncs),
	)
	return nil
}

// Stop drains in-flight operations and stops dispatch. Queued operations
// stay in the durable store and are recovered on next start.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	for jobID, retry := range o.retries {
		retry.timer.Stop()
		delete(o.retries, jobID)
	}
	o.cancel()
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("sync orchestrator stopped")
		return nil
	case <-ctx.Done():
		o.logger.Warn("sync orchestrator stop timed out")
		return ctx.Err()
	}
}

// Enqueue inserts the operation into its tenant's queue and triggers a
// dispatch pass
func (o *Orchestrator) Enqueue(op *syncdomain.Operation) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return ErrOrchestratorStopped
	}
	queue, ok := o.queues[op.TenantID]
	if !ok {
		queue = newTenantQueue()
		o.queues[op.TenantID] = queue
	}
	queue.push(op)
	o.logger.Debug("operation enqueued",
		zap.String("job_id", op.JobID.String()),
		zap.String("tenant_id", op.TenantID.String()),
		zap.String("priority", op.Priority.String()),
	)
	o.dispatchLocked(op.TenantID)
	o.mu.Unlock()
	return nil
}

// HasPending reports whether an operation for the assignment is queued, in
// flight, or waiting out a retry backoff, backing the
// at-most-one-concurrent-sync guarantee per channel instance
func (o *Orchestrator) HasPending(tenantID, assignmentID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if queue, ok := o.queues[tenantID]; ok && queue.contains(assignmentID) {
		return true
	}
	for _, op := range o.active[tenantID] {
		if op.ChannelAssignmentID == assignmentID {
			return true
		}
	}
	for _, retry := range o.retries {
		if retry.op.TenantID == tenantID && retry.op.ChannelAssignmentID == assignmentID {
			return true
		}
	}
	return false
}

// CancelQueued removes a queued operation before dispatch. Returns false
// when the operation is no longer queued.
func (o *Orchestrator) CancelQueued(tenantID, jobID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if retry, ok := o.retries[jobID]; ok {
		retry.timer.Stop()
		delete(o.retries, jobID)
		return true
	}
	queue, ok := o.queues[tenantID]
	if !ok {
		return false
	}
	return queue.remove(jobID)
}

// DiscardActive marks an in-flight operation so its eventual result is
// dropped on arrival. The adapter call itself runs to completion;
// cancellation is cooperative only.
func (o *Orchestrator) DiscardActive(tenantID, jobID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.active[tenantID][jobID]; !ok {
		return false
	}
	o.discarded[jobID] = true
	return true
}

// ActiveCount returns the tenant's in-flight operation count
func (o *Orchestrator) ActiveCount(tenantID uuid.UUID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active[tenantID])
}

// QueueStatus returns the tenant's queued operations in dispatch order and
// its in-flight operations
func (o *Orchestrator) QueueStatus(tenantID uuid.UUID) (queued, active []*syncdomain.Operation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if queue, ok := o.queues[tenantID]; ok {
		queued = queue.snapshot()
	}
	active = make([]*syncdomain.Operation, 0, len(o.active[tenantID]))
	for _, op := range o.active[tenantID] {
		active = append(active, op)
	}
	return queued, active
}

// dispatchLocked pops and launches operations while the tenant has budget.
// Caller holds o.mu.
func (o *Orchestrator) dispatchLocked(tenantID uuid.UUID) {
	if !o.running {
		return
	}
	queue, ok := o.queues[tenantID]
	if !ok {
		return
	}
	for len(o.active[tenantID]) < o.config.MaxConcurrentSyncs && queue.len() > 0 {
		op := queue.pop()
		if o.active[tenantID] == nil {
			o.active[tenantID] = make(map[uuid.UUID]*syncdomain.Operation)
		}
		o.active[tenantID][op.JobID] = op

		o.wg.Add(1)
		go o.runOperation(op)
	}
}

// runOperation executes one attempt and routes its outcome
func (o *Orchestrator) runOperation(op *syncdomain.Operation) {
	defer o.wg.Done()

	ctx, cancel := context.WithTimeout(o.baseCtx, o.config.OperationTimeout)
	defer cancel()

	if err := o.store.MarkStarted(ctx, op.JobID); err != nil {
		// Cancelled between dispatch and start, or store failure; the
		// durable record wins
		o.logger.Warn("operation could not start",
			zap.String("job_id", op.JobID.String()),
			zap.Error(err),
		)
		o.finish(op)
		return
	}

	result, err := o.executor.Execute(ctx, op)

	if o.consumeDiscard(op.JobID) {
		o.logger.Info("discarding result of cancelled operation",
			zap.String("job_id", op.JobID.String()),
		)
		o.finish(op)
		return
	}

	if err == nil {
		if storeErr := o.store.MarkCompleted(context.WithoutCancel(ctx), op.JobID, result); storeErr != nil {
			o.logger.Error("failed to persist completion",
				zap.String("job_id", op.JobID.String()),
				zap.Error(storeErr),
			)
		}
		o.finish(op)
		return
	}

	decision, storeErr := o.store.RecordFailure(context.WithoutCancel(ctx), op.JobID, err)
	if storeErr != nil {
		o.logger.Error("failed to persist failure",
			zap.String("job_id", op.JobID.String()),
			zap.Error(storeErr),
		)
		o.finish(op)
		return
	}

	if decision.Retry {
		o.scheduleRetry(op, decision.NextAttemptAt)
	}
	o.finish(op)
}

// scheduleRetry re-enqueues the operation when its backoff elapses
func (o *Orchestrator) scheduleRetry(op *syncdomain.Operation, at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	next := *op
	next.Attempts++

	retry := &pendingRetry{op: &next}
	retry.timer = time.AfterFunc(delay, func() {
		o.mu.Lock()
		if _, pending := o.retries[next.JobID]; !pending || !o.running {
			o.mu.Unlock()
			return
		}
		delete(o.retries, next.JobID)
		queue, ok := o.queues[next.TenantID]
		if !ok {
			queue = newTenantQueue()
			o.queues[next.TenantID] = queue
		}
		queue.push(&next)
		o.dispatchLocked(next.TenantID)
		o.mu.Unlock()
	})
	o.retries[op.JobID] = retry
}

// finish removes the operation from the active set and immediately attempts
// to dispatch the next queued item
func (o *Orchestrator) finish(op *syncdomain.Operation) {
	o.mu.Lock()
	delete(o.active[op.TenantID], op.JobID)
	delete(o.discarded, op.JobID)
	o.dispatchLocked(op.TenantID)
	o.mu.Unlock()
}

// consumeDiscard checks and clears the discard flag for a job
func (o *Orchestrator) consumeDiscard(jobID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.discarded[jobID] {
		return false
	}
	delete(o.discarded, jobID)
	return true
}
