package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/shared"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Service Configuration
// ---------------------------------------------------------------------------

// ServiceConfig holds job engine settings
type ServiceConfig struct {
	// DefaultMaxRetries is the retry budget when a submission does not set one
	DefaultMaxRetries int
	// RetryBaseDelay is the base for exponential retry backoff
	RetryBaseDelay time.Duration
	// ScheduledPollInterval is how often deferred jobs are promoted
	ScheduledPollInterval time.Duration
	// RetentionPeriod is how long terminal jobs are kept
	RetentionPeriod time.Duration
	// RetentionSweepInterval is how often expired jobs are purged
	RetentionSweepInterval time.Duration
}

// DefaultServiceConfig returns default job engine settings
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DefaultMaxRetries:      3,
		RetryBaseDelay:         5 * time.Second,
		ScheduledPollInterval:  30 * time.Second,
		RetentionPeriod:        30 * 24 * time.Hour,
		RetentionSweepInterval: time.Hour,
	}
}

// Validate validates the configuration
func (c *ServiceConfig) Validate() error {
	if c.DefaultMaxRetries < 0 || c.RetryBaseDelay <= 0 ||
		c.ScheduledPollInterval <= 0 || c.RetentionPeriod <= 0 ||
		c.RetentionSweepInterval <= 0 {
		return errors.New("sync: invalid service config")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Job Service
// ---------------------------------------------------------------------------

// JobService is the application facade of the sync engine. It owns job
// creation and the durable state machine, delegates dispatch ordering and
// concurrency to the orchestrator, and implements the orchestrator's
// JobStore callback.
type JobService struct {
	config       ServiceConfig
	jobs         syncdomain.JobRepository
	logs         syncdomain.LogRepository
	assignments  channel.AssignmentRepository
	registry     channel.Registry
	orchestrator *Orchestrator
	publisher    shared.EventPublisher
	logger       *zap.Logger

	stopCh chan struct{}
	wg     stdsync.WaitGroup
	once   stdsync.Once
}

// NewJobService creates a JobService
func NewJobService(
	config ServiceConfig,
	jobs syncdomain.JobRepository,
	logs syncdomain.LogRepository,
	assignments channel.AssignmentRepository,
	registry channel.Registry,
	orchestrator *Orchestrator,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) (*JobService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &JobService{
		config:       config,
		jobs:         jobs,
		logs:         logs,
		assignments:  assignments,
		registry:     registry,
		orchestrator: orchestrator,
		publisher:    publisher,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}, nil
}

var _ JobStore = (*JobService)(nil)

// Start recovers pending jobs and launches the scheduling and retention
// loops
func (s *JobService) Start(ctx context.Context) error {
	if err := s.RecoverPending(ctx); err != nil {
		return fmt.Errorf("recover pending jobs: %w", err)
	}

	s.wg.Add(2)
	go s.promoteScheduledLoop()
	go s.retentionLoop()

	s.logger.Info("sync job service started",
		zap.Int("default_max_retries", s.config.DefaultMaxRetries),
		zap.Duration("retention_period", s.config.RetentionPeriod),
	)
	return nil
}

// Stop stops the background loops
func (s *JobService) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stopCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Submission and Queries
// ---------------------------------------------------------------------------

// Submit validates and persists a new sync job, then hands it to the
// orchestrator. Deferred jobs stay in the store until the scheduling loop
// promotes them.
func (s *JobService) Submit(ctx context.Context, tenantID uuid.UUID, req SubmitRequest) (*JobView, error) {
	syncType := syncdomain.Type(req.SyncType)
	if !syncType.IsValid() {
		return nil, syncdomain.ErrInvalidSyncType
	}
	priority := syncdomain.PriorityNormal
	if req.Priority != "" {
		priority = syncdomain.Priority(req.Priority)
		if !priority.IsValid() {
			return nil, syncdomain.ErrInvalidPriority
		}
	}

	assignment, err := s.assignments.FindByID(ctx, tenantID, req.ChannelAssignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.IsEnabled {
		return nil, shared.ErrChannelDisabled
	}

	if !req.Force && s.orchestrator.HasPending(tenantID, assignment.ID) {
		return nil, shared.ErrSyncInProgress
	}

	maxRetries := s.config.DefaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	job := syncdomain.NewJob(tenantID, assignment.ID, assignment.ChannelCode, syncType, priority, maxRetries)
	job.Force = req.Force
	job.ScheduledAt = req.ScheduledAt
	job.IntervalMinutes = req.IntervalMinutes
	if req.RequestPayload != nil {
		job.RequestPayload = req.RequestPayload
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	s.appendLog(ctx, job, "job submitted")
	s.publish(ctx, syncdomain.NewJobEvent(syncdomain.EventJobQueued, job))

	if job.IsDue(time.Now()) {
		if err := s.orchestrator.Enqueue(syncdomain.OperationFromJob(job)); err != nil {
			return nil, err
		}
	}

	s.logger.Info("sync job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("channel_code", string(job.ChannelCode)),
		zap.String("sync_type", job.SyncType.String()),
		zap.String("priority", job.Priority.String()),
	)
	return JobViewFromDomain(job), nil
}

// GetJob returns a tenant's job by ID
func (s *JobService) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*JobView, error) {
	job, err := s.loadTenantJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	return JobViewFromDomain(job), nil
}

// ListJobs returns a tenant's jobs matching the query, newest first
func (s *JobService) ListJobs(ctx context.Context, tenantID uuid.UUID, query ListJobsQuery) ([]*JobView, error) {
	filter := syncdomain.JobFilter{
		ChannelCode: channel.Code(query.ChannelCode),
		SyncType:    syncdomain.Type(query.SyncType),
		Limit:       query.Limit,
	}
	if query.Status != "" {
		status := syncdomain.JobStatus(query.Status)
		if !status.IsValid() {
			return nil, syncdomain.ErrInvalidStatusFilter
		}
		filter.Statuses = []syncdomain.JobStatus{status}
	}

	jobs, err := s.jobs.FindForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	views := make([]*JobView, len(jobs))
	for i, job := range jobs {
		views[i] = JobViewFromDomain(job)
	}
	return views, nil
}

// GetJobLogs returns a job's execution history
func (s *JobService) GetJobLogs(ctx context.Context, tenantID, jobID uuid.UUID) ([]LogEntryView, error) {
	if _, err := s.loadTenantJob(ctx, tenantID, jobID); err != nil {
		return nil, err
	}
	entries, err := s.logs.FindByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	views := make([]LogEntryView, len(entries))
	for i, e := range entries {
		views[i] = LogEntryView{
			Status:    e.Status.String(),
			Attempt:   e.Attempt,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		}
	}
	return views, nil
}

// Cancel cancels a job. Returns true when this call performed the
// cancellation and false when the job was already terminal, so repeated
// cancels are safe.
func (s *JobService) Cancel(ctx context.Context, tenantID, jobID uuid.UUID) (bool, error) {
	job, err := s.loadTenantJob(ctx, tenantID, jobID)
	if err != nil {
		return false, err
	}
	if job.Status.IsTerminal() {
		return false, nil
	}

	switch job.Status {
	case syncdomain.JobStatusQueued, syncdomain.JobStatusRetrying:
		s.orchestrator.CancelQueued(tenantID, jobID)
	case syncdomain.JobStatusRunning:
		// The in-flight adapter call runs to completion; its result is
		// discarded on arrival
		s.orchestrator.DiscardActive(tenantID, jobID)
	}

	if err := job.Cancel(); err != nil {
		return false, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return false, fmt.Errorf("save job: %w", err)
	}
	s.appendLog(ctx, job, "job cancelled")
	s.publish(ctx, syncdomain.NewJobEvent(syncdomain.EventJobCancelled, job))

	s.logger.Info("sync job cancelled",
		zap.String("job_id", jobID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return true, nil
}

// GetQueueStatus returns the tenant's queue introspection view
func (s *JobService) GetQueueStatus(tenantID uuid.UUID) *QueueStatusView {
	queued, active := s.orchestrator.QueueStatus(tenantID)

	view := &QueueStatusView{
		Queued:             make([]QueuedOperationView, len(queued)),
		Active:             make([]ActiveOperationView, len(active)),
		MaxConcurrentSyncs: s.orchestrator.config.MaxConcurrentSyncs,
	}
	for i, op := range queued {
		view.Queued[i] = QueuedOperationView{
			JobID:       op.JobID,
			ChannelCode: string(op.ChannelCode),
			SyncType:    op.SyncType.String(),
			Priority:    op.Priority.String(),
			Position:    i,
			CreatedAt:   op.CreatedAt,
		}
	}
	for i, op := range active {
		view.Active[i] = ActiveOperationView{
			JobID:       op.JobID,
			ChannelCode: string(op.ChannelCode),
			SyncType:    op.SyncType.String(),
			Priority:    op.Priority.String(),
			Attempts:    op.Attempts,
		}
	}
	return view
}

// GetAdapterHealth returns health snapshots for a tenant's live adapters.
// A nil code returns all channels.
func (s *JobService) GetAdapterHealth(tenantID uuid.UUID, code *channel.Code) []AdapterHealthView {
	snapshots := s.registry.Snapshot(tenantID, code)
	views := make([]AdapterHealthView, 0, len(snapshots))
	for c, h := range snapshots {
		views = append(views, AdapterHealthViewFromDomain(c, h))
	}
	return views
}

// ---------------------------------------------------------------------------
// JobStore Callbacks
// ---------------------------------------------------------------------------

// MarkStarted transitions the job into running for this attempt. Cancelled
// jobs report an error so the orchestrator drops the operation.
func (s *JobService) MarkStarted(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}

	switch job.Status {
	case syncdomain.JobStatusQueued:
		err = job.Start()
	case syncdomain.JobStatusRetrying:
		err = job.Resume()
	default:
		return fmt.Errorf("%w: job is %s", syncdomain.ErrInvalidTransition, job.Status)
	}
	if err != nil {
		return err
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	s.appendLog(ctx, job, fmt.Sprintf("attempt %d started", job.Attempts))
	s.publish(ctx, syncdomain.NewJobEvent(syncdomain.EventJobStarted, job))
	return nil
}

// MarkCompleted transitions the job into completed and queues the next
// occurrence of a periodic job
func (s *JobService) MarkCompleted(ctx context.Context, jobID uuid.UUID, result *channel.PushResult) error {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if err := job.Complete(result); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	s.appendLog(ctx, job, fmt.Sprintf("completed: %d/%d items synced", job.SuccessItems, job.TotalItems))
	s.publish(ctx, syncdomain.NewJobEvent(syncdomain.EventJobCompleted, job))
	s.touchAssignment(ctx, job)

	if job.IsPeriodic() {
		next := job.NextOccurrence()
		if err := s.jobs.Save(ctx, next); err != nil {
			s.logger.Error("failed to queue next occurrence",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		} else {
			s.appendLog(ctx, next, "queued by periodic schedule")
		}
	}

	s.logger.Info("sync job completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("total_items", job.TotalItems),
		zap.Int("failed_items", job.FailedItems),
	)
	return nil
}

// RecordFailure classifies the failure and either schedules a retry or
// fails the job
func (s *JobService) RecordFailure(ctx context.Context, jobID uuid.UUID, callErr error) (RetryDecision, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return RetryDecision{}, err
	}

	if channel.IsRetryable(callErr) && job.CanRetry() {
		if err := job.ScheduleRetry(s.config.RetryBaseDelay, callErr.Error()); err != nil {
			return RetryDecision{}, err
		}
		if err := s.jobs.Save(ctx, job); err != nil {
			return RetryDecision{}, fmt.Errorf("save job: %w", err)
		}
		s.appendLog(ctx, job, fmt.Sprintf("attempt %d failed, retry scheduled: %s", job.Attempts, callErr))
		// Not a failure yet: the job is still live, so subscribers get a
		// progress notification while job.failed stays terminal-only
		s.publish(ctx, syncdomain.NewJobEvent(syncdomain.EventJobProgress, job))

		s.logger.Warn("sync attempt failed, retrying",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.Attempts),
			zap.Time("next_retry_at", *job.NextRetryAt),
			zap.Error(callErr),
		)
		return RetryDecision{Retry: true, NextAttemptAt: *job.NextRetryAt}, nil
	}

	if err := job.Fail(callErr.Error()); err != nil {
		return RetryDecision{}, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return RetryDecision{}, fmt.Errorf("save job: %w", err)
	}
	s.appendLog(ctx, job, fmt.Sprintf("failed after %d attempts: %s", job.Attempts, callErr))
	s.publish(ctx, syncdomain.NewJobEvent(syncdomain.EventJobFailed, job))

	s.logger.Error("sync job failed",
		zap.String("job_id", job.ID.String()),
		zap.Int("attempts", job.Attempts),
		zap.Bool("retryable", channel.IsRetryable(callErr)),
		zap.Error(callErr),
	)
	return RetryDecision{}, nil
}

// ---------------------------------------------------------------------------
// Recovery and Background Loops
// ---------------------------------------------------------------------------

// RecoverPending reloads non-terminal jobs after a restart. Jobs caught
// mid-attempt are moved to retrying so an interrupted push is repeated
// rather than silently lost.
func (s *JobService) RecoverPending(ctx context.Context) error {
	jobs, err := s.jobs.FindResumable(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	recovered := 0
	for _, job := range jobs {
		switch job.Status {
		case syncdomain.JobStatusQueued:
			if !job.IsDue(now) {
				continue
			}
			if err := s.orchestrator.Enqueue(syncdomain.OperationFromJob(job)); err != nil {
				return err
			}
			recovered++

		case syncdomain.JobStatusRunning:
			if job.CanRetry() {
				if err := job.ScheduleRetry(s.config.RetryBaseDelay, "interrupted by restart"); err != nil {
					return err
				}
			} else {
				if err := job.Fail("interrupted by restart, retry budget exhausted"); err != nil {
					return err
				}
			}
			if err := s.jobs.Save(ctx, job); err != nil {
				return fmt.Errorf("save job: %w", err)
			}
			s.appendLog(ctx, job, "recovered after restart")
			if job.Status == syncdomain.JobStatusRetrying {
				s.orchestrator.scheduleRetry(syncdomain.OperationFromJob(job), *job.NextRetryAt)
				recovered++
			}

		case syncdomain.JobStatusRetrying:
			at := now
			if job.NextRetryAt != nil {
				at = *job.NextRetryAt
			}
			s.orchestrator.scheduleRetry(syncdomain.OperationFromJob(job), at)
			recovered++
		}
	}

	if recovered > 0 {
		s.logger.Info("recovered pending sync jobs", zap.Int("count", recovered))
	}
	return nil
}

// promoteScheduledLoop moves deferred jobs into the queue when they come due
func (s *JobService) promoteScheduledLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScheduledPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.config.ScheduledPollInterval)
			s.promoteScheduled(ctx, now)
			cancel()
		}
	}
}

func (s *JobService) promoteScheduled(ctx context.Context, now time.Time) {
	jobs, err := s.jobs.FindDueScheduled(ctx, now)
	if err != nil {
		s.logger.Error("failed to load due scheduled jobs", zap.Error(err))
		return
	}
	for _, job := range jobs {
		if s.orchestrator.HasPending(job.TenantID, job.ChannelAssignmentID) {
			// Already queued or in flight for this assignment; the next poll
			// picks it up
			continue
		}
		if err := s.orchestrator.Enqueue(syncdomain.OperationFromJob(job)); err != nil {
			s.logger.Error("failed to promote scheduled job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.logger.Debug("scheduled job promoted", zap.String("job_id", job.ID.String()))
	}
}

// retentionLoop purges terminal jobs past the retention period
func (s *JobService) retentionLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.RetentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			cutoff := time.Now().Add(-s.config.RetentionPeriod)
			removed, err := s.jobs.DeleteTerminalBefore(ctx, cutoff)
			cancel()
			if err != nil {
				s.logger.Error("job retention sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("purged expired sync jobs", zap.Int64("count", removed))
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// loadTenantJob loads a job and enforces tenant ownership
func (s *JobService) loadTenantJob(ctx context.Context, tenantID, jobID uuid.UUID) (*syncdomain.Job, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TenantID != tenantID {
		return nil, syncdomain.ErrJobNotFound
	}
	return job, nil
}

// touchAssignment stamps the assignment's last successful sync time
func (s *JobService) touchAssignment(ctx context.Context, job *syncdomain.Job) {
	assignment, err := s.assignments.FindByID(ctx, job.TenantID, job.ChannelAssignmentID)
	if err != nil {
		return
	}
	now := time.Now()
	assignment.LastSyncAt = &now
	if err := s.assignments.Save(ctx, assignment); err != nil {
		s.logger.Warn("failed to stamp assignment sync time",
			zap.String("assignment_id", assignment.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *JobService) appendLog(ctx context.Context, job *syncdomain.Job, message string) {
	if s.logs == nil {
		return
	}
	if err := s.logs.Append(ctx, syncdomain.NewLogEntry(job, message)); err != nil {
		s.logger.Warn("failed to append job log",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *JobService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}
