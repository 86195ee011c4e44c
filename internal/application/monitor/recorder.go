package monitor

import (
	"context"

	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/shared"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// SyncMetricsRecorder turns job lifecycle events into channel metric points.
// It subscribes to completion and failure events on the bus and records one
// outcome point per terminal job, plus a duration point for completed ones.
type SyncMetricsRecorder struct {
	monitor *Monitor
	jobs    syncdomain.JobRepository
	logger  *zap.Logger
}

// NewSyncMetricsRecorder creates a SyncMetricsRecorder
func NewSyncMetricsRecorder(monitor *Monitor, jobs syncdomain.JobRepository, logger *zap.Logger) *SyncMetricsRecorder {
	return &SyncMetricsRecorder{monitor: monitor, jobs: jobs, logger: logger}
}

var _ shared.EventHandler = (*SyncMetricsRecorder)(nil)

// EventTypes returns the events this recorder consumes
func (r *SyncMetricsRecorder) EventTypes() []string {
	return []string{syncdomain.EventJobCompleted, syncdomain.EventJobFailed}
}

// Handle records outcome and duration metrics for a terminal job
func (r *SyncMetricsRecorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	jobEvent, ok := event.(*syncdomain.JobEvent)
	if !ok {
		return nil
	}

	outcome := 0.0
	if event.EventType() == syncdomain.EventJobCompleted {
		outcome = 1.0
	}
	r.monitor.Record(ctx, syncdomain.NewMetricPoint(
		event.TenantID(), jobEvent.ChannelCode, syncdomain.MetricSyncOutcome, outcome,
	))

	if outcome == 0 {
		return nil
	}

	// Duration is only meaningful for completed jobs; retried jobs report
	// the span from first attempt to completion
	job, err := r.jobs.FindByID(ctx, jobEvent.JobID)
	if err != nil {
		r.logger.Warn("failed to load job for duration metric",
			zap.String("job_id", jobEvent.JobID.String()),
			zap.Error(err),
		)
		return nil
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		return nil
	}
	durationMs := float64(job.CompletedAt.Sub(*job.StartedAt).Milliseconds())
	r.monitor.Record(ctx, syncdomain.NewMetricPoint(
		event.TenantID(), jobEvent.ChannelCode, syncdomain.MetricSyncDuration, durationMs,
	))
	return nil
}
