package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/menusync/backend/internal/domain/sync"
	"github.com/menusync/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements sync.JobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

var _ sync.JobRepository = (*GormSyncJobRepository)(nil)

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Save inserts or updates a job record
func (r *GormSyncJobRepository) Save(ctx context.Context, job *sync.Job) error {
	model := models.SyncJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a job by ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Job, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForTenant returns jobs for a tenant matching the filter, newest first
func (r *GormSyncJobRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter sync.JobFilter) ([]*sync.Job, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ChannelCode != "" {
		query = query.Where("channel_code = ?", filter.ChannelCode)
	}
	if filter.SyncType != "" {
		query = query.Where("sync_type = ?", filter.SyncType)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var jobModels []models.SyncJobModel
	if err := query.Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*sync.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// FindResumable returns all non-terminal jobs across tenants, oldest first,
// used for crash recovery on startup
func (r *GormSyncJobRepository) FindResumable(ctx context.Context) ([]*sync.Job, error) {
	var jobModels []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []sync.JobStatus{sync.JobStatusQueued, sync.JobStatusRunning, sync.JobStatusRetrying}).
		Order("created_at ASC").
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*sync.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// FindDueScheduled returns queued jobs whose ScheduledAt has passed
func (r *GormSyncJobRepository) FindDueScheduled(ctx context.Context, now time.Time) ([]*sync.Job, error) {
	var jobModels []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", sync.JobStatusQueued, now).
		Order("scheduled_at ASC").
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*sync.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// CountByStatus returns per-status job counts for a tenant since the given time
func (r *GormSyncJobRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, since time.Time) (map[sync.JobStatus]int64, error) {
	type statusCount struct {
		Status sync.JobStatus
		Count  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Select("status, COUNT(*) as count").
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[sync.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DeleteTerminalBefore removes terminal jobs older than the cutoff and returns
// the number removed
func (r *GormSyncJobRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?",
			[]sync.JobStatus{sync.JobStatusCompleted, sync.JobStatusFailed, sync.JobStatusCancelled}, cutoff).
		Delete(&models.SyncJobModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
