package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/menusync/backend/internal/domain/sync"
	"github.com/menusync/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements sync.LogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

var _ sync.LogRepository = (*GormSyncLogRepository)(nil)

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append writes a log entry
func (r *GormSyncLogRepository) Append(ctx context.Context, entry sync.LogEntry) error {
	model := models.SyncLogModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByJob returns a job's log entries in chronological order
func (r *GormSyncLogRepository) FindByJob(ctx context.Context, jobID uuid.UUID) ([]sync.LogEntry, error) {
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]sync.LogEntry, len(logModels))
	for i := range logModels {
		entries[i] = logModels[i].ToDomain()
	}
	return entries, nil
}
