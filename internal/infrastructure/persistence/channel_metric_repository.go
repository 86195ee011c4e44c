package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/sync"
	"github.com/menusync/backend/internal/infrastructure/persistence/models"
)

// GormChannelMetricRepository implements sync.MetricRepository using GORM
type GormChannelMetricRepository struct {
	db *gorm.DB
}

var _ sync.MetricRepository = (*GormChannelMetricRepository)(nil)

// NewGormChannelMetricRepository creates a new GormChannelMetricRepository
func NewGormChannelMetricRepository(db *gorm.DB) *GormChannelMetricRepository {
	return &GormChannelMetricRepository{db: db}
}

// Record writes a metric point
func (r *GormChannelMetricRepository) Record(ctx context.Context, point sync.MetricPoint) error {
	model := models.ChannelMetricModelFromDomain(point)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindWindow returns points for a (tenant, channel, type) within the window,
// oldest first
func (r *GormChannelMetricRepository) FindWindow(ctx context.Context, tenantID uuid.UUID, code channel.Code, metricType sync.MetricType, since time.Time) ([]sync.MetricPoint, error) {
	var metricModels []models.ChannelMetricModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND channel_code = ? AND type = ? AND recorded_at >= ?",
			tenantID, code, metricType, since).
		Order("recorded_at ASC").
		Find(&metricModels).Error; err != nil {
		return nil, err
	}

	points := make([]sync.MetricPoint, len(metricModels))
	for i := range metricModels {
		points[i] = metricModels[i].ToDomain()
	}
	return points, nil
}

// DeleteBefore removes points recorded before the cutoff and returns the
// number removed
func (r *GormChannelMetricRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff).
		Delete(&models.ChannelMetricModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
