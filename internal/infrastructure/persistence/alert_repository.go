package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/menusync/backend/internal/domain/sync"
	"github.com/menusync/backend/internal/infrastructure/persistence/models"
)

// GormAlertRepository implements sync.AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

var _ sync.AlertRepository = (*GormAlertRepository)(nil)

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// Save inserts or updates an alert
func (r *GormAlertRepository) Save(ctx context.Context, alert *sync.Alert) error {
	model := models.AlertModelFromDomain(alert)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an alert by ID within a tenant
func (r *GormAlertRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*sync.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrAlertNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns all alerts for a tenant, enabled or not
func (r *GormAlertRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*sync.Alert, error) {
	var alertModels []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&alertModels).Error; err != nil {
		return nil, err
	}
	return toDomainAlerts(alertModels), nil
}

// FindEnabledForTenant returns all enabled alerts for a tenant
func (r *GormAlertRepository) FindEnabledForTenant(ctx context.Context, tenantID uuid.UUID) ([]*sync.Alert, error) {
	var alertModels []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_enabled = ?", tenantID, true).
		Order("created_at ASC").
		Find(&alertModels).Error; err != nil {
		return nil, err
	}
	return toDomainAlerts(alertModels), nil
}

// FindAllEnabled returns all enabled alerts across tenants
func (r *GormAlertRepository) FindAllEnabled(ctx context.Context) ([]*sync.Alert, error) {
	var alertModels []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("created_at ASC").
		Find(&alertModels).Error; err != nil {
		return nil, err
	}
	return toDomainAlerts(alertModels), nil
}

// Delete removes an alert
func (r *GormAlertRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.AlertModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrAlertNotFound
	}
	return nil
}

func toDomainAlerts(alertModels []models.AlertModel) []*sync.Alert {
	alerts := make([]*sync.Alert, len(alertModels))
	for i := range alertModels {
		alerts[i] = alertModels[i].ToDomain()
	}
	return alerts
}
