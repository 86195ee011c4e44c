package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/infrastructure/persistence/models"
)

// GormChannelAssignmentRepository implements channel.AssignmentRepository using GORM
type GormChannelAssignmentRepository struct {
	db *gorm.DB
}

var _ channel.AssignmentRepository = (*GormChannelAssignmentRepository)(nil)

// NewGormChannelAssignmentRepository creates a new GormChannelAssignmentRepository
func NewGormChannelAssignmentRepository(db *gorm.DB) *GormChannelAssignmentRepository {
	return &GormChannelAssignmentRepository{db: db}
}

// FindByID finds an assignment by ID within a tenant
func (r *GormChannelAssignmentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*channel.Assignment, error) {
	var model models.ChannelAssignmentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, channel.ErrAssignmentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByChannel finds the assignment for a (tenant, channel) pair
func (r *GormChannelAssignmentRepository) FindByChannel(ctx context.Context, tenantID uuid.UUID, code channel.Code) (*channel.Assignment, error) {
	var model models.ChannelAssignmentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND channel_code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, channel.ErrAssignmentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns all assignments for a tenant
func (r *GormChannelAssignmentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*channel.Assignment, error) {
	var assignmentModels []models.ChannelAssignmentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("channel_code ASC").
		Find(&assignmentModels).Error; err != nil {
		return nil, err
	}

	assignments := make([]*channel.Assignment, len(assignmentModels))
	for i := range assignmentModels {
		assignments[i] = assignmentModels[i].ToDomain()
	}
	return assignments, nil
}

// Save persists an assignment
func (r *GormChannelAssignmentRepository) Save(ctx context.Context, assignment *channel.Assignment) error {
	model := models.ChannelAssignmentModelFromDomain(assignment)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes an assignment
func (r *GormChannelAssignmentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.ChannelAssignmentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return channel.ErrAssignmentNotFound
	}
	return nil
}
