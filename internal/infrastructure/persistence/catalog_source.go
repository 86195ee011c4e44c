package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	appsync "github.com/menusync/backend/internal/application/sync"
	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/infrastructure/persistence/models"
)

// ErrMenuNotConfigured is returned when a tenant has no menu record yet
var ErrMenuNotConfigured = errors.New("persistence: tenant has no menu configured")

// GormCatalogSource builds sync payloads from the menu tables. Incremental
// sync types compare the item change timestamps against the assignment's
// LastSyncAt so unchanged items stay off the wire.
type GormCatalogSource struct {
	db *gorm.DB
}

var _ appsync.CatalogSource = (*GormCatalogSource)(nil)

// NewGormCatalogSource creates a new GormCatalogSource
func NewGormCatalogSource(db *gorm.DB) *GormCatalogSource {
	return &GormCatalogSource{db: db}
}

// FullMenu builds the complete menu push for a tenant
func (s *GormCatalogSource) FullMenu(ctx context.Context, tenantID uuid.UUID) (*channel.MenuPush, error) {
	return s.buildMenu(ctx, tenantID, nil)
}

// CategoryMenu builds a push containing a single category
func (s *GormCatalogSource) CategoryMenu(ctx context.Context, tenantID, categoryID uuid.UUID) (*channel.MenuPush, error) {
	return s.buildMenu(ctx, tenantID, &categoryID)
}

func (s *GormCatalogSource) buildMenu(ctx context.Context, tenantID uuid.UUID, categoryID *uuid.UUID) (*channel.MenuPush, error) {
	var menu models.MenuModel
	if err := s.db.WithContext(ctx).First(&menu, "tenant_id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotConfigured
		}
		return nil, err
	}

	categoryQuery := s.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("sort_order ASC")
	if categoryID != nil {
		categoryQuery = categoryQuery.Where("id = ?", *categoryID)
	}

	var categoryModels []models.MenuCategoryModel
	if err := categoryQuery.Find(&categoryModels).Error; err != nil {
		return nil, err
	}
	if categoryID != nil && len(categoryModels) == 0 {
		return nil, fmt.Errorf("category %s not found for tenant", *categoryID)
	}

	push := &channel.MenuPush{
		MenuID:     menu.ID,
		MenuName:   menu.Name,
		Currency:   menu.Currency,
		Categories: make([]channel.MenuCategory, 0, len(categoryModels)),
	}

	for _, cm := range categoryModels {
		var itemModels []models.MenuItemModel
		if err := s.db.WithContext(ctx).
			Where("tenant_id = ? AND category_id = ?", tenantID, cm.ID).
			Order("name ASC").
			Find(&itemModels).Error; err != nil {
			return nil, err
		}

		category := channel.MenuCategory{
			CategoryID:  cm.ID,
			Name:        cm.Name,
			Description: cm.Description,
			SortOrder:   cm.SortOrder,
			Items:       make([]channel.MenuItem, 0, len(itemModels)),
		}
		// Full pushes key items by internal ID, so the per-channel
		// marketplace mapping stays empty here.
		for i := range itemModels {
			category.Items = append(category.Items, itemModels[i].ToMenuItem(""))
		}
		push.Categories = append(push.Categories, category)
	}

	return push, nil
}

// PriceUpdates returns per-item price updates since the assignment's last sync
func (s *GormCatalogSource) PriceUpdates(ctx context.Context, tenantID uuid.UUID, assignment *channel.Assignment) ([]channel.MenuItemUpdate, error) {
	itemModels, err := s.changedItems(ctx, tenantID, assignment, "price_updated_at")
	if err != nil {
		return nil, err
	}

	updates := make([]channel.MenuItemUpdate, 0, len(itemModels))
	for i := range itemModels {
		price := itemModels[i].Price
		updates = append(updates, channel.MenuItemUpdate{
			ChannelItemID: itemModels[i].ChannelItemID(assignment.ChannelCode),
			ItemID:        itemModels[i].ID,
			Name:          itemModels[i].Name,
			Price:         &price,
			Description:   itemModels[i].Description,
		})
	}
	return updates, nil
}

// AvailabilityUpdates returns per-item availability toggles since the
// assignment's last sync
func (s *GormCatalogSource) AvailabilityUpdates(ctx context.Context, tenantID uuid.UUID, assignment *channel.Assignment) ([]channel.AvailabilityUpdate, error) {
	itemModels, err := s.changedItems(ctx, tenantID, assignment, "availability_updated_at")
	if err != nil {
		return nil, err
	}

	updates := make([]channel.AvailabilityUpdate, 0, len(itemModels))
	for i := range itemModels {
		updates = append(updates, channel.AvailabilityUpdate{
			ChannelItemID: itemModels[i].ChannelItemID(assignment.ChannelCode),
			ItemID:        itemModels[i].ID,
			IsAvailable:   itemModels[i].IsAvailable,
			AvailableAt:   itemModels[i].AvailableAt,
		})
	}
	return updates, nil
}

func (s *GormCatalogSource) changedItems(ctx context.Context, tenantID uuid.UUID, assignment *channel.Assignment, changedColumn string) ([]models.MenuItemModel, error) {
	query := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC")
	if assignment.LastSyncAt != nil {
		query = query.Where(changedColumn+" > ?", *assignment.LastSyncAt)
	}

	var itemModels []models.MenuItemModel
	if err := query.Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return itemModels, nil
}
