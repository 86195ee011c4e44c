package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/menusync/backend/internal/domain/channel"
)

// MenuModel is the persistence model for a tenant's menu header.
type MenuModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Name      string    `gorm:"type:varchar(120);not null"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'USD'"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MenuModel) TableName() string {
	return "menus"
}

// MenuCategoryModel is the persistence model for a menu category.
type MenuCategoryModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(120);not null"`
	Description string    `gorm:"type:text"`
	SortOrder   int       `gorm:"not null;default:0"`
	IsActive    bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MenuCategoryModel) TableName() string {
	return "menu_categories"
}

// MenuItemModel is the persistence model for a sellable menu item. Modifier
// groups and per-channel item IDs are JSONB documents; the separate price and
// availability timestamps drive incremental syncs.
type MenuItemModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID              uuid.UUID       `gorm:"type:uuid;not null;index:idx_menu_items_tenant_category,priority:1"`
	CategoryID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_menu_items_tenant_category,priority:2"`
	SKU                   string          `gorm:"type:varchar(60)"`
	Name                  string          `gorm:"type:varchar(120);not null"`
	Description           string          `gorm:"type:text"`
	Price                 decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CompareAtPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	ImageURLsJSON         string          `gorm:"type:jsonb;column:image_urls"`
	IsAvailable           bool            `gorm:"not null;default:true"`
	AvailableAt           *time.Time
	ModifiersJSON         string    `gorm:"type:jsonb;column:modifiers"`
	ChannelItemIDsJSON    string    `gorm:"type:jsonb;column:channel_item_ids"`
	PriceUpdatedAt        time.Time `gorm:"not null"`
	AvailabilityUpdatedAt time.Time `gorm:"not null"`
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MenuItemModel) TableName() string {
	return "menu_items"
}

// ChannelItemIDs returns the per-channel marketplace item ID mapping.
func (m *MenuItemModel) ChannelItemIDs() map[string]string {
	if m.ChannelItemIDsJSON == "" {
		return nil
	}
	var ids map[string]string
	if err := json.Unmarshal([]byte(m.ChannelItemIDsJSON), &ids); err != nil {
		return nil
	}
	return ids
}

// ChannelItemID returns the marketplace item ID for one channel, empty when
// the item has never been pushed there.
func (m *MenuItemModel) ChannelItemID(code channel.Code) string {
	return m.ChannelItemIDs()[string(code)]
}

// ToMenuItem converts the persistence model to a channel MenuItem payload for
// the given channel.
func (m *MenuItemModel) ToMenuItem(code channel.Code) channel.MenuItem {
	item := channel.MenuItem{
		ItemID:         m.ID,
		ChannelItemID:  m.ChannelItemID(code),
		SKU:            m.SKU,
		Name:           m.Name,
		Description:    m.Description,
		Price:          m.Price,
		CompareAtPrice: m.CompareAtPrice,
		IsAvailable:    m.IsAvailable,
	}

	if m.ImageURLsJSON != "" {
		var urls []string
		if err := json.Unmarshal([]byte(m.ImageURLsJSON), &urls); err == nil {
			item.ImageURLs = urls
		}
	}
	if m.ModifiersJSON != "" {
		var groups []channel.MenuModifierGroup
		if err := json.Unmarshal([]byte(m.ModifiersJSON), &groups); err == nil {
			item.Modifiers = groups
		}
	}

	return item
}
