package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
)

// ChannelAssignmentModel is the persistence model for the Assignment aggregate.
// Credentials and feature overrides are stored as JSONB documents so new
// marketplace auth fields do not require schema changes.
type ChannelAssignmentModel struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_channel_assignments_tenant_channel,priority:1"`
	ChannelCode        channel.Code `gorm:"type:varchar(30);not null;uniqueIndex:idx_channel_assignments_tenant_channel,priority:2"`
	AuthJSON           string       `gorm:"type:jsonb;column:auth"`
	IsEnabled          bool         `gorm:"not null;default:true"`
	RateLimitPerMinute int          `gorm:"not null;default:0"`
	FeaturesJSON       string       `gorm:"type:jsonb;column:features"`
	LastSyncAt         *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChannelAssignmentModel) TableName() string {
	return "channel_assignments"
}

// ToDomain converts the persistence model to a domain Assignment aggregate.
func (m *ChannelAssignmentModel) ToDomain() *channel.Assignment {
	assignment := &channel.Assignment{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		ChannelCode:        m.ChannelCode,
		IsEnabled:          m.IsEnabled,
		RateLimitPerMinute: m.RateLimitPerMinute,
		LastSyncAt:         m.LastSyncAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	if m.AuthJSON != "" {
		var auth channel.AuthConfig
		if err := json.Unmarshal([]byte(m.AuthJSON), &auth); err == nil {
			assignment.Auth = auth
		}
	}
	if m.FeaturesJSON != "" {
		var features channel.FeatureSet
		if err := json.Unmarshal([]byte(m.FeaturesJSON), &features); err == nil {
			assignment.Features = features
		}
	}

	return assignment
}

// FromDomain populates the persistence model from a domain Assignment aggregate.
func (m *ChannelAssignmentModel) FromDomain(a *channel.Assignment) {
	m.ID = a.ID
	m.TenantID = a.TenantID
	m.ChannelCode = a.ChannelCode
	m.IsEnabled = a.IsEnabled
	m.RateLimitPerMinute = a.RateLimitPerMinute
	m.LastSyncAt = a.LastSyncAt
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt

	if jsonBytes, err := json.Marshal(a.Auth); err == nil {
		m.AuthJSON = string(jsonBytes)
	}
	if len(a.Features) > 0 {
		if jsonBytes, err := json.Marshal(a.Features); err == nil {
			m.FeaturesJSON = string(jsonBytes)
		}
	} else {
		m.FeaturesJSON = "{}"
	}
}

// ChannelAssignmentModelFromDomain creates a new persistence model from a domain Assignment.
func ChannelAssignmentModelFromDomain(a *channel.Assignment) *ChannelAssignmentModel {
	m := &ChannelAssignmentModel{}
	m.FromDomain(a)
	return m
}
