package channel

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Channel Assignment
// ---------------------------------------------------------------------------

// AuthConfig holds the credentials binding a tenant to a marketplace
type AuthConfig struct {
	// APIKey is the marketplace API key
	APIKey string `json:"api_key"`
	// APISecret is the marketplace API secret
	APISecret string `json:"api_secret"`
	// StoreID is the marketplace-side store identifier
	StoreID string `json:"store_id"`
	// WebhookSecret signs inbound webhook deliveries
	WebhookSecret string `json:"webhook_secret,omitempty"`
	// BaseURL overrides the marketplace API base URL (sandbox testing)
	BaseURL string `json:"base_url,omitempty"`
}

// IsComplete returns true if the minimum credentials are present
func (c AuthConfig) IsComplete() bool {
	return c.APIKey != "" && c.StoreID != ""
}

// Assignment binds a tenant to a channel with credentials and settings
type Assignment struct {
	// ID is the unique identifier of the assignment
	ID uuid.UUID
	// TenantID is the tenant this assignment belongs to
	TenantID uuid.UUID
	// ChannelCode identifies the marketplace
	ChannelCode Code
	// Auth holds the marketplace credentials
	Auth AuthConfig
	// IsEnabled indicates if sync is enabled for this assignment
	IsEnabled bool
	// RateLimitPerMinute caps outbound calls per minute (0 uses the default)
	RateLimitPerMinute int
	// Features overrides the adapter's advertised capabilities (nil for all)
	Features FeatureSet
	// LastSyncAt is when this assignment last completed a sync
	LastSyncAt *time.Time
	// CreatedAt is when the assignment was created
	CreatedAt time.Time
	// UpdatedAt is when the assignment was last updated
	UpdatedAt time.Time
}

// Validate validates the assignment
func (a *Assignment) Validate() error {
	if a.TenantID == uuid.Nil {
		return ErrAssignmentInvalidTenantID
	}
	if !a.ChannelCode.IsValid() {
		return ErrAssignmentInvalidChannel
	}
	if !a.Auth.IsComplete() {
		return ErrAssignmentMissingAuth
	}
	return nil
}

// CacheKey returns the registry cache key for this assignment
func (a *Assignment) CacheKey() string {
	return a.TenantID.String() + ":" + string(a.ChannelCode)
}

// ---------------------------------------------------------------------------
// AssignmentRepository Interface
// ---------------------------------------------------------------------------

// AssignmentRepository provides access to channel assignments
type AssignmentRepository interface {
	// FindByID finds an assignment by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Assignment, error)

	// FindByChannel finds the assignment for a (tenant, channel) pair
	FindByChannel(ctx context.Context, tenantID uuid.UUID, code Code) (*Assignment, error)

	// FindAllForTenant returns all assignments for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Assignment, error)

	// Save persists an assignment
	Save(ctx context.Context, assignment *Assignment) error

	// Delete removes an assignment
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
