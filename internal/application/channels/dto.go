package channels

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// AuthConfigInput carries marketplace credentials on create and update
type AuthConfigInput struct {
	// APIKey is the marketplace API key
	APIKey string `json:"api_key" binding:"required"`
	// APISecret is the marketplace API secret
	APISecret string `json:"api_secret"`
	// StoreID is the marketplace-side store identifier
	StoreID string `json:"store_id" binding:"required"`
	// WebhookSecret signs inbound webhook deliveries
	WebhookSecret string `json:"webhook_secret"`
	// BaseURL overrides the marketplace API base URL (sandbox testing)
	BaseURL string `json:"base_url" binding:"omitempty,url"`
}

func (in AuthConfigInput) toDomain() channel.AuthConfig {
	return channel.AuthConfig{
		APIKey:        in.APIKey,
		APISecret:     in.APISecret,
		StoreID:       in.StoreID,
		WebhookSecret: in.WebhookSecret,
		BaseURL:       in.BaseURL,
	}
}

// CreateAssignmentRequest is the input for connecting a tenant to a channel
type CreateAssignmentRequest struct {
	// ChannelCode identifies the marketplace
	ChannelCode string `json:"channel_code" binding:"required"`
	// Auth holds the marketplace credentials
	Auth AuthConfigInput `json:"auth" binding:"required"`
	// IsEnabled controls whether sync runs (defaults to true)
	IsEnabled *bool `json:"is_enabled"`
	// RateLimitPerMinute caps outbound calls per minute (0 uses the default)
	RateLimitPerMinute int `json:"rate_limit_per_minute" binding:"min=0"`
	// Features overrides the adapter's advertised capabilities (empty for all)
	Features []string `json:"features"`
}

// UpdateAssignmentRequest patches an existing assignment. Nil fields are
// left unchanged.
type UpdateAssignmentRequest struct {
	// Auth replaces the stored credentials when set
	Auth *AuthConfigInput `json:"auth"`
	// IsEnabled toggles sync for the assignment
	IsEnabled *bool `json:"is_enabled"`
	// RateLimitPerMinute replaces the outbound call cap
	RateLimitPerMinute *int `json:"rate_limit_per_minute" binding:"omitempty,min=0"`
	// Features replaces the capability overrides when set
	Features []string `json:"features"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// AssignmentView is the external representation of a channel assignment.
// Credentials are masked; secrets never leave the service.
type AssignmentView struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           uuid.UUID  `json:"tenant_id"`
	ChannelCode        string     `json:"channel_code"`
	ChannelName        string     `json:"channel_name"`
	StoreID            string     `json:"store_id"`
	APIKeyMasked       string     `json:"api_key_masked"`
	HasWebhookSecret   bool       `json:"has_webhook_secret"`
	IsEnabled          bool       `json:"is_enabled"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	Features           []string   `json:"features,omitempty"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// AssignmentViewFromDomain converts an assignment to its external
// representation
func AssignmentViewFromDomain(a *channel.Assignment) *AssignmentView {
	return &AssignmentView{
		ID:                 a.ID,
		TenantID:           a.TenantID,
		ChannelCode:        string(a.ChannelCode),
		ChannelName:        a.ChannelCode.DisplayName(),
		StoreID:            a.Auth.StoreID,
		APIKeyMasked:       maskKey(a.Auth.APIKey),
		HasWebhookSecret:   a.Auth.WebhookSecret != "",
		IsEnabled:          a.IsEnabled,
		RateLimitPerMinute: a.RateLimitPerMinute,
		Features:           featureNames(a.Features),
		LastSyncAt:         a.LastSyncAt,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// ConnectionTestView reports the outcome of a connectivity probe
type ConnectionTestView struct {
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// maskKey hides all but the last four characters of a credential
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// featureNames returns the enabled features as a sorted string slice
func featureNames(set channel.FeatureSet) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for f, on := range set {
		if on {
			names = append(names, string(f))
		}
	}
	sort.Strings(names)
	return names
}

// featureSetFromNames builds a feature set from string names
func featureSetFromNames(names []string) channel.FeatureSet {
	if len(names) == 0 {
		return nil
	}
	set := make(channel.FeatureSet, len(names))
	for _, n := range names {
		set[channel.Feature(n)] = true
	}
	return set
}
