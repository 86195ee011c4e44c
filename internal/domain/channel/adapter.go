package channel

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Circuit State
// ---------------------------------------------------------------------------

// CircuitState represents the state of an adapter's circuit breaker
type CircuitState string

const (
	// CircuitClosed is the normal state; calls flow through
	CircuitClosed CircuitState = "CLOSED"
	// CircuitOpen means all calls fail fast without reaching the marketplace
	CircuitOpen CircuitState = "OPEN"
	// CircuitHalfOpen allows a single probe call after the open timeout
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// String returns the string representation of CircuitState
func (s CircuitState) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Health Status
// ---------------------------------------------------------------------------

// RateLimitStatus reports the adapter's current rate-limit window
type RateLimitStatus struct {
	// Used is the number of requests consumed in the current window
	Used int
	// Limit is the maximum requests allowed per window
	Limit int
	// WindowResetAt is when the current window resets
	WindowResetAt time.Time
}

// HealthStatus is a point-in-time snapshot of an adapter's health
type HealthStatus struct {
	// IsHealthy is true when the circuit breaker is closed
	IsHealthy bool
	// CircuitState is the breaker state at snapshot time
	CircuitState CircuitState
	// ConsecutiveErrors is the current consecutive failure count
	ConsecutiveErrors int
	// LastSuccessAt is when the adapter last completed a call successfully
	LastSuccessAt *time.Time
	// LastErrorAt is when the adapter last failed a call
	LastErrorAt *time.Time
	// RateLimit is the current rate-limit window status
	RateLimit RateLimitStatus
}

// ---------------------------------------------------------------------------
// Adapter Port Interface
// ---------------------------------------------------------------------------

// Adapter defines the port interface for delivery marketplace integrations.
// Concrete implementations (Uber Eats, DoorDash, ...) live in the
// infrastructure layer and must route every outbound network call through
// their call guard. Read-only methods (Code, HealthStatus) are safe for
// concurrent use; the orchestrator serializes mutating operations per
// adapter instance through its concurrency cap.
type Adapter interface {
	// Code returns the channel code this adapter handles
	Code() Code

	// Features returns the capabilities this adapter supports
	Features() FeatureSet

	// Initialize prepares the adapter for use (token exchange, config checks)
	Initialize(ctx context.Context) error

	// TestConnection verifies connectivity with the marketplace
	TestConnection(ctx context.Context) error

	// PushMenu pushes a complete menu to the marketplace
	PushMenu(ctx context.Context, menu *MenuPush) (*PushResult, error)

	// UpdateMenuItems applies partial item updates (name, price, description)
	UpdateMenuItems(ctx context.Context, updates []MenuItemUpdate) (*PushResult, error)

	// SyncAvailability toggles item availability on the marketplace
	SyncAvailability(ctx context.Context, updates []AvailabilityUpdate) (*PushResult, error)

	// FetchOrders pulls orders from the marketplace
	FetchOrders(ctx context.Context, req *OrderFetchRequest) ([]ChannelOrder, error)

	// UpdateOrderStatus pushes an order status change back to the marketplace
	UpdateOrderStatus(ctx context.Context, update *OrderStatusUpdate) error

	// HandleWebhook parses and validates an inbound webhook delivery
	HandleWebhook(ctx context.Context, event *WebhookEvent) (*ChannelOrder, error)

	// HealthStatus returns a snapshot of the adapter's health
	HealthStatus() HealthStatus

	// Close releases adapter resources
	Close() error
}

// ---------------------------------------------------------------------------
// Registry Port Interface
// ---------------------------------------------------------------------------

// Registry provides exactly one live adapter instance per
// (tenantID, channel code) pair, recreating instances that turn unhealthy
type Registry interface {
	// GetOrCreate returns the cached adapter for the assignment, creating
	// and initializing a fresh one when absent or unhealthy
	GetOrCreate(ctx context.Context, assignment *Assignment) (Adapter, error)

	// Destroy tears down and evicts the adapter for a (tenant, channel) pair
	Destroy(ctx context.Context, tenantID uuid.UUID, code Code) error

	// DestroyTenant tears down all adapters owned by a tenant
	DestroyTenant(ctx context.Context, tenantID uuid.UUID) error

	// CleanupUnhealthy evicts adapters whose consecutive error count crossed
	// the eviction threshold, forcing recreation on next use
	CleanupUnhealthy(ctx context.Context) int

	// Snapshot returns health snapshots of all live adapters for a tenant.
	// A nil code returns all channels.
	Snapshot(tenantID uuid.UUID, code *Code) map[Code]HealthStatus

	// All returns every live adapter keyed by tenant and channel
	All() map[uuid.UUID]map[Code]Adapter
}

// Factory constructs a marketplace adapter for an assignment. One factory is
// registered per channel code; field mapping and wire details stay behind it.
type Factory func(assignment *Assignment) (Adapter, error)
