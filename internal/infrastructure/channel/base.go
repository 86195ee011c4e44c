package channel

import (
	"context"

	domain "github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// GuardedAdapter
// ---------------------------------------------------------------------------

// Transport is the raw, unguarded operation set a concrete marketplace
// integration implements. Field mapping, auth headers and pagination live
// behind this interface; GuardedAdapter adds the call guard and health
// reporting on top so every integration gets identical protection.
type Transport interface {
	Initialize(ctx context.Context) error
	TestConnection(ctx context.Context) error
	PushMenu(ctx context.Context, menu *domain.MenuPush) (*domain.PushResult, error)
	UpdateMenuItems(ctx context.Context, updates []domain.MenuItemUpdate) (*domain.PushResult, error)
	SyncAvailability(ctx context.Context, updates []domain.AvailabilityUpdate) (*domain.PushResult, error)
	FetchOrders(ctx context.Context, req *domain.OrderFetchRequest) ([]domain.ChannelOrder, error)
	UpdateOrderStatus(ctx context.Context, update *domain.OrderStatusUpdate) error
	HandleWebhook(ctx context.Context, event *domain.WebhookEvent) (*domain.ChannelOrder, error)
	Close() error
}

// GuardedAdapter implements the domain Adapter port by routing every
// transport call through a CallGuard
type GuardedAdapter struct {
	code      domain.Code
	features  domain.FeatureSet
	transport Transport
	guard     *CallGuard
}

// NewGuardedAdapter wraps a transport with a call guard
func NewGuardedAdapter(code domain.Code, features domain.FeatureSet, transport Transport, guard *CallGuard) *GuardedAdapter {
	return &GuardedAdapter{
		code:      code,
		features:  features,
		transport: transport,
		guard:     guard,
	}
}

// Code returns the channel code this adapter handles
func (a *GuardedAdapter) Code() domain.Code {
	return a.code
}

// Features returns the capabilities this adapter supports
func (a *GuardedAdapter) Features() domain.FeatureSet {
	return a.features
}

// Initialize prepares the adapter for use. Initialization is not guarded;
// a failed init never opens the circuit of an instance that is about to be
// discarded anyway.
func (a *GuardedAdapter) Initialize(ctx context.Context) error {
	return a.transport.Initialize(ctx)
}

// TestConnection verifies connectivity with the marketplace
func (a *GuardedAdapter) TestConnection(ctx context.Context) error {
	return a.guard.Do(ctx, a.transport.TestConnection)
}

// PushMenu pushes a complete menu to the marketplace
func (a *GuardedAdapter) PushMenu(ctx context.Context, menu *domain.MenuPush) (*domain.PushResult, error) {
	var result *domain.PushResult
	err := a.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = a.transport.PushMenu(ctx, menu)
		return callErr
	})
	return result, err
}

// UpdateMenuItems applies partial item updates
func (a *GuardedAdapter) UpdateMenuItems(ctx context.Context, updates []domain.MenuItemUpdate) (*domain.PushResult, error) {
	var result *domain.PushResult
	err := a.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = a.transport.UpdateMenuItems(ctx, updates)
		return callErr
	})
	return result, err
}

// SyncAvailability toggles item availability on the marketplace
func (a *GuardedAdapter) SyncAvailability(ctx context.Context, updates []domain.AvailabilityUpdate) (*domain.PushResult, error) {
	var result *domain.PushResult
	err := a.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = a.transport.SyncAvailability(ctx, updates)
		return callErr
	})
	return result, err
}

// FetchOrders pulls orders from the marketplace
func (a *GuardedAdapter) FetchOrders(ctx context.Context, req *domain.OrderFetchRequest) ([]domain.ChannelOrder, error) {
	var orders []domain.ChannelOrder
	err := a.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		orders, callErr = a.transport.FetchOrders(ctx, req)
		return callErr
	})
	return orders, err
}

// UpdateOrderStatus pushes an order status change back to the marketplace
func (a *GuardedAdapter) UpdateOrderStatus(ctx context.Context, update *domain.OrderStatusUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	return a.guard.Do(ctx, func(ctx context.Context) error {
		return a.transport.UpdateOrderStatus(ctx, update)
	})
}

// HandleWebhook parses an inbound webhook delivery. Webhooks consume no
// marketplace quota and say nothing about the marketplace's availability,
// so they bypass the guard entirely; a parse failure is the sender's
// problem, not an outbound-call failure.
func (a *GuardedAdapter) HandleWebhook(ctx context.Context, event *domain.WebhookEvent) (*domain.ChannelOrder, error) {
	return a.transport.HandleWebhook(ctx, event)
}

// HealthStatus returns a snapshot of the adapter's health
func (a *GuardedAdapter) HealthStatus() domain.HealthStatus {
	return a.guard.Health()
}

// Close releases adapter resources
func (a *GuardedAdapter) Close() error {
	return a.transport.Close()
}

// Ensure GuardedAdapter implements the domain port
var _ domain.Adapter = (*GuardedAdapter)(nil)
