package channel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

// stubAdapter is a controllable Adapter for registry tests
type stubAdapter struct {
	code domain.Code

	mu      sync.Mutex
	health  domain.HealthStatus
	initErr error
	inits   int
	closed  bool
}

func newStubAdapter(code domain.Code) *stubAdapter {
	return &stubAdapter{
		code: code,
		health: domain.HealthStatus{
			IsHealthy:    true,
			CircuitState: domain.CircuitClosed,
		},
	}
}

func (s *stubAdapter) setHealth(h domain.HealthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = h
}

func (s *stubAdapter) Code() domain.Code           { return s.code }
func (s *stubAdapter) Features() domain.FeatureSet { return nil }

func (s *stubAdapter) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits++
	return s.initErr
}

func (s *stubAdapter) TestConnection(ctx context.Context) error { return nil }

func (s *stubAdapter) PushMenu(ctx context.Context, menu *domain.MenuPush) (*domain.PushResult, error) {
	return &domain.PushResult{}, nil
}

func (s *stubAdapter) UpdateMenuItems(ctx context.Context, updates []domain.MenuItemUpdate) (*domain.PushResult, error) {
	return &domain.PushResult{}, nil
}

func (s *stubAdapter) SyncAvailability(ctx context.Context, updates []domain.AvailabilityUpdate) (*domain.PushResult, error) {
	return &domain.PushResult{}, nil
}

func (s *stubAdapter) FetchOrders(ctx context.Context, req *domain.OrderFetchRequest) ([]domain.ChannelOrder, error) {
	return nil, nil
}

func (s *stubAdapter) UpdateOrderStatus(ctx context.Context, update *domain.OrderStatusUpdate) error {
	return nil
}

func (s *stubAdapter) HandleWebhook(ctx context.Context, event *domain.WebhookEvent) (*domain.ChannelOrder, error) {
	return nil, nil
}

func (s *stubAdapter) HealthStatus() domain.HealthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}
func (s *stubAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func testAssignment(tenantID uuid.UUID, code domain.Code) *domain.Assignment {
	return &domain.Assignment{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ChannelCode: code,
		Auth:        domain.AuthConfig{APIKey: "key", StoreID: "store-1"},
		IsEnabled:   true,
	}
}

func newTestRegistry(t *testing.T) (*AdapterRegistry, map[domain.Code]*stubAdapter) {
	stubs := make(map[domain.Code]*stubAdapter)
	factories := map[domain.Code]domain.Factory{
		domain.CodeUberEats: func(a *domain.Assignment) (domain.Adapter, error) {
			stub := newStubAdapter(domain.CodeUberEats)
			stubs[domain.CodeUberEats] = stub
			return stub, nil
		},
		domain.CodeDoorDash: func(a *domain.Assignment) (domain.Adapter, error) {
			stub := newStubAdapter(domain.CodeDoorDash)
			stubs[domain.CodeDoorDash] = stub
			return stub, nil
		},
	}

	registry, err := NewAdapterRegistry(DefaultRegistryConfig(), factories, zap.NewNop())
	require.NoError(t, err)
	return registry, stubs
}

// ---------------------------------------------------------------------------
// Registry Tests
// ---------------------------------------------------------------------------

func TestAdapterRegistry_GetOrCreate_CachesHealthyInstance(t *testing.T) {
	registry, stubs := newTestRegistry(t)
	assignment := testAssignment(uuid.New(), domain.CodeUberEats)
	ctx := context.Background()

	first, err := registry.GetOrCreate(ctx, assignment)
	require.NoError(t, err)
	second, err := registry.GetOrCreate(ctx, assignment)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, stubs[domain.CodeUberEats].inits)
}

func TestAdapterRegistry_GetOrCreate_RecreatesUnhealthy(t *testing.T) {
	registry, stubs := newTestRegistry(t)
	assignment := testAssignment(uuid.New(), domain.CodeUberEats)
	ctx := context.Background()

	first, err := registry.GetOrCreate(ctx, assignment)
	require.NoError(t, err)

	stale := stubs[domain.CodeUberEats]
	stale.setHealth(domain.HealthStatus{
		IsHealthy:         false,
		CircuitState:      domain.CircuitOpen,
		ConsecutiveErrors: 7,
	})

	second, err := registry.GetOrCreate(ctx, assignment)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.True(t, stale.closed)
}

func TestAdapterRegistry_GetOrCreate_OneInstancePerPair(t *testing.T) {
	registry, _ := newTestRegistry(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	ctx := context.Background()

	a1, err := registry.GetOrCreate(ctx, testAssignment(tenantA, domain.CodeUberEats))
	require.NoError(t, err)
	a2, err := registry.GetOrCreate(ctx, testAssignment(tenantA, domain.CodeDoorDash))
	require.NoError(t, err)
	b1, err := registry.GetOrCreate(ctx, testAssignment(tenantB, domain.CodeUberEats))
	require.NoError(t, err)

	assert.NotSame(t, a1, a2)
	assert.NotSame(t, a1, b1)
	assert.Len(t, registry.All()[tenantA], 2)
	assert.Len(t, registry.All()[tenantB], 1)
}

func TestAdapterRegistry_GetOrCreate_NoFactory(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.GetOrCreate(context.Background(), testAssignment(uuid.New(), domain.CodeTalabat))

	assert.ErrorIs(t, err, ErrNoFactory)
}

func TestAdapterRegistry_GetOrCreate_InitFailure(t *testing.T) {
	initErr := errors.New("token exchange failed")
	factories := map[domain.Code]domain.Factory{
		domain.CodeUberEats: func(a *domain.Assignment) (domain.Adapter, error) {
			stub := newStubAdapter(domain.CodeUberEats)
			stub.initErr = initErr
			return stub, nil
		},
	}
	registry, err := NewAdapterRegistry(DefaultRegistryConfig(), factories, zap.NewNop())
	require.NoError(t, err)

	_, err = registry.GetOrCreate(context.Background(), testAssignment(uuid.New(), domain.CodeUberEats))

	assert.ErrorIs(t, err, initErr)
	assert.Empty(t, registry.All())
}

func TestAdapterRegistry_Destroy(t *testing.T) {
	registry, stubs := newTestRegistry(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := registry.GetOrCreate(ctx, testAssignment(tenantID, domain.CodeUberEats))
	require.NoError(t, err)

	require.NoError(t, registry.Destroy(ctx, tenantID, domain.CodeUberEats))

	assert.True(t, stubs[domain.CodeUberEats].closed)
	assert.Empty(t, registry.Snapshot(tenantID, nil))

	// Destroying an absent adapter is a no-op
	assert.NoError(t, registry.Destroy(ctx, tenantID, domain.CodeUberEats))
}

func TestAdapterRegistry_DestroyTenant(t *testing.T) {
	registry, _ := newTestRegistry(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	ctx := context.Background()

	_, err := registry.GetOrCreate(ctx, testAssignment(tenantA, domain.CodeUberEats))
	require.NoError(t, err)
	_, err = registry.GetOrCreate(ctx, testAssignment(tenantA, domain.CodeDoorDash))
	require.NoError(t, err)
	_, err = registry.GetOrCreate(ctx, testAssignment(tenantB, domain.CodeUberEats))
	require.NoError(t, err)

	require.NoError(t, registry.DestroyTenant(ctx, tenantA))

	assert.Empty(t, registry.Snapshot(tenantA, nil))
	assert.Len(t, registry.Snapshot(tenantB, nil), 1)
}

func TestAdapterRegistry_CleanupUnhealthy(t *testing.T) {
	registry, stubs := newTestRegistry(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := registry.GetOrCreate(ctx, testAssignment(tenantID, domain.CodeUberEats))
	require.NoError(t, err)
	_, err = registry.GetOrCreate(ctx, testAssignment(tenantID, domain.CodeDoorDash))
	require.NoError(t, err)

	// Below the eviction threshold: kept even though unhealthy
	stubs[domain.CodeUberEats].setHealth(domain.HealthStatus{
		IsHealthy:         false,
		CircuitState:      domain.CircuitOpen,
		ConsecutiveErrors: 9,
	})
	assert.Equal(t, 0, registry.CleanupUnhealthy(ctx))

	// At the threshold: evicted
	stubs[domain.CodeUberEats].setHealth(domain.HealthStatus{
		IsHealthy:         false,
		CircuitState:      domain.CircuitOpen,
		ConsecutiveErrors: 10,
	})
	assert.Equal(t, 1, registry.CleanupUnhealthy(ctx))
	assert.True(t, stubs[domain.CodeUberEats].closed)
	assert.Len(t, registry.Snapshot(tenantID, nil), 1)
}

func TestAdapterRegistry_Snapshot_FilterByChannel(t *testing.T) {
	registry, _ := newTestRegistry(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := registry.GetOrCreate(ctx, testAssignment(tenantID, domain.CodeUberEats))
	require.NoError(t, err)
	_, err = registry.GetOrCreate(ctx, testAssignment(tenantID, domain.CodeDoorDash))
	require.NoError(t, err)

	code := domain.CodeDoorDash
	snap := registry.Snapshot(tenantID, &code)

	require.Len(t, snap, 1)
	assert.Contains(t, snap, domain.CodeDoorDash)
}

func TestAdapterRegistry_Close(t *testing.T) {
	registry, stubs := newTestRegistry(t)
	assignment := testAssignment(uuid.New(), domain.CodeUberEats)
	ctx := context.Background()

	_, err := registry.GetOrCreate(ctx, assignment)
	require.NoError(t, err)

	require.NoError(t, registry.Close())

	assert.True(t, stubs[domain.CodeUberEats].closed)
	_, err = registry.GetOrCreate(ctx, assignment)
	assert.ErrorIs(t, err, ErrRegistryClosed)
}
