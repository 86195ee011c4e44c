package channels

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type memAssignmentRepo struct {
	mu          stdsync.Mutex
	assignments map[uuid.UUID]channel.Assignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{assignments: make(map[uuid.UUID]channel.Assignment)}
}

func (r *memAssignmentRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*channel.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok || a.TenantID != tenantID {
		return nil, channel.ErrAssignmentNotFound
	}
	out := a
	return &out, nil
}

func (r *memAssignmentRepo) FindByChannel(ctx context.Context, tenantID uuid.UUID, code channel.Code) (*channel.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.TenantID == tenantID && a.ChannelCode == code {
			out := a
			return &out, nil
		}
	}
	return nil, channel.ErrAssignmentNotFound
}

func (r *memAssignmentRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*channel.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*channel.Assignment
	for _, a := range r.assignments {
		if a.TenantID == tenantID {
			cp := a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAssignmentRepo) Save(ctx context.Context, assignment *channel.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *memAssignmentRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok || a.TenantID != tenantID {
		return channel.ErrAssignmentNotFound
	}
	delete(r.assignments, id)
	return nil
}

// recordingRegistry tracks evictions and hands out a stub adapter
type recordingRegistry struct {
	mu        stdsync.Mutex
	destroyed []channel.Code
	adapter   channel.Adapter
	createErr error
}

func (r *recordingRegistry) GetOrCreate(ctx context.Context, assignment *channel.Assignment) (channel.Adapter, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.adapter, nil
}

func (r *recordingRegistry) Destroy(ctx context.Context, tenantID uuid.UUID, code channel.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = append(r.destroyed, code)
	return nil
}

func (r *recordingRegistry) DestroyTenant(ctx context.Context, tenantID uuid.UUID) error { return nil }

func (r *recordingRegistry) CleanupUnhealthy(ctx context.Context) int { return 0 }

func (r *recordingRegistry) Snapshot(tenantID uuid.UUID, code *channel.Code) map[channel.Code]channel.HealthStatus {
	return nil
}

func (r *recordingRegistry) All() map[uuid.UUID]map[channel.Code]channel.Adapter { return nil }

func (r *recordingRegistry) destroyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.destroyed)
}

// stubAdapter implements channel.Adapter for connectivity tests
type stubAdapter struct {
	testErr error
}

func (a *stubAdapter) Code() channel.Code { return channel.CodeUberEats }
func (a *stubAdapter) Features() channel.FeatureSet { return nil }
func (a *stubAdapter) Initialize(context.Context) error { return nil }
func (a *stubAdapter) TestConnection(context.Context) error { return a.testErr }
func (a *stubAdapter) PushMenu(context.Context, *channel.MenuPush) (*channel.PushResult, error) {
	return nil, nil
}
func (a *stubAdapter) UpdateMenuItems(context.Context, []channel.MenuItemUpdate) (*channel.PushResult, error) {
	return nil, nil
}
func (a *stubAdapter) SyncAvailability(context.Context, []channel.AvailabilityUpdate) (*channel.PushResult, error) {
	return nil, nil
}
func (a *stubAdapter) FetchOrders(context.Context, *channel.OrderFetchRequest) ([]channel.ChannelOrder, error) {
	return nil, nil
}
func (a *stubAdapter) UpdateOrderStatus(context.Context, *channel.OrderStatusUpdate) error {
	return nil
}
func (a *stubAdapter) HandleWebhook(context.Context, *channel.WebhookEvent) (*channel.ChannelOrder, error) {
	return nil, nil
}
func (a *stubAdapter) HealthStatus() channel.HealthStatus { return channel.HealthStatus{} }
func (a *stubAdapter) Close() error { return nil }

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	service  *AssignmentService
	repo     *memAssignmentRepo
	registry *recordingRegistry
	tenantID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemAssignmentRepo()
	registry := &recordingRegistry{adapter: &stubAdapter{}}
	return &fixture{
		service:  NewAssignmentService(repo, registry, zap.NewNop()),
		repo:     repo,
		registry: registry,
		tenantID: uuid.New(),
	}
}

func validCreateRequest() CreateAssignmentRequest {
	return CreateAssignmentRequest{
		ChannelCode: string(channel.CodeUberEats),
		Auth: AuthConfigInput{
			APIKey:  "ue-live-key-9876",
			StoreID: "store-main",
		},
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestAssignmentServiceCreate(t *testing.T) {
	t.Run("creates an enabled assignment by default", func(t *testing.T) {
		f := newFixture(t)

		view, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, string(channel.CodeUberEats), view.ChannelCode)
		assert.Equal(t, "Uber Eats", view.ChannelName)
		assert.True(t, view.IsEnabled)
		assert.Equal(t, f.tenantID, view.TenantID)
	})

	t.Run("masks the API key in the view", func(t *testing.T) {
		f := newFixture(t)

		view, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, "****9876", view.APIKeyMasked)
		assert.NotContains(t, view.APIKeyMasked, "ue-live")
	})

	t.Run("rejects an unknown channel code", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		req.ChannelCode = "POSTMATES"

		_, err := f.service.Create(context.Background(), f.tenantID, req)
		assert.ErrorIs(t, err, channel.ErrAssignmentInvalidChannel)
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		req.Auth.APIKey = ""

		_, err := f.service.Create(context.Background(), f.tenantID, req)
		assert.ErrorIs(t, err, channel.ErrAssignmentMissingAuth)
	})

	t.Run("rejects a duplicate channel for the same tenant", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("allows the same channel for different tenants", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.Create(context.Background(), uuid.New(), validCreateRequest())
		assert.NoError(t, err)
	})

	t.Run("stores capability overrides", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		req.Features = []string{"menu_push", "availability"}

		view, err := f.service.Create(context.Background(), f.tenantID, req)
		require.NoError(t, err)

		assert.Equal(t, []string{"availability", "menu_push"}, view.Features)
	})
}

// ---------------------------------------------------------------------------
// Get / List
// ---------------------------------------------------------------------------

func TestAssignmentServiceGet(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
	require.NoError(t, err)

	t.Run("returns the assignment", func(t *testing.T) {
		view, err := f.service.Get(context.Background(), f.tenantID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, view.ID)
	})

	t.Run("is tenant scoped", func(t *testing.T) {
		_, err := f.service.Get(context.Background(), uuid.New(), created.ID)
		assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)
	})
}

func TestAssignmentServiceList(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
	require.NoError(t, err)

	req := validCreateRequest()
	req.ChannelCode = string(channel.CodeDoorDash)
	_, err = f.service.Create(context.Background(), f.tenantID, req)
	require.NoError(t, err)

	views, err := f.service.List(context.Background(), f.tenantID)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	views, err = f.service.List(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, views)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestAssignmentServiceUpdate(t *testing.T) {
	t.Run("rotates credentials and evicts the cached adapter", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		view, err := f.service.Update(context.Background(), f.tenantID, created.ID, UpdateAssignmentRequest{
			Auth: &AuthConfigInput{APIKey: "rotated-key-4321", StoreID: "store-main"},
		})
		require.NoError(t, err)

		assert.Equal(t, "****4321", view.APIKeyMasked)
		assert.Equal(t, 1, f.registry.destroyCount())
	})

	t.Run("disables sync", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		off := false
		view, err := f.service.Update(context.Background(), f.tenantID, created.ID, UpdateAssignmentRequest{
			IsEnabled: &off,
		})
		require.NoError(t, err)
		assert.False(t, view.IsEnabled)
	})

	t.Run("rejects credential updates that drop required fields", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.Update(context.Background(), f.tenantID, created.ID, UpdateAssignmentRequest{
			Auth: &AuthConfigInput{APIKey: "key-only"},
		})
		assert.ErrorIs(t, err, channel.ErrAssignmentMissingAuth)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Update(context.Background(), f.tenantID, uuid.New(), UpdateAssignmentRequest{})
		assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)
	})
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestAssignmentServiceDelete(t *testing.T) {
	f := newFixture(t)
	created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), f.tenantID, created.ID))
	assert.Equal(t, 1, f.registry.destroyCount())

	_, err = f.service.Get(context.Background(), f.tenantID, created.ID)
	assert.ErrorIs(t, err, channel.ErrAssignmentNotFound)

	assert.ErrorIs(t, f.service.Delete(context.Background(), f.tenantID, created.ID), channel.ErrAssignmentNotFound)
}

// ---------------------------------------------------------------------------
// TestConnection
// ---------------------------------------------------------------------------

func TestAssignmentServiceTestConnection(t *testing.T) {
	t.Run("reports success with latency", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		view, err := f.service.TestConnection(context.Background(), f.tenantID, created.ID)
		require.NoError(t, err)
		assert.True(t, view.Success)
		assert.Empty(t, view.Error)
		assert.GreaterOrEqual(t, view.LatencyMs, int64(0))
	})

	t.Run("reports a failed probe without an error return", func(t *testing.T) {
		f := newFixture(t)
		f.registry.adapter = &stubAdapter{testErr: errors.New("dial tcp: connection refused")}
		created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		view, err := f.service.TestConnection(context.Background(), f.tenantID, created.ID)
		require.NoError(t, err)
		assert.False(t, view.Success)
		assert.Contains(t, view.Error, "connection refused")
	})

	t.Run("refuses disabled assignments", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateRequest()
		off := false
		req.IsEnabled = &off
		created, err := f.service.Create(context.Background(), f.tenantID, req)
		require.NoError(t, err)

		_, err = f.service.TestConnection(context.Background(), f.tenantID, created.ID)
		assert.ErrorIs(t, err, channel.ErrAssignmentDisabled)
	})

	t.Run("propagates adapter creation failures", func(t *testing.T) {
		f := newFixture(t)
		f.registry.createErr = channel.ErrChannelAuthFailed
		created, err := f.service.Create(context.Background(), f.tenantID, validCreateRequest())
		require.NoError(t, err)

		_, err = f.service.TestConnection(context.Background(), f.tenantID, created.ID)
		assert.ErrorIs(t, err, channel.ErrChannelAuthFailed)
	})
}
