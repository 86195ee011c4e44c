package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Catalog Source Port
// ---------------------------------------------------------------------------

// CatalogSource supplies sync payloads from the tenant's menu data. The
// catalog module owns menu storage; this port keeps the sync engine from
// reaching into its tables.
type CatalogSource interface {
	// FullMenu builds the complete menu push for a tenant
	FullMenu(ctx context.Context, tenantID uuid.UUID) (*channel.MenuPush, error)

	// CategoryMenu builds a push containing a single category
	CategoryMenu(ctx context.Context, tenantID, categoryID uuid.UUID) (*channel.MenuPush, error)

	// PriceUpdates returns per-item price updates since the last sync
	PriceUpdates(ctx context.Context, tenantID uuid.UUID, assignment *channel.Assignment) ([]channel.MenuItemUpdate, error)

	// AvailabilityUpdates returns per-item availability toggles since the
	// last sync
	AvailabilityUpdates(ctx context.Context, tenantID uuid.UUID, assignment *channel.Assignment) ([]channel.AvailabilityUpdate, error)
}

// ---------------------------------------------------------------------------
// Adapter Executor
// ---------------------------------------------------------------------------

// AdapterExecutor resolves the assignment and adapter for an operation and
// performs the marketplace call for its sync type
type AdapterExecutor struct {
	assignments channel.AssignmentRepository
	registry    channel.Registry
	catalog     CatalogSource
	logger      *zap.Logger
}

// NewAdapterExecutor creates an AdapterExecutor
func NewAdapterExecutor(
	assignments channel.AssignmentRepository,
	registry channel.Registry,
	catalog CatalogSource,
	logger *zap.Logger,
) *AdapterExecutor {
	return &AdapterExecutor{
		assignments: assignments,
		registry:    registry,
		catalog:     catalog,
		logger:      logger,
	}
}

var _ Executor = (*AdapterExecutor)(nil)

// Execute performs one sync operation. Resolution failures (missing or
// disabled assignment, bad credentials) surface as terminal errors so the
// job engine does not burn retries on them.
func (e *AdapterExecutor) Execute(ctx context.Context, op *syncdomain.Operation) (*channel.PushResult, error) {
	assignment, err := e.assignments.FindByID(ctx, op.TenantID, op.ChannelAssignmentID)
	if err != nil {
		return nil, channel.NewTerminalError(fmt.Errorf("resolve assignment: %w", err))
	}
	if !assignment.IsEnabled {
		return nil, channel.NewTerminalError(channel.ErrAssignmentDisabled)
	}

	adapter, err := e.registry.GetOrCreate(ctx, assignment)
	if err != nil {
		return nil, fmt.Errorf("acquire adapter: %w", err)
	}

	e.logger.Debug("executing sync operation",
		zap.String("job_id", op.JobID.String()),
		zap.String("channel_code", string(op.ChannelCode)),
		zap.String("sync_type", op.SyncType.String()),
	)

	switch op.SyncType {
	case syncdomain.TypeFullMenu:
		menu, err := e.catalog.FullMenu(ctx, op.TenantID)
		if err != nil {
			return nil, channel.NewTerminalError(fmt.Errorf("build menu: %w", err))
		}
		return adapter.PushMenu(ctx, menu)

	case syncdomain.TypeCategorySync:
		categoryID, err := payloadUUID(op.RequestPayload, "category_id")
		if err != nil {
			return nil, channel.NewTerminalError(err)
		}
		menu, err := e.catalog.CategoryMenu(ctx, op.TenantID, categoryID)
		if err != nil {
			return nil, channel.NewTerminalError(fmt.Errorf("build category menu: %w", err))
		}
		return adapter.PushMenu(ctx, menu)

	case syncdomain.TypePricesOnly:
		updates, err := e.catalog.PriceUpdates(ctx, op.TenantID, assignment)
		if err != nil {
			return nil, channel.NewTerminalError(fmt.Errorf("collect price updates: %w", err))
		}
		if len(updates) == 0 {
			return emptyResult(), nil
		}
		return adapter.UpdateMenuItems(ctx, updates)

	case syncdomain.TypeAvailabilityOnly:
		updates, err := e.catalog.AvailabilityUpdates(ctx, op.TenantID, assignment)
		if err != nil {
			return nil, channel.NewTerminalError(fmt.Errorf("collect availability updates: %w", err))
		}
		if len(updates) == 0 {
			return emptyResult(), nil
		}
		return adapter.SyncAvailability(ctx, updates)

	default:
		return nil, channel.NewTerminalError(fmt.Errorf("%w: %s", ErrUnknownSyncType, op.SyncType))
	}
}

// payloadUUID extracts a UUID-valued field from a job payload
func payloadUUID(payload map[string]any, key string) (uuid.UUID, error) {
	raw, ok := payload[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("payload missing %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("payload field %q is not a string", key)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("payload field %q: %w", key, err)
	}
	return id, nil
}

func emptyResult() *channel.PushResult {
	return &channel.PushResult{}
}
