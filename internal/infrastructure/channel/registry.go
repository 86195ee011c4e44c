package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// RegistryConfig
// ---------------------------------------------------------------------------

// RegistryConfig holds adapter registry settings
type RegistryConfig struct {
	// EvictionThreshold is the consecutive error count at which the cleanup
	// sweep evicts an adapter even if still referenced
	EvictionThreshold int
	// SweepInterval is how often the background cleanup sweep runs
	SweepInterval time.Duration
	// InitTimeout bounds adapter initialization
	InitTimeout time.Duration
}

// DefaultRegistryConfig returns default registry settings
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		EvictionThreshold: 10,
		SweepInterval:     5 * time.Minute,
		InitTimeout:       30 * time.Second,
	}
}

// Validate validates the configuration
func (c *RegistryConfig) Validate() error {
	if c.EvictionThreshold <= 0 || c.SweepInterval <= 0 || c.InitTimeout <= 0 {
		return ErrInvalidRegistryConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// AdapterRegistry
// ---------------------------------------------------------------------------

// AdapterRegistry caches exactly one live adapter per (tenant, channel)
// pair. Unhealthy instances are destroyed and recreated on next use; a
// background sweep evicts instances whose consecutive error count crossed
// the eviction threshold.
type AdapterRegistry struct {
	config    RegistryConfig
	factories map[domain.Code]domain.Factory
	logger    *zap.Logger

	mu       sync.Mutex
	adapters map[string]domain.Adapter
	closed   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdapterRegistry creates a registry with the given per-channel factories
func NewAdapterRegistry(config RegistryConfig, factories map[domain.Code]domain.Factory, logger *zap.Logger) (*AdapterRegistry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AdapterRegistry{
		config:    config,
		factories: factories,
		logger:    logger,
		adapters:  make(map[string]domain.Adapter),
	}, nil
}

// Start launches the background cleanup sweep
func (r *AdapterRegistry) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evicted := r.CleanupUnhealthy(ctx)
				if evicted > 0 {
					r.logger.Info("evicted unhealthy adapters",
						zap.Int("count", evicted),
					)
				}
			}
		}
	}()
}

// GetOrCreate returns the cached adapter for the assignment, creating and
// initializing a fresh instance when absent or unhealthy
func (r *AdapterRegistry) GetOrCreate(ctx context.Context, assignment *domain.Assignment) (domain.Adapter, error) {
	if err := assignment.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	key := assignment.CacheKey()
	if cached, ok := r.adapters[key]; ok {
		if cached.HealthStatus().IsHealthy {
			return cached, nil
		}
		// Stale instance: tear down and rebuild
		r.logger.Warn("recreating unhealthy adapter",
			zap.String("tenant_id", assignment.TenantID.String()),
			zap.String("channel", string(assignment.ChannelCode)),
		)
		if err := cached.Close(); err != nil {
			r.logger.Warn("failed to close stale adapter", zap.Error(err))
		}
		delete(r.adapters, key)
	}

	factory, ok := r.factories[assignment.ChannelCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFactory, assignment.ChannelCode)
	}

	adapter, err := factory(assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter for %s: %w", assignment.ChannelCode, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, r.config.InitTimeout)
	defer cancel()
	if err := adapter.Initialize(initCtx); err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("failed to initialize adapter for %s: %w", assignment.ChannelCode, err)
	}

	r.adapters[key] = adapter
	r.logger.Debug("adapter created",
		zap.String("tenant_id", assignment.TenantID.String()),
		zap.String("channel", string(assignment.ChannelCode)),
	)
	return adapter, nil
}

// Destroy tears down and evicts the adapter for a (tenant, channel) pair
func (r *AdapterRegistry) Destroy(ctx context.Context, tenantID uuid.UUID, code domain.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey(tenantID, code)
	adapter, ok := r.adapters[key]
	if !ok {
		return nil
	}
	delete(r.adapters, key)
	return adapter.Close()
}

// DestroyTenant tears down all adapters owned by a tenant
func (r *AdapterRegistry) DestroyTenant(ctx context.Context, tenantID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := tenantID.String() + ":"
	var firstErr error
	for key, adapter := range r.adapters {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		delete(r.adapters, key)
		if err := adapter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CleanupUnhealthy evicts adapters whose consecutive error count crossed the
// eviction threshold, forcing recreation on next use. Returns the number
// evicted.
func (r *AdapterRegistry) CleanupUnhealthy(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, adapter := range r.adapters {
		health := adapter.HealthStatus()
		if health.ConsecutiveErrors < r.config.EvictionThreshold {
			continue
		}
		delete(r.adapters, key)
		if err := adapter.Close(); err != nil {
			r.logger.Warn("failed to close evicted adapter",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		evicted++
	}
	return evicted
}

// Snapshot returns health snapshots of a tenant's live adapters. A nil code
// returns all channels.
func (r *AdapterRegistry) Snapshot(tenantID uuid.UUID, code *domain.Code) map[domain.Code]domain.HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[domain.Code]domain.HealthStatus)
	prefix := tenantID.String() + ":"
	for key, adapter := range r.adapters {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if code != nil && adapter.Code() != *code {
			continue
		}
		out[adapter.Code()] = adapter.HealthStatus()
	}
	return out
}

// All returns every live adapter keyed by tenant and channel
func (r *AdapterRegistry) All() map[uuid.UUID]map[domain.Code]domain.Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[uuid.UUID]map[domain.Code]domain.Adapter)
	for key, adapter := range r.adapters {
		idx := strings.IndexByte(key, ':')
		if idx < 0 {
			continue
		}
		tenantID, err := uuid.Parse(key[:idx])
		if err != nil {
			continue
		}
		if out[tenantID] == nil {
			out[tenantID] = make(map[domain.Code]domain.Adapter)
		}
		out[tenantID][adapter.Code()] = adapter
	}
	return out
}

// Close tears down every adapter and stops the sweep
func (r *AdapterRegistry) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	var firstErr error
	for key, adapter := range r.adapters {
		delete(r.adapters, key)
		if err := adapter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// cacheKey builds the registry key for a (tenant, channel) pair
func cacheKey(tenantID uuid.UUID, code domain.Code) string {
	return tenantID.String() + ":" + string(code)
}

// Ensure AdapterRegistry implements the domain port
var _ domain.Registry = (*AdapterRegistry)(nil)
