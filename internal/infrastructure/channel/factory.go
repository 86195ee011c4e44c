package channel

import (
	domain "github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Adapter Factories
// ---------------------------------------------------------------------------

// DefaultFactories returns the factory set for the marketplaces this build
// integrates with. Channel codes without a factory resolve to ErrNoFactory
// at the registry.
func DefaultFactories() map[domain.Code]domain.Factory {
	return map[domain.Code]domain.Factory{
		domain.CodeUberEats: func(assignment *domain.Assignment) (domain.Adapter, error) {
			guard, err := NewCallGuard(guardConfigFor(assignment))
			if err != nil {
				return nil, err
			}
			features := domain.NewFeatureSet(
				domain.FeatureMenuPush,
				domain.FeatureItemUpdate,
				domain.FeatureAvailability,
				domain.FeatureOrderPull,
				domain.FeatureOrderStatus,
				domain.FeatureWebhooks,
			)
			return NewGuardedAdapter(domain.CodeUberEats, features, NewUberEatsTransport(assignment.Auth), guard), nil
		},
		domain.CodeDoorDash: func(assignment *domain.Assignment) (domain.Adapter, error) {
			guard, err := NewCallGuard(guardConfigFor(assignment))
			if err != nil {
				return nil, err
			}
			features := domain.NewFeatureSet(
				domain.FeatureMenuPush,
				domain.FeatureItemUpdate,
				domain.FeatureAvailability,
				domain.FeatureOrderPull,
				domain.FeatureOrderStatus,
				domain.FeatureWebhooks,
			)
			return NewGuardedAdapter(domain.CodeDoorDash, features, NewDoorDashTransport(assignment.Auth), guard), nil
		},
	}
}

// guardConfigFor derives the guard settings for one assignment. A per
// assignment rate limit overrides the default window budget.
func guardConfigFor(assignment *domain.Assignment) GuardConfig {
	config := DefaultGuardConfig()
	if assignment.RateLimitPerMinute > 0 {
		config.MaxRequests = assignment.RateLimitPerMinute
	}
	return config
}
