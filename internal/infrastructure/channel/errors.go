package channel

import "errors"

var (
	// ErrInvalidGuardConfig is returned when guard configuration is invalid
	ErrInvalidGuardConfig = errors.New("invalid call guard configuration")

	// ErrInvalidRegistryConfig is returned when registry configuration is invalid
	ErrInvalidRegistryConfig = errors.New("invalid adapter registry configuration")

	// ErrNoFactory is returned when no adapter factory is registered for a channel
	ErrNoFactory = errors.New("no adapter factory registered for channel")

	// ErrRegistryClosed is returned when using a registry after shutdown
	ErrRegistryClosed = errors.New("adapter registry is closed")
)
