package sync

import "errors"

var (
	// ErrInvalidOrchestratorConfig indicates a non-positive dispatch setting
	ErrInvalidOrchestratorConfig = errors.New("sync: invalid orchestrator config")

	// ErrOrchestratorStopped indicates enqueue after shutdown
	ErrOrchestratorStopped = errors.New("sync: orchestrator stopped")

	// ErrNoJobStore indicates the orchestrator was started without a bound store
	ErrNoJobStore = errors.New("sync: no job store bound")

	// ErrUnknownSyncType indicates a sync type the executor cannot route
	ErrUnknownSyncType = errors.New("sync: unknown sync type")

	// ErrNoCatalog indicates the tenant has no menu to push
	ErrNoCatalog = errors.New("sync: no catalog for tenant")
)
