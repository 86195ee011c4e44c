package channel

import (
	"context"
	"sync"
	"time"

	domain "github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// GuardConfig
// ---------------------------------------------------------------------------

// GuardConfig holds circuit breaker and rate limiter settings for one
// adapter instance
type GuardConfig struct {
	// FailureThreshold is the consecutive error count that opens the circuit
	FailureThreshold int
	// OpenTimeout is how long the circuit stays open before allowing a probe
	OpenTimeout time.Duration
	// Window is the rate limiter's fixed window length
	Window time.Duration
	// MaxRequests is the maximum calls allowed per window
	MaxRequests int
}

// DefaultGuardConfig returns default guard settings
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
		Window:           time.Minute,
		MaxRequests:      60,
	}
}

// Validate validates the configuration
func (c *GuardConfig) Validate() error {
	if c.FailureThreshold <= 0 || c.OpenTimeout <= 0 || c.Window <= 0 || c.MaxRequests <= 0 {
		return ErrInvalidGuardConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// CallGuard
// ---------------------------------------------------------------------------

// CallGuard wraps every outbound marketplace call with a fixed-window rate
// limiter and a circuit breaker. The limiter is checked first; a rate-limit
// rejection does not consume the breaker's error budget. One guard instance
// exists per adapter instance.
type CallGuard struct {
	config GuardConfig

	mu                sync.Mutex
	state             domain.CircuitState
	consecutiveErrors int
	openedAt          time.Time
	lastSuccessAt     *time.Time
	lastErrorAt       *time.Time

	windowStart  time.Time
	requestCount int

	// now is swappable for tests
	now func() time.Time
}

// NewCallGuard creates a guard in the closed state
func NewCallGuard(config GuardConfig) (*CallGuard, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CallGuard{
		config: config,
		state:  domain.CircuitClosed,
		now:    time.Now,
	}, nil
}

// Do executes fn behind the rate limiter and circuit breaker. The returned
// error is ErrRateLimited or ErrCircuitOpen for guard rejections (both
// retryable), otherwise fn's own error.
func (g *CallGuard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	g.record(err)
	return err
}

// allow checks the rate limiter, then the breaker
func (g *CallGuard) allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()

	// Fixed-window rate limit
	if now.Sub(g.windowStart) > g.config.Window {
		g.windowStart = now
		g.requestCount = 0
	}
	if g.requestCount >= g.config.MaxRequests {
		return domain.ErrRateLimited
	}

	switch g.state {
	case domain.CircuitOpen:
		if now.Sub(g.openedAt) < g.config.OpenTimeout {
			return domain.ErrCircuitOpen
		}
		// Timeout elapsed: allow exactly one probe
		g.state = domain.CircuitHalfOpen
	case domain.CircuitHalfOpen:
		// A probe is already in flight
		return domain.ErrCircuitOpen
	}

	g.requestCount++
	return nil
}

// record updates breaker state from a call outcome
func (g *CallGuard) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()

	if err == nil {
		g.consecutiveErrors = 0
		g.lastSuccessAt = &now
		g.state = domain.CircuitClosed
		return
	}

	g.consecutiveErrors++
	g.lastErrorAt = &now

	if g.state == domain.CircuitHalfOpen || g.consecutiveErrors >= g.config.FailureThreshold {
		g.state = domain.CircuitOpen
		g.openedAt = now
	}
}

// State returns the current circuit state
func (g *CallGuard) State() domain.CircuitState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ConsecutiveErrors returns the current consecutive failure count
func (g *CallGuard) ConsecutiveErrors() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecutiveErrors
}

// Health returns a snapshot of the guard's state for HealthStatus reporting
func (g *CallGuard) Health() domain.HealthStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return domain.HealthStatus{
		IsHealthy:         g.state == domain.CircuitClosed,
		CircuitState:      g.state,
		ConsecutiveErrors: g.consecutiveErrors,
		LastSuccessAt:     g.lastSuccessAt,
		LastErrorAt:       g.lastErrorAt,
		RateLimit: domain.RateLimitStatus{
			Used:          g.requestCount,
			Limit:         g.config.MaxRequests,
			WindowResetAt: g.windowStart.Add(g.config.Window),
		},
	}
}
