package monitor

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/shared"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// ErrInvalidMonitorConfig indicates a non-positive monitor setting
var ErrInvalidMonitorConfig = errors.New("monitor: invalid monitor config")

// Config holds channel monitor settings
type Config struct {
	// ProbeInterval is how often every live adapter is probed
	ProbeInterval time.Duration
	// ProbeTimeout bounds a single connectivity probe
	ProbeTimeout time.Duration
	// RingCapacity is the number of recent points kept in memory per series
	RingCapacity int
	// AlertWindow is how far back alert conditions look
	AlertWindow time.Duration
	// MetricRetention is how long durable metric points are kept
	MetricRetention time.Duration
	// RetentionSweepInterval is how often expired points are purged
	RetentionSweepInterval time.Duration
}

// DefaultConfig returns default monitor settings
func DefaultConfig() Config {
	return Config{
		ProbeInterval:          60 * time.Second,
		ProbeTimeout:           10 * time.Second,
		RingCapacity:           1000,
		AlertWindow:            15 * time.Minute,
		MetricRetention:        30 * 24 * time.Hour,
		RetentionSweepInterval: 6 * time.Hour,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ProbeInterval <= 0 || c.ProbeTimeout <= 0 || c.RingCapacity <= 0 ||
		c.AlertWindow <= 0 || c.MetricRetention <= 0 || c.RetentionSweepInterval <= 0 {
		return ErrInvalidMonitorConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Monitor
// ---------------------------------------------------------------------------

type ringKey struct {
	tenantID uuid.UUID
	code     channel.Code
	metric   syncdomain.MetricType
}

type healthKey struct {
	tenantID uuid.UUID
	code     channel.Code
}

// Monitor probes every live adapter on a fixed interval, records
// availability and response-time series, publishes health-change events and
// evaluates operator-configured alerts. Recent points live in per-series
// ring buffers; every point is also written to the durable store, which is
// the source for windows older than the ring.
type Monitor struct {
	config    Config
	registry  channel.Registry
	metrics   syncdomain.MetricRepository
	alerts    syncdomain.AlertRepository
	jobs      syncdomain.JobRepository
	publisher shared.EventPublisher
	logger    *zap.Logger

	mu          stdsync.Mutex
	rings       map[ringKey]*metricRing
	lastHealthy map[healthKey]bool

	now    func() time.Time
	stopCh chan struct{}
	wg     stdsync.WaitGroup
	once   stdsync.Once
}

// New creates a Monitor
func New(
	config Config,
	registry channel.Registry,
	metrics syncdomain.MetricRepository,
	alerts syncdomain.AlertRepository,
	jobs syncdomain.JobRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) (*Monitor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Monitor{
		config:      config,
		registry:    registry,
		metrics:     metrics,
		alerts:      alerts,
		jobs:        jobs,
		publisher:   publisher,
		logger:      logger,
		rings:       make(map[ringKey]*metricRing),
		lastHealthy: make(map[healthKey]bool),
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}, nil
}

// Start launches the probe and retention loops
func (m *Monitor) Start(ctx context.Context) error {
	m.wg.Add(2)
	go m.probeLoop()
	go m.retentionLoop()

	m.logger.Info("channel monitor started",
		zap.Duration("probe_interval", m.config.ProbeInterval),
		zap.Duration("metric_retention", m.config.MetricRetention),
	)
	return nil
}

// Stop stops the background loops
func (m *Monitor) Stop(ctx context.Context) error {
	m.once.Do(func() { close(m.stopCh) })

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("channel monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) probeLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.config.ProbeInterval)
			m.runTick(ctx)
			cancel()
		}
	}
}

// runTick probes all adapters, then evaluates alerts on the fresh data
func (m *Monitor) runTick(ctx context.Context) {
	m.probeAll(ctx)
	m.evaluateAlerts(ctx)
}

func (m *Monitor) retentionLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RetentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			cutoff := m.now().Add(-m.config.MetricRetention)
			removed, err := m.metrics.DeleteBefore(ctx, cutoff)
			cancel()
			if err != nil {
				m.logger.Error("metric retention sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				m.logger.Info("purged expired metric points", zap.Int64("count", removed))
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Probing
// ---------------------------------------------------------------------------

// probeAll tests connectivity of every live adapter and records the results
func (m *Monitor) probeAll(ctx context.Context) {
	for tenantID, adapters := range m.registry.All() {
		for code, adapter := range adapters {
			m.probeOne(ctx, tenantID, code, adapter)
		}
	}
}

func (m *Monitor) probeOne(ctx context.Context, tenantID uuid.UUID, code channel.Code, adapter channel.Adapter) {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	start := m.now()
	err := adapter.TestConnection(probeCtx)
	elapsed := m.now().Sub(start)
	cancel()

	availability := 1.0
	if err != nil {
		availability = 0
		m.logger.Warn("channel probe failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("channel_code", string(code)),
			zap.Error(err),
		)
	}

	m.Record(ctx, syncdomain.NewMetricPoint(tenantID, code, syncdomain.MetricAvailability, availability))
	m.Record(ctx, syncdomain.NewMetricPoint(tenantID, code, syncdomain.MetricResponseTime, float64(elapsed.Milliseconds())))

	m.publishHealthFlip(ctx, tenantID, code, adapter.HealthStatus())
}

// publishHealthFlip emits a health-change event when an adapter's health
// state differs from the previous probe
func (m *Monitor) publishHealthFlip(ctx context.Context, tenantID uuid.UUID, code channel.Code, health channel.HealthStatus) {
	key := healthKey{tenantID: tenantID, code: code}

	m.mu.Lock()
	previous, seen := m.lastHealthy[key]
	m.lastHealthy[key] = health.IsHealthy
	m.mu.Unlock()

	if seen && previous == health.IsHealthy {
		return
	}
	if !seen && health.IsHealthy {
		// First observation of a healthy adapter is not a flip
		return
	}

	m.publish(ctx, syncdomain.NewAdapterHealthEvent(tenantID, code, health))
	m.logger.Info("adapter health changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("channel_code", string(code)),
		zap.Bool("is_healthy", health.IsHealthy),
		zap.String("circuit_state", health.CircuitState.String()),
	)
}

// Record stores a metric point in the in-memory ring and the durable store
func (m *Monitor) Record(ctx context.Context, point syncdomain.MetricPoint) {
	key := ringKey{tenantID: point.TenantID, code: point.ChannelCode, metric: point.Type}

	m.mu.Lock()
	ring, ok := m.rings[key]
	if !ok {
		ring = newMetricRing(m.config.RingCapacity)
		m.rings[key] = ring
	}
	ring.add(point)
	m.mu.Unlock()

	if err := m.metrics.Record(ctx, point); err != nil {
		m.logger.Warn("failed to persist metric point",
			zap.String("metric_type", point.Type.String()),
			zap.Error(err),
		)
	}
}

// ---------------------------------------------------------------------------
// Alert Evaluation
// ---------------------------------------------------------------------------

// evaluateAlerts checks every enabled alert against the current window
func (m *Monitor) evaluateAlerts(ctx context.Context) {
	alerts, err := m.alerts.FindAllEnabled(ctx)
	if err != nil {
		m.logger.Error("failed to load alerts", zap.Error(err))
		return
	}
	now := m.now()

	for _, alert := range alerts {
		for _, code := range m.alertChannels(alert) {
			value, met := m.conditionMet(ctx, alert, code, now)
			if !met {
				continue
			}
			if !alert.Trigger(now) {
				// Suppressed by cooldown
				continue
			}
			if err := m.alerts.Save(ctx, alert); err != nil {
				m.logger.Error("failed to persist alert trigger",
					zap.String("alert_id", alert.ID.String()),
					zap.Error(err),
				)
			}
			m.publish(ctx, syncdomain.NewAlertTriggeredEvent(alert, code, value))
			m.logger.Warn("alert triggered",
				zap.String("alert_id", alert.ID.String()),
				zap.String("tenant_id", alert.TenantID.String()),
				zap.String("channel_code", string(code)),
				zap.String("condition", alert.Condition.String()),
				zap.Float64("threshold", alert.Threshold),
				zap.Float64("value", value),
				zap.String("severity", string(alert.Severity)),
			)
		}
	}
}

// alertChannels returns the channels an alert evaluates against
func (m *Monitor) alertChannels(alert *syncdomain.Alert) []channel.Code {
	if alert.ChannelCode != nil {
		return []channel.Code{*alert.ChannelCode}
	}
	snapshots := m.registry.Snapshot(alert.TenantID, nil)
	codes := make([]channel.Code, 0, len(snapshots))
	for code := range snapshots {
		codes = append(codes, code)
	}
	return codes
}

// conditionMet evaluates one alert condition for one channel, returning the
// measured value and whether it crossed the threshold
func (m *Monitor) conditionMet(ctx context.Context, alert *syncdomain.Alert, code channel.Code, now time.Time) (float64, bool) {
	since := now.Add(-m.config.AlertWindow)

	switch alert.Condition {
	case syncdomain.AlertErrorRate:
		stats := m.windowStats(alert.TenantID, code, syncdomain.MetricAvailability, since)
		if stats.Count == 0 {
			return 0, false
		}
		rate := stats.ZeroShare * 100
		return rate, rate >= alert.Threshold

	case syncdomain.AlertResponseTime:
		stats := m.windowStats(alert.TenantID, code, syncdomain.MetricResponseTime, since)
		if stats.Count == 0 {
			return 0, false
		}
		return stats.Mean, stats.Mean >= alert.Threshold

	case syncdomain.AlertConsecutiveFailures:
		snapshots := m.registry.Snapshot(alert.TenantID, &code)
		health, ok := snapshots[code]
		if !ok {
			return 0, false
		}
		value := float64(health.ConsecutiveErrors)
		return value, value >= alert.Threshold

	case syncdomain.AlertSyncFailureRate:
		counts, err := m.jobs.CountByStatus(ctx, alert.TenantID, since)
		if err != nil {
			m.logger.Error("failed to count jobs for alert", zap.Error(err))
			return 0, false
		}
		failed := counts[syncdomain.JobStatusFailed]
		completed := counts[syncdomain.JobStatusCompleted]
		total := failed + completed
		if total == 0 {
			return 0, false
		}
		rate := float64(failed) / float64(total) * 100
		return rate, rate >= alert.Threshold

	case syncdomain.AlertChannelDown:
		stats := m.windowStats(alert.TenantID, code, syncdomain.MetricAvailability, since)
		if stats.Count == 0 {
			return 0, false
		}
		return stats.Mean, stats.Mean == 0

	default:
		return 0, false
	}
}

func (m *Monitor) windowStats(tenantID uuid.UUID, code channel.Code, metricType syncdomain.MetricType, since time.Time) windowStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	ring, ok := m.rings[ringKey{tenantID: tenantID, code: code, metric: metricType}]
	if !ok {
		return windowStats{}
	}
	return computeStats(ring.window(since))
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// ChannelSummary aggregates a channel's recent health for dashboards
type ChannelSummary struct {
	// ChannelCode identifies the marketplace
	ChannelCode string `json:"channel_code"`
	// UptimePercent is the share of successful probes in the window
	UptimePercent float64 `json:"uptime_percent"`
	// AvgResponseMs is the mean probe round-trip in milliseconds
	AvgResponseMs float64 `json:"avg_response_ms"`
	// ProbeCount is the number of probes in the window
	ProbeCount int `json:"probe_count"`
	// LastProbeAt is when the channel was last probed
	LastProbeAt *time.Time `json:"last_probe_at,omitempty"`
}

// Summary returns a channel's aggregated health over the window ending now
func (m *Monitor) Summary(tenantID uuid.UUID, code channel.Code, window time.Duration) ChannelSummary {
	since := m.now().Add(-window)
	summary := ChannelSummary{ChannelCode: string(code)}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ring, ok := m.rings[ringKey{tenantID: tenantID, code: code, metric: syncdomain.MetricAvailability}]; ok {
		stats := computeStats(ring.window(since))
		summary.ProbeCount = stats.Count
		if stats.Count > 0 {
			summary.UptimePercent = stats.Mean * 100
		}
		if last, ok := ring.last(); ok {
			at := last.RecordedAt
			summary.LastProbeAt = &at
		}
	}
	if ring, ok := m.rings[ringKey{tenantID: tenantID, code: code, metric: syncdomain.MetricResponseTime}]; ok {
		summary.AvgResponseMs = computeStats(ring.window(since)).Mean
	}
	return summary
}

// MetricsWindow returns a channel's metric points within the window. Windows
// that reach past the in-memory ring fall back to the durable store.
func (m *Monitor) MetricsWindow(ctx context.Context, tenantID uuid.UUID, code channel.Code, metricType syncdomain.MetricType, since time.Time) ([]syncdomain.MetricPoint, error) {
	m.mu.Lock()
	ring, ok := m.rings[ringKey{tenantID: tenantID, code: code, metric: metricType}]
	if ok {
		points := ring.window(since)
		oldest, hasOldest := oldestPoint(ring)
		m.mu.Unlock()
		if hasOldest && !oldest.RecordedAt.After(since) {
			return points, nil
		}
	} else {
		m.mu.Unlock()
	}
	return m.metrics.FindWindow(ctx, tenantID, code, metricType, since)
}

func oldestPoint(r *metricRing) (syncdomain.MetricPoint, bool) {
	points := r.window(time.Time{})
	if len(points) == 0 {
		return syncdomain.MetricPoint{}, false
	}
	return points[0], true
}

func (m *Monitor) publish(ctx context.Context, event shared.DomainEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}
