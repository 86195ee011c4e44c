package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// Channel Metrics
// ---------------------------------------------------------------------------

// MetricType identifies what a metric point measures
type MetricType string

const (
	// MetricAvailability is 1 when the channel probe succeeded, 0 otherwise
	MetricAvailability MetricType = "availability"
	// MetricResponseTime is the probe round-trip time in milliseconds
	MetricResponseTime MetricType = "response_time"
	// MetricSyncDuration is a completed sync's wall time in milliseconds
	MetricSyncDuration MetricType = "sync_duration"
	// MetricSyncOutcome is 1 for a completed sync, 0 for a failed one
	MetricSyncOutcome MetricType = "sync_outcome"
)

// IsValid returns true if the metric type is valid
func (t MetricType) IsValid() bool {
	switch t {
	case MetricAvailability, MetricResponseTime, MetricSyncDuration, MetricSyncOutcome:
		return true
	default:
		return false
	}
}

// String returns the string representation of MetricType
func (t MetricType) String() string {
	return string(t)
}

// MetricPoint is one recorded measurement for a (tenant, channel) pair
type MetricPoint struct {
	// ID is the unique identifier of the point
	ID uuid.UUID
	// TenantID is the tenant the measurement belongs to
	TenantID uuid.UUID
	// ChannelCode identifies the marketplace
	ChannelCode channel.Code
	// Type is what the point measures
	Type MetricType
	// Value is the measurement
	Value float64
	// RecordedAt is when the measurement was taken
	RecordedAt time.Time
}

// NewMetricPoint creates a measurement taken now
func NewMetricPoint(tenantID uuid.UUID, code channel.Code, metricType MetricType, value float64) MetricPoint {
	return MetricPoint{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ChannelCode: code,
		Type:        metricType,
		Value:       value,
		RecordedAt:  time.Now(),
	}
}
