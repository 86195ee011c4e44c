package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/sync"
)

// SyncJobModel is the persistence model for the sync Job aggregate.
type SyncJobModel struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primary_key"`
	TenantID            uuid.UUID      `gorm:"type:uuid;not null;index:idx_sync_jobs_tenant_created,priority:1"`
	ChannelAssignmentID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ChannelCode         channel.Code   `gorm:"type:varchar(30);not null;index"`
	SyncType            sync.Type      `gorm:"type:varchar(30);not null"`
	Priority            sync.Priority  `gorm:"type:varchar(20);not null"`
	Status              sync.JobStatus `gorm:"type:varchar(20);not null;index:idx_sync_jobs_status,priority:1"`
	Attempts            int            `gorm:"not null;default:0"`
	MaxRetries          int            `gorm:"not null;default:0"`
	Force               bool           `gorm:"not null;default:false"`
	RequestPayloadJSON  string         `gorm:"type:jsonb;column:request_payload"`
	ErrorMessage        string         `gorm:"type:text"`
	TotalItems          int            `gorm:"not null;default:0"`
	SuccessItems        int            `gorm:"not null;default:0"`
	FailedItems         int            `gorm:"not null;default:0"`
	ItemFailuresJSON    string         `gorm:"type:jsonb;column:item_failures"`
	ScheduledAt         *time.Time     `gorm:"index"`
	IntervalMinutes     int            `gorm:"not null;default:0"`
	NextRetryAt         *time.Time     `gorm:"index"`
	CreatedAt           time.Time      `gorm:"not null;index:idx_sync_jobs_tenant_created,priority:2"`
	StartedAt           *time.Time
	CompletedAt         *time.Time `gorm:"index"`
	UpdatedAt           time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain Job aggregate.
func (m *SyncJobModel) ToDomain() *sync.Job {
	job := &sync.Job{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		ChannelAssignmentID: m.ChannelAssignmentID,
		ChannelCode:         m.ChannelCode,
		SyncType:            m.SyncType,
		Priority:            m.Priority,
		Status:              m.Status,
		Attempts:            m.Attempts,
		MaxRetries:          m.MaxRetries,
		Force:               m.Force,
		RequestPayload:      make(map[string]any),
		ErrorMessage:        m.ErrorMessage,
		TotalItems:          m.TotalItems,
		SuccessItems:        m.SuccessItems,
		FailedItems:         m.FailedItems,
		ScheduledAt:         m.ScheduledAt,
		IntervalMinutes:     m.IntervalMinutes,
		NextRetryAt:         m.NextRetryAt,
		CreatedAt:           m.CreatedAt,
		StartedAt:           m.StartedAt,
		CompletedAt:         m.CompletedAt,
		UpdatedAt:           m.UpdatedAt,
	}

	if m.RequestPayloadJSON != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(m.RequestPayloadJSON), &payload); err == nil {
			job.RequestPayload = payload
		}
	}
	if m.ItemFailuresJSON != "" {
		var failures []channel.ItemFailure
		if err := json.Unmarshal([]byte(m.ItemFailuresJSON), &failures); err == nil {
			job.ItemFailures = failures
		}
	}

	return job
}

// FromDomain populates the persistence model from a domain Job aggregate.
func (m *SyncJobModel) FromDomain(j *sync.Job) {
	m.ID = j.ID
	m.TenantID = j.TenantID
	m.ChannelAssignmentID = j.ChannelAssignmentID
	m.ChannelCode = j.ChannelCode
	m.SyncType = j.SyncType
	m.Priority = j.Priority
	m.Status = j.Status
	m.Attempts = j.Attempts
	m.MaxRetries = j.MaxRetries
	m.Force = j.Force
	m.ErrorMessage = j.ErrorMessage
	m.TotalItems = j.TotalItems
	m.SuccessItems = j.SuccessItems
	m.FailedItems = j.FailedItems
	m.ScheduledAt = j.ScheduledAt
	m.IntervalMinutes = j.IntervalMinutes
	m.NextRetryAt = j.NextRetryAt
	m.CreatedAt = j.CreatedAt
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
	m.UpdatedAt = j.UpdatedAt

	if len(j.RequestPayload) > 0 {
		if jsonBytes, err := json.Marshal(j.RequestPayload); err == nil {
			m.RequestPayloadJSON = string(jsonBytes)
		}
	} else {
		m.RequestPayloadJSON = "{}"
	}
	if len(j.ItemFailures) > 0 {
		if jsonBytes, err := json.Marshal(j.ItemFailures); err == nil {
			m.ItemFailuresJSON = string(jsonBytes)
		}
	} else {
		m.ItemFailuresJSON = "[]"
	}
}

// SyncJobModelFromDomain creates a new persistence model from a domain Job aggregate.
func SyncJobModelFromDomain(j *sync.Job) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}

// SyncLogModel is the persistence model for an append-only job log entry.
type SyncLogModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key"`
	JobID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_sync_logs_job_created,priority:1"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status    sync.JobStatus `gorm:"type:varchar(20);not null"`
	Attempt   int            `gorm:"not null;default:0"`
	Message   string         `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"not null;index:idx_sync_logs_job_created,priority:2"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain LogEntry.
func (m *SyncLogModel) ToDomain() sync.LogEntry {
	return sync.LogEntry{
		ID:        m.ID,
		JobID:     m.JobID,
		TenantID:  m.TenantID,
		Status:    m.Status,
		Attempt:   m.Attempt,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

// SyncLogModelFromDomain creates a new persistence model from a domain LogEntry.
func SyncLogModelFromDomain(e sync.LogEntry) *SyncLogModel {
	return &SyncLogModel{
		ID:        e.ID,
		JobID:     e.JobID,
		TenantID:  e.TenantID,
		Status:    e.Status,
		Attempt:   e.Attempt,
		Message:   e.Message,
		CreatedAt: e.CreatedAt,
	}
}

// ChannelMetricModel is the persistence model for a channel metric point.
type ChannelMetricModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_channel_metrics_window,priority:1"`
	ChannelCode channel.Code    `gorm:"type:varchar(30);not null;index:idx_channel_metrics_window,priority:2"`
	Type        sync.MetricType `gorm:"type:varchar(30);not null;index:idx_channel_metrics_window,priority:3"`
	Value       float64         `gorm:"not null"`
	RecordedAt  time.Time       `gorm:"not null;index:idx_channel_metrics_window,priority:4"`
}

// TableName returns the table name for GORM
func (ChannelMetricModel) TableName() string {
	return "channel_metrics"
}

// ToDomain converts the persistence model to a domain MetricPoint.
func (m *ChannelMetricModel) ToDomain() sync.MetricPoint {
	return sync.MetricPoint{
		ID:          m.ID,
		TenantID:    m.TenantID,
		ChannelCode: m.ChannelCode,
		Type:        m.Type,
		Value:       m.Value,
		RecordedAt:  m.RecordedAt,
	}
}

// ChannelMetricModelFromDomain creates a new persistence model from a domain MetricPoint.
func ChannelMetricModelFromDomain(p sync.MetricPoint) *ChannelMetricModel {
	return &ChannelMetricModel{
		ID:          p.ID,
		TenantID:    p.TenantID,
		ChannelCode: p.ChannelCode,
		Type:        p.Type,
		Value:       p.Value,
		RecordedAt:  p.RecordedAt,
	}
}

// AlertModel is the persistence model for the Alert entity.
type AlertModel struct {
	ID              uuid.UUID           `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	ChannelCode     *channel.Code       `gorm:"type:varchar(30)"`
	Condition       sync.AlertCondition `gorm:"type:varchar(30);not null"`
	Threshold       float64             `gorm:"not null"`
	Severity        sync.AlertSeverity  `gorm:"type:varchar(20);not null"`
	CooldownSeconds int64               `gorm:"not null;default:0"`
	IsEnabled       bool                `gorm:"not null;default:true;index"`
	LastTriggeredAt *time.Time
	TriggerCount    int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "channel_alerts"
}

// ToDomain converts the persistence model to a domain Alert entity.
func (m *AlertModel) ToDomain() *sync.Alert {
	return &sync.Alert{
		ID:              m.ID,
		TenantID:        m.TenantID,
		ChannelCode:     m.ChannelCode,
		Condition:       m.Condition,
		Threshold:       m.Threshold,
		Severity:        m.Severity,
		Cooldown:        time.Duration(m.CooldownSeconds) * time.Second,
		IsEnabled:       m.IsEnabled,
		LastTriggeredAt: m.LastTriggeredAt,
		TriggerCount:    m.TriggerCount,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Alert entity.
func (m *AlertModel) FromDomain(a *sync.Alert) {
	m.ID = a.ID
	m.TenantID = a.TenantID
	m.ChannelCode = a.ChannelCode
	m.Condition = a.Condition
	m.Threshold = a.Threshold
	m.Severity = a.Severity
	m.CooldownSeconds = int64(a.Cooldown / time.Second)
	m.IsEnabled = a.IsEnabled
	m.LastTriggeredAt = a.LastTriggeredAt
	m.TriggerCount = a.TriggerCount
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// AlertModelFromDomain creates a new persistence model from a domain Alert entity.
func AlertModelFromDomain(a *sync.Alert) *AlertModel {
	m := &AlertModel{}
	m.FromDomain(a)
	return m
}
