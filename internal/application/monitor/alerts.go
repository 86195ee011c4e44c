package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Alert DTOs
// ---------------------------------------------------------------------------

// CreateAlertRequest is the input for configuring an alert
type CreateAlertRequest struct {
	// ChannelCode scopes the alert to one channel (empty for tenant-wide)
	ChannelCode string `json:"channel_code"`
	// Condition is what the monitor evaluates
	Condition string `json:"condition" binding:"required"`
	// Threshold is the trigger threshold (unit depends on the condition)
	Threshold float64 `json:"threshold" binding:"required,gt=0"`
	// Severity ranks the alert's importance (defaults to warning)
	Severity string `json:"severity" binding:"omitempty,oneof=info warning critical"`
	// CooldownSeconds is the minimum time between triggers
	CooldownSeconds int `json:"cooldown_seconds" binding:"min=0"`
}

// UpdateAlertRequest patches an existing alert. Nil fields are left
// unchanged.
type UpdateAlertRequest struct {
	Threshold       *float64 `json:"threshold" binding:"omitempty,gt=0"`
	Severity        *string  `json:"severity" binding:"omitempty,oneof=info warning critical"`
	CooldownSeconds *int     `json:"cooldown_seconds" binding:"omitempty,min=0"`
	IsEnabled       *bool    `json:"is_enabled"`
}

// AlertView is the external representation of an alert
type AlertView struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	ChannelCode     *string    `json:"channel_code,omitempty"`
	Condition       string     `json:"condition"`
	Threshold       float64    `json:"threshold"`
	Severity        string     `json:"severity"`
	CooldownSeconds int        `json:"cooldown_seconds"`
	IsEnabled       bool       `json:"is_enabled"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	TriggerCount    int        `json:"trigger_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AlertViewFromDomain converts an alert to its external representation
func AlertViewFromDomain(a *syncdomain.Alert) *AlertView {
	view := &AlertView{
		ID:              a.ID,
		TenantID:        a.TenantID,
		Condition:       string(a.Condition),
		Threshold:       a.Threshold,
		Severity:        string(a.Severity),
		CooldownSeconds: int(a.Cooldown / time.Second),
		IsEnabled:       a.IsEnabled,
		LastTriggeredAt: a.LastTriggeredAt,
		TriggerCount:    a.TriggerCount,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.ChannelCode != nil {
		code := string(*a.ChannelCode)
		view.ChannelCode = &code
	}
	return view
}

// ---------------------------------------------------------------------------
// Alert Service
// ---------------------------------------------------------------------------

// AlertService manages operator-configured alerts. The monitor picks up
// changes on its next evaluation tick, so no cache invalidation is needed.
type AlertService struct {
	alerts syncdomain.AlertRepository
	logger *zap.Logger
}

// NewAlertService creates an AlertService
func NewAlertService(alerts syncdomain.AlertRepository, logger *zap.Logger) *AlertService {
	return &AlertService{alerts: alerts, logger: logger}
}

// Create configures a new alert
func (s *AlertService) Create(ctx context.Context, tenantID uuid.UUID, req CreateAlertRequest) (*AlertView, error) {
	var code *channel.Code
	if req.ChannelCode != "" {
		c := channel.Code(req.ChannelCode)
		if !c.IsValid() {
			return nil, channel.ErrAssignmentInvalidChannel
		}
		code = &c
	}

	severity := syncdomain.SeverityWarning
	if req.Severity != "" {
		severity = syncdomain.AlertSeverity(req.Severity)
	}

	alert, err := syncdomain.NewAlert(
		tenantID,
		code,
		syncdomain.AlertCondition(req.Condition),
		req.Threshold,
		severity,
		time.Duration(req.CooldownSeconds)*time.Second,
	)
	if err != nil {
		return nil, err
	}

	if err := s.alerts.Save(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Info("alert created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("condition", string(alert.Condition)),
		zap.Float64("threshold", alert.Threshold),
	)
	return AlertViewFromDomain(alert), nil
}

// Get returns one alert by ID
func (s *AlertService) Get(ctx context.Context, tenantID, id uuid.UUID) (*AlertView, error) {
	alert, err := s.alerts.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return AlertViewFromDomain(alert), nil
}

// List returns all alerts for a tenant, enabled or not
func (s *AlertService) List(ctx context.Context, tenantID uuid.UUID) ([]*AlertView, error) {
	alerts, err := s.alerts.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]*AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, AlertViewFromDomain(a))
	}
	return views, nil
}

// Update patches an alert's threshold, severity, cooldown, or enabled flag
func (s *AlertService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateAlertRequest) (*AlertView, error) {
	alert, err := s.alerts.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Threshold != nil {
		if *req.Threshold <= 0 {
			return nil, syncdomain.ErrAlertInvalidThreshold
		}
		alert.Threshold = *req.Threshold
	}
	if req.Severity != nil {
		alert.Severity = syncdomain.AlertSeverity(*req.Severity)
	}
	if req.CooldownSeconds != nil {
		alert.Cooldown = time.Duration(*req.CooldownSeconds) * time.Second
	}
	if req.IsEnabled != nil {
		alert.IsEnabled = *req.IsEnabled
	}
	alert.UpdatedAt = time.Now()

	if err := s.alerts.Save(ctx, alert); err != nil {
		return nil, err
	}
	return AlertViewFromDomain(alert), nil
}

// Delete removes an alert
func (s *AlertService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.alerts.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.logger.Info("alert deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("alert_id", id.String()),
	)
	return nil
}
