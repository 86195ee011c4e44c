package channels

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/shared"
)

// AssignmentService manages the lifecycle of channel assignments. Credential
// changes invalidate the cached adapter so the next call uses fresh
// credentials.
type AssignmentService struct {
	assignments channel.AssignmentRepository
	registry    channel.Registry
	logger      *zap.Logger
}

// NewAssignmentService creates an AssignmentService
func NewAssignmentService(
	assignments channel.AssignmentRepository,
	registry channel.Registry,
	logger *zap.Logger,
) *AssignmentService {
	return &AssignmentService{
		assignments: assignments,
		registry:    registry,
		logger:      logger,
	}
}

// Create connects a tenant to a marketplace. Each (tenant, channel) pair
// can hold at most one assignment.
func (s *AssignmentService) Create(ctx context.Context, tenantID uuid.UUID, req CreateAssignmentRequest) (*AssignmentView, error) {
	code := channel.Code(req.ChannelCode)
	if !code.IsValid() {
		return nil, channel.ErrAssignmentInvalidChannel
	}

	if existing, err := s.assignments.FindByChannel(ctx, tenantID, code); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, channel.ErrAssignmentNotFound) {
		return nil, err
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	now := time.Now()
	assignment := &channel.Assignment{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		ChannelCode:        code,
		Auth:               req.Auth.toDomain(),
		IsEnabled:          enabled,
		RateLimitPerMinute: req.RateLimitPerMinute,
		Features:           featureSetFromNames(req.Features),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := assignment.Validate(); err != nil {
		return nil, err
	}

	if err := s.assignments.Save(ctx, assignment); err != nil {
		return nil, err
	}

	s.logger.Info("channel assignment created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("channel_code", string(code)),
	)
	return AssignmentViewFromDomain(assignment), nil
}

// Get returns one assignment by ID
func (s *AssignmentService) Get(ctx context.Context, tenantID, id uuid.UUID) (*AssignmentView, error) {
	assignment, err := s.assignments.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return AssignmentViewFromDomain(assignment), nil
}

// List returns all assignments for a tenant
func (s *AssignmentService) List(ctx context.Context, tenantID uuid.UUID) ([]*AssignmentView, error) {
	assignments, err := s.assignments.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]*AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, AssignmentViewFromDomain(a))
	}
	return views, nil
}

// Update patches an assignment and evicts its cached adapter so the next
// operation picks up the new credentials and settings
func (s *AssignmentService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateAssignmentRequest) (*AssignmentView, error) {
	assignment, err := s.assignments.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Auth != nil {
		assignment.Auth = req.Auth.toDomain()
	}
	if req.IsEnabled != nil {
		assignment.IsEnabled = *req.IsEnabled
	}
	if req.RateLimitPerMinute != nil {
		assignment.RateLimitPerMinute = *req.RateLimitPerMinute
	}
	if req.Features != nil {
		assignment.Features = featureSetFromNames(req.Features)
	}
	assignment.UpdatedAt = time.Now()

	if err := assignment.Validate(); err != nil {
		return nil, err
	}
	if err := s.assignments.Save(ctx, assignment); err != nil {
		return nil, err
	}

	if err := s.registry.Destroy(ctx, tenantID, assignment.ChannelCode); err != nil {
		s.logger.Warn("failed to evict cached adapter after update",
			zap.String("tenant_id", tenantID.String()),
			zap.String("channel_code", string(assignment.ChannelCode)),
			zap.Error(err),
		)
	}

	return AssignmentViewFromDomain(assignment), nil
}

// Delete disconnects a tenant from a marketplace and tears down its adapter
func (s *AssignmentService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	assignment, err := s.assignments.FindByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := s.registry.Destroy(ctx, tenantID, assignment.ChannelCode); err != nil {
		s.logger.Warn("failed to evict cached adapter on delete",
			zap.String("tenant_id", tenantID.String()),
			zap.String("channel_code", string(assignment.ChannelCode)),
			zap.Error(err),
		)
	}

	if err := s.assignments.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.Info("channel assignment deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("channel_code", string(assignment.ChannelCode)),
	)
	return nil
}

// TestConnection verifies the stored credentials against the live
// marketplace
func (s *AssignmentService) TestConnection(ctx context.Context, tenantID, id uuid.UUID) (*ConnectionTestView, error) {
	assignment, err := s.assignments.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !assignment.IsEnabled {
		return nil, channel.ErrAssignmentDisabled
	}

	adapter, err := s.registry.GetOrCreate(ctx, assignment)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := adapter.TestConnection(ctx); err != nil {
		return &ConnectionTestView{
			Success:   false,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     err.Error(),
		}, nil
	}
	return &ConnectionTestView{
		Success:   true,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
