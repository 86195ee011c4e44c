package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/shared"
	channelinfra "github.com/menusync/backend/internal/infrastructure/channel"
	"github.com/menusync/backend/internal/infrastructure/config"
	"github.com/menusync/backend/internal/interfaces/http/dto"
)

// Webhook delivery headers set by the marketplaces
const (
	// WebhookSignatureHeader carries the hex HMAC-SHA256 of the raw body
	WebhookSignatureHeader = "X-Webhook-Signature"
	// WebhookDeliveryIDHeader carries the marketplace delivery identifier
	WebhookDeliveryIDHeader = "X-Delivery-Id"
	// WebhookEventTypeHeader carries the marketplace event type
	WebhookEventTypeHeader = "X-Event-Type"
)

// WebhookHandler ingests marketplace webhook deliveries. It sits outside
// the tenant middleware because marketplaces address deliveries by URL, not
// by header.
type WebhookHandler struct {
	BaseHandler
	assignments channel.AssignmentRepository
	registry    channel.Registry
	dedup       shared.IdempotencyStore
	cfg         config.WebhookConfig
	logger      *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	assignments channel.AssignmentRepository,
	registry channel.Registry,
	dedup shared.IdempotencyStore,
	cfg config.WebhookConfig,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		assignments: assignments,
		registry:    registry,
		dedup:       dedup,
		cfg:         cfg,
		logger:      logger,
	}
}

// WebhookAckResponse acknowledges a webhook delivery. Accepted is false for
// deliveries that were dropped without processing, so marketplaces stop
// retrying either way.
type WebhookAckResponse struct {
	Accepted       bool   `json:"accepted"`
	Duplicate      bool   `json:"duplicate,omitempty"`
	OrderReceived  bool   `json:"order_received,omitempty"`
	ChannelOrderID string `json:"channel_order_id,omitempty"`
}

// Receive godoc
// @ID           receiveWebhook
//
//	@Summary		Receive marketplace webhook
//	@Description	Verify, de-duplicate, and dispatch an inbound marketplace event
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			tenant_id	path		string	true	"Tenant ID"	format(uuid)
//	@Param			channel		path		string	true	"Channel code"
//	@Success		200			{object}	APIResponse[WebhookAckResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/webhooks/{tenant_id}/{channel} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	code := channel.Code(c.Param("channel"))
	if !code.IsValid() {
		h.BadRequest(c, "Invalid channel code")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	ctx := c.Request.Context()
	assignment, err := h.assignments.FindByChannel(ctx, tenantID, code)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	// A disabled channel or one without the webhooks feature is
	// acknowledged without processing so the marketplace stops redelivering
	if !assignment.IsEnabled || !assignment.Features.Has(channel.FeatureWebhooks) {
		h.logger.Info("webhook dropped for inactive channel",
			zap.String("tenant_id", tenantID.String()),
			zap.String("channel", string(code)),
		)
		h.Success(c, WebhookAckResponse{Accepted: false})
		return
	}

	if h.cfg.RequireSignature {
		signature := c.GetHeader(WebhookSignatureHeader)
		if !channelinfra.VerifyWebhookSignature(assignment.Auth.WebhookSecret, payload, signature) {
			h.ErrorWithCode(c, dto.ErrCodeWebhookSignature, "Webhook signature verification failed")
			return
		}
	}

	deliveryID := c.GetHeader(WebhookDeliveryIDHeader)
	if deliveryID != "" {
		key := tenantID.String() + ":" + string(code) + ":" + deliveryID
		first, err := h.dedup.MarkProcessed(ctx, key, h.cfg.IdempotencyTTL)
		if err != nil {
			// Dedup store outages must not drop deliveries; adapters
			// tolerate replays
			h.logger.Warn("webhook dedup store unavailable",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else if !first {
			h.Success(c, WebhookAckResponse{Accepted: false, Duplicate: true})
			return
		}
	}

	adapter, err := h.registry.GetOrCreate(ctx, assignment)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	event := &channel.WebhookEvent{
		DeliveryID: deliveryID,
		EventType:  c.GetHeader(WebhookEventTypeHeader),
		Payload:    payload,
		ReceivedAt: time.Now(),
	}

	order, err := adapter.HandleWebhook(ctx, event)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	ack := WebhookAckResponse{Accepted: true}
	if order != nil {
		ack.OrderReceived = true
		ack.ChannelOrderID = order.ChannelOrderID
		h.logger.Info("webhook order received",
			zap.String("tenant_id", tenantID.String()),
			zap.String("channel", string(code)),
			zap.String("channel_order_id", order.ChannelOrderID),
		)
	}
	h.Success(c, ack)
}
