package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	domain "github.com/menusync/backend/internal/domain/channel"
)

const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response

	uberEatsProductionURL = "https://api.uber.com"
	uberEatsTimeout       = 30 * time.Second
)

// UberEatsTransport implements the Transport interface for the Uber Eats
// marketplace API. Authentication is a bearer token (the API key); the
// store is addressed by the marketplace-side store ID.
type UberEatsTransport struct {
	auth       domain.AuthConfig
	baseURL    string
	httpClient *http.Client
}

// NewUberEatsTransport creates an Uber Eats transport for one assignment's
// credentials
func NewUberEatsTransport(auth domain.AuthConfig) *UberEatsTransport {
	baseURL := auth.BaseURL
	if baseURL == "" {
		baseURL = uberEatsProductionURL
	}
	return &UberEatsTransport{
		auth:    auth,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: uberEatsTimeout,
		},
	}
}

// Initialize validates the credentials before first use
func (t *UberEatsTransport) Initialize(_ context.Context) error {
	if !t.auth.IsComplete() {
		return domain.NewTerminalError(domain.ErrAssignmentMissingAuth)
	}
	return nil
}

// TestConnection verifies the store is reachable with the configured
// credentials
func (t *UberEatsTransport) TestConnection(ctx context.Context) error {
	path := fmt.Sprintf("/v1/eats/stores/%s", url.PathEscape(t.auth.StoreID))
	_, err := t.doRequest(ctx, http.MethodGet, path, nil)
	return err
}

// PushMenu uploads the complete menu. Uber Eats replaces the whole menu on
// upload and reports per-item rejections in the response body, so a 200
// can still carry partial failures.
func (t *UberEatsTransport) PushMenu(ctx context.Context, menu *domain.MenuPush) (*domain.PushResult, error) {
	if menu == nil || len(menu.Categories) == 0 {
		return nil, domain.NewTerminalError(domain.ErrInvalidMenuPayload)
	}

	path := fmt.Sprintf("/v2/eats/stores/%s/menus", url.PathEscape(t.auth.StoreID))
	respBody, err := t.doRequest(ctx, http.MethodPut, path, buildUberMenu(menu))
	if err != nil {
		return nil, err
	}

	result := &domain.PushResult{
		TotalItems:  countMenuItems(menu),
		CompletedAt: time.Now(),
	}

	var resp uberMenuUploadResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, domain.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrChannelInvalidResponse, err))
		}
	}
	for _, rejected := range resp.RejectedItems {
		result.FailedItems++
		result.Failures = append(result.Failures, domain.ItemFailure{
			ItemID:       rejected.ExternalID,
			ErrorCode:    rejected.Code,
			ErrorMessage: rejected.Reason,
		})
	}
	result.SuccessItems = result.TotalItems - result.FailedItems

	return result, nil
}

// UpdateMenuItems applies partial item updates one item at a time. Item-level
// API errors accumulate as failures in the result; only a wholesale failure
// (auth, availability) aborts the batch.
func (t *UberEatsTransport) UpdateMenuItems(ctx context.Context, updates []domain.MenuItemUpdate) (*domain.PushResult, error) {
	result := &domain.PushResult{
		TotalItems: len(updates),
	}

	for _, update := range updates {
		if update.ChannelItemID == "" {
			result.FailedItems++
			result.Failures = append(result.Failures, domain.ItemFailure{
				ItemID:       update.ItemID.String(),
				ErrorCode:    "missing_channel_item_id",
				ErrorMessage: "item has not been pushed to the marketplace yet",
			})
			continue
		}

		body := uberItemUpdate{
			ItemID:      update.ChannelItemID,
			Title:       update.Name,
			Description: update.Description,
		}
		if update.Price != nil {
			cents := toCents(*update.Price)
			body.PriceAmount = &cents
		}

		path := fmt.Sprintf("/v2/eats/stores/%s/menus/items/%s",
			url.PathEscape(t.auth.StoreID), url.PathEscape(update.ChannelItemID))
		if _, err := t.doRequest(ctx, http.MethodPost, path, body); err != nil {
			if isItemLevel(err) {
				result.FailedItems++
				result.Failures = append(result.Failures, domain.ItemFailure{
					ItemID:       update.ChannelItemID,
					ErrorCode:    "update_rejected",
					ErrorMessage: err.Error(),
				})
				continue
			}
			return nil, err
		}
		result.SuccessItems++
	}

	result.CompletedAt = time.Now()
	return result, nil
}

// SyncAvailability toggles item suspension state on the marketplace
func (t *UberEatsTransport) SyncAvailability(ctx context.Context, updates []domain.AvailabilityUpdate) (*domain.PushResult, error) {
	result := &domain.PushResult{
		TotalItems: len(updates),
	}

	for _, update := range updates {
		if update.ChannelItemID == "" {
			result.FailedItems++
			result.Failures = append(result.Failures, domain.ItemFailure{
				ItemID:       update.ItemID.String(),
				ErrorCode:    "missing_channel_item_id",
				ErrorMessage: "item has not been pushed to the marketplace yet",
			})
			continue
		}

		body := uberAvailabilityUpdate{
			ItemID:         update.ChannelItemID,
			SuspensionInfo: &uberSuspensionInfo{Suspended: !update.IsAvailable},
		}
		if !update.IsAvailable && update.AvailableAt != nil {
			body.SuspensionInfo.SuspendedAt = formatUnix(*update.AvailableAt)
		}

		path := fmt.Sprintf("/v2/eats/stores/%s/menus/items/%s",
			url.PathEscape(t.auth.StoreID), url.PathEscape(update.ChannelItemID))
		if _, err := t.doRequest(ctx, http.MethodPost, path, body); err != nil {
			if isItemLevel(err) {
				result.FailedItems++
				result.Failures = append(result.Failures, domain.ItemFailure{
					ItemID:       update.ChannelItemID,
					ErrorCode:    "update_rejected",
					ErrorMessage: err.Error(),
				})
				continue
			}
			return nil, err
		}
		result.SuccessItems++
	}

	result.CompletedAt = time.Now()
	return result, nil
}

// FetchOrders pulls orders placed within the requested window
func (t *UberEatsTransport) FetchOrders(ctx context.Context, req *domain.OrderFetchRequest) ([]domain.ChannelOrder, error) {
	query := url.Values{}
	if !req.Since.IsZero() {
		query.Set("start_time", formatUnix(req.Since))
	}
	if !req.Until.IsZero() {
		query.Set("end_time", formatUnix(req.Until))
	}
	if req.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", req.Limit))
	}

	path := fmt.Sprintf("/v1/eats/stores/%s/orders", url.PathEscape(t.auth.StoreID))
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	respBody, err := t.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp uberOrdersResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrChannelInvalidResponse, err))
	}

	orders := make([]domain.ChannelOrder, 0, len(resp.Orders))
	for i := range resp.Orders {
		raw, _ := json.Marshal(resp.Orders[i])
		order := convertUberOrder(&resp.Orders[i], string(raw))
		if req.Status != nil && order.Status != *req.Status {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateOrderStatus reports an order status change back to the marketplace.
// Statuses without a marketplace-side action (PREPARING, PICKED_UP,
// DELIVERED) are tracked by the courier flow and need no call.
func (t *UberEatsTransport) UpdateOrderStatus(ctx context.Context, update *domain.OrderStatusUpdate) error {
	action := mapToUberAction(update.Status)
	if action == "" {
		return nil
	}

	var body any
	if update.Reason != "" {
		body = map[string]string{"reason": update.Reason}
	}

	path := fmt.Sprintf("/v1/eats/orders/%s/%s", url.PathEscape(update.ChannelOrderID), action)
	_, err := t.doRequest(ctx, http.MethodPost, path, body)
	return err
}

// HandleWebhook parses an inbound order webhook into a channel order.
// Signature verification happens at the HTTP layer where the raw headers
// are available; non-order event types are acknowledged without an order.
func (t *UberEatsTransport) HandleWebhook(_ context.Context, event *domain.WebhookEvent) (*domain.ChannelOrder, error) {
	var envelope uberWebhookEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, domain.NewTerminalError(fmt.Errorf("%w: %v", domain.ErrWebhookInvalidEvent, err))
	}

	switch envelope.EventType {
	case "orders.notification", "orders.state_changed", "orders.cancel":
		if envelope.Order.OrderID == "" {
			return nil, domain.NewTerminalError(domain.ErrWebhookInvalidEvent)
		}
		order := convertUberOrder(&envelope.Order, string(event.Payload))
		return &order, nil
	default:
		// Store provisioning, report and other non-order events
		return nil, nil
	}
}

// Close releases transport resources
func (t *UberEatsTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

// itemLevelError marks a request failure that affects one item of a batch
// rather than the batch as a whole
type itemLevelError struct {
	err error
}

func (e *itemLevelError) Error() string { return e.err.Error() }

func (e *itemLevelError) Unwrap() error { return e.err }

func isItemLevel(err error) bool {
	var itemErr *itemLevelError
	return errors.As(err, &itemErr)
}

func (t *UberEatsTransport) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewTerminalError(fmt.Errorf("ubereats: failed to marshal request: %w", err))
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, domain.NewTerminalError(fmt.Errorf("ubereats: failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+t.auth.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrChannelUnavailable, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrChannelUnavailable, err))
	}

	if resp.StatusCode < 400 {
		return respBody, nil
	}
	return nil, classifyHTTPError(resp.StatusCode, respBody)
}

// classifyHTTPError maps a marketplace HTTP error to the retry
// classification the orchestrator acts on
func classifyHTTPError(statusCode int, respBody []byte) error {
	var apiErr uberErrorBody
	_ = json.Unmarshal(respBody, &apiErr)
	detail := apiErr.Message
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domain.NewTerminalError(fmt.Errorf("%w: %s", domain.ErrChannelAuthFailed, detail))
	case statusCode == http.StatusTooManyRequests:
		return domain.NewRetryableError(fmt.Errorf("%w: %s", domain.ErrRateLimited, detail))
	case statusCode == http.StatusNotFound || statusCode == http.StatusBadRequest ||
		statusCode == http.StatusUnprocessableEntity || statusCode == http.StatusConflict:
		return &itemLevelError{err: domain.NewTerminalError(
			fmt.Errorf("%w: %s", domain.ErrChannelRequestFailed, detail))}
	case statusCode >= 500:
		return domain.NewRetryableError(fmt.Errorf("%w: %s", domain.ErrChannelUnavailable, detail))
	default:
		return domain.NewRetryableError(fmt.Errorf("%w: %s", domain.ErrChannelRequestFailed, detail))
	}
}

// VerifyWebhookSignature checks an inbound delivery's HMAC-SHA256
// signature against the assignment's webhook secret
func VerifyWebhookSignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
