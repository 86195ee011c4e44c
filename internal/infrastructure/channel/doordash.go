package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domain "github.com/menusync/backend/internal/domain/channel"
)

const (
	doorDashProductionURL = "https://openapi.doordash.com"
	doorDashTimeout       = 30 * time.Second
)

// DoorDashTransport implements the Transport interface for the DoorDash
// merchant API. Requests carry an HMAC-SHA256 signature over the method,
// path, timestamp and body, keyed by the API secret.
type DoorDashTransport struct {
	auth       domain.AuthConfig
	baseURL    string
	httpClient *http.Client

	// now is swappable in tests to pin the signature timestamp
	now func() time.Time
}

// NewDoorDashTransport creates a DoorDash transport for one assignment's
// credentials
func NewDoorDashTransport(auth domain.AuthConfig) *DoorDashTransport {
	baseURL := auth.BaseURL
	if baseURL == "" {
		baseURL = doorDashProductionURL
	}
	return &DoorDashTransport{
		auth:    auth,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: doorDashTimeout,
		},
		now: time.Now,
	}
}

// Initialize validates the credentials before first use. DoorDash signing
// needs the API secret in addition to the key and store ID.
func (t *DoorDashTransport) Initialize(_ context.Context) error {
	if !t.auth.IsComplete() || t.auth.APISecret == "" {
		return domain.NewTerminalError(domain.ErrAssignmentMissingAuth)
	}
	return nil
}

// TestConnection verifies the store is reachable with the configured
// credentials
func (t *DoorDashTransport) TestConnection(ctx context.Context) error {
	path := fmt.Sprintf("/api/v1/stores/%s", url.PathEscape(t.auth.StoreID))
	_, err := t.doRequest(ctx, http.MethodGet, path, nil)
	return err
}

// PushMenu uploads the complete menu. Per-item rejections come back in the
// response envelope's failed_entities list.
func (t *DoorDashTransport) PushMenu(ctx context.Context, menu *domain.MenuPush) (*domain.PushResult, error) {
	if menu == nil || len(menu.Categories) == 0 {
		return nil, domain.NewTerminalError(domain.ErrInvalidMenuPayload)
	}

	respBody, err := t.doRequest(ctx, http.MethodPost, "/api/v1/menus", buildDoorDashMenu(t.auth.StoreID, menu))
	if err != nil {
		return nil, err
	}

	resp, err := parseDDResponse(respBody)
	if err != nil {
		return nil, err
	}

	result := &domain.PushResult{
		TotalItems:  countMenuItems(menu),
		CompletedAt: time.Now(),
	}
	for _, failed := range resp.Result.FailedEntities {
		result.FailedItems++
		result.Failures = append(result.Failures, domain.ItemFailure{
			ItemID:       failed.MerchantSuppliedID,
			ErrorCode:    failed.ErrorCode,
			ErrorMessage: failed.ErrorMessage,
		})
	}
	result.SuccessItems = result.TotalItems - result.FailedItems

	return result, nil
}

// UpdateMenuItems applies partial item updates as one batch call
func (t *DoorDashTransport) UpdateMenuItems(ctx context.Context, updates []domain.MenuItemUpdate) (*domain.PushResult, error) {
	batch := ddBatchUpdateRequest{
		Store: ddStoreRef{MerchantSuppliedID: t.auth.StoreID},
		Items: make([]any, 0, len(updates)),
	}
	result := &domain.PushResult{
		TotalItems: len(updates),
	}

	sent := 0
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
		item := ddItemUpdate{
			MerchantSuppliedID: update.ChannelItemID,
			Name:               update.Name,
			Description:        update.Description,
		}
		if update.Price != nil {
			cents := toCents(*update.Price)
			item.Price = &cents
		}
		batch.Items = append(batch.Items, item)
		sent++
	}

	if sent > 0 {
		respBody, err := t.doRequest(ctx, http.MethodPatch, "/api/v1/items/batch", batch)
		if err != nil {
			return nil, err
		}
		resp, err := parseDDResponse(respBody)
		if err != nil {
			return nil, err
		}
		for _, failed := range resp.Result.FailedEntities {
			result.FailedItems++
			result.Failures = append(result.Failures, domain.ItemFailure{
				ItemID:       failed.MerchantSuppliedID,
				ErrorCode:    failed.ErrorCode,
				ErrorMessage: failed.ErrorMessage,
			})
		}
	}
	result.SuccessItems = result.TotalItems - result.FailedItems
	result.CompletedAt = time.Now()

	return result, nil
}

// SyncAvailability toggles item activation state as one batch call
func (t *DoorDashTransport) SyncAvailability(ctx context.Context, updates []domain.AvailabilityUpdate) (*domain.PushResult, error) {
	batch := ddBatchUpdateRequest{
		Store: ddStoreRef{MerchantSuppliedID: t.auth.StoreID},
		Items: make([]any, 0, len(updates)),
	}
	result := &domain.PushResult{
		TotalItems: len(updates),
	}

	sent := 0
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
		item := ddActivationUpdate{
			MerchantSuppliedID: update.ChannelItemID,
			Active:             update.IsAvailable,
		}
		if !update.IsAvailable && update.AvailableAt != nil {
			item.ReactivateAt = update.AvailableAt.UTC().Format(time.RFC3339)
		}
		batch.Items = append(batch.Items, item)
		sent++
	}

	if sent > 0 {
		respBody, err := t.doRequest(ctx, http.MethodPatch, "/api/v1/items/activation/batch", batch)
		if err != nil {
			return nil, err
		}
		resp, err := parseDDResponse(respBody)
		if err != nil {
			return nil, err
		}
		for _, failed := range resp.Result.FailedEntities {
			result.FailedItems++
			result.Failures = append(result.Failures, domain.ItemFailure{
				ItemID:       failed.MerchantSuppliedID,
				ErrorCode:    failed.ErrorCode,
				ErrorMessage: failed.ErrorMessage,
			})
		}
	}
	result.SuccessItems = result.TotalItems - result.FailedItems
	result.CompletedAt = time.Now()

	return result, nil
}

// FetchOrders pulls orders placed within the requested window
func (t *DoorDashTransport) FetchOrders(ctx context.Context, req *domain.OrderFetchRequest) ([]domain.ChannelOrder, error) {
	query := url.Values{}
	query.Set("store_id", t.auth.StoreID)
	if !req.Since.IsZero() {
		query.Set("created_after", req.Since.UTC().Format(time.RFC3339))
	}
	if !req.Until.IsZero() {
		query.Set("created_before", req.Until.UTC().Format(time.RFC3339))
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}

	respBody, err := t.doRequest(ctx, http.MethodGet, "/api/v1/orders?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp ddOrdersResult
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrChannelInvalidResponse, err))
	}
	if !resp.IsSuccess() {
		return nil, classifyDDError(&resp.ddResponse)
	}

	orders := make([]domain.ChannelOrder, 0, len(resp.Orders))
	for i := range resp.Orders {
		raw, _ := json.Marshal(resp.Orders[i])
		order := convertDoorDashOrder(&resp.Orders[i], string(raw))
		if req.Status != nil && order.Status != *req.Status {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateOrderStatus reports an order status change back to the marketplace
func (t *DoorDashTransport) UpdateOrderStatus(ctx context.Context, update *domain.OrderStatusUpdate) error {
	status := mapToDoorDashStatus(update.Status)
	if status == "" {
		return nil
	}

	body := map[string]string{"order_status": status}
	if update.Reason != "" {
		body["reason"] = update.Reason
	}

	path := fmt.Sprintf("/api/v1/orders/%s/status", url.PathEscape(update.ChannelOrderID))
	respBody, err := t.doRequest(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	_, err = parseDDResponse(respBody)
	return err
}

// HandleWebhook parses an inbound order webhook into a channel order
func (t *DoorDashTransport) HandleWebhook(_ context.Context, event *domain.WebhookEvent) (*domain.ChannelOrder, error) {
	var envelope ddWebhookEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, domain.NewTerminalError(fmt.Errorf("%w: %v", domain.ErrWebhookInvalidEvent, err))
	}

	switch envelope.EventCategory {
	case "order.create", "order.update", "order.cancelled":
		if envelope.Order.OrderID == "" {
			return nil, domain.NewTerminalError(domain.ErrWebhookInvalidEvent)
		}
		order := convertDoorDashOrder(&envelope.Order, string(event.Payload))
		return &order, nil
	default:
		return nil, nil
	}
}

// Close releases transport resources
func (t *DoorDashTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

// sign generates the request signature.
// Sign string: api_secret + method + path + timestamp + body + api_secret,
// hashed with HMAC-SHA256 keyed by the API secret.
func (t *DoorDashTransport) sign(method, path, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(t.auth.APISecret))
	mac.Write([]byte(t.auth.APISecret))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	mac.Write([]byte(t.auth.APISecret))
	return hex.EncodeToString(mac.Sum(nil))
}

func (t *DoorDashTransport) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, domain.NewTerminalError(fmt.Errorf("doordash: failed to marshal request: %w", err))
		}
	}

	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, domain.NewTerminalError(fmt.Errorf("doordash: failed to create request: %w", err))
	}

	timestamp := strconv.FormatInt(t.now().Unix(), 10)
	req.Header.Set("X-API-Key", t.auth.APIKey)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", t.sign(method, path, timestamp, bodyBytes))
	req.Header.Set("Accept", "application/json")
	if bodyBytes != nil {
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

// parseDDResponse unmarshals the common envelope and classifies API-level
// failures that arrive with HTTP 200
func parseDDResponse(respBody []byte) (*ddResponse, error) {
	var resp ddResponse
	if len(respBody) == 0 {
		resp.Message = "success"
		return &resp, nil
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrChannelInvalidResponse, err))
	}
	if !resp.IsSuccess() {
		return nil, classifyDDError(&resp)
	}
	return &resp, nil
}

// classifyDDError maps DoorDash API error codes to the retry classification.
// Codes 1xxx are auth, 2xxx are payload validation, everything else is
// treated as transient.
func classifyDDError(resp *ddResponse) error {
	switch {
	case resp.Code >= 1000 && resp.Code < 2000:
		return domain.NewTerminalError(fmt.Errorf("%w: %d %s", domain.ErrChannelAuthFailed, resp.Code, resp.Message))
	case resp.Code >= 2000 && resp.Code < 3000:
		return domain.NewTerminalError(fmt.Errorf("%w: %d %s", domain.ErrChannelRequestFailed, resp.Code, resp.Message))
	default:
		return domain.NewRetryableError(fmt.Errorf("%w: %d %s", domain.ErrChannelRequestFailed, resp.Code, resp.Message))
	}
}
