package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/menusync/backend/internal/domain/channel"
)

func TestDoorDashTransport_Initialize(t *testing.T) {
	t.Run("requires API secret for signing", func(t *testing.T) {
		transport := NewDoorDashTransport(domain.AuthConfig{APIKey: "k", StoreID: "s"})
		err := transport.Initialize(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAssignmentMissingAuth)
	})

	t.Run("complete credentials", func(t *testing.T) {
		transport := NewDoorDashTransport(testAuth(""))
		assert.NoError(t, transport.Initialize(context.Background()))
	})
}

func TestDoorDashTransport_Signing(t *testing.T) {
	var gotKey, gotTimestamp, gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotTimestamp = r.Header.Get("X-Timestamp")
		gotSignature = r.Header.Get("X-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fixed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	transport := NewDoorDashTransport(testAuth(server.URL))
	transport.now = func() time.Time { return fixed }

	require.NoError(t, transport.TestConnection(context.Background()))

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, formatUnix(fixed), gotTimestamp)
	expected := transport.sign(http.MethodGet, "/api/v1/stores/store-42", formatUnix(fixed), nil)
	assert.Equal(t, expected, gotSignature)
}

func TestDoorDashTransport_PushMenu(t *testing.T) {
	t.Run("reports failed entities", func(t *testing.T) {
		menu := testMenu()
		failedID := menu.Categories[0].Items[0].ItemID.String()
		var captured ddMenuPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/menus", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(ddResponse{
				Message: "success",
				Result: ddResponseExtra{FailedEntities: []ddFailedEntity{
					{MerchantSuppliedID: failedID, ErrorCode: "DUPLICATE_SKU", ErrorMessage: "duplicate"},
				}},
			})
		}))
		defer server.Close()

		transport := NewDoorDashTransport(testAuth(server.URL))
		result, err := transport.PushMenu(context.Background(), menu)
		require.NoError(t, err)

		assert.Equal(t, 2, result.TotalItems)
		assert.Equal(t, 1, result.SuccessItems)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, failedID, result.Failures[0].ItemID)

		assert.Equal(t, "store-42", captured.Store.MerchantSuppliedID)
		require.Len(t, captured.Menu.Categories, 1)
		assert.Equal(t, int64(950), captured.Menu.Categories[0].Items[0].Price)
		assert.False(t, captured.Menu.Categories[0].Items[1].Active)
	})

	t.Run("API level auth error with HTTP 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ddResponse{Code: 1003, Message: "token expired"})
		}))
		defer server.Close()

		transport := NewDoorDashTransport(testAuth(server.URL))
		_, err := transport.PushMenu(context.Background(), testMenu())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrChannelAuthFailed)
		assert.False(t, domain.IsRetryable(err))
	})

	t.Run("API level transient error is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ddResponse{Code: 5001, Message: "internal"})
		}))
		defer server.Close()

		transport := NewDoorDashTransport(testAuth(server.URL))
		_, err := transport.PushMenu(context.Background(), testMenu())
		require.Error(t, err)
		assert.True(t, domain.IsRetryable(err))
	})
}

func TestDoorDashTransport_UpdateMenuItems(t *testing.T) {
	var captured ddBatchUpdateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/items/batch", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	price := decimal.NewFromFloat(12.75)
	transport := NewDoorDashTransport(testAuth(server.URL))
	result, err := transport.UpdateMenuItems(context.Background(), []domain.MenuItemUpdate{
		{ChannelItemID: "item-1", ItemID: uuid.New(), Price: &price},
		{ItemID: uuid.New(), Price: &price}, // never pushed, skipped locally
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalItems)
	assert.Equal(t, 1, result.SuccessItems)
	assert.Equal(t, 1, result.FailedItems)
	assert.Len(t, captured.Items, 1)
}

func TestDoorDashTransport_SyncAvailability_SkipsCallWhenNothingToSend(t *testing.T) {
	// No server; a call would fail with connection refused
	transport := NewDoorDashTransport(testAuth("http://127.0.0.1:1"))
	result, err := transport.SyncAvailability(context.Background(), []domain.AvailabilityUpdate{
		{ItemID: uuid.New(), IsAvailable: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailedItems)
	assert.Zero(t, result.SuccessItems)
}

func TestDoorDashTransport_FetchOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "store-42", r.URL.Query().Get("store_id"))
		_ = json.NewEncoder(w).Encode(ddOrdersResult{
			ddResponse: ddResponse{Message: "success"},
			Orders: []ddOrder{
				{
					OrderID:          "dd-1",
					Status:           "CONFIRMED",
					Consumer:         ddConsumer{FirstName: "Alex", Phone: "+1444"},
					TotalCents:       1575,
					DeliveryFeeCents: 200,
					Currency:         "USD",
					CreatedAt:        "2026-02-01T12:00:00Z",
					Items: []ddOrderItem{
						{MerchantSuppliedID: "item-1", Name: "Cheeseburger", Quantity: 1, PriceCents: 950},
					},
				},
			},
		})
	}))
	defer server.Close()

	transport := NewDoorDashTransport(testAuth(server.URL))
	orders, err := transport.FetchOrders(context.Background(), &domain.OrderFetchRequest{Since: time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	require.Len(t, orders, 1)
	assert.Equal(t, domain.CodeDoorDash, orders[0].ChannelCode)
	assert.Equal(t, domain.OrderStatusAccepted, orders[0].Status)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.NewFromFloat(15.75)))
	assert.Equal(t, 2026, orders[0].PlacedAt.Year())
}

func TestDoorDashTransport_UpdateOrderStatus(t *testing.T) {
	var captured map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/orders/dd-1/status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewDoorDashTransport(testAuth(server.URL))
	err := transport.UpdateOrderStatus(context.Background(), &domain.OrderStatusUpdate{
		ChannelOrderID: "dd-1",
		Status:         domain.OrderStatusRejected,
		Reason:         "out of stock",
	})
	require.NoError(t, err)

	assert.Equal(t, "denied", captured["order_status"])
	assert.Equal(t, "out of stock", captured["reason"])
}

func TestDoorDashTransport_HandleWebhook(t *testing.T) {
	transport := NewDoorDashTransport(testAuth(""))

	payload, err := json.Marshal(ddWebhookEnvelope{
		EventCategory: "order.create",
		Order:         ddOrder{OrderID: "dd-7", Status: "NEW"},
	})
	require.NoError(t, err)

	order, err := transport.HandleWebhook(context.Background(), &domain.WebhookEvent{Payload: payload})
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "dd-7", order.ChannelOrderID)
	assert.Equal(t, domain.OrderStatusNew, order.Status)
}

func TestDefaultFactories(t *testing.T) {
	factories := DefaultFactories()
	require.Contains(t, factories, domain.CodeUberEats)
	require.Contains(t, factories, domain.CodeDoorDash)

	assignment := &domain.Assignment{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		ChannelCode:        domain.CodeUberEats,
		Auth:               testAuth(""),
		IsEnabled:          true,
		RateLimitPerMinute: 12,
	}

	adapter, err := factories[domain.CodeUberEats](assignment)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	assert.Equal(t, domain.CodeUberEats, adapter.Code())
	assert.True(t, adapter.Features().Has(domain.FeatureMenuPush))
	assert.Equal(t, 12, adapter.HealthStatus().RateLimit.Limit)
}
