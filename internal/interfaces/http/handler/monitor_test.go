package handler

import (
	"context"
	"net/http"
	stdsync "sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	monitorapp "github.com/menusync/backend/internal/application/monitor"
	"github.com/menusync/backend/internal/domain/channel"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

type memMetrics struct {
	mu     stdsync.Mutex
	points []syncdomain.MetricPoint
}

func (r *memMetrics) Record(ctx context.Context, point syncdomain.MetricPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, point)
	return nil
}

func (r *memMetrics) FindWindow(ctx context.Context, tenantID uuid.UUID, code channel.Code, metricType syncdomain.MetricType, since time.Time) ([]syncdomain.MetricPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncdomain.MetricPoint
	for _, p := range r.points {
		if p.TenantID == tenantID && p.ChannelCode == code && p.Type == metricType && !p.RecordedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memMetrics) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type memAlerts struct {
	mu    stdsync.Mutex
	items map[uuid.UUID]*syncdomain.Alert
}

func newMemAlerts() *memAlerts {
	return &memAlerts{items: make(map[uuid.UUID]*syncdomain.Alert)}
}

func (r *memAlerts) Save(ctx context.Context, alert *syncdomain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *alert
	r.items[alert.ID] = &cp
	return nil
}

func (r *memAlerts) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*syncdomain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.TenantID != tenantID {
		return nil, syncdomain.ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAlerts) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*syncdomain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*syncdomain.Alert
	for _, a := range r.items {
		if a.TenantID == tenantID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAlerts) FindEnabledForTenant(ctx context.Context, tenantID uuid.UUID) ([]*syncdomain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*syncdomain.Alert
	for _, a := range r.items {
		if a.TenantID == tenantID && a.IsEnabled {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAlerts) FindAllEnabled(ctx context.Context) ([]*syncdomain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*syncdomain.Alert
	for _, a := range r.items {
		if a.IsEnabled {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAlerts) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.TenantID != tenantID {
		return syncdomain.ErrAlertNotFound
	}
	delete(r.items, id)
	return nil
}

type monitorHandlerFixture struct {
	router   *gin.Engine
	monitor  *monitorapp.Monitor
	tenantID uuid.UUID
}

func setupMonitorTestRouter(t *testing.T) *monitorHandlerFixture {
	t.Helper()

	monitor, err := monitorapp.New(
		monitorapp.DefaultConfig(),
		&stubRegistry{},
		&memMetrics{},
		newMemAlerts(),
		newMemJobs(),
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)

	alertService := monitorapp.NewAlertService(newMemAlerts(), zap.NewNop())

	engine := newTestEngine()
	h := NewMonitorHandler(monitor, alertService)
	engine.GET("/monitor/channels/:channel/summary", h.GetSummary)
	engine.GET("/monitor/channels/:channel/metrics", h.GetMetrics)
	engine.POST("/monitor/alerts", h.CreateAlert)
	engine.GET("/monitor/alerts", h.ListAlerts)
	engine.GET("/monitor/alerts/:id", h.GetAlert)
	engine.PUT("/monitor/alerts/:id", h.UpdateAlert)
	engine.DELETE("/monitor/alerts/:id", h.DeleteAlert)

	return &monitorHandlerFixture{
		router:   engine,
		monitor:  monitor,
		tenantID: uuid.New(),
	}
}

func recordProbe(f *monitorHandlerFixture, up float64, responseMs float64) {
	ctx := context.Background()
	f.monitor.Record(ctx, syncdomain.NewMetricPoint(f.tenantID, channel.CodeUberEats, syncdomain.MetricAvailability, up))
	f.monitor.Record(ctx, syncdomain.NewMetricPoint(f.tenantID, channel.CodeUberEats, syncdomain.MetricResponseTime, responseMs))
}

func TestMonitorHandler_GetSummary(t *testing.T) {
	t.Run("should aggregate recorded probes", func(t *testing.T) {
		f := setupMonitorTestRouter(t)
		recordProbe(f, 1, 120)
		recordProbe(f, 1, 80)
		recordProbe(f, 0, 0)

		w := doJSON(t, f.router, http.MethodGet, "/monitor/channels/UBEREATS/summary", f.tenantID, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, "UBEREATS", data["channel_code"])
		assert.Equal(t, float64(3), data["probe_count"])
		assert.InDelta(t, 66.67, data["uptime_percent"].(float64), 0.1)
	})

	t.Run("should reject invalid window", func(t *testing.T) {
		f := setupMonitorTestRouter(t)

		w := doJSON(t, f.router, http.MethodGet, "/monitor/channels/UBEREATS/summary?window=soon", f.tenantID, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should reject invalid channel", func(t *testing.T) {
		f := setupMonitorTestRouter(t)

		w := doJSON(t, f.router, http.MethodGet, "/monitor/channels/POSTMATES/summary", f.tenantID, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMonitorHandler_GetMetrics(t *testing.T) {
	t.Run("should return points of the requested type", func(t *testing.T) {
		f := setupMonitorTestRouter(t)
		recordProbe(f, 1, 95)

		w := doJSON(t, f.router, http.MethodGet, "/monitor/channels/UBEREATS/metrics?type=response_time", f.tenantID, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		points := decodeBody(t, w)["data"].([]any)
		require.Len(t, points, 1)
		point := points[0].(map[string]any)
		assert.Equal(t, "response_time", point["type"])
		assert.Equal(t, float64(95), point["value"])
	})

	t.Run("should reject unknown metric type", func(t *testing.T) {
		f := setupMonitorTestRouter(t)

		w := doJSON(t, f.router, http.MethodGet, "/monitor/channels/UBEREATS/metrics?type=latency", f.tenantID, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMonitorHandler_Alerts(t *testing.T) {
	t.Run("should create and fetch an alert", func(t *testing.T) {
		f := setupMonitorTestRouter(t)

		w := doJSON(t, f.router, http.MethodPost, "/monitor/alerts", f.tenantID, gin.H{
			"channel_code":     "UBEREATS",
			"condition":        "error_rate",
			"threshold":        0.2,
			"severity":         "critical",
			"cooldown_seconds": 600,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		created := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, "critical", created["severity"])

		w = doJSON(t, f.router, http.MethodGet, "/monitor/alerts/"+created["id"].(string), f.tenantID, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, f.router, http.MethodGet, "/monitor/alerts", f.tenantID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeBody(t, w)["data"].([]any), 1)
	})

	t.Run("should reject invalid condition", func(t *testing.T) {
		f := setupMonitorTestRouter(t)

		w := doJSON(t, f.router, http.MethodPost, "/monitor/alerts", f.tenantID, gin.H{
			"condition": "disk_full",
			"threshold": 0.5,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should update and delete an alert", func(t *testing.T) {
		f := setupMonitorTestRouter(t)

		w := doJSON(t, f.router, http.MethodPost, "/monitor/alerts", f.tenantID, gin.H{
			"condition": "response_time",
			"threshold": 1000,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		alertID := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

		w = doJSON(t, f.router, http.MethodPut, "/monitor/alerts/"+alertID, f.tenantID, gin.H{
			"threshold":  2000,
			"is_enabled": false,
		})
		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, float64(2000), data["threshold"])
		assert.Equal(t, false, data["is_enabled"])

		w = doJSON(t, f.router, http.MethodDelete, "/monitor/alerts/"+alertID, f.tenantID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, f.router, http.MethodDelete, "/monitor/alerts/"+alertID, f.tenantID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
