package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	monitorapp "github.com/menusync/backend/internal/application/monitor"
	"github.com/menusync/backend/internal/domain/channel"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// defaultSummaryWindow is used when the window query parameter is omitted
const defaultSummaryWindow = time.Hour

// MonitorHandler handles channel health and alert API endpoints
type MonitorHandler struct {
	BaseHandler
	monitor      *monitorapp.Monitor
	alertService *monitorapp.AlertService
}

// NewMonitorHandler creates a new MonitorHandler
func NewMonitorHandler(monitor *monitorapp.Monitor, alertService *monitorapp.AlertService) *MonitorHandler {
	return &MonitorHandler{
		monitor:      monitor,
		alertService: alertService,
	}
}

// MetricPointResponse is one measurement in a metrics window
type MetricPointResponse struct {
	Type       string    `json:"type"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

func metricPointsResponse(points []syncdomain.MetricPoint) []MetricPointResponse {
	out := make([]MetricPointResponse, len(points))
	for i, p := range points {
		out[i] = MetricPointResponse{
			Type:       p.Type.String(),
			Value:      p.Value,
			RecordedAt: p.RecordedAt,
		}
	}
	return out
}

func (h *MonitorHandler) channelCode(c *gin.Context) (channel.Code, bool) {
	code := channel.Code(c.Param("channel"))
	if !code.IsValid() {
		h.BadRequest(c, "Invalid channel code")
		return "", false
	}
	return code, true
}

// GetSummary godoc
// @ID           getChannelSummary
//
//	@Summary		Get channel health summary
//	@Description	Aggregate a channel's uptime and response time over a recent window
//	@Tags			monitor
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			channel		path		string	true	"Channel code"
//	@Param			window		query		string	false	"Window as a duration string"	default(1h)
//	@Success		200			{object}	APIResponse[monitorapp.ChannelSummary]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/monitor/channels/{channel}/summary [get]
func (h *MonitorHandler) GetSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	code, ok := h.channelCode(c)
	if !ok {
		return
	}

	window := defaultSummaryWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "Invalid window duration")
			return
		}
		window = parsed
	}

	h.Success(c, h.monitor.Summary(tenantID, code, window))
}

// GetMetrics godoc
// @ID           getChannelMetrics
//
//	@Summary		Get channel metrics
//	@Description	Retrieve a channel's raw metric points within a recent window
//	@Tags			monitor
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			channel		path		string	true	"Channel code"
//	@Param			type		query		string	false	"Metric type"					default(availability)
//	@Param			window		query		string	false	"Window as a duration string"	default(1h)
//	@Success		200			{object}	APIResponse[[]MetricPointResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/monitor/channels/{channel}/metrics [get]
func (h *MonitorHandler) GetMetrics(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	code, ok := h.channelCode(c)
	if !ok {
		return
	}

	metricType := syncdomain.MetricAvailability
	if raw := c.Query("type"); raw != "" {
		metricType = syncdomain.MetricType(raw)
		if !metricType.IsValid() {
			h.BadRequest(c, "Invalid metric type")
			return
		}
	}

	window := defaultSummaryWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "Invalid window duration")
			return
		}
		window = parsed
	}

	points, err := h.monitor.MetricsWindow(c.Request.Context(), tenantID, code, metricType, time.Now().Add(-window))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, metricPointsResponse(points))
}

// CreateAlert godoc
// @ID           createAlert
//
//	@Summary		Create alert
//	@Description	Configure an alert evaluated on every monitor tick
//	@Tags			monitor
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string							true	"Tenant ID"
//	@Param			request		body		monitorapp.CreateAlertRequest	true	"Alert creation request"
//	@Success		201			{object}	APIResponse[monitorapp.AlertView]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/monitor/alerts [post]
func (h *MonitorHandler) CreateAlert(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req monitorapp.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	alert, err := h.alertService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, alert)
}

// GetAlert godoc
// @ID           getAlertById
//
//	@Summary		Get alert
//	@Description	Retrieve an alert by its ID
//	@Tags			monitor
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			id			path		string	true	"Alert ID"	format(uuid)
//	@Success		200			{object}	APIResponse[monitorapp.AlertView]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/monitor/alerts/{id} [get]
func (h *MonitorHandler) GetAlert(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	alert, err := h.alertService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, alert)
}

// ListAlerts godoc
// @ID           listAlerts
//
//	@Summary		List alerts
//	@Description	List all of the tenant's alerts, enabled or not
//	@Tags			monitor
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Success		200			{object}	APIResponse[[]monitorapp.AlertView]
//	@Router			/monitor/alerts [get]
func (h *MonitorHandler) ListAlerts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	alerts, err := h.alertService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, alerts)
}

// UpdateAlert godoc
// @ID           updateAlert
//
//	@Summary		Update alert
//	@Description	Patch an alert's threshold, severity, cooldown, or enabled flag
//	@Tags			monitor
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string							true	"Tenant ID"
//	@Param			id			path		string							true	"Alert ID"	format(uuid)
//	@Param			request		body		monitorapp.UpdateAlertRequest	true	"Alert update request"
//	@Success		200			{object}	APIResponse[monitorapp.AlertView]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/monitor/alerts/{id} [put]
func (h *MonitorHandler) UpdateAlert(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	var req monitorapp.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	alert, err := h.alertService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, alert)
}

// DeleteAlert godoc
// @ID           deleteAlert
//
//	@Summary		Delete alert
//	@Description	Remove an alert
//	@Tags			monitor
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	true	"Tenant ID"
//	@Param			id			path	string	true	"Alert ID"	format(uuid)
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/monitor/alerts/{id} [delete]
func (h *MonitorHandler) DeleteAlert(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}

	if err := h.alertService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
