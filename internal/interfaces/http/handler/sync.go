package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/menusync/backend/internal/application/sync"
	"github.com/menusync/backend/internal/domain/channel"
)

// SyncHandler handles sync job API endpoints
type SyncHandler struct {
	BaseHandler
	jobService *syncapp.JobService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(jobService *syncapp.JobService) *SyncHandler {
	return &SyncHandler{
		jobService: jobService,
	}
}

// CancelJobResponse reports whether this request performed the cancellation
type CancelJobResponse struct {
	Cancelled bool `json:"cancelled"`
}

// Submit godoc
// @ID           submitSyncJob
//
//	@Summary		Submit a sync job
//	@Description	Queue a menu sync operation for a channel assignment
//	@Tags			sync
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					true	"Tenant ID"
//	@Param			request		body		syncapp.SubmitRequest	true	"Sync job submission request"
//	@Success		201			{object}	APIResponse[syncapp.JobView]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/sync/jobs [post]
func (h *SyncHandler) Submit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req syncapp.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	job, err := h.jobService.Submit(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, job)
}

// GetByID godoc
// @ID           getSyncJobById
//
//	@Summary		Get sync job
//	@Description	Retrieve a sync job by its ID
//	@Tags			sync
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			id			path		string	true	"Job ID"	format(uuid)
//	@Success		200			{object}	APIResponse[syncapp.JobView]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/sync/jobs/{id} [get]
func (h *SyncHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.jobService.GetJob(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, job)
}

// List godoc
// @ID           listSyncJobs
//
//	@Summary		List sync jobs
//	@Description	List the tenant's sync jobs, newest first
//	@Tags			sync
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	true	"Tenant ID"
//	@Param			status			query		string	false	"Filter by job status"
//	@Param			channel_code	query		string	false	"Filter by marketplace"
//	@Param			sync_type		query		string	false	"Filter by sync type"
//	@Param			limit			query		int		false	"Maximum rows returned"	default(50)
//	@Success		200				{object}	APIResponse[[]syncapp.JobView]
//	@Failure		400				{object}	ErrorResponse
//	@Router			/sync/jobs [get]
func (h *SyncHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query syncapp.ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	jobs, err := h.jobService.ListJobs(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, jobs)
}

// GetLogs godoc
// @ID           getSyncJobLogs
//
//	@Summary		Get sync job logs
//	@Description	Retrieve the execution log entries of a sync job
//	@Tags			sync
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			id			path		string	true	"Job ID"	format(uuid)
//	@Success		200			{object}	APIResponse[[]syncapp.LogEntryView]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/sync/jobs/{id}/logs [get]
func (h *SyncHandler) GetLogs(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	logs, err := h.jobService.GetJobLogs(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, logs)
}

// Cancel godoc
// @ID           cancelSyncJob
//
//	@Summary		Cancel sync job
//	@Description	Cancel a queued, retrying, or running sync job. Cancelling an already terminal job is a no-op.
//	@Tags			sync
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			id			path		string	true	"Job ID"	format(uuid)
//	@Success		200			{object}	APIResponse[CancelJobResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/sync/jobs/{id}/cancel [post]
func (h *SyncHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	cancelled, err := h.jobService.Cancel(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, CancelJobResponse{Cancelled: cancelled})
}

// GetQueueStatus godoc
// @ID           getSyncQueueStatus
//
//	@Summary		Get sync queue status
//	@Description	Inspect the tenant's queued and active sync operations
//	@Tags			sync
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Success		200			{object}	APIResponse[syncapp.QueueStatusView]
//	@Router			/sync/queue [get]
func (h *SyncHandler) GetQueueStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	h.Success(c, h.jobService.GetQueueStatus(tenantID))
}

// GetAdapterHealth godoc
// @ID           getAdapterHealth
//
//	@Summary		Get adapter health
//	@Description	Snapshot circuit breaker and health state of the tenant's live adapters
//	@Tags			sync
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			channel		query		string	false	"Restrict to one channel code"
//	@Success		200			{object}	APIResponse[[]syncapp.AdapterHealthView]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/sync/health [get]
func (h *SyncHandler) GetAdapterHealth(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var code *channel.Code
	if raw := c.Query("channel"); raw != "" {
		parsed := channel.Code(raw)
		if !parsed.IsValid() {
			h.BadRequest(c, "Invalid channel code")
			return
		}
		code = &parsed
	}

	h.Success(c, h.jobService.GetAdapterHealth(tenantID, code))
}
