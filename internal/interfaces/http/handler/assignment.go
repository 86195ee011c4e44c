package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	channelsapp "github.com/menusync/backend/internal/application/channels"
)

// AssignmentHandler handles channel assignment API endpoints
type AssignmentHandler struct {
	BaseHandler
	assignmentService *channelsapp.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler
func NewAssignmentHandler(assignmentService *channelsapp.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
	}
}

// Create godoc
// @ID           createAssignment
//
//	@Summary		Connect a marketplace channel
//	@Description	Create a channel assignment with credentials for the tenant
//	@Tags			channels
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string									true	"Tenant ID"
//	@Param			request		body		channelsapp.CreateAssignmentRequest	true	"Assignment creation request"
//	@Success		201			{object}	APIResponse[channelsapp.AssignmentView]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Router			/channels/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req channelsapp.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, assignment)
}

// GetByID godoc
// @ID           getAssignmentById
//
//	@Summary		Get channel assignment
//	@Description	Retrieve a channel assignment by its ID
//	@Tags			channels
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			id			path		string	true	"Assignment ID"	format(uuid)
//	@Success		200			{object}	APIResponse[channelsapp.AssignmentView]
//	@Failure		404			{object}	ErrorResponse
//	@Router			/channels/assignments/{id} [get]
func (h *AssignmentHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid assignment ID")
		return
	}

	assignment, err := h.assignmentService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, assignment)
}

// List godoc
// @ID           listAssignments
//
//	@Summary		List channel assignments
//	@Description	List all channel assignments for the tenant
//	@Tags			channels
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Success		200			{object}	APIResponse[[]channelsapp.AssignmentView]
//	@Router			/channels/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	assignments, err := h.assignmentService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, assignments)
}

// Update godoc
// @ID           updateAssignment
//
//	@Summary		Update channel assignment
//	@Description	Rotate credentials, toggle the channel, or adjust rate limits
//	@Tags			channels
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string									true	"Tenant ID"
//	@Param			id			path		string									true	"Assignment ID"	format(uuid)
//	@Param			request		body		channelsapp.UpdateAssignmentRequest	true	"Assignment update request"
//	@Success		200			{object}	APIResponse[channelsapp.AssignmentView]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/channels/assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid assignment ID")
		return
	}

	var req channelsapp.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.assignmentService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, assignment)
}

// Delete godoc
// @ID           deleteAssignment
//
//	@Summary		Disconnect channel
//	@Description	Delete a channel assignment and evict its cached adapter
//	@Tags			channels
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	true	"Tenant ID"
//	@Param			id			path	string	true	"Assignment ID"	format(uuid)
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/channels/assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid assignment ID")
		return
	}

	if err := h.assignmentService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// TestConnection godoc
// @ID           testAssignmentConnection
//
//	@Summary		Test channel connection
//	@Description	Probe the marketplace API with the assignment's credentials
//	@Tags			channels
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	true	"Tenant ID"
//	@Param			id			path		string	true	"Assignment ID"	format(uuid)
//	@Success		200			{object}	APIResponse[channelsapp.ConnectionTestView]
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Router			/channels/assignments/{id}/test [post]
func (h *AssignmentHandler) TestConnection(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid assignment ID")
		return
	}

	result, err := h.assignmentService.TestConnection(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
