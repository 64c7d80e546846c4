package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	prepackingapp "github.com/prepacking/backend/internal/application/prepacking"
)

// PrepackingService is the application service behind the prepacking endpoints
type PrepackingService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*prepackingapp.PrepackingEventResponse, error)
	List(ctx context.Context, filter prepackingapp.ListFilter) ([]prepackingapp.PrepackingEventResponse, error)
	Create(ctx context.Context, req prepackingapp.CreatePrepackingEventRequest) (*prepackingapp.PrepackingEventResponse, error)
	Update(ctx context.Context, id uuid.UUID, req prepackingapp.UpdatePrepackingEventRequest) (*prepackingapp.PrepackingEventResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Authorize(ctx context.Context, id uuid.UUID, req prepackingapp.StatusChangeRequest) (*prepackingapp.PrepackingEventResponse, error)
	Reject(ctx context.Context, id uuid.UUID, req prepackingapp.StatusChangeRequest) (*prepackingapp.PrepackingEventResponse, error)
}

// PrepackingEventHandler handles prepacking event API endpoints
type PrepackingEventHandler struct {
	BaseHandler
	service PrepackingService
}

// NewPrepackingEventHandler creates a new PrepackingEventHandler
func NewPrepackingEventHandler(service PrepackingService) *PrepackingEventHandler {
	return &PrepackingEventHandler{service: service}
}

// RegisterRoutes mounts the prepacking endpoints under rg
func (h *PrepackingEventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/prepackingEvents")
	events.POST("", h.Create)
	events.GET("", h.List)
	events.GET("/:id", h.Get)
	events.PUT("/:id", h.Update)
	events.DELETE("/:id", h.Delete)
	events.PUT("/:id/authorize", h.Authorize)
	events.PUT("/:id/reject", h.Reject)
}

// Create validates and stores a DRAFT prepacking event
// @Summary      Create a prepacking event
// @Description  Validate the projected bulk debit and store a DRAFT prepacking event
// @Tags         prepacking-events
// @Accept       json
// @Produce      json
// @Param        request body prepackingapp.CreatePrepackingEventRequest true "Prepacking event creation request"
// @Success      201 {object} dto.Response{data=prepackingapp.PrepackingEventResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /prepackingEvents [post]
func (h *PrepackingEventHandler) Create(c *gin.Context) {
	var req prepackingapp.CreatePrepackingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	event, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, event)
}

// List returns the prepacking events of a facility
// @Summary      List prepacking events
// @Description  List the prepacking events of a facility, optionally narrowed by program and status
// @Tags         prepacking-events
// @Accept       json
// @Produce      json
// @Param        facilityId query string true "Facility ID" format(uuid)
// @Param        programId query string false "Program ID" format(uuid)
// @Param        status query string false "Event status" Enums(DRAFT, AUTHORIZED, REJECTED)
// @Success      200 {object} dto.Response{data=[]prepackingapp.PrepackingEventResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /prepackingEvents [get]
func (h *PrepackingEventHandler) List(c *gin.Context) {
	var query listQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.HandleBindError(c, err)
		return
	}

	events, err := h.service.List(c.Request.Context(), query.filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, events, len(events))
}

// Get returns one prepacking event
// @Summary      Get prepacking event by ID
// @Description  Retrieve a prepacking event with its line items and status changes
// @Tags         prepacking-events
// @Accept       json
// @Produce      json
// @Param        id path string true "Prepacking event ID" format(uuid)
// @Success      200 {object} dto.Response{data=prepackingapp.PrepackingEventResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /prepackingEvents/{id} [get]
func (h *PrepackingEventHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	event, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, event)
}

// Update replaces comments, supervisory node and line items of a DRAFT event
// @Summary      Update a prepacking event
// @Description  Replace comments, supervisory node and line items (only allowed in DRAFT status)
// @Tags         prepacking-events
// @Accept       json
// @Produce      json
// @Param        id path string true "Prepacking event ID" format(uuid)
// @Param        request body prepackingapp.UpdatePrepackingEventRequest true "Prepacking event update request"
// @Success      200 {object} dto.Response{data=prepackingapp.PrepackingEventResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /prepackingEvents/{id} [put]
func (h *PrepackingEventHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req prepackingapp.UpdatePrepackingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	event, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, event)
}

// Delete removes a DRAFT event
// @Summary      Delete a prepacking event
// @Description  Delete a prepacking event (only allowed in DRAFT status before any stock moved)
// @Tags         prepacking-events
// @Accept       json
// @Produce      json
// @Param        id path string true "Prepacking event ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /prepackingEvents/{id} [delete]
func (h *PrepackingEventHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Authorize runs the authorization workflow and returns the event with its line remarks
// @Summary      Authorize a prepacking event
// @Description  Debit the bulk stock and credit the prepack stock of every line item, then move the event to AUTHORIZED.
// @Description  A failed run leaves the event DRAFT and can be retried; stock already moved is not moved again.
// @Tags         prepacking-events
// @Accept       json
// @Produce      json
// @Param        id path string true "Prepacking event ID" format(uuid)
// @Param        request body prepackingapp.StatusChangeRequest false "Status change message"
// @Success      200 {object} dto.Response{data=prepackingapp.PrepackingEventResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /prepackingEvents/{id}/authorize [put]
func (h *PrepackingEventHandler) Authorize(c *gin.Context) {
	h.changeStatus(c, h.service.Authorize)
}

// Reject moves a DRAFT event to REJECTED
// @Summary      Reject a prepacking event
// @Description  Move a DRAFT prepacking event to REJECTED without touching stock
// @Tags         prepacking-events
// @Accept       json
// @Produce      json
// @Param        id path string true "Prepacking event ID" format(uuid)
// @Param        request body prepackingapp.StatusChangeRequest false "Status change message"
// @Success      200 {object} dto.Response{data=prepackingapp.PrepackingEventResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /prepackingEvents/{id}/reject [put]
func (h *PrepackingEventHandler) Reject(c *gin.Context) {
	h.changeStatus(c, h.service.Reject)
}

// listQuery carries ids as strings; uuid.UUID has no form decoding
type listQuery struct {
	FacilityID string `form:"facilityId" binding:"omitempty,uuid"`
	ProgramID  string `form:"programId" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=DRAFT AUTHORIZED REJECTED"`
}

func (q listQuery) filter() prepackingapp.ListFilter {
	return prepackingapp.ListFilter{
		FacilityID: optionalUUID(q.FacilityID),
		ProgramID:  optionalUUID(q.ProgramID),
		Status:     q.Status,
	}
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

type statusChange func(context.Context, uuid.UUID, prepackingapp.StatusChangeRequest) (*prepackingapp.PrepackingEventResponse, error)

func (h *PrepackingEventHandler) changeStatus(c *gin.Context, change statusChange) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req prepackingapp.StatusChangeRequest
	// the body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.HandleBindError(c, err)
			return
		}
	}

	event, err := change(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, event)
}
