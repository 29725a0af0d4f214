package controllers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/app/workflow"
	"github.com/yigit/ekklesia/internal/middleware"
	"github.com/yigit/ekklesia/internal/pkg/export"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// EventService is the event and registration surface used by EventController
type EventService interface {
	Create(ctx context.Context, actor *auth.Actor, req *dto.EventRequest) (*models.Event, error)
	Update(ctx context.Context, actor *auth.Actor, id int64, req *dto.EventRequest) (*models.Event, error)
	Delete(ctx context.Context, actor *auth.Actor, id int64) error
	Publish(ctx context.Context, actor *auth.Actor, id int64) (*models.Event, error)
	Cancel(ctx context.Context, actor *auth.Actor, id int64) (*models.Event, error)
	UploadImage(ctx context.Context, actor *auth.Actor, id int64, fileHeader *multipart.FileHeader) (*models.Event, error)
	List(ctx context.Context, actor *auth.Actor, req *dto.EventFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, actor *auth.Actor, id int64) (*dto.EventDetailResponse, error)
	Register(ctx context.Context, actor *auth.Actor, eventID int64, req *dto.EventRegistrationRequest) (*models.EventRegistration, error)
	CancelRegistration(ctx context.Context, actor *auth.Actor, eventID int64) error
	ListRegistrations(ctx context.Context, actor *auth.Actor, eventID int64, status models.RegistrationStatus) ([]*models.EventRegistration, error)
	DecideRegistration(ctx context.Context, actor *auth.Actor, registrationID int64, action workflow.Action) (*models.EventRegistration, error)
	MyRegistrations(ctx context.Context, actor *auth.Actor) ([]*models.EventRegistration, error)
	AttendeeRoster(ctx context.Context, actor *auth.Actor, eventID int64) (export.Roster, error)
}

// EventController handles events and their registrations
type EventController struct {
	eventService EventService
}

// NewEventController creates a new EventController
func NewEventController(eventService EventService) *EventController {
	return &EventController{eventService: eventService}
}

// List godoc
// @Summary List events
// @Description Upcoming published events. Admins may filter by status; past=true includes finished events.
// @Tags events
// @Produce json
// @Param search query string false "Matches title, description or location"
// @Param teamId query int false "Only events of this team"
// @Param past query bool false "Include events that already ended"
// @Param status query string false "draft, published or cancelled (admins only)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Event}}
// @Router /events [get]
func (c *EventController) List(ctx *gin.Context) {
	var req dto.EventFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)
	result, err := c.eventService.List(ctx.Request.Context(), middleware.ActorFrom(ctx), &req, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// Get godoc
// @Summary Get an event
// @Description Includes the next occurrences of recurring events
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.EventDetailResponse}
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{id} [get]
func (c *EventController) Get(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	detail, err := c.eventService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(detail))
}

// Create godoc
// @Summary Create a draft event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EventRequest true "Event information"
// @Success 201 {object} dto.APIResponse{data=models.Event}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Router /events [post]
func (c *EventController) Create(ctx *gin.Context) {
	var req dto.EventRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	event, err := c.eventService.Create(ctx.Request.Context(), middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(event))
}

// Update godoc
// @Summary Replace an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body dto.EventRequest true "Event information"
// @Success 200 {object} dto.APIResponse{data=models.Event}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{id} [put]
func (c *EventController) Update(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.EventRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	event, err := c.eventService.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(event))
}

// Delete godoc
// @Summary Delete an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{id} [delete]
func (c *EventController) Delete(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.eventService.Delete(ctx.Request.Context(), middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Event deleted"))
}

// Publish godoc
// @Summary Publish an event
// @Description draft to published. Emails every subscriber category and pushes a feed event once.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=models.Event}
// @Failure 400 {object} dto.ErrorResponse "Event was cancelled"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{id}/publish [post]
func (c *EventController) Publish(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	event, err := c.eventService.Publish(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(event))
}

// Cancel godoc
// @Summary Cancel an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=models.Event}
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{id}/cancel [post]
func (c *EventController) Cancel(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	event, err := c.eventService.Cancel(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(event))
}

// UploadImage godoc
// @Summary Upload the image of an event
// @Tags events
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param image formData file true "JPEG, PNG, WebP or GIF up to 5 MB"
// @Success 200 {object} dto.APIResponse{data=models.Event}
// @Failure 400 {object} dto.ErrorResponse "Missing or unsupported file"
// @Router /events/{id}/image [post]
func (c *EventController) UploadImage(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	fh, ok := formFile(ctx, "image")
	if !ok {
		return
	}
	event, err := c.eventService.UploadImage(ctx.Request.Context(), middleware.ActorFrom(ctx), id, fh)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(event))
}

// Register godoc
// @Summary Register for an event
// @Description Creates a pending registration. Fails when the event is closed, full or already joined.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body dto.EventRegistrationRequest false "Optional notes"
// @Success 201 {object} dto.APIResponse{data=models.EventRegistration}
// @Failure 400 {object} dto.ErrorResponse "Event is not open for registration"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Failure 409 {object} dto.ErrorResponse "Already registered or event full"
// @Router /events/{id}/registrations [post]
func (c *EventController) Register(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.EventRegistrationRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}
	reg, err := c.eventService.Register(ctx.Request.Context(), middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(reg))
}

// CancelRegistration godoc
// @Summary Withdraw my registration
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Registration was rejected"
// @Failure 404 {object} dto.ErrorResponse "Not registered"
// @Router /events/{id}/registrations/me [delete]
func (c *EventController) CancelRegistration(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.eventService.CancelRegistration(ctx.Request.Context(), middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Registration cancelled"))
}

// ListRegistrations godoc
// @Summary List the registrations of an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} dto.APIResponse{data=[]models.EventRegistration}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admins and leaders of an associated team"
// @Router /events/{id}/registrations [get]
func (c *EventController) ListRegistrations(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.RegistrationFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	regs, err := c.eventService.ListRegistrations(ctx.Request.Context(), middleware.ActorFrom(ctx), id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(regs))
}

func (c *EventController) decide(ctx *gin.Context, action workflow.Action) {
	id, ok := middleware.ParamID(ctx, "registrationId")
	if !ok {
		return
	}
	reg, err := c.eventService.DecideRegistration(ctx.Request.Context(), middleware.ActorFrom(ctx), id, action)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(reg))
}

// ApproveRegistration godoc
// @Summary Approve a pending registration
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param registrationId path int true "Registration ID"
// @Success 200 {object} dto.APIResponse{data=models.EventRegistration}
// @Failure 400 {object} dto.ErrorResponse "Registration is not pending"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /events/registrations/{registrationId}/approve [post]
func (c *EventController) ApproveRegistration(ctx *gin.Context) {
	c.decide(ctx, workflow.ActionApprove)
}

// RejectRegistration godoc
// @Summary Reject a pending registration
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param registrationId path int true "Registration ID"
// @Success 200 {object} dto.APIResponse{data=models.EventRegistration}
// @Failure 400 {object} dto.ErrorResponse "Registration is not pending"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /events/registrations/{registrationId}/reject [post]
func (c *EventController) RejectRegistration(ctx *gin.Context) {
	c.decide(ctx, workflow.ActionReject)
}

// MyRegistrations godoc
// @Summary List my event registrations
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.EventRegistration}
// @Router /user/me/registrations [get]
func (c *EventController) MyRegistrations(ctx *gin.Context) {
	regs, err := c.eventService.MyRegistrations(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(regs))
}

// ExportAttendees godoc
// @Summary Export the attendees of an event
// @Tags events
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param format query string false "xlsx or pdf" default(xlsx)
// @Success 200 {file} file
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /events/{id}/attendees/export [get]
func (c *EventController) ExportAttendees(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	roster, err := c.eventService.AttendeeRoster(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	writeRoster(ctx, roster)
}
