package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/middleware"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// AttendanceService is the attendance surface used by AttendanceController
type AttendanceService interface {
	Create(ctx context.Context, actor *auth.Actor, req *dto.AttendanceRequest) (*models.AttendanceRecord, error)
	Update(ctx context.Context, actor *auth.Actor, id int64, req *dto.AttendanceRequest) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, actor *auth.Actor, id int64) error
	Get(ctx context.Context, actor *auth.Actor, id int64) (*models.AttendanceRecord, error)
	List(ctx context.Context, actor *auth.Actor, req *dto.AttendanceFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error)
	Import(ctx context.Context, actor *auth.Actor, r io.Reader, override bool) (*dto.ImportResultResponse, error)
	Stats(ctx context.Context, actor *auth.Actor, window int) (*dto.AttendanceStatsResponse, error)
}

// AttendanceController handles the weekly service attendance records
type AttendanceController struct {
	attendanceService AttendanceService
}

// NewAttendanceController creates a new AttendanceController
func NewAttendanceController(attendanceService AttendanceService) *AttendanceController {
	return &AttendanceController{attendanceService: attendanceService}
}

// List godoc
// @Summary List attendance records
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param from query string false "First date, YYYY-MM-DD"
// @Param to query string false "Last date, YYYY-MM-DD"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.AttendanceRecord}}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Staff and above"
// @Router /admin/attendance [get]
func (c *AttendanceController) List(ctx *gin.Context) {
	var req dto.AttendanceFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)
	result, err := c.attendanceService.List(ctx.Request.Context(), middleware.ActorFrom(ctx), &req, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// Get godoc
// @Summary Get an attendance record
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path int true "Record ID"
// @Success 200 {object} dto.APIResponse{data=models.AttendanceRecord}
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /admin/attendance/{id} [get]
func (c *AttendanceController) Get(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	record, err := c.attendanceService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(record))
}

// Create godoc
// @Summary Record the attendance of a service
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AttendanceRequest true "Counts per group"
// @Success 201 {object} dto.APIResponse{data=models.AttendanceRecord}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "A record already exists for this date"
// @Router /admin/attendance [post]
func (c *AttendanceController) Create(ctx *gin.Context) {
	var req dto.AttendanceRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	record, err := c.attendanceService.Create(ctx.Request.Context(), middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(record))
}

// Update godoc
// @Summary Replace an attendance record
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Record ID"
// @Param request body dto.AttendanceRequest true "Counts per group"
// @Success 200 {object} dto.APIResponse{data=models.AttendanceRecord}
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Failure 409 {object} dto.ErrorResponse "A record already exists for this date"
// @Router /admin/attendance/{id} [put]
func (c *AttendanceController) Update(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.AttendanceRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	record, err := c.attendanceService.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(record))
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path int true "Record ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Record not found"
// @Router /admin/attendance/{id} [delete]
func (c *AttendanceController) Delete(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.attendanceService.Delete(ctx.Request.Context(), middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Attendance record deleted"))
}

// Import godoc
// @Summary Import attendance from CSV
// @Description Columns: date (DD/MM/YY or DD/MM/YYYY), adults, kids, new people, babies, teens. The first two lines are headers.
// @Tags attendance
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV export of the attendance sheet"
// @Param overrideExisting formData bool false "Overwrite dates that already have a record"
// @Success 200 {object} dto.APIResponse{data=dto.ImportResultResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing or unreadable file"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Staff and above"
// @Router /admin/attendance/import [post]
func (c *AttendanceController) Import(ctx *gin.Context) {
	fh, ok := formFile(ctx, "file")
	if !ok {
		return
	}
	override, _ := strconv.ParseBool(ctx.PostForm("overrideExisting"))

	f, err := fh.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("could not read the uploaded file"))
		return
	}
	defer f.Close()

	result, err := c.attendanceService.Import(ctx.Request.Context(), middleware.ActorFrom(ctx), f, override)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// Stats godoc
// @Summary Attendance statistics
// @Description Rolling average, week-over-week growth, record high and latest record
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param window query int false "Records in the rolling average (defaults to the configured window)"
// @Success 200 {object} dto.APIResponse{data=dto.AttendanceStatsResponse}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Staff and above"
// @Router /admin/attendance/stats [get]
func (c *AttendanceController) Stats(ctx *gin.Context) {
	window := 0
	if raw := ctx.Query("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("window must be a positive number"))
			return
		}
		window = n
	}
	stats, err := c.attendanceService.Stats(ctx.Request.Context(), middleware.ActorFrom(ctx), window)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}
