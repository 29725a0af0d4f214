package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/middleware"
)

// LocationService is the location lookup surface used by LocationController
type LocationService interface {
	ListProvinces(ctx context.Context) ([]models.Province, error)
	ListCantons(ctx context.Context, provinceID int64) ([]models.Canton, error)
	ListDistricts(ctx context.Context, cantonID int64) ([]models.District, error)
	ResolveAddress(ctx context.Context, province, canton, district string) (models.Selection, error)
}

// LocationController serves the province, canton and district reference data
type LocationController struct {
	locationService LocationService
}

// NewLocationController creates a new LocationController
func NewLocationController(locationService LocationService) *LocationController {
	return &LocationController{locationService: locationService}
}

// ListProvinces godoc
// @Summary List provinces
// @Tags locations
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Province}
// @Router /locations/provinces [get]
func (c *LocationController) ListProvinces(ctx *gin.Context) {
	provinces, err := c.locationService.ListProvinces(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(provinces))
}

// ListCantons godoc
// @Summary List the cantons of a province
// @Tags locations
// @Produce json
// @Param id path int true "Province ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Canton}
// @Failure 404 {object} dto.ErrorResponse "Province not found"
// @Router /locations/provinces/{id}/cantons [get]
func (c *LocationController) ListCantons(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	cantons, err := c.locationService.ListCantons(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(cantons))
}

// ListDistricts godoc
// @Summary List the districts of a canton
// @Tags locations
// @Produce json
// @Param id path int true "Canton ID"
// @Success 200 {object} dto.APIResponse{data=[]models.District}
// @Failure 404 {object} dto.ErrorResponse "Canton not found"
// @Router /locations/cantons/{id}/districts [get]
func (c *LocationController) ListDistricts(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	districts, err := c.locationService.ListDistricts(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(districts))
}

// ResolveAddress godoc
// @Summary Resolve location names to ids
// @Description Case-insensitive lookup. Canton and district are optional.
// @Tags locations
// @Produce json
// @Param province query string true "Province name"
// @Param canton query string false "Canton name"
// @Param district query string false "District name"
// @Success 200 {object} dto.APIResponse{data=models.Selection}
// @Failure 400 {object} dto.ErrorResponse "Missing province"
// @Failure 404 {object} dto.ErrorResponse "Unknown name"
// @Router /locations/resolve [get]
func (c *LocationController) ResolveAddress(ctx *gin.Context) {
	var req dto.ResolveAddressRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	sel, err := c.locationService.ResolveAddress(ctx.Request.Context(), req.Province, req.Canton, req.District)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(sel))
}
