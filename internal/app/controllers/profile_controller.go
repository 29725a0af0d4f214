package controllers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/ekklesia/internal/app/auth"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/middleware"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// ProfileService is the profile surface used by ProfileController
type ProfileService interface {
	GetMe(ctx context.Context, actor *auth.Actor) (*models.Profile, error)
	UpdateMe(ctx context.Context, actor *auth.Actor, req *dto.UpdateProfileRequest) (*models.Profile, error)
	UploadPicture(ctx context.Context, actor *auth.Actor, fileHeader *multipart.FileHeader) (*models.Profile, error)
	DeletePicture(ctx context.Context, actor *auth.Actor) error
	List(ctx context.Context, actor *auth.Actor, req *dto.ProfileFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, actor *auth.Actor, id int64) (*models.Profile, error)
	Invite(ctx context.Context, actor *auth.Actor, req *dto.InviteProfileRequest) (*models.Profile, error)
	ChangeRole(ctx context.Context, actor *auth.Actor, id int64, role models.Role) (*models.Profile, error)
}

// ProfileController serves the current profile and profile administration
type ProfileController struct {
	profileService ProfileService
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService ProfileService) *ProfileController {
	return &ProfileController{profileService: profileService}
}

// GetMe godoc
// @Summary Get my profile
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Router /user/me [get]
func (c *ProfileController) GetMe(ctx *gin.Context) {
	profile, err := c.profileService.GetMe(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// UpdateMe godoc
// @Summary Update my profile
// @Description Partial update. Address ids follow the province, canton, district cascade.
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data or address"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Router /user/me [patch]
func (c *ProfileController) UpdateMe(ctx *gin.Context) {
	var req dto.UpdateProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	profile, err := c.profileService.UpdateMe(ctx.Request.Context(), middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// UploadPicture godoc
// @Summary Upload my profile picture
// @Tags user
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param picture formData file true "JPEG, PNG, WebP or GIF up to 5 MB"
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 400 {object} dto.ErrorResponse "Missing or unsupported file"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Router /user/me/picture [post]
func (c *ProfileController) UploadPicture(ctx *gin.Context) {
	fh, ok := formFile(ctx, "picture")
	if !ok {
		return
	}
	profile, err := c.profileService.UploadPicture(ctx.Request.Context(), middleware.ActorFrom(ctx), fh)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// DeletePicture godoc
// @Summary Remove my profile picture
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Router /user/me/picture [delete]
func (c *ProfileController) DeletePicture(ctx *gin.Context) {
	if err := c.profileService.DeletePicture(ctx.Request.Context(), middleware.ActorFrom(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Profile picture removed"))
}

// ListProfiles godoc
// @Summary List profiles
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches name or email"
// @Param role query string false "Miembro, Staff or Admin"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Profile}}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Router /admin/profiles [get]
func (c *ProfileController) ListProfiles(ctx *gin.Context) {
	var req dto.ProfileFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)
	result, err := c.profileService.List(ctx.Request.Context(), middleware.ActorFrom(ctx), &req, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// GetProfile godoc
// @Summary Get a profile
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 404 {object} dto.ErrorResponse "Profile not found"
// @Router /admin/profiles/{id} [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	profile, err := c.profileService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// InviteProfile godoc
// @Summary Invite a profile
// @Description Creates a profile with a temporary password and emails the invitation
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InviteProfileRequest true "Invitee"
// @Success 201 {object} dto.APIResponse{data=models.Profile}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Router /admin/profiles [post]
func (c *ProfileController) InviteProfile(ctx *gin.Context) {
	var req dto.InviteProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	profile, err := c.profileService.Invite(ctx.Request.Context(), middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(profile))
}

// ChangeRole godoc
// @Summary Change the role of a profile
// @Description Only the super admin can grant or revoke Admin
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Param request body dto.ChangeRoleRequest true "New role"
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 400 {object} dto.ErrorResponse "Invalid role or own profile"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Profile not found"
// @Router /admin/profiles/{id}/role [put]
func (c *ProfileController) ChangeRole(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.ChangeRoleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	profile, err := c.profileService.ChangeRole(ctx.Request.Context(), middleware.ActorFrom(ctx), id, req.Role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}
