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
	"github.com/yigit/ekklesia/internal/pkg/export"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
)

// TeamService is the team and membership surface used by TeamController
type TeamService interface {
	Create(ctx context.Context, actor *auth.Actor, req *dto.TeamRequest) (*models.Team, error)
	Update(ctx context.Context, actor *auth.Actor, id int64, req *dto.TeamRequest) (*models.Team, error)
	Delete(ctx context.Context, actor *auth.Actor, id int64) error
	UploadImage(ctx context.Context, actor *auth.Actor, id int64, fileHeader *multipart.FileHeader) (*models.Team, error)
	List(ctx context.Context, req *dto.TeamFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, id int64) (*models.Team, error)
	Join(ctx context.Context, actor *auth.Actor, teamID int64) (*models.TeamMembership, error)
	RequestRemoval(ctx context.Context, actor *auth.Actor, teamID int64) (*models.TeamMembership, error)
	Approve(ctx context.Context, actor *auth.Actor, teamID, membershipID int64) (*models.TeamMembership, error)
	Reject(ctx context.Context, actor *auth.Actor, teamID, membershipID int64) (*models.TeamMembership, error)
	SetLeader(ctx context.Context, actor *auth.Actor, teamID, membershipID int64, leader bool) (*models.TeamMembership, error)
	RemoveMember(ctx context.Context, actor *auth.Actor, teamID, membershipID int64) error
	ListMembers(ctx context.Context, actor *auth.Actor, teamID int64, status models.MembershipStatus) ([]*models.TeamMembership, error)
	MyTeams(ctx context.Context, actor *auth.Actor) ([]*models.TeamMembership, error)
	MemberRoster(ctx context.Context, actor *auth.Actor, teamID int64) (export.Roster, error)
}

// TeamController handles ministry teams and their memberships
type TeamController struct {
	teamService TeamService
}

// NewTeamController creates a new TeamController
func NewTeamController(teamService TeamService) *TeamController {
	return &TeamController{teamService: teamService}
}

// List godoc
// @Summary List teams
// @Tags teams
// @Produce json
// @Param search query string false "Matches name or description"
// @Param status query string false "active, inactive or recruiting"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Team}}
// @Router /teams [get]
func (c *TeamController) List(ctx *gin.Context) {
	var req dto.TeamFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)
	result, err := c.teamService.List(ctx.Request.Context(), &req, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// Get godoc
// @Summary Get a team
// @Description Includes the approved member count
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} dto.APIResponse{data=models.Team}
// @Failure 404 {object} dto.ErrorResponse "Team not found"
// @Router /teams/{id} [get]
func (c *TeamController) Get(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	team, err := c.teamService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(team))
}

// Create godoc
// @Summary Create a team
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TeamRequest true "Team information"
// @Success 201 {object} dto.APIResponse{data=models.Team}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 409 {object} dto.ErrorResponse "Team name already exists"
// @Router /teams [post]
func (c *TeamController) Create(ctx *gin.Context) {
	var req dto.TeamRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	team, err := c.teamService.Create(ctx.Request.Context(), middleware.ActorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(team))
}

// Update godoc
// @Summary Replace a team
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param request body dto.TeamRequest true "Team information"
// @Success 200 {object} dto.APIResponse{data=models.Team}
// @Failure 404 {object} dto.ErrorResponse "Team not found"
// @Router /teams/{id} [put]
func (c *TeamController) Update(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.TeamRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	team, err := c.teamService.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(team))
}

// Delete godoc
// @Summary Delete a team
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Team not found"
// @Router /teams/{id} [delete]
func (c *TeamController) Delete(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.teamService.Delete(ctx.Request.Context(), middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Team deleted"))
}

// UploadImage godoc
// @Summary Upload the image of a team
// @Tags teams
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param image formData file true "JPEG, PNG, WebP or GIF up to 5 MB"
// @Success 200 {object} dto.APIResponse{data=models.Team}
// @Failure 400 {object} dto.ErrorResponse "Missing or unsupported file"
// @Router /teams/{id}/image [post]
func (c *TeamController) UploadImage(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	fh, ok := formFile(ctx, "image")
	if !ok {
		return
	}
	team, err := c.teamService.UploadImage(ctx.Request.Context(), middleware.ActorFrom(ctx), id, fh)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(team))
}

// Join godoc
// @Summary Ask to join a team
// @Description Creates a pending membership, or reopens a rejected one
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 201 {object} dto.APIResponse{data=models.TeamMembership}
// @Failure 400 {object} dto.ErrorResponse "Team is not accepting members"
// @Failure 409 {object} dto.ErrorResponse "Membership already exists"
// @Router /teams/{id}/members [post]
func (c *TeamController) Join(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	m, err := c.teamService.Join(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(m))
}

// RequestRemoval godoc
// @Summary Ask to leave a team
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} dto.APIResponse{data=models.TeamMembership}
// @Failure 400 {object} dto.ErrorResponse "Membership is not approved"
// @Failure 404 {object} dto.ErrorResponse "Not a member"
// @Router /teams/{id}/members/me/removal [post]
func (c *TeamController) RequestRemoval(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	m, err := c.teamService.RequestRemoval(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(m))
}

func membershipParams(ctx *gin.Context) (teamID, membershipID int64, ok bool) {
	if teamID, ok = middleware.ParamID(ctx, "id"); !ok {
		return 0, 0, false
	}
	if membershipID, ok = middleware.ParamID(ctx, "membershipId"); !ok {
		return 0, 0, false
	}
	return teamID, membershipID, true
}

// Approve godoc
// @Summary Approve a membership request
// @Description Enforces the member limit and promotes the member to at least Staff
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param membershipId path int true "Membership ID"
// @Success 200 {object} dto.APIResponse{data=models.TeamMembership}
// @Failure 400 {object} dto.ErrorResponse "Membership is not pending"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admins and team leaders"
// @Failure 409 {object} dto.ErrorResponse "Team is full"
// @Router /teams/{id}/members/{membershipId}/approve [post]
func (c *TeamController) Approve(ctx *gin.Context) {
	teamID, membershipID, ok := membershipParams(ctx)
	if !ok {
		return
	}
	m, err := c.teamService.Approve(ctx.Request.Context(), middleware.ActorFrom(ctx), teamID, membershipID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(m))
}

// Reject godoc
// @Summary Reject a membership request
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param membershipId path int true "Membership ID"
// @Success 200 {object} dto.APIResponse{data=models.TeamMembership}
// @Failure 400 {object} dto.ErrorResponse "Membership is not pending"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admins and team leaders"
// @Router /teams/{id}/members/{membershipId}/reject [post]
func (c *TeamController) Reject(ctx *gin.Context) {
	teamID, membershipID, ok := membershipParams(ctx)
	if !ok {
		return
	}
	m, err := c.teamService.Reject(ctx.Request.Context(), middleware.ActorFrom(ctx), teamID, membershipID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(m))
}

// SetLeader godoc
// @Summary Make an approved member a team leader, or revert
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param membershipId path int true "Membership ID"
// @Param request body dto.SetLeaderRequest true "Leader flag"
// @Success 200 {object} dto.APIResponse{data=models.TeamMembership}
// @Failure 400 {object} dto.ErrorResponse "Membership is not approved"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Router /teams/{id}/members/{membershipId}/leader [put]
func (c *TeamController) SetLeader(ctx *gin.Context) {
	teamID, membershipID, ok := membershipParams(ctx)
	if !ok {
		return
	}
	var req dto.SetLeaderRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	m, err := c.teamService.SetLeader(ctx.Request.Context(), middleware.ActorFrom(ctx), teamID, membershipID, req.Leader)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(m))
}

// RemoveMember godoc
// @Summary Remove a member
// @Description Confirms removal requests or removes a member outright
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param membershipId path int true "Membership ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admins and team leaders"
// @Failure 404 {object} dto.ErrorResponse "Membership not found"
// @Router /teams/{id}/members/{membershipId} [delete]
func (c *TeamController) RemoveMember(ctx *gin.Context) {
	teamID, membershipID, ok := membershipParams(ctx)
	if !ok {
		return
	}
	if err := c.teamService.RemoveMember(ctx.Request.Context(), middleware.ActorFrom(ctx), teamID, membershipID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Member removed"))
}

// ListMembers godoc
// @Summary List the members of a team
// @Description Approved members are public. Other statuses need an admin or team leader.
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Param status query string false "pending, approved, rejected or removal_requested" default(approved)
// @Success 200 {object} dto.APIResponse{data=[]models.TeamMembership}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /teams/{id}/members [get]
func (c *TeamController) ListMembers(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.MembershipFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	if req.Status == "" {
		req.Status = models.MembershipApproved
	}
	members, err := c.teamService.ListMembers(ctx.Request.Context(), middleware.ActorFrom(ctx), id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(members))
}

// MyTeams godoc
// @Summary List my team memberships
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.TeamMembership}
// @Router /user/me/teams [get]
func (c *TeamController) MyTeams(ctx *gin.Context) {
	members, err := c.teamService.MyTeams(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(members))
}

// ExportMembers godoc
// @Summary Export the members of a team
// @Tags teams
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param format query string false "xlsx or pdf" default(xlsx)
// @Success 200 {file} file
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /teams/{id}/members/export [get]
func (c *TeamController) ExportMembers(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	roster, err := c.teamService.MemberRoster(ctx.Request.Context(), middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	writeRoster(ctx, roster)
}
