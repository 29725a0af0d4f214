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

// PostService is the content surface used by PostController
type PostService interface {
	Create(ctx context.Context, actor *auth.Actor, kind models.PostKind, req *dto.PostRequest) (*models.Post, error)
	Update(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64, req *dto.PostRequest) (*models.Post, error)
	Delete(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) error
	Publish(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) (*models.Post, error)
	Unpublish(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) (*models.Post, error)
	SetFeatured(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64, featured bool) (*models.Post, error)
	UploadImage(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64, fileHeader *multipart.FileHeader) (*models.Post, error)
	List(ctx context.Context, actor *auth.Actor, kind models.PostKind, req *dto.PostFilterRequest, page helpers.Page) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, actor *auth.Actor, kind models.PostKind, id int64) (*models.Post, error)
}

// PostController serves one kind of post. Announcements and devotionals each get their own instance.
type PostController struct {
	postService PostService
	kind        models.PostKind
}

// NewPostController creates a PostController for kind
func NewPostController(postService PostService, kind models.PostKind) *PostController {
	return &PostController{postService: postService, kind: kind}
}

// List godoc
// @Summary List announcements or devotionals
// @Description Published posts, featured first then newest first. Staff may pass drafts=true.
// @Tags content
// @Produce json
// @Param kind path string true "announcements or devotionals"
// @Param search query string false "Matches title or summary"
// @Param featured query bool false "Only featured posts"
// @Param drafts query bool false "Include drafts (Staff and above)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Post}}
// @Router /{kind} [get]
func (c *PostController) List(ctx *gin.Context) {
	var req dto.PostFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)
	result, err := c.postService.List(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, &req, page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// Get godoc
// @Summary Get an announcement or devotional
// @Tags content
// @Produce json
// @Param kind path string true "announcements or devotionals"
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=models.Post}
// @Failure 404 {object} dto.ErrorResponse "Post not found or not published"
// @Router /{kind}/{id} [get]
func (c *PostController) Get(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	post, err := c.postService.Get(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// Create godoc
// @Summary Create a draft post
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "announcements or devotionals"
// @Param request body dto.PostRequest true "Post content"
// @Success 201 {object} dto.APIResponse{data=models.Post}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Staff and above"
// @Router /{kind} [post]
func (c *PostController) Create(ctx *gin.Context) {
	var req dto.PostRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	post, err := c.postService.Create(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(post))
}

// Update godoc
// @Summary Replace a post
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "announcements or devotionals"
// @Param id path int true "Post ID"
// @Param request body dto.PostRequest true "Post content"
// @Success 200 {object} dto.APIResponse{data=models.Post}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /{kind}/{id} [put]
func (c *PostController) Update(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.PostRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	post, err := c.postService.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// Delete godoc
// @Summary Delete a post
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param kind path string true "announcements or devotionals"
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /{kind}/{id} [delete]
func (c *PostController) Delete(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.postService.Delete(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Post deleted"))
}

// Publish godoc
// @Summary Publish a post
// @Description The first publication emails every subscriber category and pushes a feed event. Publishing again is a no-op.
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param kind path string true "announcements or devotionals"
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=models.Post}
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /{kind}/{id}/publish [post]
func (c *PostController) Publish(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	post, err := c.postService.Publish(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// Unpublish godoc
// @Summary Move a post back to draft
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param kind path string true "announcements or devotionals"
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=models.Post}
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /{kind}/{id}/unpublish [post]
func (c *PostController) Unpublish(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	post, err := c.postService.Unpublish(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// SetFeatured godoc
// @Summary Toggle the featured flag
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "announcements or devotionals"
// @Param id path int true "Post ID"
// @Param request body dto.FeatureRequest true "Featured flag"
// @Success 200 {object} dto.APIResponse{data=models.Post}
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /{kind}/{id}/featured [put]
func (c *PostController) SetFeatured(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req dto.FeatureRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	post, err := c.postService.SetFeatured(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, id, req.Featured)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// UploadImage godoc
// @Summary Upload the cover image of a post
// @Tags content
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param kind path string true "announcements or devotionals"
// @Param id path int true "Post ID"
// @Param image formData file true "JPEG, PNG, WebP or GIF up to 5 MB"
// @Success 200 {object} dto.APIResponse{data=models.Post}
// @Failure 400 {object} dto.ErrorResponse "Missing or unsupported file"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /{kind}/{id}/image [post]
func (c *PostController) UploadImage(ctx *gin.Context) {
	id, ok := middleware.ParamID(ctx, "id")
	if !ok {
		return
	}
	fh, ok := formFile(ctx, "image")
	if !ok {
		return
	}
	post, err := c.postService.UploadImage(ctx.Request.Context(), middleware.ActorFrom(ctx), c.kind, id, fh)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}
