package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/ekklesia/internal/app/controllers"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/app/models/dto"
	"github.com/yigit/ekklesia/internal/middleware"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
)

// Controllers groups every controller the router mounts
type Controllers struct {
	Auth          *controllers.AuthController
	Profiles      *controllers.ProfileController
	Locations     *controllers.LocationController
	Announcements *controllers.PostController
	Devotionals   *controllers.PostController
	Events        *controllers.EventController
	Teams         *controllers.TeamController
	Attendance    *controllers.AttendanceController
	Feed          *websocket.Handler
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok", "time": time.Now().UTC()}))
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctrl Controllers, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api")
	api.GET("/health", HealthCheck)

	// --- Public Auth routes ---
	auth := api.Group("/auth")
	{
		auth.POST("/register", ctrl.Auth.Register)
		auth.POST("/login", ctrl.Auth.Login)
		auth.PUT("/password", authMiddleware.JWTAuth(), ctrl.Auth.ChangePassword)
	}

	locations := api.Group("/locations")
	{
		locations.GET("/provinces", ctrl.Locations.ListProvinces)
		locations.GET("/provinces/:id/cantons", ctrl.Locations.ListCantons)
		locations.GET("/cantons/:id/districts", ctrl.Locations.ListDistricts)
		locations.GET("/resolve", ctrl.Locations.ResolveAddress)
	}

	// Public listings see more when a valid token is sent
	optional := api.Group("")
	optional.Use(authMiddleware.OptionalAuth())

	authenticated := api.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	user := authenticated.Group("/user")
	{
		user.GET("/me", ctrl.Profiles.GetMe)
		user.PATCH("/me", ctrl.Profiles.UpdateMe)
		user.POST("/me/picture", ctrl.Profiles.UploadPicture)
		user.DELETE("/me/picture", ctrl.Profiles.DeletePicture)
		user.GET("/me/registrations", ctrl.Events.MyRegistrations)
		user.GET("/me/teams", ctrl.Teams.MyTeams)
	}

	mountPosts(optional, authenticated, authMiddleware, "/announcements", ctrl.Announcements)
	mountPosts(optional, authenticated, authMiddleware, "/devotionals", ctrl.Devotionals)

	// Event routes
	optional.GET("/events", ctrl.Events.List)
	optional.GET("/events/:id", ctrl.Events.Get)
	events := authenticated.Group("/events")
	{
		events.POST("/:id/registrations", ctrl.Events.Register)
		events.DELETE("/:id/registrations/me", ctrl.Events.CancelRegistration)

		// Admins and leaders of an associated team, checked by the service
		events.GET("/:id/registrations", ctrl.Events.ListRegistrations)
		events.GET("/:id/attendees/export", ctrl.Events.ExportAttendees)
		events.POST("/registrations/:registrationId/approve", ctrl.Events.ApproveRegistration)
		events.POST("/registrations/:registrationId/reject", ctrl.Events.RejectRegistration)

		eventsAdmin := events.Group("")
		eventsAdmin.Use(authMiddleware.RequireRole(models.RoleAdmin))
		{
			eventsAdmin.POST("", ctrl.Events.Create)
			eventsAdmin.PUT("/:id", ctrl.Events.Update)
			eventsAdmin.DELETE("/:id", ctrl.Events.Delete)
			eventsAdmin.POST("/:id/publish", ctrl.Events.Publish)
			eventsAdmin.POST("/:id/cancel", ctrl.Events.Cancel)
			eventsAdmin.POST("/:id/image", ctrl.Events.UploadImage)
		}
	}

	// Team routes
	optional.GET("/teams", ctrl.Teams.List)
	optional.GET("/teams/:id", ctrl.Teams.Get)
	optional.GET("/teams/:id/members", ctrl.Teams.ListMembers)
	teams := authenticated.Group("/teams")
	{
		teams.POST("/:id/members", ctrl.Teams.Join)
		teams.POST("/:id/members/me/removal", ctrl.Teams.RequestRemoval)

		// Admins and leaders of the team, checked by the service
		teams.POST("/:id/members/:membershipId/approve", ctrl.Teams.Approve)
		teams.POST("/:id/members/:membershipId/reject", ctrl.Teams.Reject)
		teams.DELETE("/:id/members/:membershipId", ctrl.Teams.RemoveMember)
		teams.GET("/:id/members/export", ctrl.Teams.ExportMembers)

		teamsAdmin := teams.Group("")
		teamsAdmin.Use(authMiddleware.RequireRole(models.RoleAdmin))
		{
			teamsAdmin.POST("", ctrl.Teams.Create)
			teamsAdmin.PUT("/:id", ctrl.Teams.Update)
			teamsAdmin.DELETE("/:id", ctrl.Teams.Delete)
			teamsAdmin.POST("/:id/image", ctrl.Teams.UploadImage)
			teamsAdmin.PUT("/:id/members/:membershipId/leader", ctrl.Teams.SetLeader)
		}
	}

	admin := authenticated.Group("/admin")
	{
		profiles := admin.Group("/profiles")
		profiles.Use(authMiddleware.RequireRole(models.RoleAdmin))
		{
			profiles.GET("", ctrl.Profiles.ListProfiles)
			profiles.POST("", ctrl.Profiles.InviteProfile)
			profiles.GET("/:id", ctrl.Profiles.GetProfile)
			profiles.PUT("/:id/role", ctrl.Profiles.ChangeRole)
		}

		attendance := admin.Group("/attendance")
		attendance.Use(authMiddleware.RequireRole(models.RoleStaff))
		{
			attendance.GET("", ctrl.Attendance.List)
			attendance.POST("", ctrl.Attendance.Create)
			attendance.GET("/stats", ctrl.Attendance.Stats)
			attendance.POST("/import", ctrl.Attendance.Import)
			attendance.GET("/:id", ctrl.Attendance.Get)
			attendance.PUT("/:id", ctrl.Attendance.Update)
			attendance.DELETE("/:id", ctrl.Attendance.Delete)
		}
	}

	router.GET("/ws/feed", authMiddleware.JWTAuth(), ctrl.Feed.HandleFeed)
}

func mountPosts(optional, authenticated *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware, path string, c *controllers.PostController) {
	optional.GET(path, c.List)
	optional.GET(path+"/:id", c.Get)

	staff := authenticated.Group(path)
	staff.Use(authMiddleware.RequireRole(models.RoleStaff))
	{
		staff.POST("", c.Create)
		staff.PUT("/:id", c.Update)
		staff.DELETE("/:id", c.Delete)
		staff.POST("/:id/publish", c.Publish)
		staff.POST("/:id/unpublish", c.Unpublish)
		staff.PUT("/:id/featured", c.SetFeatured)
		staff.POST("/:id/image", c.UploadImage)
	}
}
