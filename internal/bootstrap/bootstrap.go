package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/ekklesia/internal/app/auth"
	appControllers "github.com/yigit/ekklesia/internal/app/controllers"
	appMigrations "github.com/yigit/ekklesia/internal/app/migrations"
	"github.com/yigit/ekklesia/internal/app/models"
	appRepos "github.com/yigit/ekklesia/internal/app/repositories"
	appRoutes "github.com/yigit/ekklesia/internal/app/routes"
	appServices "github.com/yigit/ekklesia/internal/app/services"
	"github.com/yigit/ekklesia/internal/config"
	"github.com/yigit/ekklesia/internal/db"
	appMiddleware "github.com/yigit/ekklesia/internal/middleware"
	pkgAuth "github.com/yigit/ekklesia/internal/pkg/auth"
	"github.com/yigit/ekklesia/internal/pkg/cache"
	"github.com/yigit/ekklesia/internal/pkg/email"
	"github.com/yigit/ekklesia/internal/pkg/filestorage"
	"github.com/yigit/ekklesia/internal/pkg/helpers"
	"github.com/yigit/ekklesia/internal/pkg/logger"
	"github.com/yigit/ekklesia/internal/pkg/validation"
	"github.com/yigit/ekklesia/internal/pkg/websocket"
	"github.com/yigit/ekklesia/internal/seed"
)

const serviceName = "ekklesia"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos        *appRepos.Repositories
	Cache        cache.Cache
	FileStorage  filestorage.FileStorage
	JWTService   *pkgAuth.JWTService
	AuthzService *appAuth.AuthorizationService
	Notifier     *appServices.NotificationService
	Hub          *websocket.Hub

	AuthService       *appServices.AuthService
	ProfileService    *appServices.ProfileService
	LocationService   *appServices.LocationService
	PostService       *appServices.PostService
	EventService      *appServices.EventService
	TeamService       *appServices.TeamService
	AttendanceService *appServices.AttendanceService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger

	// closers run on shutdown in reverse order
	closers []func()
}

// Close releases background resources held by the dependencies
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  prettyLog,
		Service: serviceName,
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupSentry initializes error reporting. It reports false when no DSN is configured.
func SetupSentry(cfg *config.Config, lgr zerolog.Logger) (bool, error) {
	if cfg.Sentry.DSN == "" {
		lgr.Info().Msg("Sentry DSN not set, error reporting disabled")
		return false, nil
	}
	environment := cfg.Sentry.Environment
	if environment == "" {
		environment = cfg.Server.Mode
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	lgr.Info().Str("environment", environment).Msg("Sentry initialized")
	return true, nil
}

// SetupDatabase establishes the database connection, runs migrations and seeds default data.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool, lgr)
	if err := migrator.Migrate(ctx, appMigrations.Files()); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(ctx, cfg, dbPool, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// setupCache connects to Redis when an address is configured and falls back to memory otherwise
func setupCache(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (cache.Cache, func(), error) {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis address not set, using in-process cache")
		return cache.NewMemoryCache(), func() {}, nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, serviceName+":")
	if err != nil {
		return nil, nil, err
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis cache connected")
	return rc, func() {
		if err := rc.Close(); err != nil {
			lgr.Warn().Err(err).Msg("Error closing redis client")
		}
	}, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	if err := validation.RegisterGinValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	deps.Repos = appRepos.NewRepositories(dbPool)

	var err error
	var closeCache func()
	deps.Cache, closeCache, err = setupCache(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	deps.closers = append(deps.closers, closeCache)

	deps.FileStorage, err = filestorage.New(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	mailer, err := email.NewMailer(cfg, lgr.With().Str("component", "mailer").Logger())
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	renderer, err := email.NewRenderer(cfg.Mail.FromName)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	baseURL := strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	deps.Notifier = appServices.NewNotificationService(mailer, renderer, deps.Repos.Profiles, baseURL, lgr)
	deps.closers = append(deps.closers, deps.Notifier.Wait)

	hubCtx, stopHub := context.WithCancel(context.Background())
	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run(hubCtx)
	deps.closers = append(deps.closers, stopHub)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration("jwt.access_token_expiration", cfg.JWT.AccessTokenExpiration, 7*24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.Memberships, lgr)

	// Initialize services
	deps.LocationService = appServices.NewLocationService(
		deps.Repos.Locations,
		deps.Cache,
		helpers.ParseDuration("redis.location_cache_ttl", cfg.Redis.LocationCacheTTL, 24*time.Hour),
		lgr,
	)
	deps.AuthService = appServices.NewAuthService(deps.Repos.Profiles, deps.LocationService, deps.JWTService, deps.Cache, lgr)
	deps.ProfileService = appServices.NewProfileService(
		deps.Repos.Profiles,
		deps.LocationService,
		deps.FileStorage,
		deps.Notifier,
		deps.AuthzService,
		deps.Notifier.URL("/login"),
		lgr,
	)
	deps.PostService = appServices.NewPostService(
		deps.Repos.Posts,
		deps.FileStorage,
		deps.Notifier,
		deps.Hub,
		deps.AuthzService,
		time.Now,
		baseURL,
		lgr,
	)
	deps.EventService = appServices.NewEventService(
		deps.Repos.Events,
		deps.Repos.Registrations,
		deps.FileStorage,
		deps.Notifier,
		deps.Hub,
		deps.AuthzService,
		time.Now,
		baseURL,
		lgr,
	)
	deps.TeamService = appServices.NewTeamService(
		deps.Repos.Teams,
		deps.Repos.Memberships,
		deps.FileStorage,
		deps.Notifier,
		deps.AuthzService,
		time.Now,
		baseURL,
		lgr,
	)
	deps.AttendanceService = appServices.NewAttendanceService(deps.Repos.Attendance, deps.AuthzService, cfg.Attendance.RollingWindow, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Repos.Profiles, lgr)

	deps.Controllers = appRoutes.Controllers{
		Auth:          appControllers.NewAuthController(deps.AuthService, lgr),
		Profiles:      appControllers.NewProfileController(deps.ProfileService),
		Locations:     appControllers.NewLocationController(deps.LocationService),
		Announcements: appControllers.NewPostController(deps.PostService, models.PostAnnouncement),
		Devotionals:   appControllers.NewPostController(deps.PostService, models.PostDevotional),
		Events:        appControllers.NewEventController(deps.EventService),
		Teams:         appControllers.NewTeamController(deps.TeamService),
		Attendance:    appControllers.NewAttendanceController(deps.AttendanceService),
		Feed:          websocket.NewHandler(deps.Hub, lgr),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, sentryEnabled bool, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}
	gin.DefaultWriter = io.Discard

	router := gin.New()
	router.Use(gin.Recovery())
	if sentryEnabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(appMiddleware.RequestLogger(lgr))

	appRoutes.SetupSwagger(router)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	if strings.ToLower(cfg.Storage.Driver) != "s3" {
		setupStaticFileServing(router, cfg, lgr)
	}

	return router
}

// setupStaticFileServing serves files saved by the local storage driver
func setupStaticFileServing(router *gin.Engine, cfg *config.Config, lgr zerolog.Logger) {
	uploadPath := cfg.Server.StoragePath
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		lgr.Error().Err(err).Str("path", uploadPath).Msg("Failed to create uploads directory")
		return
	}
	router.Static(filestorage.LocalURLPath, uploadPath)
	lgr.Info().Str("path", uploadPath).Msg("Static file serving configured for uploads directory")
}
