package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appAuth "github.com/bearshare/backend/internal/app/auth"
	appControllers "github.com/bearshare/backend/internal/app/controllers"
	appMigrations "github.com/bearshare/backend/internal/app/migrations"
	appRepos "github.com/bearshare/backend/internal/app/repositories"
	"github.com/bearshare/backend/internal/app/repositories/memory"
	appRoutes "github.com/bearshare/backend/internal/app/routes"
	appServices "github.com/bearshare/backend/internal/app/services"
	"github.com/bearshare/backend/internal/config"
	"github.com/bearshare/backend/internal/db"
	appMiddleware "github.com/bearshare/backend/internal/middleware"
	pkgAuth "github.com/bearshare/backend/internal/pkg/auth"
	"github.com/bearshare/backend/internal/pkg/email"
	"github.com/bearshare/backend/internal/pkg/events"
	"github.com/bearshare/backend/internal/pkg/filestorage"
	"github.com/bearshare/backend/internal/pkg/idempotency"
	"github.com/bearshare/backend/internal/pkg/logger"
	"github.com/bearshare/backend/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store       appRepos.Store
	BlobStore   filestorage.BlobStore
	LocalBlobs  *filestorage.LocalStorage // nil unless the local driver is active
	Publisher   events.Publisher
	Idempotency idempotency.Store
	Redis       *redis.Client
	Notifier    *appServices.Notifier
	Reconciler  *appServices.Reconciler

	CourseService     appServices.CourseService
	MembershipService appServices.MembershipService
	PostService       appServices.PostService

	AuthMiddleware *appMiddleware.AuthMiddleware
	Controllers    appRoutes.Controllers
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath, ".env")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: logger.ParseFormat(cfg.Logging.Format),
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured store. For postgres it connects, applies
// migrations and seeds default courses. The returned pool is nil for the
// memory driver.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, *db.PostgresDB, error) {
	var (
		store    appRepos.Store
		database *db.PostgresDB
	)

	switch cfg.Database.Driver {
	case "memory":
		lgr.Warn().Msg("Using the in-memory store, data is lost on restart")
		store = memory.NewStore()
	default:
		lgr.Info().Msg("Establishing database connection...")
		var err error
		database, err = db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		if err := RunMigrations(ctx, cfg, database, lgr); err != nil {
			database.Close()
			return nil, nil, err
		}
		store = appRepos.NewPostgresStore(database)
	}

	if cfg.Database.SeedCourses {
		if _, err := seed.CreateDefaultCourses(ctx, store, seed.DefaultCourses, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default courses, proceeding anyway...")
		}
	}

	return store, database, nil
}

// RunMigrations applies the SQL files of the configured migrations directory
func RunMigrations(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// NewResolver builds the identity resolver from the auth configuration
func NewResolver(cfg *config.Config, lgr zerolog.Logger) (*appAuth.Resolver, error) {
	verifierConfig := pkgAuth.VerifierConfig{
		HMACSecret: cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		RoleClaim:  cfg.Auth.RoleClaim,
	}
	if cfg.Auth.JWTPublicKeyFile != "" {
		pem, err := os.ReadFile(cfg.Auth.JWTPublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read token public key: %w", err)
		}
		verifierConfig.PublicKeyPEM = pem
	}

	verifier, err := pkgAuth.NewJWTVerifier(verifierConfig)
	if err != nil {
		return nil, err
	}

	resolver := appAuth.NewResolver(verifier, cfg.Auth.AdminRole, cfg.Auth.AdminSecretHash, logger.Component("auth"))
	if resolver.LegacySecretEnabled() {
		lgr.Warn().Str("header", appMiddleware.AdminSecretHeader).Msg("Legacy admin secret header is enabled")
	}
	return resolver, nil
}

// NewBlobStore builds the configured blob store. The second result is the
// local driver when it is active, so its upload routes can be served.
func NewBlobStore(cfg *config.Config, lgr zerolog.Logger) (filestorage.BlobStore, *filestorage.LocalStorage, error) {
	switch cfg.Storage.Driver {
	case "oss":
		oss := cfg.Storage.OSS
		blobs, err := filestorage.NewOSSStorage(filestorage.OSSConfig{
			Endpoint:        oss.Endpoint,
			Bucket:          oss.Bucket,
			AccessKeyID:     oss.AccessKeyID,
			AccessKeySecret: oss.AccessKeySecret,
			Prefix:          oss.Prefix,
			UploadTTL:       cfg.Storage.UploadURLTTL,
			DownloadTTL:     cfg.Storage.DownloadURLTTL,
		}, logger.Component("blobstore"))
		if err != nil {
			return nil, nil, err
		}
		lgr.Info().Str("bucket", oss.Bucket).Msg("Using OSS blob store")
		return blobs, nil, nil
	default:
		local, err := filestorage.NewLocalStorage(filestorage.LocalConfig{
			BasePath:       cfg.Storage.LocalPath,
			BaseURL:        cfg.PublicBaseURL(),
			SigningSecret:  cfg.StorageSigningSecret(),
			UploadTTL:      cfg.Storage.UploadURLTTL,
			DownloadTTL:    cfg.Storage.DownloadURLTTL,
			MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		})
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	}
}

// BuildDependencies wires repositories, collaborators, services and controllers
func BuildDependencies(ctx context.Context, cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	var err error
	deps.BlobStore, deps.LocalBlobs, err = NewBlobStore(cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize blob store")
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	if cfg.Redis.Addr != "" {
		deps.Redis, err = idempotency.NewRedisClient(ctx, idempotency.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			lgr.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
			return nil, err
		}
		deps.Idempotency = idempotency.NewRedisStore(deps.Redis, cfg.Redis.IdempotencyTTL, cfg.Redis.InFlightTTL)
		lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Idempotency keys stored in redis")
	} else {
		deps.Idempotency = idempotency.NewMemoryStore(cfg.Redis.IdempotencyTTL, cfg.Redis.InFlightTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		deps.Publisher = events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		lgr.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing activity events to kafka")
	} else {
		deps.Publisher = events.NewLogPublisher(logger.Component("events"))
	}
	emitter := events.NewEmitter(deps.Publisher, logger.Component("events"))

	sender := email.NewSender(email.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}, logger.Component("email"))
	deps.Notifier = appServices.NewNotifier(sender, cfg.Email.AdminAddress,
		cfg.PublicBaseURL()+"/api/v1/course-requests", logger.Component("notifier"))

	resolver, err := NewResolver(cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize token verifier")
		return nil, err
	}
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(resolver, logger.Component("auth"))

	deps.CourseService = appServices.NewCourseService(store, emitter, deps.Notifier, logger.Component("courses"))
	deps.MembershipService = appServices.NewMembershipService(store, emitter, logger.Component("memberships"))
	deps.PostService = appServices.NewPostService(store, deps.BlobStore, emitter, logger.Component("posts"))

	if cfg.Membership.ReconcileInterval > 0 {
		deps.Reconciler = appServices.NewReconciler(deps.MembershipService, cfg.Membership.ReconcileInterval, logger.Component("reconciler"))
	}

	// a typed nil must not reach the controller as a non-nil interface
	var localServer appControllers.LocalBlobServer
	if deps.LocalBlobs != nil {
		localServer = deps.LocalBlobs
	}

	deps.Controllers = appRoutes.Controllers{
		Health:        appControllers.NewHealthController(store, lgr),
		Auth:          appControllers.NewAuthController(),
		Course:        appControllers.NewCourseController(deps.CourseService, deps.MembershipService),
		CourseRequest: appControllers.NewCourseRequestController(deps.CourseService),
		Post:          appControllers.NewPostController(deps.PostService),
		Upload:        appControllers.NewUploadController(deps.PostService, localServer, logger.Component("uploads")),
		Admin:         appControllers.NewAdminController(deps.MembershipService),
	}

	return deps, nil
}

// Close releases the external connections held by deps
func (d *Dependencies) Close() error {
	var errs error
	d.Notifier.Wait()
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close event publisher")
			errs = errors.Join(errs, err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close redis client")
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// SetupRouter builds the gin engine with global middleware and all routes
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	appMiddleware.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.RequestLogger(logger.Component("http")))
	router.Use(deps.AuthMiddleware.ResolveActor())

	if !cfg.IsProduction() {
		appRoutes.SetupSwagger(router)
	}

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware,
		appMiddleware.Idempotency(deps.Idempotency, logger.Component("idempotency")))

	return router
}

// StartBackground launches the periodic jobs. They stop when ctx is done.
func StartBackground(ctx context.Context, deps *Dependencies) {
	if deps.Reconciler != nil {
		go deps.Reconciler.Run(ctx)
	}
}
