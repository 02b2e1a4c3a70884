package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/infrastructure/blob"
	"github.com/hotelops/backoffice/internal/infrastructure/feed"
	"github.com/hotelops/backoffice/internal/infrastructure/identity"
	"github.com/hotelops/backoffice/internal/infrastructure/repository/memory"
	"github.com/hotelops/backoffice/internal/infrastructure/repository/postgres"
	"github.com/hotelops/backoffice/internal/interfaces/http"
	"github.com/hotelops/backoffice/internal/interfaces/http/handlers"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/config"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/hotelops/backoffice/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const sessionSweepInterval = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", true)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
	log := logger.Get()

	log.Info().Str("store", cfg.Store.Driver).Msg("Starting hotel back-office...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	var (
		store       domain.DocumentStore
		credentials domain.CredentialRepository
	)

	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		store = memory.NewDocumentStore()
		credentials = memory.NewCredentialRepository()

	default:
		dbPool, err := connectDB(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		log.Info().Msg("Connected to PostgreSQL")

		// Run migrations to ensure database schema is up to date
		runMigrations(dbPool, log)

		changes, err := feed.NewRedisFeed(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to change feed")
		}
		defer changes.Close()

		log.Info().Str("address", cfg.Redis.Addr()).Msg("Connected to Redis change feed")

		store = postgres.NewDocumentStore(dbPool, changes)
		credentials = postgres.NewCredentialRepository(dbPool)
	}

	photos, err := blob.New(ctx, blob.Config{
		Driver:             cfg.Storage.Driver,
		BasePath:           cfg.Storage.PhotoPath,
		URLPrefix:          "/photos",
		AWSAccessKeyID:     cfg.Storage.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.Storage.AWSSecretAccessKey,
		AWSRegion:          cfg.Storage.AWSRegion,
		AWSBucket:          cfg.Storage.AWSBucket,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize photo storage")
	}

	// Initialize identity
	provider := identity.NewProvider(credentials, cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	if cfg.JWT.Secret == "your-super-secret-key-change-in-production" {
		log.Warn().Msg("JWT secret is the default value, set JWT_SECRET in production")
	}

	// Create default admin user if not exists
	createDefaultAdmin(ctx, provider, store, cfg.Admin)

	// Initialize services
	registry := application.NewSessionRegistry(ctx, store, provider, provider, func() application.IdentityClient {
		return provider.NewClient()
	})
	defer registry.Close()
	go registry.Run(ctx, sessionSweepInterval)

	directory, err := application.NewDirectory(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start directory")
	}
	defer directory.Close()

	logbook, err := application.NewLogbookService(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start logbook")
	}
	defer logbook.Close()

	concierge, err := application.NewConciergeService(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start concierge")
	}
	defer concierge.Close()

	lostFound, err := application.NewLostFoundService(ctx, store, photos)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start lost and found")
	}
	defer lostFound.Close()

	// Initialize handlers
	validate := validator.New()
	h := http.Handlers{
		Auth:      handlers.NewAuthHandler(registry, validate),
		Users:     handlers.NewUserHandler(directory, validate),
		Settings:  handlers.NewSettingsHandler(),
		Logbook:   handlers.NewLogbookHandler(logbook, validate),
		Concierge: handlers.NewConciergeHandler(concierge, validate),
		LostFound: handlers.NewLostFoundHandler(lostFound, validate),
		System:    handlers.NewSystemHandler(registry, cfg.Store.Driver),
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(registry)

	photoPath := ""
	if local, ok := photos.(*blob.LocalStorage); ok {
		photoPath = local.BasePath()
		if err := os.MkdirAll(photoPath, 0755); err != nil {
			log.Fatal().Err(err).Str("path", photoPath).Msg("Failed to create photo directory")
		}
	}

	router := http.NewRouter(h, authMiddleware, photoPath, &cfg.Server)
	router.SetupRoutes()

	// Start server in goroutine
	serverAddr := cfg.Server.Addr()
	go func() {
		log.Info().Str("address", serverAddr).Msg("Starting HTTP server")
		if err := router.Start(serverAddr); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if err := router.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	log.Info().Msg("Server stopped")
}

func connectDB(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return pool, nil
}

func runMigrations(dbPool *pgxpool.Pool, log *zerolog.Logger) {
	log.Info().Msg("Running database migrations...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	log.Info().Msg("Database migrations completed successfully")
}

// createDefaultAdmin makes sure the configured administrator can sign in
// and holds the admin role
func createDefaultAdmin(ctx context.Context, provider *identity.Provider, store domain.DocumentStore, cfg config.AdminConfig) {
	log := logger.Get()

	if cfg.Password == "" {
		log.Info().Msg("Default admin seeding skipped (admin.password not set)")
		return
	}

	account, err := provider.CreateAccount(ctx, cfg.Email, cfg.Password)
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyInUse):
		session, authErr := provider.Authenticate(ctx, cfg.Email, cfg.Password)
		if authErr != nil {
			// User exists with another password
			log.Debug().Err(authErr).Msg("Default admin user creation skipped (already exists)")
			return
		}
		account = session.Account
	case err != nil:
		log.Error().Err(err).Msg("Failed to create default admin user")
		return
	default:
		if err := provider.SetDisplayName(ctx, account.UID, cfg.DisplayName); err != nil {
			log.Warn().Err(err).Msg("Failed to set default admin display name")
		}
		account.DisplayName = cfg.DisplayName
		log.Info().Str("email", account.Email).Msg("Created default admin user")
	}

	path := domain.PrincipalPath(account.UID)
	snap, err := store.Get(ctx, path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read default admin principal")
		return
	}

	if p, ok := domain.PrincipalFromSnapshot(snap); ok && p.IsAdmin() {
		return
	}

	var doc domain.Document
	if snap.Exists {
		doc = domain.Document{
			"role":        string(domain.RoleAdmin),
			"permissions": domain.Document(domain.DefaultPermissions(domain.RoleAdmin).Map()),
		}
	} else {
		doc = domain.NewPrincipal(account, domain.RoleAdmin).Document()
	}

	if err := store.MergeWrite(ctx, path, doc); err != nil {
		log.Error().Err(err).Msg("Failed to promote default admin")
		return
	}

	log.Info().Str("uid", account.UID).Msg("Default admin promoted")
}
