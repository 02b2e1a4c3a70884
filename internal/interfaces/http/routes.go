package http

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/interfaces/http/handlers"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/config"
)

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Settings  *handlers.SettingsHandler
	Logbook   *handlers.LogbookHandler
	Concierge *handlers.ConciergeHandler
	LostFound *handlers.LostFoundHandler
	System    *handlers.SystemHandler
}

// Router holds all handlers and middleware
type Router struct {
	app            *fiber.App
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
	photoPath      string
}

// NewRouter creates a new router. photoPath is served under /photos when
// photos are stored on the local disk; leave it empty otherwise.
func NewRouter(
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	photoPath string,
	serverConfig *config.ServerConfig,
) *Router {
	isProd := os.Getenv("ENV") == "production" || os.Getenv("ENVIRONMENT") == "production"

	app := fiber.New(fiber.Config{
		ErrorHandler:    customErrorHandler,
		BodyLimit:       10 * 1024 * 1024, // 10MB for photo uploads
		ReadTimeout:     time.Duration(serverConfig.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(serverConfig.WriteTimeout) * time.Second,
		IdleTimeout:     time.Duration(serverConfig.IdleTimeout) * time.Second,
		ReadBufferSize:  8192,
		WriteBufferSize: 4096,
		ServerHeader:    "Backoffice",
		AppName:         "Hotel Backoffice API",
	})

	// Global middleware - order matters!
	app.Use(recover.New())

	// Event streams must not be buffered by the compressor
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/stream")
		},
	}))

	if !isProd {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format:     "${status} ${method} ${path} ${latency}\n",
			TimeFormat: "15:04:05",
			Output:     os.Stdout,
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: false,
		MaxAge:           86400, // Cache preflight requests for 24 hours
	}))

	return &Router{
		app:            app,
		handlers:       h,
		authMiddleware: authMiddleware,
		photoPath:      photoPath,
	}
}

// SetupRoutes configures all routes
func (r *Router) SetupRoutes() {
	h := r.handlers
	auth := r.authMiddleware

	if r.photoPath != "" {
		r.app.Static("/photos", r.photoPath)
	}

	api := r.app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	})

	// Auth routes (public)
	public := api.Group("/auth")
	public.Post("/login", h.Auth.Login)
	public.Post("/signup", h.Auth.Signup)

	// Protected routes
	protected := api.Group("")
	protected.Use(auth.Authenticate())

	protected.Post("/auth/logout", h.Auth.Logout)
	protected.Get("/auth/me", h.Auth.Me)
	protected.Put("/auth/profile", h.Auth.UpdateProfile)

	// Own settings
	settings := protected.Group("/settings")
	settings.Get("/", h.Settings.Get)
	settings.Put("/", h.Settings.Update)
	settings.Get("/stream", h.Settings.Stream)

	// Roster for author selection (all authenticated users)
	protected.Get("/directory", h.Users.Roster)
	protected.Get("/directory/stream", h.Users.Stream)

	// Admin-side account creation is unsupported for every caller
	protected.Post("/users", h.Users.Register)

	// User management (Admin only)
	users := protected.Group("/users", auth.RequireRole(domain.RoleAdmin))
	users.Get("/", h.Users.List)
	users.Get("/:uid", h.Users.Get)
	users.Put("/:uid", h.Users.Update)
	users.Put("/:uid/permissions", h.Users.UpdatePermissions)
	users.Delete("/:uid", h.Users.Delete)

	// Logbook
	logbook := protected.Group("/logbook")
	logbook.Get("/", h.Logbook.List)
	logbook.Get("/stream", h.Logbook.Stream)
	logbook.Post("/", h.Logbook.Post)
	logbook.Post("/:id/archive", h.Logbook.Archive)
	logbook.Post("/:id/unarchive", h.Logbook.Unarchive)
	logbook.Post("/:id/read", h.Logbook.MarkRead)

	// Reception desk
	reception := auth.RequireCapability(domain.CanViewReception)

	wakeUps := protected.Group("/wakeups", reception)
	wakeUps.Get("/", h.Concierge.ListWakeUps)
	wakeUps.Get("/stream", h.Concierge.StreamWakeUps)
	wakeUps.Post("/", h.Concierge.ScheduleWakeUp)
	wakeUps.Put("/:id/done", h.Concierge.SetWakeUpDone)
	wakeUps.Delete("/:id", h.Concierge.CancelWakeUp)

	taxis := protected.Group("/taxis", reception)
	taxis.Get("/", h.Concierge.ListTaxis)
	taxis.Get("/stream", h.Concierge.StreamTaxis)
	taxis.Post("/", h.Concierge.BookTaxi)
	taxis.Put("/:id/status", h.Concierge.SetTaxiStatus)
	taxis.Delete("/:id", h.Concierge.CancelTaxi)

	lostFound := protected.Group("/lostfound", reception)
	lostFound.Get("/", h.LostFound.List)
	lostFound.Get("/stream", h.LostFound.Stream)
	lostFound.Post("/", h.LostFound.Register)
	lostFound.Put("/:id/returned", h.LostFound.MarkReturned)
	lostFound.Post("/:id/photo", h.LostFound.UploadPhoto)

	// System info (Admin only)
	protected.Get("/system/info", auth.RequireRole(domain.RoleAdmin), h.System.GetSystemInfo)
}

// App exposes the fiber application
func (r *Router) App() *fiber.App {
	return r.app
}

// Start starts the HTTP server
func (r *Router) Start(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
