package routes

import (
	"diglab-api/internal/adapters/http/handlers"
	"diglab-api/internal/adapters/http/middleware"
	"diglab-api/internal/adapters/persistence/repositories"
	"diglab-api/internal/adapters/storage"
	"diglab-api/internal/config"
	"diglab-api/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) error {
	// Initialize repositories
	personRepo := repositories.NewPersonRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)

	// Document store and collaborator client
	store, err := storage.NewDocumentStore(cfg.Storage.FormsDir, cfg.Storage.FormResultsDir)
	if err != nil {
		return err
	}
	docs := services.NewPyService(services.PyConfig{
		BaseURL: cfg.PyService.BaseURL,
		Timeout: cfg.PyService.Timeout(),
	})

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	personService := services.NewPersonService(personRepo)
	orderService := services.NewOrderService(orderRepo, personRepo, store, docs)
	scanService := services.NewScanService(orderRepo, store, docs)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	personHandler := handlers.NewPersonHandler(personService)
	orderHandler := handlers.NewOrderHandler(orderService)
	scanHandler := handlers.NewScanHandler(scanService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	requireAuth := middleware.AuthMiddleware(cfg)
	adminOnly := middleware.AdminOnly()

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/logout-all", requireAuth, authHandler.LogoutAll)
	auth.Get("/me", requireAuth, authHandler.Me)

	// Person registry routes; registry writes are admin work
	persons := api.Group("/persons", requireAuth)
	persons.Post("/", adminOnly, personHandler.Create)
	persons.Get("/", personHandler.Search)
	persons.Get("/by-pnr/:pnr", personHandler.Get)
	persons.Patch("/:pnr/contact", adminOnly, personHandler.UpdateContact)

	// Order routes; the PDF endpoint stays public so the QR code on a
	// printed form resolves without a session
	orders := api.Group("/orders")
	orders.Get("/:lab/pdf", middleware.NoCacheHeaders(), orderHandler.Document)
	orders.Post("/", requireAuth, orderHandler.Create)
	orders.Get("/", requireAuth, orderHandler.List)
	orders.Get("/:lab", requireAuth, orderHandler.Get)
	orders.Post("/:lab/finalize", requireAuth, orderHandler.Finalize)

	// Scan intake
	app.Post("/scan/analyze", requireAuth, scanHandler.Analyze)

	// Staff account routes
	users := api.Group("/users")
	users.Post("/", requireAuth, adminOnly, userHandler.Create)
	users.Get("/", requireAuth, adminOnly, userHandler.List)
	users.Put("/me/password", requireAuth, middleware.StrictRateLimiter(), userHandler.ChangePassword)
	users.Put("/:id/password", requireAuth, adminOnly, middleware.StrictRateLimiter(), userHandler.ResetPassword)

	return nil
}
