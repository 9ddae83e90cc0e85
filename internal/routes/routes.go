// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"redeem/internal/handlers"
	"redeem/internal/middleware"
	"redeem/internal/models"
	"redeem/internal/repositories"
	"redeem/internal/services/auth"
	"redeem/internal/services/redemption"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	userRepo := repositories.NewUserRepository(db)
	redemptionRepo := repositories.NewRedemptionRepository(db)

	authService := auth.NewService(userRepo)
	authHandler := handlers.NewAuthHandler(authService)

	redemptionService := redemption.NewService(redemptionRepo, repositories.CacheService)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService)

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/login", authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)
	api.Get("/health", handlers.HealthCheck)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the Redeem API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	authMiddleware := middleware.NewAuthMiddleware(authService)
	protected := api.Use(authMiddleware.Handler)

	protected.Post("/logout", authHandler.LogoutUser)

	redemptions := protected.Group("/redemptions", middleware.RequireMerchant)
	redemptions.Post("/verify",
		middleware.HasPermission(models.PermissionRedemptionVerify),
		redemptionHandler.Verify)
	redemptions.Post("/approve",
		middleware.HasPermission(models.PermissionRedemptionApprove),
		redemptionHandler.Approve)
}
