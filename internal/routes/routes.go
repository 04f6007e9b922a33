package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/config"
	"github.com/example/docstore/internal/handlers"
	"github.com/example/docstore/internal/middleware"
	"github.com/example/docstore/internal/services"
	"github.com/example/docstore/internal/store"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) error {
	catalog, err := services.LoadCatalog(cfg.DocumentsFile)
	if err != nil {
		return err
	}

	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	mpesaClient := services.NewMpesaClient(services.MpesaConfig{
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaSecret,
		ShortCode:      cfg.MpesaShortCode,
		Passkey:        cfg.MpesaPasskey,
		CallbackURL:    cfg.MpesaCallbackURL,
		Environment:    cfg.MpesaEnv,
		BaseURL:        cfg.MpesaBaseURL,
	})

	accounts := store.NewAccountStore(db)
	paymentService := services.NewPaymentService(db, mpesaClient, telegramService, cfg.TokenPrice, cfg.MpesaMaxAmount)
	entitlementService := services.NewEntitlementService(db, catalog, cfg.JWTSecret, cfg.DownloadExpires, cfg.BaseURL)

	authHandler := handlers.NewAuthHandler(accounts, cfg)
	profileHandler := handlers.NewProfileHandler(accounts)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	mpesaHandler := handlers.NewMpesaHandler(paymentService)
	documentHandler := handlers.NewDocumentHandler(entitlementService)
	analyticsHandler := handlers.NewAnalyticsHandler(db, paymentService)

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Download links are authorized by their own token.
	app.Get("/download/:token", documentHandler.Redeem)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	api.Get("/documents", documentHandler.List)
	api.Post("/mpesa/callback", middleware.MpesaCallbackGuard(cfg.MpesaAllowedIPs), mpesaHandler.Callback)

	// Protected routes
	requireAuth := middleware.AuthMiddleware(cfg.JWTSecret)

	api.Get("/user/profile", requireAuth, profileHandler.GetProfile)
	api.Get("/user/downloads", requireAuth, documentHandler.History)

	api.Post("/tokens/purchase", requireAuth, paymentHandler.Purchase)
	api.Get("/payment/status/:paymentId", requireAuth, paymentHandler.Status)
	api.Get("/payments", requireAuth, paymentHandler.History)

	api.Post("/document/download", requireAuth, documentHandler.RequestDownload)

	analytics := api.Group("/analytics", requireAuth)
	analytics.Get("/sales", analyticsHandler.Sales)
	analytics.Get("/summary", analyticsHandler.Summary)

	return nil
}
