package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/example/docstore/internal/config"
	"github.com/example/docstore/internal/database"
	"github.com/example/docstore/internal/handlers"
	"github.com/example/docstore/internal/routes"
)

func main() {
	cfg := config.Load()
	if err := run(cfg, database.Connect); err != nil {
		log.Fatal(err)
	}
}

// run owns the database handle for the life of the server, so every exit
// path, including a failed route setup, closes it.
func run(cfg *config.Config, connect func(dsn string) (*gorm.DB, error)) error {
	db, err := connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("database close: %v", err)
		}
	}()

	app, err := newApp(db, cfg)
	if err != nil {
		return err
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server")
		if err := app.Shutdown(); err != nil {
			log.Printf("fiber.Shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on :%s (M-Pesa environment: %s)", cfg.AppPort, cfg.MpesaEnv)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		return fmt.Errorf("fiber.Listen: %w", err)
	}
	return nil
}

func newApp(db *gorm.DB, cfg *config.Config) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:      "Document Store",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	if err := routes.Register(app, db, cfg); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}
	return app, nil
}
