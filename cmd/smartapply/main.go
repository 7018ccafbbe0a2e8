package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/smartapplypro/backend/app/controllers"
	"github.com/smartapplypro/backend/app/repository"
	"github.com/smartapplypro/backend/internal/pkg/analysis"
	"github.com/smartapplypro/backend/internal/pkg/auth"
	"github.com/smartapplypro/backend/internal/pkg/cache"
	"github.com/smartapplypro/backend/internal/pkg/database"
	"github.com/smartapplypro/backend/internal/pkg/env"
	"github.com/smartapplypro/backend/internal/pkg/fulfillment"
	"github.com/smartapplypro/backend/internal/pkg/license"
	"github.com/smartapplypro/backend/internal/pkg/licensekey"
	"github.com/smartapplypro/backend/internal/pkg/notification"
	"github.com/smartapplypro/backend/internal/pkg/payment"
	"github.com/smartapplypro/backend/internal/pkg/reminder"
	"github.com/smartapplypro/backend/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	keyCfg := licensekey.ConfigFromEnv()

	provider, err := payment.NewStripeProvider()
	if err != nil {
		log.Fatalf("stripe setup failed: %v", err)
	}

	issuer, err := auth.NewTokenIssuerFromEnv()
	if err != nil {
		log.Fatalf("auth setup failed: %v", err)
	}

	notifier := notification.NewMailNotifierFromEnv()
	licenseService := license.NewServiceFromDB(db, keyCfg)

	// renewal reminder sweep
	reminder.GetManager(notifier).Start()

	controllers.Setup(controllers.Deps{
		License:     licenseService,
		Fulfillment: fulfillment.NewServiceFromDB(db, provider, notifier, keyCfg),
		Analysis: analysis.NewService(
			analysis.NewGeminiClientFromEnv(),
			licenseService,
			analysis.NewRedisRateLimiter(),
			analysis.NewRepository(db),
		),
		TokenIssuer: issuer,
		Notifier:    notifier,
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "SmartApply Pro Backend",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, issuer)

	return app
}
