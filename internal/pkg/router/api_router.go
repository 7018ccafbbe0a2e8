package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/smartapplypro/backend/app/controllers"
	"github.com/smartapplypro/backend/internal/pkg/auth"
	"github.com/smartapplypro/backend/internal/pkg/cache"
	"github.com/smartapplypro/backend/internal/pkg/env"
	"github.com/smartapplypro/backend/internal/pkg/middleware"
)

type ApiRouter struct {
	issuer *auth.TokenIssuer
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// NewApiRouterWithIssuer injects the token issuer used for admin routes.
func NewApiRouterWithIssuer(issuer *auth.TokenIssuer) *ApiRouter {
	return &ApiRouter{issuer: issuer}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api",
		cors.New(cors.Config{
			AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Content-Type, Authorization",
		}),
		limiter.New(limiterConfig()),
	)

	api.Get("/health", controllers.HandleHealth)

	license := api.Group("/license")
	license.Post("/verify", controllers.HandleLicenseVerify)
	license.Get("/:key", controllers.HandleGetLicense)
	license.Get("/:key/verifications", controllers.HandleLicenseVerifications)

	payment := api.Group("/payment")
	payment.Post("/create-intent", controllers.HandleCreatePaymentIntent)
	payment.Post("/confirm-intent", controllers.HandleConfirmPaymentIntent)
	payment.Post("/bkash-order", controllers.HandleBkashOrder)
	payment.Post("/nagad-order", controllers.HandleNagadOrder)
	payment.Post("/trial-signup", controllers.HandleTrialSignup)
	payment.Get("/order-status/:orderNumber", controllers.HandleOrderStatus)
	payment.Get("/status/:paymentRef", controllers.HandlePaymentStatus)

	api.Post("/analysis/cover-letter", controllers.HandleCoverLetterAnalysis)
	api.Post("/contact", controllers.HandleContact)

	admin := api.Group("/admin")
	admin.Post("/login", controllers.HandleAdminLogin)

	authed := admin.Group("", middleware.AdminAuthMiddleware(h.issuer))
	authed.Get("/dashboard", controllers.HandleAdminDashboard)
	authed.Get("/users", controllers.HandleAdminListUsers)
	authed.Get("/orders", controllers.HandleAdminListOrders)
	// Issuing or rejecting licenses needs the full admin role; staff tokens
	// are read-only.
	authed.Post("/orders/:id/approve", middleware.RequireAdminRole, controllers.HandleAdminApproveOrder)
	authed.Post("/orders/:id/reject", middleware.RequireAdminRole, controllers.HandleAdminRejectOrder)
}

// limiterConfig builds the /api rate limiter. When the Redis cache is
// reachable the counters live there so limits hold across instances;
// otherwise the limiter falls back to its in-memory store.
func limiterConfig() limiter.Config {
	cfg := limiter.Config{
		Max:        env.GetEnvInt("RATE_LIMIT_MAX", 60),
		Expiration: time.Duration(env.GetEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	}

	if env.GetEnv("RATE_LIMIT_REDIS", "false") == "true" {
		host := "localhost"
		port := 6379
		password := env.GetEnv("CACHE_PASSWORD", "")
		if client := cache.GetClient(); client != nil {
			if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
				host = h
				if v, err := strconv.Atoi(p); err == nil {
					port = v
				}
			}
			if p := client.Options().Password; p != "" {
				password = p
			}
		}
		cfg.Storage = redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Password: password,
			Database: 1, // cache uses DB 0
			Reset:    false,
		})
	}

	return cfg
}
