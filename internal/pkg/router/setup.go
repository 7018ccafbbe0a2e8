package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/internal/pkg/auth"
)

// Router installs a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, issuer *auth.TokenIssuer) {
	setup(app, NewApiRouterWithIssuer(issuer))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
