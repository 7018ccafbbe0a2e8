package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/internal/pkg/analysis"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/auth"
	"github.com/smartapplypro/backend/internal/pkg/fulfillment"
	"github.com/smartapplypro/backend/internal/pkg/license"
	"github.com/smartapplypro/backend/internal/pkg/notification"
)

var (
	licenseService     *license.Service
	fulfillmentService *fulfillment.Service
	analysisService    *analysis.Service
	tokenIssuer        *auth.TokenIssuer
	notifier           notification.Notifier
)

// Deps are the services the HTTP layer dispatches into.
type Deps struct {
	License     *license.Service
	Fulfillment *fulfillment.Service
	Analysis    *analysis.Service
	TokenIssuer *auth.TokenIssuer
	Notifier    notification.Notifier
}

// Setup wires the controllers to their services. Must run before routes are
// registered.
func Setup(deps Deps) {
	licenseService = deps.License
	fulfillmentService = deps.Fulfillment
	analysisService = deps.Analysis
	tokenIssuer = deps.TokenIssuer
	notifier = deps.Notifier
}

// respondError maps a service error to the JSON error envelope. Store and
// upstream causes are logged server-side and never surfaced to clients.
func respondError(c *fiber.Ctx, err error) error {
	logServerError(c.Path(), err)
	return c.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": apperr.ClientMessage(err)})
}

// clientIP prefers the first X-Forwarded-For hop so audit entries survive a
// reverse proxy.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	return c.IP()
}

func logServerError(route string, err error) {
	if apperr.IsKind(err, apperr.KindStore) || apperr.IsKind(err, apperr.KindUpstream) {
		log.Printf("%s failed: %v", route, err)
	}
}
