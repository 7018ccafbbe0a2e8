package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/internal/pkg/database"
)

// HandleHealth reports service liveness and database reachability.
// GET /api/health
func HandleHealth(c *fiber.Ctx) error {
	dbStatus := "ok"
	db := database.GetDB()
	if db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "ok"
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   overall,
		"database": dbStatus,
	})
}
