package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/internal/pkg/apperr"
)

type verifyLicenseRequest struct {
	LicenseKey string `json:"licenseKey"`
	Email      string `json:"email"`
}

// HandleLicenseVerify classifies a license key and records the attempt.
// POST /api/license/verify
func HandleLicenseVerify(c *fiber.Ctx) error {
	var req verifyLicenseRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}
	if req.LicenseKey == "" {
		return respondError(c, apperr.Validation("License key is required"))
	}

	result, err := licenseService.Verify(c.Context(), req.LicenseKey, clientIP(c), c.Get("User-Agent"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleGetLicense returns the sanitized license record for a key.
// GET /api/license/:key
func HandleGetLicense(c *fiber.Ctx) error {
	license, err := licenseService.GetLicense(c.Context(), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "license": license})
}

// HandleLicenseVerifications returns the newest audit entries for a key.
// GET /api/license/:key/verifications
func HandleLicenseVerifications(c *fiber.Ctx) error {
	entries, err := licenseService.History(c.Context(), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "verifications": entries})
}
