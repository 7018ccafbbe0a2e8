package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/internal/pkg/analysis"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
)

// HandleCoverLetterAnalysis scores a cover letter against a job posting.
// Requires an active license; quota is 10 requests per 5 minutes per license.
// POST /api/analysis/cover-letter
func HandleCoverLetterAnalysis(c *fiber.Ctx) error {
	var req analysis.Input
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}

	result, err := analysisService.Analyze(c.Context(), req, clientIP(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Analysis completed successfully",
		"data":    result,
	})
}
