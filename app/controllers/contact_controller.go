package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/env"
	"github.com/smartapplypro/backend/internal/pkg/notification"
)

type contactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=150"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// HandleContact forwards a contact form message to the support inbox.
// POST /api/contact
func HandleContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}

	v := validator.New()
	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return respondError(c, apperr.Validation("Field '%s' is invalid or missing", verrs[0].Field()))
		}
		return respondError(c, apperr.Validation("Invalid request data"))
	}

	supportEmail := env.GetEnv("SUPPORT_EMAIL", "support@smartapplypro.com")
	notification.Dispatch(notifier, notification.KindContactMessage, supportEmail, map[string]string{
		"name":    req.Name,
		"email":   req.Email,
		"subject": req.Subject,
		"message": req.Message,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Thank you for your message. We will get back to you soon.",
	})
}
