package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/fulfillment"
)

// HandleCreatePaymentIntent starts a card checkout for a plan.
// POST /api/payment/create-intent
func HandleCreatePaymentIntent(c *fiber.Ctx) error {
	var req fulfillment.CardIntentInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}

	result, err := fulfillmentService.CreateCardIntent(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"paymentIntentId": result.PaymentRef,
		"clientSecret":    result.ClientSecret,
		"orderNumber":     result.OrderNumber,
		"amount":          result.Amount,
		"currency":        result.Currency,
	})
}

type confirmIntentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// HandleConfirmPaymentIntent issues the license once the card payment
// succeeded. Safe to call more than once; repeats get a conflict.
// POST /api/payment/confirm-intent
func HandleConfirmPaymentIntent(c *fiber.Ctx) error {
	var req confirmIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}

	result, err := fulfillmentService.ConfirmCardPayment(c.Context(), req.PaymentIntentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     result.Message,
		"orderNumber": result.OrderNumber,
		"licenseKey":  result.LicenseKey,
	})
}

// HandleBkashOrder records a bKash order for manual review.
// POST /api/payment/bkash-order
func HandleBkashOrder(c *fiber.Ctx) error {
	return handleManualOrder(c, models.PaymentMethodBkash)
}

// HandleNagadOrder records a Nagad order for manual review.
// POST /api/payment/nagad-order
func HandleNagadOrder(c *fiber.Ctx) error {
	return handleManualOrder(c, models.PaymentMethodNagad)
}

func handleManualOrder(c *fiber.Ctx, rail string) error {
	var req fulfillment.ManualOrderInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}
	req.Rail = rail

	result, err := fulfillmentService.CreateManualOrder(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     result.Message,
		"orderNumber": result.OrderNumber,
		"licenseKey":  result.LicenseKey,
	})
}

// HandleTrialSignup creates a trial license with a companion login.
// POST /api/payment/trial-signup
func HandleTrialSignup(c *fiber.Ctx) error {
	var req fulfillment.TrialSignupInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}

	result, err := fulfillmentService.CreateTrialSignup(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     result.Message,
		"orderNumber": result.OrderNumber,
		"licenseKey":  result.LicenseKey,
		"username":    result.Username,
	})
}

// HandleOrderStatus returns the order lifecycle view by order number.
// GET /api/payment/order-status/:orderNumber
func HandleOrderStatus(c *fiber.Ctx) error {
	status, err := fulfillmentService.OrderStatus(c.Context(), c.Params("orderNumber"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "order": status})
}

// HandlePaymentStatus returns the order lifecycle view by provider reference.
// GET /api/payment/status/:paymentRef
func HandlePaymentStatus(c *fiber.Ctx) error {
	status, err := fulfillmentService.PaymentStatus(c.Context(), c.Params("paymentRef"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "order": status})
}
