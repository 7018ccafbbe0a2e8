package controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/app/repository"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/statistics"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleAdminLogin checks operator credentials and returns a signed session
// token. Unknown user and wrong password are indistinguishable to callers.
// POST /api/admin/login
func HandleAdminLogin(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}
	if req.Username == "" || req.Password == "" {
		return respondError(c, apperr.Validation("Username and password are required"))
	}

	repo := repository.GetGlobalFactory().GetAdminUserRepository()
	admin, err := repo.GetByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.Unauthorized("Invalid credentials"))
		}
		return respondError(c, apperr.Store(err))
	}
	if !admin.CheckPassword(req.Password) {
		return respondError(c, apperr.Unauthorized("Invalid credentials"))
	}

	token, err := tokenIssuer.Issue(admin)
	if err != nil {
		return respondError(c, apperr.Store(err))
	}

	now := time.Now()
	admin.LastLoginAt = &now
	if err := repo.Update(admin); err != nil {
		log.Printf("failed to update last login for %s: %v", admin.Username, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"admin": fiber.Map{
			"username": admin.Username,
			"role":     admin.Role,
		},
	})
}

// HandleAdminDashboard returns aggregate license, order and verification
// counts plus completed card revenue. Numbers are cached for a few minutes.
// GET /api/admin/dashboard
func HandleAdminDashboard(c *fiber.Ctx) error {
	data, err := statistics.GetDashboardData(repository.GetGlobalFactory())
	if err != nil {
		return respondError(c, apperr.Store(err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats": fiber.Map{
			"totalLicenses":      data.TotalLicenses,
			"activeLicenses":     data.ActiveLicenses,
			"totalOrders":        data.TotalOrders,
			"pendingOrders":      data.PendingOrders,
			"totalVerifications": data.TotalVerifications,
			"verifications24h":   data.Verifications24h,
			"revenue": fiber.Map{
				"usd": data.RevenueUSD,
				"bdt": data.RevenueBDT,
			},
		},
	})
}

// HandleAdminListUsers lists licenses (customers) with offset pagination.
// GET /api/admin/users?offset=0&limit=25
func HandleAdminListUsers(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	repo := repository.GetGlobalFactory().GetLicenseRepository()
	licenses, err := repo.List(offset, limit)
	if err != nil {
		return respondError(c, apperr.Store(err))
	}
	total, err := repo.Count()
	if err != nil {
		return respondError(c, apperr.Store(err))
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"licenses": licenses,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

// HandleAdminListOrders lists orders, optionally filtered by status.
// GET /api/admin/orders?status=pending&offset=0&limit=25
func HandleAdminListOrders(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	status := c.Query("status")

	repo := repository.GetGlobalFactory().GetOrderRepository()

	var (
		orders []models.Order
		err    error
	)
	if status != "" {
		orders, err = repo.ListByStatus(status, offset, limit)
	} else {
		orders, err = repo.List(offset, limit)
	}
	if err != nil {
		return respondError(c, apperr.Store(err))
	}
	total, err := repo.Count()
	if err != nil {
		return respondError(c, apperr.Store(err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"orders":  orders,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

// HandleAdminApproveOrder approves a reviewed manual order and issues its
// license.
// POST /api/admin/orders/:id/approve
func HandleAdminApproveOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return respondError(c, apperr.Validation("Invalid order ID"))
	}

	result, err := fulfillmentService.ApproveOrder(c.Context(), uint(id))
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

type rejectOrderRequest struct {
	Reason string `json:"reason"`
}

// HandleAdminRejectOrder rejects a pending manual order.
// POST /api/admin/orders/:id/reject
func HandleAdminRejectOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return respondError(c, apperr.Validation("Invalid order ID"))
	}

	var req rejectOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("Invalid request data"))
	}

	result, err := fulfillmentService.RejectOrder(c.Context(), uint(id), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     result.Message,
		"orderNumber": result.OrderNumber,
	})
}

func pagination(c *fiber.Ctx) (int, int) {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}
