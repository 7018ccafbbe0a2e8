package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/app/repository"
	"github.com/smartapplypro/backend/internal/pkg/auth"
	"github.com/smartapplypro/backend/internal/pkg/fulfillment"
	"github.com/smartapplypro/backend/internal/pkg/license"
	"github.com/smartapplypro/backend/internal/pkg/licensekey"
	"github.com/smartapplypro/backend/internal/pkg/middleware"
	"github.com/smartapplypro/backend/internal/pkg/statistics"
)

var keyCfg = licensekey.Config{Prefix: "SMARTAPPLY-PRO-", BodyLength: 20}

const seededKey = "SMARTAPPLY-PRO-ABCD-EFGH-JKLM-NPQR-STUV"

type stubProvider struct{}

func (stubProvider) CreateIntent(_ context.Context, _ int64, _, _ string, _ map[string]string) (*fulfillment.Intent, error) {
	return &fulfillment.Intent{ID: "pi_stub", ClientSecret: "pi_stub_secret"}, nil
}

func (stubProvider) VerifySucceeded(_ context.Context, _ string) error {
	return nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.License{}, &models.Order{}, &models.VerificationLog{},
		&models.Account{}, &models.AdminUser{}, &models.UsageLog{},
	))
	t.Cleanup(func() {
		for _, table := range []string{"usage_logs", "admin_users", "accounts", "verification_logs", "orders", "licenses"} {
			db.Exec("DELETE FROM " + table)
		}
	})

	repository.InitializeFactory(db)
	statistics.ResetCacheTimer()

	issuer := auth.NewTokenIssuer([]byte("test-secret"))
	Setup(Deps{
		License:     license.NewServiceFromDB(db, keyCfg),
		Fulfillment: fulfillment.NewServiceFromDB(db, stubProvider{}, nil, keyCfg),
		TokenIssuer: issuer,
	})

	admin := &models.AdminUser{Username: "ops", Role: models.AdminRoleAdmin}
	require.NoError(t, admin.SetPassword("hunter22"))
	require.NoError(t, db.Create(admin).Error)

	staff := &models.AdminUser{Username: "viewer", Role: models.AdminRoleStaff}
	require.NoError(t, staff.SetPassword("hunter22"))
	require.NoError(t, db.Create(staff).Error)

	require.NoError(t, db.Create(&models.License{
		LicenseKey:   seededKey,
		FullName:     "Jane Doe",
		Email:        "jane@example.com",
		PlanType:     models.PlanLifetime,
		Status:       models.LicenseStatusActive,
		PurchaseDate: time.Now().Add(-time.Hour),
	}).Error)

	app := fiber.New()
	app.Post("/api/license/verify", HandleLicenseVerify)
	app.Get("/api/license/:key", HandleGetLicense)
	app.Get("/api/license/:key/verifications", HandleLicenseVerifications)
	app.Post("/api/payment/trial-signup", HandleTrialSignup)
	app.Post("/api/admin/login", HandleAdminLogin)
	app.Get("/api/admin/dashboard", middleware.AdminAuthMiddleware(issuer), HandleAdminDashboard)
	app.Post("/api/admin/orders/:id/approve", middleware.AdminAuthMiddleware(issuer), middleware.RequireAdminRole, HandleAdminApproveOrder)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestLicenseVerifyEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/license/verify",
		map[string]string{"licenseKey": seededKey}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.NotNil(t, body["licenseInfo"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/license/verify",
		map[string]string{"licenseKey": "garbage"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "malformed keys are a negative result, not an error")
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Invalid license key format", body["message"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/license/verify",
		map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "License key is required", body["error"])
}

func TestGetLicenseEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/license/"+seededKey, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/license/SMARTAPPLY-PRO-2345-6789-ABCD-EFGH-JKLM", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "License not found", body["error"])
}

func TestTrialSignupEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/payment/trial-signup",
		map[string]string{"name": "New User", "email": "new.user@example.com"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["licenseKey"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/payment/trial-signup",
		map[string]string{"name": "New User", "email": "new.user@example.com"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminLoginAndDashboard(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/admin/login",
		map[string]string{"username": "ops", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", body["error"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/login",
		map[string]string{"username": "nobody", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", body["error"], "unknown user and wrong password look identical")

	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/login",
		map[string]string{"username": "ops", "password": "hunter22"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/admin/dashboard", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/admin/dashboard", nil,
		map[string]string{"Authorization": "Bearer invalid"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/admin/dashboard", nil,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	stats, _ := body["stats"].(map[string]interface{})
	require.NotNil(t, stats)
	assert.EqualValues(t, 1, stats["totalLicenses"])
}

func TestAdminApproveRequiresAdminRole(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/admin/login",
		map[string]string{"username": "viewer", "password": "hunter22"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	staffToken, _ := body["token"].(string)
	require.NotEmpty(t, staffToken)

	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/orders/1/approve", nil,
		map[string]string{"Authorization": "Bearer " + staffToken})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Insufficient permissions", body["error"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/login",
		map[string]string{"username": "ops", "password": "hunter22"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminToken, _ := body["token"].(string)

	// The admin token clears the role gate; the order simply does not exist.
	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/orders/1/approve", nil,
		map[string]string{"Authorization": "Bearer " + adminToken})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Order not found", body["error"])
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	app := fiber.New()
	app.Get("/ip", func(c *fiber.Ctx) error {
		return c.SendString(clientIP(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "203.0.113.9", string(raw))
}
