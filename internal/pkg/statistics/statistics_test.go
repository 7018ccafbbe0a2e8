package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/app/repository"
)

func testFactory(t *testing.T) (*repository.Factory, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.License{}, &models.Order{}, &models.VerificationLog{}))
	t.Cleanup(func() {
		for _, table := range []string{"verification_logs", "orders", "licenses"} {
			db.Exec("DELETE FROM " + table)
		}
		ResetCacheTimer()
	})
	ResetCacheTimer()
	return repository.NewFactory(db), db
}

func TestGetDashboardData(t *testing.T) {
	factory, db := testFactory(t)

	require.NoError(t, db.Create(&models.License{
		LicenseKey:   "SMARTAPPLY-PRO-STAT-AAAA-BBBB-CCCC-DDDD",
		FullName:     "Stat Customer",
		Email:        "stat@example.com",
		PlanType:     models.PlanLifetime,
		Status:       models.LicenseStatusActive,
		PurchaseDate: time.Now(),
	}).Error)
	require.NoError(t, db.Create(&models.Order{
		OrderNumber:   "ORDER-STATAAAA0001",
		CustomerName:  "Stat Customer",
		CustomerEmail: "stat@example.com",
		PlanType:      models.PlanLifetime,
		Amount:        29900,
		Currency:      "USD",
		PaymentMethod: models.PaymentMethodCard,
		OrderStatus:   models.OrderStatusCompleted,
		PaymentStatus: models.PaymentStatusSucceeded,
	}).Error)
	require.NoError(t, db.Create(&models.VerificationLog{
		LicenseKey: "SMARTAPPLY-PRO-STAT-AAAA-BBBB-CCCC-DDDD",
		Status:     models.VerificationValid,
		IPAddress:  "203.0.113.9",
	}).Error)

	data, err := GetDashboardData(factory)
	require.NoError(t, err)
	assert.EqualValues(t, 1, data.TotalLicenses)
	assert.EqualValues(t, 1, data.ActiveLicenses)
	assert.EqualValues(t, 1, data.TotalOrders)
	assert.EqualValues(t, 0, data.PendingOrders)
	assert.EqualValues(t, 1, data.TotalVerifications)
	assert.EqualValues(t, 1, data.Verifications24h)
	assert.EqualValues(t, 29900, data.RevenueUSD)
	assert.EqualValues(t, 0, data.RevenueBDT)
}

func TestGetDashboardDataServesCachedCopy(t *testing.T) {
	factory, db := testFactory(t)

	first, err := GetDashboardData(factory)
	require.NoError(t, err)
	assert.EqualValues(t, 0, first.TotalLicenses)

	require.NoError(t, db.Create(&models.License{
		LicenseKey:   "SMARTAPPLY-PRO-STAT-EEEE-FFFF-GGGG-HHHH",
		FullName:     "Late Customer",
		Email:        "late@example.com",
		PlanType:     models.PlanLifetime,
		Status:       models.LicenseStatusActive,
		PurchaseDate: time.Now(),
	}).Error)

	second, err := GetDashboardData(factory)
	require.NoError(t, err)
	assert.EqualValues(t, 0, second.TotalLicenses, "within the cache interval the stale copy is served")

	ResetCacheTimer()
	third, err := GetDashboardData(factory)
	require.NoError(t, err)
	assert.EqualValues(t, 1, third.TotalLicenses)
}
