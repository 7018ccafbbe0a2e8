package statistics

import (
	"sync"
	"time"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/app/repository"
)

const cacheInterval = 5 * time.Minute

// Data holds the aggregate numbers shown on the admin dashboard.
type Data struct {
	TotalLicenses      int64
	ActiveLicenses     int64
	TotalOrders        int64
	PendingOrders      int64
	TotalVerifications int64
	Verifications24h   int64
	RevenueUSD         int64
	RevenueBDT         int64
}

var (
	cacheMutex sync.Mutex
	cached     *Data
	lastUpdate time.Time
)

// GetDashboardData returns the dashboard aggregates, recomputing them at most
// once per cache interval. Store failures surface to the caller rather than
// degrading to zeroed numbers.
func GetDashboardData(factory *repository.Factory) (*Data, error) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if cached != nil && time.Since(lastUpdate) < cacheInterval {
		return cached, nil
	}

	data, err := collect(factory)
	if err != nil {
		return nil, err
	}

	cached = data
	lastUpdate = time.Now()
	return data, nil
}

// ResetCacheTimer forces the next GetDashboardData call to recompute.
func ResetCacheTimer() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	cached = nil
	lastUpdate = time.Time{}
}

func collect(factory *repository.Factory) (*Data, error) {
	licenses := factory.GetLicenseRepository()
	orders := factory.GetOrderRepository()
	verifications := factory.GetVerificationRepository()

	data := &Data{}
	var err error

	if data.TotalLicenses, err = licenses.Count(); err != nil {
		return nil, err
	}
	if data.ActiveLicenses, err = licenses.CountByStatus(models.LicenseStatusActive); err != nil {
		return nil, err
	}
	if data.TotalOrders, err = orders.Count(); err != nil {
		return nil, err
	}
	if data.PendingOrders, err = orders.CountByStatus(models.OrderStatusPending); err != nil {
		return nil, err
	}
	if data.TotalVerifications, err = verifications.Count(); err != nil {
		return nil, err
	}
	if data.Verifications24h, err = verifications.CountSince(time.Now().Add(-24 * time.Hour)); err != nil {
		return nil, err
	}
	if data.RevenueUSD, err = orders.SumCompletedAmount("USD"); err != nil {
		return nil, err
	}
	if data.RevenueBDT, err = orders.SumCompletedAmount("BDT"); err != nil {
		return nil, err
	}

	return data, nil
}
