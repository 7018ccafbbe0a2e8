package repository

import (
	"time"

	"github.com/smartapplypro/backend/app/models"
)

// LicenseRepository defines the interface for license-related database operations
type LicenseRepository interface {
	Create(license *models.License) error
	GetByKey(key string) (*models.License, error)
	GetByEmail(email string) (*models.License, error)
	ExistsByEmail(email string) (bool, error)
	Update(license *models.License) error
	List(offset, limit int) ([]models.License, error)
	Count() (int64, error)
	CountByStatus(status string) (int64, error)
}

// OrderRepository defines the interface for order-related database operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	GetByPaymentRef(paymentRef string) (*models.Order, error)
	Update(order *models.Order) error
	List(offset, limit int) ([]models.Order, error)
	ListByStatus(orderStatus string, offset, limit int) ([]models.Order, error)
	Count() (int64, error)
	CountByStatus(orderStatus string) (int64, error)
	SumCompletedAmount(currency string) (int64, error)
}

// VerificationRepository defines the interface for the append-only
// verification audit log.
type VerificationRepository interface {
	Append(entry *models.VerificationLog) error
	ListByKey(licenseKey string, limit int) ([]models.VerificationLog, error)
	Count() (int64, error)
	CountSince(since time.Time) (int64, error)
}

// AccountRepository defines the interface for trial companion accounts.
type AccountRepository interface {
	Create(account *models.Account) error
	GetByEmail(email string) (*models.Account, error)
	GetByUsername(username string) (*models.Account, error)
}

// AdminUserRepository defines the interface for console operator accounts.
type AdminUserRepository interface {
	Create(user *models.AdminUser) error
	GetByUsername(username string) (*models.AdminUser, error)
	Update(user *models.AdminUser) error
}

// UsageRepository defines the interface for metered API usage entries.
type UsageRepository interface {
	Append(entry *models.UsageLog) error
	CountByKeySince(licenseKey, endpoint string, since time.Time) (int64, error)
}
