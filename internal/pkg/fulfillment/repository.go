package fulfillment

import (
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
)

// Repository provides DB operations used by the fulfillment pipeline.
// Transaction runs fn against a transactional copy of the repository; any
// error rolls back every write made inside fn.
type Repository interface {
	CreateOrder(order *models.Order) error
	GetOrderByID(id uint) (*models.Order, error)
	GetOrderByNumber(orderNumber string) (*models.Order, error)
	GetOrderByPaymentRef(paymentRef string) (*models.Order, error)
	FinalizeOrder(order *models.Order) (bool, error)
	CreateLicense(license *models.License) error
	LicenseExistsForEmail(email string) (bool, error)
	CreateAccount(account *models.Account) error
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a fulfillment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateOrder(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *gormRepository) GetOrderByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) GetOrderByNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) GetOrderByPaymentRef(paymentRef string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("payment_ref = ?", paymentRef).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FinalizeOrder writes the order's terminal state with a guard on the row
// still being pending. Returns false when a concurrent writer finalized the
// order first, so callers can roll back and report a conflict.
func (r *gormRepository) FinalizeOrder(order *models.Order) (bool, error) {
	res := r.db.Model(&models.Order{}).
		Where("id = ? AND order_status = ?", order.ID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"payment_status": order.PaymentStatus,
			"order_status":   order.OrderStatus,
			"license_key":    order.LicenseKey,
			"reject_reason":  order.RejectReason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormRepository) CreateLicense(license *models.License) error {
	return r.db.Create(license).Error
}

func (r *gormRepository) LicenseExistsForEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.License{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) CreateAccount(account *models.Account) error {
	return r.db.Create(account).Error
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
