package repository

import (
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts a new order row
func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID retrieves an order by its ID
func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByOrderNumber retrieves an order by its human-shareable number
func (r *orderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByPaymentRef retrieves an order by its payment provider reference
func (r *orderRepository) GetByPaymentRef(paymentRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("payment_ref = ?", paymentRef).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Update persists changes to an existing order
func (r *orderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// List returns orders ordered newest first
func (r *orderRepository) List(offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, err
}

// ListByStatus returns orders in the given order status, newest first
func (r *orderRepository) ListByStatus(orderStatus string, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("order_status = ?", orderStatus).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, err
}

// Count returns the total number of orders
func (r *orderRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of orders in the given order status
func (r *orderRepository) CountByStatus(orderStatus string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Where("order_status = ?", orderStatus).Count(&count).Error
	return count, err
}

// SumCompletedAmount sums the amounts of completed orders in a currency.
func (r *orderRepository) SumCompletedAmount(currency string) (int64, error) {
	var total int64
	err := r.db.Model(&models.Order{}).
		Where("order_status = ? AND currency = ?", models.OrderStatusCompleted, currency).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
