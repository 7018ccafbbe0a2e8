package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusRejected  = "rejected"
)

const (
	PaymentMethodCard  = "card"
	PaymentMethodBkash = "bkash"
	PaymentMethodNagad = "nagad"
	PaymentMethodTrial = "trial"
)

// Order records a purchase or signup attempt and its payment lifecycle. An
// order transitions exactly once from pending to a terminal state; completed
// orders always carry the issued license key.
type Order struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderNumber   string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"orderNumber" validate:"required"`
	CustomerName  string    `gorm:"type:varchar(150);not null" json:"customerName" validate:"required,min=2,max=150"`
	CustomerEmail string    `gorm:"type:varchar(200);index;not null" json:"customerEmail" validate:"required,email"`
	PlanType      string    `gorm:"type:varchar(20);not null" json:"planType" validate:"oneof=trial monthly annual lifetime"`
	Amount        int64     `gorm:"not null;default:0" json:"amount"`
	Currency      string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	PaymentStatus string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"paymentStatus" validate:"oneof=pending succeeded failed"`
	OrderStatus   string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"orderStatus" validate:"oneof=pending completed rejected"`
	PaymentMethod string    `gorm:"type:varchar(20);not null" json:"paymentMethod" validate:"oneof=card bkash nagad trial"`
	PaymentRef    string    `gorm:"type:varchar(100);index" json:"-"`
	MobileNumber  string    `gorm:"type:varchar(20)" json:"-"`
	TransactionID string    `gorm:"type:varchar(100)" json:"-"`
	LicenseKey    string    `gorm:"type:varchar(100);index" json:"licenseKey,omitempty"`
	RejectReason  string    `gorm:"type:varchar(255)" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (o *Order) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

// IsTerminal reports whether the order already reached a final state.
func (o *Order) IsTerminal() bool {
	return o.OrderStatus != OrderStatusPending
}
