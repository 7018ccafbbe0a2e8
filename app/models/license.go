package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PlanTrial    = "trial"
	PlanMonthly  = "monthly"
	PlanAnnual   = "annual"
	PlanLifetime = "lifetime"
)

const (
	LicenseStatusActive    = "active"
	LicenseStatusSuspended = "suspended"
	LicenseStatusCancelled = "cancelled"
)

// Plan expiry offsets. Lifetime and trial licenses never expire.
const (
	MonthlyDuration = 30 * 24 * time.Hour
	AnnualDuration  = 365 * 24 * time.Hour
)

// License is the entitlement record unlocking product features. Rows are
// created at fulfillment time and never physically deleted; deactivation is
// a status change.
type License struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	LicenseKey   string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"licenseKey" validate:"required"`
	FullName     string     `gorm:"type:varchar(150);not null" json:"fullName" validate:"required,min=2,max=150"`
	Email        string     `gorm:"type:varchar(200);index;not null" json:"email" validate:"required,email"`
	PlanType     string     `gorm:"type:varchar(20);not null" json:"planType" validate:"oneof=trial monthly annual lifetime"`
	AmountPaid   int64      `gorm:"not null;default:0" json:"amountPaid"`
	Currency     string     `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status" validate:"oneof=active suspended cancelled"`
	PurchaseDate time.Time  `gorm:"not null" json:"purchaseDate"`
	ExpiryDate   *time.Time `gorm:"default:null" json:"expiryDate"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"-"`
}

func (l *License) Validate() error {
	v := validator.New()

	return v.Struct(l)
}

// ExpiryFor computes the expiry date for a plan purchased at the given time.
// Monthly and annual plans expire after a fixed offset; lifetime and trial
// plans return nil (never expire).
func ExpiryFor(planType string, purchasedAt time.Time) *time.Time {
	switch planType {
	case PlanMonthly:
		t := purchasedAt.Add(MonthlyDuration)
		return &t
	case PlanAnnual:
		t := purchasedAt.Add(AnnualDuration)
		return &t
	default:
		return nil
	}
}

// IsExpired reports whether the license expiry lies strictly before now.
// A license expiring exactly now is still valid.
func (l *License) IsExpired(now time.Time) bool {
	return l.ExpiryDate != nil && l.ExpiryDate.Before(now)
}

// IsValidPlan reports whether planType is one of the purchasable plans.
func IsValidPlan(planType string) bool {
	switch planType {
	case PlanTrial, PlanMonthly, PlanAnnual, PlanLifetime:
		return true
	default:
		return false
	}
}
