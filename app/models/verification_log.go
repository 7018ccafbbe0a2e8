package models

import "time"

const (
	VerificationValid   = "valid"
	VerificationInvalid = "invalid"
	VerificationExpired = "expired"
)

// VerificationLog is an append-only audit entry for a license key check.
// Entries are never mutated or deleted.
type VerificationLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LicenseKey string    `gorm:"type:varchar(100);index;not null" json:"licenseKey"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ipAddress"`
	UserAgent  string    `gorm:"type:varchar(255)" json:"-"`
	Status     string    `gorm:"type:varchar(10);not null" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"verificationDate"`
}
