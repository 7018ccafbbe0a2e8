package models

import "time"

// UsageLog records one metered call to a licensed API endpoint. Best-effort:
// a failed insert never fails the request it belongs to.
type UsageLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LicenseKey string    `gorm:"type:varchar(100);index;not null" json:"licenseKey"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ipAddress"`
	Endpoint   string    `gorm:"type:varchar(100);index;not null" json:"endpoint"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
