package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
)

// usageRepository implements the UsageRepository interface
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage log repository instance
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// Append inserts one usage entry
func (r *usageRepository) Append(entry *models.UsageLog) error {
	return r.db.Create(entry).Error
}

// CountByKeySince returns how many calls a license made to an endpoint after
// the given time. Used for per-license rate insight.
func (r *usageRepository) CountByKeySince(licenseKey, endpoint string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.UsageLog{}).
		Where("license_key = ? AND endpoint = ? AND created_at > ?", licenseKey, endpoint, since).
		Count(&count).Error
	return count, err
}
