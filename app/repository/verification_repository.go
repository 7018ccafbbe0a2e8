package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
)

// verificationRepository implements the VerificationRepository interface
type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification log repository instance
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

// Append inserts one audit entry. The log is append-only.
func (r *verificationRepository) Append(entry *models.VerificationLog) error {
	return r.db.Create(entry).Error
}

// ListByKey returns the newest entries for a license key, capped at limit.
func (r *verificationRepository) ListByKey(licenseKey string, limit int) ([]models.VerificationLog, error) {
	var entries []models.VerificationLog
	err := r.db.Where("license_key = ?", licenseKey).
		Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// Count returns the total number of verification entries
func (r *verificationRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.VerificationLog{}).Count(&count).Error
	return count, err
}

// CountSince returns the number of entries recorded after the given time
func (r *verificationRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.VerificationLog{}).Where("created_at > ?", since).Count(&count).Error
	return count, err
}
