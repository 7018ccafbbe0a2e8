package license

import (
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
)

// Repository provides DB operations used by the verification service.
type Repository interface {
	GetLicenseByKey(key string) (*models.License, error)
	AppendVerification(entry *models.VerificationLog) error
	ListVerifications(licenseKey string, limit int) ([]models.VerificationLog, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a verification repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetLicenseByKey(key string) (*models.License, error) {
	var license models.License
	err := r.db.Where("license_key = ?", key).First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *gormRepository) AppendVerification(entry *models.VerificationLog) error {
	return r.db.Create(entry).Error
}

func (r *gormRepository) ListVerifications(licenseKey string, limit int) ([]models.VerificationLog, error) {
	var entries []models.VerificationLog
	err := r.db.Where("license_key = ?", licenseKey).
		Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
