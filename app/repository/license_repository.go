package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
)

// licenseRepository implements the LicenseRepository interface
type licenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository creates a new license repository instance
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

// Create inserts a new license row
func (r *licenseRepository) Create(license *models.License) error {
	return r.db.Create(license).Error
}

// GetByKey retrieves a license by its key
func (r *licenseRepository) GetByKey(key string) (*models.License, error) {
	var license models.License
	err := r.db.Where("license_key = ?", key).First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// GetByEmail retrieves the license registered for an email address
func (r *licenseRepository) GetByEmail(email string) (*models.License, error) {
	var license models.License
	err := r.db.Where("email = ?", email).First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// ExistsByEmail reports whether any license exists for the email address
func (r *licenseRepository) ExistsByEmail(email string) (bool, error) {
	_, err := r.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Update persists changes to an existing license
func (r *licenseRepository) Update(license *models.License) error {
	return r.db.Save(license).Error
}

// List returns licenses ordered newest first
func (r *licenseRepository) List(offset, limit int) ([]models.License, error) {
	var licenses []models.License
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&licenses).Error
	return licenses, err
}

// Count returns the total number of licenses
func (r *licenseRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.License{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of licenses in the given status
func (r *licenseRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.License{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
