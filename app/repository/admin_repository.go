package repository

import (
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
)

// adminUserRepository implements the AdminUserRepository interface
type adminUserRepository struct {
	db *gorm.DB
}

// NewAdminUserRepository creates a new admin user repository instance
func NewAdminUserRepository(db *gorm.DB) AdminUserRepository {
	return &adminUserRepository{db: db}
}

// Create inserts a new admin user row
func (r *adminUserRepository) Create(user *models.AdminUser) error {
	return r.db.Create(user).Error
}

// GetByUsername retrieves an admin user by username
func (r *adminUserRepository) GetByUsername(username string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update persists changes to an existing admin user
func (r *adminUserRepository) Update(user *models.AdminUser) error {
	return r.db.Save(user).Error
}
