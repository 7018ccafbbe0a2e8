package license

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/licensekey"
)

// historyCap bounds the verification history returned to callers.
const historyCap = 50

// Info is the sanitized license view returned on successful verification.
// Payment identifiers are never included.
type Info struct {
	PlanType     string     `json:"planType"`
	Status       string     `json:"status"`
	PurchaseDate time.Time  `json:"purchaseDate"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	CustomerName string     `json:"customerName"`
}

// Result is the outcome of a license verification.
type Result struct {
	Valid      bool       `json:"valid"`
	Status     string     `json:"-"`
	Message    string     `json:"message"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Info       *Info      `json:"licenseInfo,omitempty"`
}

// Service answers license-key queries against the license store and keeps the
// append-only verification audit log.
type Service struct {
	repo   Repository
	keyCfg licensekey.Config
}

// NewService creates a verification service from an injected repository.
func NewService(repo Repository, keyCfg licensekey.Config) *Service {
	return &Service{repo: repo, keyCfg: keyCfg}
}

// NewServiceFromDB creates a verification service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, keyCfg licensekey.Config) *Service {
	return NewService(NewRepository(db), keyCfg)
}

// Verify classifies a license key as valid, invalid or expired and records
// the attempt. Malformed keys short-circuit to invalid without a store lookup
// and are not logged, keeping the audit log to real key lookups. Audit
// logging is best-effort: a failed log write never fails the verification.
func (s *Service) Verify(ctx context.Context, key, clientIP, userAgent string) (*Result, error) {
	_ = ctx
	if !licensekey.ValidateFormat(s.keyCfg, key) {
		return &Result{
			Valid:   false,
			Status:  models.VerificationInvalid,
			Message: "Invalid license key format",
		}, nil
	}

	license, err := s.repo.GetLicenseByKey(key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Store(err)
	}

	result := s.classify(license)
	s.logAttempt(key, clientIP, userAgent, result.Status)
	return result, nil
}

func (s *Service) classify(license *models.License) *Result {
	if license == nil {
		return &Result{
			Valid:   false,
			Status:  models.VerificationInvalid,
			Message: "Invalid license key",
		}
	}

	if license.Status != models.LicenseStatusActive {
		return &Result{
			Valid:   false,
			Status:  models.VerificationInvalid,
			Message: fmt.Sprintf("License is %s", license.Status),
		}
	}

	// Strict less-than: a license expiring exactly now is still valid.
	if license.IsExpired(time.Now()) {
		return &Result{
			Valid:      false,
			Status:     models.VerificationExpired,
			Message:    "License has expired",
			ExpiryDate: license.ExpiryDate,
		}
	}

	return &Result{
		Valid:   true,
		Status:  models.VerificationValid,
		Message: "License is valid",
		Info: &Info{
			PlanType:     license.PlanType,
			Status:       license.Status,
			PurchaseDate: license.PurchaseDate,
			ExpiryDate:   license.ExpiryDate,
			CustomerName: license.FullName,
		},
	}
}

func (s *Service) logAttempt(key, clientIP, userAgent, status string) {
	entry := &models.VerificationLog{
		LicenseKey: key,
		IPAddress:  clientIP,
		UserAgent:  userAgent,
		Status:     status,
	}
	if err := s.repo.AppendVerification(entry); err != nil {
		log.Printf("failed to record verification for %s: %v", key, err)
	}
}

// GetLicense returns the sanitized license record for a key.
func (s *Service) GetLicense(ctx context.Context, key string) (*models.License, error) {
	_ = ctx
	if !licensekey.ValidateFormat(s.keyCfg, key) {
		return nil, apperr.Validation("Invalid license key format")
	}

	license, err := s.repo.GetLicenseByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("License not found")
		}
		return nil, apperr.Store(err)
	}
	return license, nil
}

// History returns the newest verification entries for a key, capped at 50.
func (s *Service) History(ctx context.Context, key string) ([]models.VerificationLog, error) {
	_ = ctx
	if !licensekey.ValidateFormat(s.keyCfg, key) {
		return nil, apperr.Validation("Invalid license key format")
	}

	entries, err := s.repo.ListVerifications(key, historyCap)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return entries, nil
}

// CheckActive reports whether the key belongs to an active, unexpired
// license. Used to gate licensed API endpoints; does not touch the audit log.
func (s *Service) CheckActive(ctx context.Context, key string) (bool, error) {
	_ = ctx
	if !licensekey.ValidateFormat(s.keyCfg, key) {
		return false, nil
	}

	license, err := s.repo.GetLicenseByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperr.Store(err)
	}

	return license.Status == models.LicenseStatusActive && !license.IsExpired(time.Now()), nil
}
