package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/licensekey"
)

var testKeyCfg = licensekey.Config{Prefix: "SMARTAPPLY-PRO-", BodyLength: 20}

const testKey = "SMARTAPPLY-PRO-ABCD-EFGH-JKLM-NPQR-STUV"

type fakeRepo struct {
	licenses  map[string]*models.License
	log       []models.VerificationLog
	appendErr error
	lookupErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{licenses: make(map[string]*models.License)}
}

func (f *fakeRepo) GetLicenseByKey(key string) (*models.License, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	l, ok := f.licenses[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) AppendVerification(entry *models.VerificationLog) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.log = append(f.log, *entry)
	return nil
}

func (f *fakeRepo) ListVerifications(licenseKey string, limit int) ([]models.VerificationLog, error) {
	var out []models.VerificationLog
	for i := len(f.log) - 1; i >= 0 && len(out) < limit; i-- {
		if f.log[i].LicenseKey == licenseKey {
			out = append(out, f.log[i])
		}
	}
	return out, nil
}

func activeLicense(key string) *models.License {
	return &models.License{
		LicenseKey:   key,
		FullName:     "Jane Doe",
		Email:        "jane@example.com",
		PlanType:     models.PlanLifetime,
		Status:       models.LicenseStatusActive,
		PurchaseDate: time.Now().Add(-24 * time.Hour),
	}
}

func TestVerifyMalformedKeyIsNotLogged(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testKeyCfg)

	result, err := svc.Verify(context.Background(), "not-a-key", "1.2.3.4", "ua")
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Invalid license key format", result.Message)
	assert.Empty(t, repo.log, "malformed keys must not reach the audit log")
}

func TestVerifyUnknownKey(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testKeyCfg)

	result, err := svc.Verify(context.Background(), testKey, "1.2.3.4", "ua")
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Invalid license key", result.Message)

	if assert.Len(t, repo.log, 1) {
		assert.Equal(t, models.VerificationInvalid, repo.log[0].Status)
		assert.Equal(t, testKey, repo.log[0].LicenseKey)
		assert.Equal(t, "1.2.3.4", repo.log[0].IPAddress)
	}
}

func TestVerifyInactiveLicense(t *testing.T) {
	repo := newFakeRepo()
	l := activeLicense(testKey)
	l.Status = models.LicenseStatusSuspended
	repo.licenses[testKey] = l
	svc := NewService(repo, testKeyCfg)

	result, err := svc.Verify(context.Background(), testKey, "", "")
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "License is suspended", result.Message)
	if assert.Len(t, repo.log, 1) {
		assert.Equal(t, models.VerificationInvalid, repo.log[0].Status)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testKeyCfg)

	// Strictly in the past: expired.
	past := time.Now().Add(-time.Second)
	l := activeLicense(testKey)
	l.PlanType = models.PlanMonthly
	l.ExpiryDate = &past
	repo.licenses[testKey] = l

	result, err := svc.Verify(context.Background(), testKey, "", "")
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, models.VerificationExpired, result.Status)
	assert.Equal(t, "License has expired", result.Message)

	// Slightly in the future: still valid (strict less-than comparison).
	future := time.Now().Add(2 * time.Second)
	l.ExpiryDate = &future

	result, err = svc.Verify(context.Background(), testKey, "", "")
	assert.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Len(t, repo.log, 2)
}

func TestVerifyValidLicense(t *testing.T) {
	repo := newFakeRepo()
	repo.licenses[testKey] = activeLicense(testKey)
	svc := NewService(repo, testKeyCfg)

	result, err := svc.Verify(context.Background(), testKey, "5.6.7.8", "extension/1.0")
	assert.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "License is valid", result.Message)
	if assert.NotNil(t, result.Info) {
		assert.Equal(t, models.PlanLifetime, result.Info.PlanType)
		assert.Equal(t, "Jane Doe", result.Info.CustomerName)
		assert.Nil(t, result.Info.ExpiryDate)
	}
	if assert.Len(t, repo.log, 1) {
		assert.Equal(t, models.VerificationValid, repo.log[0].Status)
	}
}

func TestVerifyIsDeterministicButAlwaysLogs(t *testing.T) {
	repo := newFakeRepo()
	repo.licenses[testKey] = activeLicense(testKey)
	svc := NewService(repo, testKeyCfg)

	first, err := svc.Verify(context.Background(), testKey, "", "")
	assert.NoError(t, err)
	second, err := svc.Verify(context.Background(), testKey, "", "")
	assert.NoError(t, err)

	assert.Equal(t, first.Valid, second.Valid)
	assert.Equal(t, first.Status, second.Status)
	assert.Len(t, repo.log, 2, "every lookup appends an audit entry")
}

func TestVerifyLogFailureDoesNotFailResponse(t *testing.T) {
	repo := newFakeRepo()
	repo.licenses[testKey] = activeLicense(testKey)
	repo.appendErr = errors.New("disk full")
	svc := NewService(repo, testKeyCfg)

	result, err := svc.Verify(context.Background(), testKey, "", "")
	assert.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestVerifyStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.lookupErr = errors.New("connection refused")
	svc := NewService(repo, testKeyCfg)

	_, err := svc.Verify(context.Background(), testKey, "", "")
	assert.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindStore))
}

func TestGetLicense(t *testing.T) {
	repo := newFakeRepo()
	repo.licenses[testKey] = activeLicense(testKey)
	svc := NewService(repo, testKeyCfg)

	_, err := svc.GetLicense(context.Background(), "garbage")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.GetLicense(context.Background(), "SMARTAPPLY-PRO-2345-6789-ABCD")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	license, err := svc.GetLicense(context.Background(), testKey)
	assert.NoError(t, err)
	assert.Equal(t, "jane@example.com", license.Email)
}

func TestHistoryValidatesFormatAndCaps(t *testing.T) {
	repo := newFakeRepo()
	repo.licenses[testKey] = activeLicense(testKey)
	svc := NewService(repo, testKeyCfg)

	_, err := svc.History(context.Background(), "garbage")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	for i := 0; i < 60; i++ {
		_, err := svc.Verify(context.Background(), testKey, "", "")
		assert.NoError(t, err)
	}

	entries, err := svc.History(context.Background(), testKey)
	assert.NoError(t, err)
	assert.Len(t, entries, 50)
}

func TestCheckActive(t *testing.T) {
	repo := newFakeRepo()
	repo.licenses[testKey] = activeLicense(testKey)
	svc := NewService(repo, testKeyCfg)

	ok, err := svc.CheckActive(context.Background(), testKey)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckActive(context.Background(), "garbage")
	assert.NoError(t, err)
	assert.False(t, ok)

	repo.licenses[testKey].Status = models.LicenseStatusCancelled
	ok, err = svc.CheckActive(context.Background(), testKey)
	assert.NoError(t, err)
	assert.False(t, ok)
}
