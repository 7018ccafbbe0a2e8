package fulfillment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
	"github.com/smartapplypro/backend/internal/pkg/licensekey"
	"github.com/smartapplypro/backend/internal/pkg/notification"
)

// Bangladeshi mobile numbers, optionally with country prefix.
var mobilePattern = regexp.MustCompile(`^(\+88)?01[3-9]\d{8}$`)

// errAlreadyFinalized signals that a concurrent writer finalized the order
// between our read and our guarded write; the transaction rolls back.
var errAlreadyFinalized = errors.New("order already finalized")

// Service turns payment events and manual-payment submissions into order and
// license rows. All multi-row writes run inside one database transaction;
// idempotency checks, not locks, prevent double fulfillment.
type Service struct {
	repo     Repository
	provider PaymentProvider
	notifier notification.Notifier
	keyCfg   licensekey.Config
}

// NewService creates a fulfillment service from injected collaborators.
func NewService(repo Repository, provider PaymentProvider, notifier notification.Notifier, keyCfg licensekey.Config) *Service {
	return &Service{repo: repo, provider: provider, notifier: notifier, keyCfg: keyCfg}
}

// NewServiceFromDB creates a fulfillment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider PaymentProvider, notifier notification.Notifier, keyCfg licensekey.Config) *Service {
	return NewService(NewRepository(db), provider, notifier, keyCfg)
}

// CardIntentInput is a checkout-intent request for the card rail.
type CardIntentInput struct {
	CustomerName  string `json:"customerName" validate:"required,min=2,max=150"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	PlanType      string `json:"planType" validate:"required,oneof=monthly annual lifetime"`
}

// CardIntentResult describes a created checkout intent.
type CardIntentResult struct {
	PaymentRef   string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	OrderNumber  string `json:"orderNumber"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// ManualOrderInput is a mobile-money order submission awaiting human review.
type ManualOrderInput struct {
	Rail          string `validate:"required,oneof=bkash nagad"`
	CustomerName  string `json:"name" validate:"required,min=2,max=150"`
	CustomerEmail string `json:"email" validate:"required,email"`
	PlanType      string `json:"planType" validate:"required,oneof=monthly annual lifetime"`
	MobileNumber  string `json:"mobileNumber" validate:"required"`
	TransactionID string `json:"transactionId" validate:"required,min=4,max=100"`
}

// TrialSignupInput is a free trial signup request.
type TrialSignupInput struct {
	CustomerName  string `json:"name" validate:"required,min=2,max=150"`
	CustomerEmail string `json:"email" validate:"required,email"`
}

// Result is the outcome of a fulfillment operation.
type Result struct {
	OrderNumber string `json:"orderNumber"`
	LicenseKey  string `json:"licenseKey,omitempty"`
	Username    string `json:"username,omitempty"`
	Message     string `json:"message"`
}

// StatusResult is the read-only order status view.
type StatusResult struct {
	OrderNumber   string    `json:"orderNumber"`
	OrderStatus   string    `json:"orderStatus"`
	PaymentStatus string    `json:"paymentStatus"`
	PlanType      string    `json:"planType"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreateCardIntent validates the request, creates a payment intent with the
// server-side amount for the plan and records a pending order carrying the
// provider reference.
func (s *Service) CreateCardIntent(ctx context.Context, in CardIntentInput) (*CardIntentResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	price, err := PriceFor(in.PlanType, models.PaymentMethodCard)
	if err != nil {
		return nil, err
	}

	orderNum := orderNumber("ORDER-")
	intent, err := s.provider.CreateIntent(ctx, price.Amount, price.Currency, in.CustomerEmail, map[string]string{
		"order_number": orderNum,
		"plan_type":    in.PlanType,
	})
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	order := &models.Order{
		OrderNumber:   orderNum,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		PlanType:      in.PlanType,
		Amount:        price.Amount,
		Currency:      price.Currency,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodCard,
		PaymentRef:    intent.ID,
	}
	if err := s.repo.CreateOrder(order); err != nil {
		return nil, apperr.Store(err)
	}

	return &CardIntentResult{
		PaymentRef:   intent.ID,
		ClientSecret: intent.ClientSecret,
		OrderNumber:  orderNum,
		Amount:       price.Amount,
		Currency:     price.Currency,
	}, nil
}

// ConfirmCardPayment issues the license for a paid card order. The order
// transition is guarded inside the transaction (pending rows only), so
// concurrent duplicate confirmations are safe: at most one performs the
// write, every other caller gets a conflict.
func (s *Service) ConfirmCardPayment(ctx context.Context, paymentRef string) (*Result, error) {
	if strings.TrimSpace(paymentRef) == "" {
		return nil, apperr.Validation("Payment intent ID is required")
	}

	order, err := s.repo.GetOrderByPaymentRef(paymentRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Store(err)
	}

	if order.PaymentStatus == models.PaymentStatusSucceeded {
		return nil, apperr.Conflict("Payment already processed")
	}

	if err := s.provider.VerifySucceeded(ctx, paymentRef); err != nil {
		if errors.Is(err, ErrPaymentNotCompleted) {
			return nil, apperr.Validation("Payment has not completed")
		}
		return nil, apperr.Upstream(err)
	}

	key, err := licensekey.Generate(s.keyCfg)
	if err != nil {
		return nil, apperr.Store(err)
	}

	now := time.Now()
	license := &models.License{
		LicenseKey:   key,
		FullName:     order.CustomerName,
		Email:        order.CustomerEmail,
		PlanType:     order.PlanType,
		AmountPaid:   order.Amount,
		Currency:     order.Currency,
		Status:       models.LicenseStatusActive,
		PurchaseDate: now,
		ExpiryDate:   models.ExpiryFor(order.PlanType, now),
	}

	order.PaymentStatus = models.PaymentStatusSucceeded
	order.OrderStatus = models.OrderStatusCompleted
	order.LicenseKey = key
	err = s.repo.Transaction(func(tx Repository) error {
		won, err := tx.FinalizeOrder(order)
		if err != nil {
			return err
		}
		if !won {
			return errAlreadyFinalized
		}
		return tx.CreateLicense(license)
	})
	if errors.Is(err, errAlreadyFinalized) {
		return nil, apperr.Conflict("Payment already processed")
	}
	if err != nil {
		return nil, apperr.Store(err)
	}

	// Only after the transaction committed; a rolled-back order must never
	// trigger a license email.
	notification.Dispatch(s.notifier, notification.KindLicenseIssued, order.CustomerEmail, map[string]string{
		"customerName": order.CustomerName,
		"licenseKey":   key,
		"planType":     order.PlanType,
		"orderNumber":  order.OrderNumber,
	})

	return &Result{
		OrderNumber: order.OrderNumber,
		LicenseKey:  key,
		Message:     "Payment successful! License key has been sent to your email.",
	}, nil
}

// CreateManualOrder records a mobile-money order pending human review. The
// license key is pre-generated and stored on the order; the license row
// itself is only created when an operator approves the payment.
func (s *Service) CreateManualOrder(ctx context.Context, in ManualOrderInput) (*Result, error) {
	_ = ctx
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !mobilePattern.MatchString(strings.TrimSpace(in.MobileNumber)) {
		return nil, apperr.Validation("Please enter a valid Bangladeshi mobile number")
	}

	price, err := PriceFor(in.PlanType, in.Rail)
	if err != nil {
		return nil, err
	}

	key, err := licensekey.Generate(s.keyCfg)
	if err != nil {
		return nil, apperr.Store(err)
	}

	order := &models.Order{
		OrderNumber:   orderNumber("ORD-"),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		PlanType:      in.PlanType,
		Amount:        price.Amount,
		Currency:      price.Currency,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
		PaymentMethod: in.Rail,
		MobileNumber:  strings.TrimSpace(in.MobileNumber),
		TransactionID: strings.TrimSpace(in.TransactionID),
		LicenseKey:    key,
	}
	if err := s.repo.CreateOrder(order); err != nil {
		return nil, apperr.Store(err)
	}

	notification.Dispatch(s.notifier, notification.KindOrderPendingReview, order.CustomerEmail, map[string]string{
		"customerName":  order.CustomerName,
		"orderNumber":   order.OrderNumber,
		"planType":      order.PlanType,
		"amount":        fmt.Sprintf("%d", order.Amount),
		"currency":      order.Currency,
		"paymentMethod": order.PaymentMethod,
	})

	return &Result{
		OrderNumber: order.OrderNumber,
		LicenseKey:  key,
		Message:     "Order submitted successfully. Your order will be reviewed within 24-48 hours.",
	}, nil
}

// CreateTrialSignup creates an active trial license, its completed order and
// a companion account in one transaction. One trial per email address.
func (s *Service) CreateTrialSignup(ctx context.Context, in TrialSignupInput) (*Result, error) {
	_ = ctx
	if err := validateInput(in); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.CustomerEmail)
	exists, err := s.repo.LicenseExistsForEmail(email)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if exists {
		return nil, apperr.Conflict("An account with this email already exists")
	}

	key, err := licensekey.Generate(s.keyCfg)
	if err != nil {
		return nil, apperr.Store(err)
	}

	username, err := usernameFor(email)
	if err != nil {
		return nil, apperr.Store(err)
	}
	password, err := randomPassword()
	if err != nil {
		return nil, apperr.Store(err)
	}

	now := time.Now()
	license := &models.License{
		LicenseKey:   key,
		FullName:     strings.TrimSpace(in.CustomerName),
		Email:        email,
		PlanType:     models.PlanTrial,
		AmountPaid:   0,
		Currency:     "USD",
		Status:       models.LicenseStatusActive,
		PurchaseDate: now,
	}
	order := &models.Order{
		OrderNumber:   orderNumber("TRIAL-"),
		CustomerName:  license.FullName,
		CustomerEmail: email,
		PlanType:      models.PlanTrial,
		Amount:        0,
		Currency:      "USD",
		PaymentStatus: models.PaymentStatusSucceeded,
		OrderStatus:   models.OrderStatusCompleted,
		PaymentMethod: models.PaymentMethodTrial,
		LicenseKey:    key,
	}
	account := &models.Account{
		Username:   username,
		Email:      email,
		LicenseKey: key,
	}
	if err := account.SetPassword(password); err != nil {
		return nil, apperr.Store(err)
	}

	err = s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreateLicense(license); err != nil {
			return err
		}
		if err := tx.CreateOrder(order); err != nil {
			return err
		}
		return tx.CreateAccount(account)
	})
	if err != nil {
		return nil, apperr.Store(err)
	}

	// The plaintext password is disclosed exactly once, here.
	notification.Dispatch(s.notifier, notification.KindTrialCreated, email, map[string]string{
		"customerName": license.FullName,
		"licenseKey":   key,
		"username":     username,
		"password":     password,
	})

	return &Result{
		OrderNumber: order.OrderNumber,
		LicenseKey:  key,
		Username:    username,
		Message:     "Trial account created successfully! Check your email for login credentials.",
	}, nil
}

// ApproveOrder turns a reviewed manual order into an issued license using
// the key pre-generated at order time.
func (s *Service) ApproveOrder(ctx context.Context, orderID uint) (*Result, error) {
	_ = ctx
	order, err := s.repo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Store(err)
	}

	if order.PaymentMethod != models.PaymentMethodBkash && order.PaymentMethod != models.PaymentMethodNagad {
		return nil, apperr.Validation("Only manual payment orders can be approved")
	}
	if order.IsTerminal() {
		return nil, apperr.Conflict("Order already processed")
	}

	now := time.Now()
	license := &models.License{
		LicenseKey:   order.LicenseKey,
		FullName:     order.CustomerName,
		Email:        order.CustomerEmail,
		PlanType:     order.PlanType,
		AmountPaid:   order.Amount,
		Currency:     order.Currency,
		Status:       models.LicenseStatusActive,
		PurchaseDate: now,
		ExpiryDate:   models.ExpiryFor(order.PlanType, now),
	}

	order.PaymentStatus = models.PaymentStatusSucceeded
	order.OrderStatus = models.OrderStatusCompleted
	err = s.repo.Transaction(func(tx Repository) error {
		won, err := tx.FinalizeOrder(order)
		if err != nil {
			return err
		}
		if !won {
			return errAlreadyFinalized
		}
		return tx.CreateLicense(license)
	})
	if errors.Is(err, errAlreadyFinalized) {
		return nil, apperr.Conflict("Order already processed")
	}
	if err != nil {
		return nil, apperr.Store(err)
	}

	notification.Dispatch(s.notifier, notification.KindLicenseIssued, order.CustomerEmail, map[string]string{
		"customerName": order.CustomerName,
		"licenseKey":   order.LicenseKey,
		"planType":     order.PlanType,
		"orderNumber":  order.OrderNumber,
	})

	return &Result{
		OrderNumber: order.OrderNumber,
		LicenseKey:  order.LicenseKey,
		Message:     "Order approved successfully",
	}, nil
}

// RejectOrder marks a pending manual order as rejected.
func (s *Service) RejectOrder(ctx context.Context, orderID uint, reason string) (*Result, error) {
	_ = ctx
	order, err := s.repo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Store(err)
	}
	if order.IsTerminal() {
		return nil, apperr.Conflict("Order already processed")
	}

	order.PaymentStatus = models.PaymentStatusFailed
	order.OrderStatus = models.OrderStatusRejected
	order.RejectReason = strings.TrimSpace(reason)
	won, err := s.repo.FinalizeOrder(order)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if !won {
		return nil, apperr.Conflict("Order already processed")
	}

	return &Result{
		OrderNumber: order.OrderNumber,
		Message:     "Order rejected successfully",
	}, nil
}

// OrderStatus returns the read-only status view for an order number.
func (s *Service) OrderStatus(ctx context.Context, orderNumber string) (*StatusResult, error) {
	_ = ctx
	order, err := s.repo.GetOrderByNumber(orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Store(err)
	}
	return statusView(order), nil
}

// PaymentStatus returns the status view for a payment provider reference.
func (s *Service) PaymentStatus(ctx context.Context, paymentRef string) (*StatusResult, error) {
	_ = ctx
	order, err := s.repo.GetOrderByPaymentRef(paymentRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Payment not found")
		}
		return nil, apperr.Store(err)
	}
	return statusView(order), nil
}

func statusView(order *models.Order) *StatusResult {
	return &StatusResult{
		OrderNumber:   order.OrderNumber,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		PlanType:      order.PlanType,
		Amount:        order.Amount,
		Currency:      order.Currency,
		CreatedAt:     order.CreatedAt,
	}
}

func validateInput(in interface{}) error {
	v := validator.New()
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return apperr.Validation("Field '%s' is invalid or missing", f.Field())
		}
		return apperr.Validation("Invalid request data")
	}
	return nil
}

func orderNumber(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return prefix + suffix
}

func usernameFor(email string) (string, error) {
	local := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	// Random 3-digit suffix keeps common local parts distinct.
	n, err := rand.Int(rand.Reader, big.NewInt(900))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", local, 100+n.Int64()), nil
}

// randomPassword returns a 24-hex-char one-time password (96 bits).
func randomPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
