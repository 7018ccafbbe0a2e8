package fulfillment

import (
	"context"
	"errors"
)

// ErrPaymentNotCompleted is returned by a provider when the referenced
// payment exists but has not (yet) succeeded.
var ErrPaymentNotCompleted = errors.New("payment has not completed")

// Intent is the provider-side handle for a card payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// PaymentProvider abstracts the card payment gateway. The amount passed to
// CreateIntent always comes from the server-side price table.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amount int64, currency, customerEmail string, metadata map[string]string) (*Intent, error)
	// VerifySucceeded checks that the referenced payment succeeded on the
	// provider side. Returns ErrPaymentNotCompleted when it has not.
	VerifySucceeded(ctx context.Context, paymentRef string) error
}
