package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/smartapplypro/backend/internal/pkg/env"
	"github.com/smartapplypro/backend/internal/pkg/fulfillment"
)

// StripeProvider implements the card payment rail on Stripe payment intents.
type StripeProvider struct{}

// NewStripeProvider configures the Stripe client from STRIPE_SECRET_KEY.
func NewStripeProvider() (*StripeProvider, error) {
	key := env.GetEnv("STRIPE_SECRET_KEY", "")
	if key == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is not set")
	}
	stripe.Key = key
	return &StripeProvider{}, nil
}

func (p *StripeProvider) CreateIntent(ctx context.Context, amount int64, currency, customerEmail string, metadata map[string]string) (*fulfillment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(amount),
		Currency:     stripe.String(strings.ToLower(currency)),
		ReceiptEmail: stripe.String(customerEmail),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &fulfillment.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProvider) VerifySucceeded(ctx context.Context, paymentRef string) error {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(paymentRef, params)
	if err != nil {
		return fmt.Errorf("retrieve payment intent %s: %w", paymentRef, err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fulfillment.ErrPaymentNotCompleted
	}
	return nil
}
