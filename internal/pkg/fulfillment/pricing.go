package fulfillment

import (
	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/apperr"
)

// Price is a server-side plan price in the currency's minor unit (cents,
// poisha). Client-supplied amounts are never trusted; every charge amount
// comes from this table keyed by plan type.
type Price struct {
	Amount   int64
	Currency string
}

var cardPrices = map[string]Price{
	models.PlanMonthly:  {Amount: 1900, Currency: "USD"},
	models.PlanAnnual:   {Amount: 14900, Currency: "USD"},
	models.PlanLifetime: {Amount: 29900, Currency: "USD"},
}

var mobilePrices = map[string]Price{
	models.PlanMonthly:  {Amount: 49500, Currency: "BDT"},
	models.PlanAnnual:   {Amount: 350000, Currency: "BDT"},
	models.PlanLifetime: {Amount: 990000, Currency: "BDT"},
}

// PriceFor resolves the charge for a plan on a payment rail. Trial is free
// and only available on the trial rail.
func PriceFor(planType, paymentMethod string) (Price, error) {
	if planType == models.PlanTrial {
		if paymentMethod != models.PaymentMethodTrial {
			return Price{}, apperr.Validation("Trial plan is not purchasable")
		}
		return Price{Amount: 0, Currency: "USD"}, nil
	}

	var table map[string]Price
	switch paymentMethod {
	case models.PaymentMethodCard:
		table = cardPrices
	case models.PaymentMethodBkash, models.PaymentMethodNagad:
		table = mobilePrices
	case models.PaymentMethodTrial:
		return Price{}, apperr.Validation("Invalid plan type for trial signup")
	default:
		return Price{}, apperr.Validation("Invalid payment method")
	}

	price, ok := table[planType]
	if !ok {
		return Price{}, apperr.Validation("Invalid plan type")
	}
	return price, nil
}
