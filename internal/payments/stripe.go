package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeCharger places manual-capture PaymentIntent holds for recorded
// trips. Capture and refund stay with the external billing system; the
// dispatcher only opens the hold.
type StripeCharger struct{}

// NewStripeCharger initializes the stripe client with the given key.
func NewStripeCharger(apiKey string) *StripeCharger {
	stripe.Key = apiKey
	return &StripeCharger{}
}

// Hold creates a PaymentIntent with capture_method=manual for the fare
// amount in cents. It returns the PaymentIntent ID on success.
func (s *StripeCharger) Hold(ctx context.Context, amount int64, currency, customerID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Release cancels a previously-opened hold.
func (s *StripeCharger) Release(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}
