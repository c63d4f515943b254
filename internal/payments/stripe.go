package payments

import (
	"context"
	"fmt"
	"strings"

	stripeclient "github.com/Piotrek1987/ds-online-shop/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

const providerStripe = "stripe"

type paymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeAuthorizer charges through a confirmed PaymentIntent. The card number
// typed into the form is only format-checked; the charge uses the configured
// payment method.
type StripeAuthorizer struct {
	client          paymentIntentCreator
	paymentMethodID string
}

func NewStripeAuthorizer(client paymentIntentCreator, paymentMethodID string) *StripeAuthorizer {
	if strings.TrimSpace(paymentMethodID) == "" {
		paymentMethodID = "pm_card_visa"
	}
	return &StripeAuthorizer{client: client, paymentMethodID: paymentMethodID}
}

func (a *StripeAuthorizer) Authorize(ctx context.Context, req Request) (Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(currencyOrDefault(req.Currency)),
		PaymentMethod:      stripe.String(a.paymentMethodID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	if req.Reference != "" {
		params.Description = stripe.String(fmt.Sprintf("order %s", req.Reference))
		params.SetIdempotencyKey("order-" + req.Reference)
	}

	intent, err := a.client.CreatePaymentIntent(ctx, params)
	if err != nil {
		if stripeclient.IsCardError(err) {
			return Authorization{}, ErrDeclined
		}
		return Authorization{}, fmt.Errorf("stripe payment intent: %w", err)
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture, stripe.PaymentIntentStatusProcessing:
		return Authorization{Provider: providerStripe, Reference: intent.ID}, nil
	default:
		return Authorization{}, ErrDeclined
	}
}
