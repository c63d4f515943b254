package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// HostedLine is one line item sent to a hosted checkout page.
type HostedLine struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// HostedRequest asks a provider to open a hosted payment page.
type HostedRequest struct {
	Lines         []HostedLine
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	// Reference ties the provider session back to the shopper's cart and is
	// echoed in the provider's completion webhook.
	Reference     string
}

// HostedSession is the provider's reply: the session token and where to send
// the shopper.
type HostedSession struct {
	ID  string
	URL string
}

// HostedCheckout opens provider-hosted payment pages.
type HostedCheckout interface {
	CreateSession(ctx context.Context, req HostedRequest) (HostedSession, error)
}

// SessionIDPlaceholder is substituted by Stripe with the Checkout Session id
// when it redirects to the success URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

type checkoutSessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeHosted opens Stripe Checkout Sessions in payment mode.
type StripeHosted struct {
	client checkoutSessionCreator
}

func NewStripeHosted(client checkoutSessionCreator) (*StripeHosted, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeHosted{client: client}, nil
}

func (h *StripeHosted) CreateSession(ctx context.Context, req HostedRequest) (HostedSession, error) {
	if len(req.Lines) == 0 {
		return HostedSession{}, fmt.Errorf("line items required")
	}
	currency := currencyOrDefault(req.Currency)
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, l := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(l.Name),
		}
		if strings.TrimSpace(l.Description) != "" {
			product.Description = stripe.String(l.Description)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(l.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(withSessionParam(req.SuccessURL, SessionIDPlaceholder)),
		CancelURL:          stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.Reference != "" {
		params.ClientReferenceID = stripe.String(req.Reference)
	}

	sess, err := h.client.CreateCheckoutSession(ctx, params)
	if err != nil {
		return HostedSession{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return HostedSession{ID: sess.ID, URL: sess.URL}, nil
}

// LocalHosted stands in for a hosted provider during local development: it
// issues a random token and points straight at the success URL.
type LocalHosted struct{}

func (LocalHosted) CreateSession(ctx context.Context, req HostedRequest) (HostedSession, error) {
	if err := ctx.Err(); err != nil {
		return HostedSession{}, err
	}
	if len(req.Lines) == 0 {
		return HostedSession{}, fmt.Errorf("line items required")
	}
	id := "local_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return HostedSession{ID: id, URL: withSessionParam(req.SuccessURL, id)}, nil
}

// withSessionParam appends session_id=value to raw. The placeholder is kept
// unescaped because Stripe matches it literally.
func withSessionParam(raw, value string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	if value == SessionIDPlaceholder {
		return raw + sep + "session_id=" + value
	}
	return raw + sep + "session_id=" + url.QueryEscape(value)
}
