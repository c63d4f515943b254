package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Piotrek1987/ds-online-shop/pkg/config"
)

// ErrDeclined is returned by an Authorizer when the charge was refused. Any
// other error means the provider could not be reached or misbehaved.
var ErrDeclined = errors.New("payment declined")

// Request describes one charge attempt.
type Request struct {
	Amount     int64
	Currency   string
	Name       string
	Email      string
	CardNumber string
	Reference  string
}

// ProviderNone marks an order that had nothing to charge.
const ProviderNone = "none"

// Authorization is the provider's acceptance of a charge.
type Authorization struct {
	Provider  string
	Reference string
}

// Authorizer approves or declines a charge.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (Authorization, error)
}

// Providers groups the gateway clients an authorizer may be built on.
type Providers struct {
	Stripe paymentIntentCreator
	Square squarePaymentCreator
}

// NewAuthorizer picks the authorizer named by cfg.
func NewAuthorizer(cfg config.PaymentsConfig, stripeCfg config.StripeConfig, squareCfg config.SquareConfig, providers Providers) (Authorizer, error) {
	switch cfg.AuthorizerKind() {
	case config.PaymentAuthorizerSimulated:
		return NewSimulated(cfg.ApprovalRate, nil), nil
	case config.PaymentAuthorizerStripe:
		if providers.Stripe == nil {
			return nil, fmt.Errorf("stripe client required for %q authorizer", config.PaymentAuthorizerStripe)
		}
		return NewStripeAuthorizer(providers.Stripe, stripeCfg.PaymentMethodID), nil
	case config.PaymentAuthorizerSquare:
		if providers.Square == nil {
			return nil, fmt.Errorf("square client required for %q authorizer", config.PaymentAuthorizerSquare)
		}
		return NewSquareAuthorizer(providers.Square, squareCfg.SourceID), nil
	default:
		return nil, fmt.Errorf("unknown payment authorizer %q", cfg.Authorizer)
	}
}

func currencyOrDefault(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return "usd"
	}
	return c
}
