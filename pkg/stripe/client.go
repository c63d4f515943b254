// Package stripe holds the shop's Stripe client: key validation per
// environment plus logged wrappers around the calls checkout makes.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

// keyPrefixes lists the secret and restricted key prefixes accepted per env.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

var errAPIKeyRequired = errors.New("stripe api key is required")

type Client struct {
	environment string
	logg        *logger.Logger
}

// NewClient sets the process-wide Stripe key once the key matches the env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe environment must be \"test\" or \"live\", got %q", env)
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	if !hasAnyPrefix(key, prefixes) {
		return nil, fmt.Errorf("stripe %s environment needs a key starting with %s", env, strings.Join(prefixes, " or "))
	}

	stripe.Key = key
	if logg != nil {
		logg.Info(logg.WithField(ctx, "env", env), "stripe.client_ready")
	}
	return &Client{environment: env, logg: logg}, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateCheckoutSession opens a hosted Checkout Session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errors.New("checkout session params required")
	}
	params.Context = ctx
	return logged(c, ctx, "checkout_session.create", func() (*stripe.CheckoutSession, error) {
		return session.New(params)
	})
}

// CreatePaymentIntent creates a PaymentIntent, confirming it when
// params.Confirm is set.
func (c *Client) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params == nil {
		return nil, errors.New("payment intent params required")
	}
	params.Context = ctx
	return logged(c, ctx, "payment_intent.create", func() (*stripe.PaymentIntent, error) {
		return paymentintent.New(params)
	})
}

func logged[T any](c *Client, ctx context.Context, op string, call func() (T, error)) (T, error) {
	out, err := call()
	if err != nil && c != nil && c.logg != nil {
		c.logg.Error(c.logg.WithFields(ctx, errorFields(op, err)), "stripe.request_failed", err)
	}
	return out, err
}

func errorFields(op string, err error) map[string]any {
	fields := map[string]any{"operation": op}
	var se *stripe.Error
	if errors.As(err, &se) {
		fields["stripe_type"] = string(se.Type)
		fields["stripe_code"] = string(se.Code)
		fields["stripe_request_id"] = se.RequestID
		if se.DeclineCode != "" {
			fields["stripe_decline_code"] = string(se.DeclineCode)
		}
	}
	return fields
}

// IsCardError reports whether err carries a card decline from Stripe.
func IsCardError(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.Type == stripe.ErrorTypeCard
}
