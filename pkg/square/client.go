// Package square wraps the Square Payments API for card charges at checkout.
package square

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

var baseURLs = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

type paymentsAPI interface {
	Create(ctx context.Context, request *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

type Client struct {
	payments   paymentsAPI
	locationID string
	logger     *logger.Logger
}

// NewClient needs an access token and the location that takes the payments.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("square logger is required")
	}
	baseURL, ok := baseURLs[cfg.Environment()]
	if !ok {
		return nil, fmt.Errorf("square environment must be sandbox or production, got %q", cfg.Env)
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("square access token is required")
	}
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errors.New("square location id is required")
	}

	sdk := sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token))
	logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.Environment(), "location_id": location}), "square client initialized")
	return &Client{payments: sdk.Payments, locationID: location, logger: logg}, nil
}

// Charge is one checkout payment. OrderRef doubles as the idempotency key, so
// a retried checkout cannot charge the shopper twice.
type Charge struct {
	AmountCents int64
	Currency    string
	SourceID    string
	BuyerEmail  string
	OrderRef    string
}

func (ch Charge) request(locationID string) (*sq.CreatePaymentRequest, error) {
	if ch.AmountCents <= 0 {
		return nil, fmt.Errorf("square charge amount must be positive, got %d", ch.AmountCents)
	}
	if strings.TrimSpace(ch.SourceID) == "" {
		return nil, errors.New("square charge source id is required")
	}
	currency := sq.Currency(strings.ToUpper(strings.TrimSpace(ch.Currency)))
	if currency == "" {
		currency = sq.Currency("USD")
	}
	amount := ch.AmountCents
	autocomplete := true

	req := &sq.CreatePaymentRequest{
		IdempotencyKey: "shop-" + uuid.NewString(),
		SourceID:       ch.SourceID,
		LocationID:     ptr(locationID),
		AmountMoney:    &sq.Money{Amount: &amount, Currency: &currency},
		Autocomplete:   &autocomplete,
	}
	if ref := strings.TrimSpace(ch.OrderRef); ref != "" {
		req.IdempotencyKey = "order-" + ref
		req.ReferenceID = ptr(ref)
		req.Note = ptr("order " + ref)
	}
	if email := strings.TrimSpace(ch.BuyerEmail); email != "" {
		req.BuyerEmailAddress = ptr(email)
	}
	return req, nil
}

// Charge creates and completes a payment. Card problems come back as
// CodeDeclined; see mapError.
func (c *Client) Charge(ctx context.Context, ch Charge) (*sq.Payment, error) {
	req, err := ch.request(c.locationID)
	if err != nil {
		return nil, err
	}
	ctx = c.logger.WithFields(ctx, map[string]any{
		"provider":    "square",
		"order_ref":   ch.OrderRef,
		"amount":      ch.AmountCents,
		"location_id": c.locationID,
	})

	resp, err := c.payments.Create(ctx, req)
	if err != nil {
		mapped := mapError(err)
		c.logger.Warn(c.logger.WithField(ctx, "error", err.Error()), "square charge failed")
		return nil, mapped
	}
	payment := resp.GetPayment()
	if payment == nil {
		return nil, errors.New("square charge: response carried no payment")
	}
	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"payment_id": deref(payment.GetID()),
		"status":     deref(payment.GetStatus()),
	}), "square charge created")
	return payment, nil
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
