package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	"github.com/Piotrek1987/ds-online-shop/internal/orders"
	"github.com/Piotrek1987/ds-online-shop/internal/payments"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/metrics"
)

const (
	emptyCartMessage   = "your cart is empty"
	invalidCardMessage = "invalid card number"
	declinedMessage    = "payment was declined, please try again"

	maxOrderIDAttempts = 3
)

type itemLookup interface {
	Lookup(id int) (catalog.Item, bool)
}

type checkoutRecorder interface {
	IncCheckout(outcome string)
	ObserveOrderTotal(cents int64)
}

type callbackGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	HostedCheckoutKey(token string) string
}

// Customer identifies the signed-in account placing the order.
type Customer struct {
	UserID uint
	Email  string
}

// Result reports one checkout attempt. Order is set only once the attempt
// reached StateRecorded.
type Result struct {
	Attempt Attempt
	Order   *orders.Order
}

// Service orchestrates checkout for one browser session.
type Service interface {
	Summary(ctx context.Context, sessionID string) (cart.View, error)
	Checkout(ctx context.Context, sessionID string, customer Customer, form PaymentForm) (*Result, error)
	CreateHostedSession(ctx context.Context, sessionID string, customer Customer) (payments.HostedSession, error)
	CompleteHostedSession(ctx context.Context, sessionID, token string) (bool, error)
}

// ServiceParams wires the orchestrator.
type ServiceParams struct {
	Carts      cart.Store
	Catalog    itemLookup
	Orders     orders.Log
	Authorizer payments.Authorizer
	Hosted     payments.HostedCheckout
	Guard      callbackGuard
	Metrics    checkoutRecorder
	Logger     *logger.Logger

	Currency    string
	SuccessURL  string
	CancelURL   string
	CallbackTTL time.Duration
	Now         func() time.Time
	NewOrderID  func() string
}

type service struct {
	carts      cart.Store
	catalog    itemLookup
	orders     orders.Log
	authorizer payments.Authorizer
	hosted     payments.HostedCheckout
	guard      callbackGuard
	metrics    checkoutRecorder
	logg       *logger.Logger

	currency    string
	successURL  string
	cancelURL   string
	callbackTTL time.Duration
	now         func() time.Time
	newOrderID  func() string
}

// NewService validates the dependencies and builds the orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order log required")
	}
	if params.Authorizer == nil {
		return nil, fmt.Errorf("payment authorizer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Hosted != nil && params.Guard == nil {
		return nil, fmt.Errorf("callback guard required for hosted checkout")
	}

	svc := &service{
		carts:       params.Carts,
		catalog:     params.Catalog,
		orders:      params.Orders,
		authorizer:  params.Authorizer,
		hosted:      params.Hosted,
		guard:       params.Guard,
		metrics:     params.Metrics,
		logg:        params.Logger,
		currency:    params.Currency,
		successURL:  params.SuccessURL,
		cancelURL:   params.CancelURL,
		callbackTTL: params.CallbackTTL,
		now:         params.Now,
		newOrderID:  params.NewOrderID,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newOrderID == nil {
		svc.newOrderID = orders.NewID
	}
	if svc.callbackTTL <= 0 {
		svc.callbackTTL = 24 * time.Hour
	}
	return svc, nil
}

// Summary returns the priced cart shown on the checkout page.
func (s *service) Summary(ctx context.Context, sessionID string) (cart.View, error) {
	c, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return cart.View{}, err
	}
	if c.IsEmpty() {
		return cart.View{}, emptyCartError()
	}
	return c.Materialize(s.catalog.Lookup), nil
}

// Checkout runs one attempt. The result is returned on every path, errors
// included, so callers can report how far the attempt got. The cart is cleared
// only after the order has been appended; a failed append leaves it untouched.
func (s *service) Checkout(ctx context.Context, sessionID string, customer Customer, form PaymentForm) (*Result, error) {
	attempt := newAttempt()
	ctx = s.logg.WithSessionID(ctx, sessionID)

	c, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return s.fail(ctx, attempt, ReasonFailed, metrics.OutcomeFailed, err)
	}
	if c.IsEmpty() {
		return s.fail(ctx, attempt, ReasonEmptyCart, metrics.OutcomeEmptyCart, emptyCartError())
	}
	view := c.Materialize(s.catalog.Lookup)
	if len(view.Lines) == 0 {
		return s.fail(ctx, attempt, ReasonEmptyCart, metrics.OutcomeEmptyCart, emptyCartError())
	}
	attempt.Total = view.Total

	if err := form.validate(); err != nil {
		return s.fail(ctx, attempt, ReasonInvalidCard, metrics.OutcomeInvalidCard, err)
	}
	if !ValidCardNumber(form.Card) {
		err := pkgerrors.New(pkgerrors.CodeValidation, invalidCardMessage).
			WithDetails(map[string]string{"card": "must be 16 digits"})
		return s.fail(ctx, attempt, ReasonInvalidCard, metrics.OutcomeInvalidCard, err)
	}

	orderID := s.newOrderID()
	auth, err := s.authorize(ctx, payments.Request{
		Amount:     view.Total,
		Currency:   s.currency,
		Name:       form.Name,
		Email:      form.Email,
		CardNumber: form.Card,
		Reference:  orderID,
	})
	if err != nil {
		if errors.Is(err, payments.ErrDeclined) {
			return s.fail(ctx, attempt, ReasonDeclined, metrics.OutcomeDeclined,
				pkgerrors.Wrap(pkgerrors.CodeDeclined, err, declinedMessage))
		}
		return s.fail(ctx, attempt, ReasonFailed, metrics.OutcomeFailed,
			pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment authorization failed"))
	}
	attempt.authorize()

	order := s.buildOrder(orderID, customer, form, view)
	if err := s.appendOrder(ctx, &order); err != nil {
		return s.fail(ctx, attempt, ReasonFailed, metrics.OutcomeFailed,
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record order"))
	}
	attempt.record(order.OrderID)

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.OrderID), "checkout.cart_clear_failed", err)
	}

	if s.metrics != nil {
		s.metrics.IncCheckout(metrics.OutcomeRecorded)
		s.metrics.ObserveOrderTotal(order.Total)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.OrderID,
		"total":          order.Total,
		"lines":          len(order.Items),
		"payment_ref":    auth.Reference,
		"payment_source": auth.Provider,
	}), "checkout.recorded")

	return &Result{Attempt: *attempt, Order: &order}, nil
}

// authorize skips the provider for a zero total; gateways reject zero-amount
// charges and there is nothing to decline.
func (s *service) authorize(ctx context.Context, req payments.Request) (payments.Authorization, error) {
	if req.Amount == 0 {
		return payments.Authorization{Provider: payments.ProviderNone}, nil
	}
	return s.authorizer.Authorize(ctx, req)
}

func (s *service) buildOrder(orderID string, customer Customer, form PaymentForm, view cart.View) orders.Order {
	lines := make([]orders.Line, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, orders.NewLine(l.Item, l.Quantity))
	}
	return orders.Order{
		OrderID:  orderID,
		User:     customer.Email,
		Name:     strings.TrimSpace(form.Name),
		Email:    strings.TrimSpace(form.Email),
		Address:  strings.TrimSpace(form.Address),
		DateTime: s.now().UTC(),
		Items:    lines,
		Total:    orders.SumLines(lines),
	}
}

// appendOrder retries with a fresh id when the log reports the id as taken.
func (s *service) appendOrder(ctx context.Context, order *orders.Order) error {
	var err error
	for i := 0; i < maxOrderIDAttempts; i++ {
		if i > 0 {
			order.OrderID = s.newOrderID()
		}
		err = s.orders.Append(ctx, *order)
		if err == nil || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return err
		}
	}
	return err
}

func (s *service) fail(ctx context.Context, attempt *Attempt, reason, outcome string, err error) (*Result, error) {
	attempt.reject(reason)
	if s.metrics != nil {
		s.metrics.IncCheckout(outcome)
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"reason": reason,
		"total":  attempt.Total,
		"error":  err.Error(),
	}), "checkout.rejected")
	return &Result{Attempt: *attempt}, err
}

func (s *service) loadCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func emptyCartError() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, emptyCartMessage)
}
