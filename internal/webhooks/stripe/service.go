package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

type hostedCompleter interface {
	CompleteHostedSession(ctx context.Context, sessionID, token string) (bool, error)
}

type ServiceParams struct {
	Checkout hostedCompleter
	Logger   *logger.Logger
}

// Service reacts to Stripe Checkout events by settling the matching cart.
type Service struct {
	checkout hostedCompleter
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		checkout: params.Checkout,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.completeSession(ctx, event.Type, &cs)
	default:
		return nil
	}
}

func (s *Service) completeSession(ctx context.Context, eventType stripe.EventType, cs *stripe.CheckoutSession) error {
	// Delayed payment methods complete the session before funds arrive; the
	// async_payment_succeeded event settles those later.
	if cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"hosted_session": cs.ID,
			"event_type":     string(eventType),
		}), "stripe.checkout_session_awaiting_payment")
		return nil
	}

	cartSession := strings.TrimSpace(cs.ClientReferenceID)
	if cartSession == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no client reference").
			WithDetails(map[string]any{"hosted_session": cs.ID})
	}

	first, err := s.checkout.CompleteHostedSession(ctx, cartSession, cs.ID)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"hosted_session": cs.ID,
		"first_callback": first,
	}), "stripe.checkout_session_completed")
	return nil
}
