package checkout

import (
	"context"
	"strings"

	"github.com/Piotrek1987/ds-online-shop/internal/payments"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/metrics"
)

// CreateHostedSession asks the hosted provider for a payment page covering
// the current cart. The cart is left as is; it is cleared by the success
// callback.
func (s *service) CreateHostedSession(ctx context.Context, sessionID string, customer Customer) (payments.HostedSession, error) {
	if s.hosted == nil {
		return payments.HostedSession{}, pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout is not configured")
	}
	view, err := s.Summary(ctx, sessionID)
	if err != nil {
		return payments.HostedSession{}, err
	}
	if len(view.Lines) == 0 {
		return payments.HostedSession{}, emptyCartError()
	}

	lines := make([]payments.HostedLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, payments.HostedLine{
			Name:        l.Item.Name,
			Description: l.Item.Description,
			UnitAmount:  l.Item.Price,
			Quantity:    int64(l.Quantity),
		})
	}

	sess, err := s.hosted.CreateSession(ctx, payments.HostedRequest{
		Lines:         lines,
		Currency:      s.currency,
		CustomerEmail: customer.Email,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
		Reference:     sessionID,
	})
	if err != nil {
		return payments.HostedSession{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment error")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"hosted_session": sess.ID,
		"total":          view.Total,
	}), "checkout.hosted_session_created")
	return sess, nil
}

// CompleteHostedSession handles the provider's success redirect and its
// completion webhook. Only the first callback per token clears the cart;
// repeats report false and succeed. The redirect carries no signature, so the
// token is trusted as given.
func (s *service) CompleteHostedSession(ctx context.Context, sessionID, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if s.guard == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout is not configured")
	}

	key := s.guard.HostedCheckoutKey(token)
	first, err := s.guard.SetNX(ctx, key, sessionID, s.callbackTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hosted callback guard")
	}
	if !first {
		return false, nil
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		if delErr := s.guard.Del(ctx, key); delErr != nil {
			s.logg.Error(ctx, "checkout.hosted_guard_release_failed", delErr)
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if s.metrics != nil {
		s.metrics.IncCheckout(metrics.OutcomeHosted)
	}
	s.logg.Info(s.logg.WithField(ctx, "hosted_session", token), "checkout.hosted_completed")
	return true, nil
}
