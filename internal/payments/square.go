package payments

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	squareclient "github.com/Piotrek1987/ds-online-shop/pkg/square"
	sq "github.com/square/square-go-sdk"
)

const providerSquare = "square"

type squarePaymentCreator interface {
	Charge(ctx context.Context, charge squareclient.Charge) (*sq.Payment, error)
}

// SquareAuthorizer charges through Square's Payments API using the configured
// card source.
type SquareAuthorizer struct {
	client   squarePaymentCreator
	sourceID string
}

func NewSquareAuthorizer(client squarePaymentCreator, sourceID string) *SquareAuthorizer {
	if strings.TrimSpace(sourceID) == "" {
		sourceID = "cnon:card-nonce-ok"
	}
	return &SquareAuthorizer{client: client, sourceID: sourceID}
}

func (a *SquareAuthorizer) Authorize(ctx context.Context, req Request) (Authorization, error) {
	payment, err := a.client.Charge(ctx, squareclient.Charge{
		AmountCents: req.Amount,
		Currency:    currencyOrDefault(req.Currency),
		SourceID:    a.sourceID,
		BuyerEmail:  req.Email,
		OrderRef:    req.Reference,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeDeclined) {
			return Authorization{}, ErrDeclined
		}
		return Authorization{}, fmt.Errorf("square payment: %w", err)
	}
	if payment == nil {
		return Authorization{}, fmt.Errorf("square payment: empty response")
	}

	var status string
	if s := payment.GetStatus(); s != nil {
		status = strings.ToUpper(*s)
	}
	switch status {
	case "COMPLETED", "APPROVED":
		var ref string
		if id := payment.GetID(); id != nil {
			ref = *id
		}
		return Authorization{Provider: providerSquare, Reference: ref}, nil
	default:
		return Authorization{}, ErrDeclined
	}
}
