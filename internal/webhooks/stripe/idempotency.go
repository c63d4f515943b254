package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Piotrek1987/ds-online-shop/pkg/redis"
)

var errEventID = errors.New("event id is required")

// EventDeduper hands out one claim per Stripe event id. A redelivered event
// whose claim is still held is acknowledged without being applied again.
type EventDeduper struct {
	store redis.IdempotencyStore
	scope string
	hold  time.Duration
}

func NewEventDeduper(store redis.IdempotencyStore, hold time.Duration, scope string) (*EventDeduper, error) {
	scope = strings.TrimSpace(scope)
	switch {
	case store == nil:
		return nil, errors.New("dedupe store is required")
	case hold < 0:
		return nil, errors.New("hold must be non-negative")
	case scope == "":
		return nil, errors.New("scope is required")
	}
	return &EventDeduper{store: store, scope: scope, hold: hold}, nil
}

// Claim returns true for the first delivery of eventID and false afterwards.
func (d *EventDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	k, err := d.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := d.store.SetNX(ctx, k, time.Now().UTC().Format(time.RFC3339), d.hold)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return claimed, nil
}

// Release drops the claim so Stripe's next retry is applied.
func (d *EventDeduper) Release(ctx context.Context, eventID string) error {
	k, err := d.key(eventID)
	if err != nil {
		return err
	}
	return d.store.Del(ctx, k)
}

func (d *EventDeduper) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errEventID
	}
	return d.store.IdempotencyKey(d.scope, eventID), nil
}
