package payments

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const providerSimulated = "simulated"

// Simulated approves a fixed share of charges at random.
type Simulated struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated approves with probability rate. A nil source seeds from the
// clock.
func NewSimulated(rate float64, src rand.Source) *Simulated {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Simulated{rate: rate, rng: rand.New(src)}
}

// Always approves every charge.
func Always() *Simulated {
	return NewSimulated(1, nil)
}

// Never declines every charge.
func Never() *Simulated {
	return NewSimulated(0, nil)
}

func (s *Simulated) Authorize(ctx context.Context, req Request) (Authorization, error) {
	if err := ctx.Err(); err != nil {
		return Authorization{}, err
	}
	s.mu.Lock()
	draw := s.rng.Float64()
	s.mu.Unlock()

	if draw >= s.rate {
		return Authorization{}, ErrDeclined
	}
	return Authorization{Provider: providerSimulated, Reference: uuid.NewString()}, nil
}
