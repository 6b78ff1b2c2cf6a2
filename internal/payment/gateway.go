package payment

import (
	"context"
	"time"
)

// Card is the write-only input of an authorization. It is never persisted.
type Card struct {
	Number     string
	Expiry     string
	CVV        string
	HolderName string
}

type Result struct {
	Approved bool
	Brand    string
	LastFour string
	// Reason is set on decline.
	Reason string
}

type Gateway interface {
	Authorize(ctx context.Context, card Card) (Result, error)
}

// Simulator answers from the test card table after a fixed delay.
// Numbers outside the table are approved with a prefix-inferred brand.
type Simulator struct {
	Delay time.Duration
}

func NewSimulator(delay time.Duration) *Simulator {
	return &Simulator{Delay: delay}
}

func (s *Simulator) Authorize(ctx context.Context, card Card) (Result, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	return Classify(card.Number), nil
}

// Classify looks a normalized card number up in the test card table.
func Classify(number string) Result {
	res := Result{LastFour: LastFour(number)}

	tc, ok := testCards[number]
	if !ok {
		res.Approved = true
		res.Brand = Brand(number)
		return res
	}

	res.Brand = tc.brand
	res.Approved = !tc.declined
	res.Reason = tc.reason
	return res
}
