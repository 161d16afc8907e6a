package messenger

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out consecutive attendees of a bulk send.
type Pacer interface {
	// Wait blocks until the next attendee may be processed or ctx is done.
	Wait(ctx context.Context) error
}

// FixedInterval waits the same delay between attendees.
type FixedInterval time.Duration

func (d FixedInterval) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RateLimited is a token-bucket pacer: perSecond sustained, burst at most.
type RateLimited struct {
	limiter *rate.Limiter
}

// NewRateLimited creates a token-bucket pacer. burst below 1 is treated as 1.
func NewRateLimited(perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
