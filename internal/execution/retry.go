package execution

import (
	"math/rand"
	"time"
)

// RetryPolicy is the exponential-backoff-with-jitter schedule applied to
// transient job failures (Open Question #3, decided in DESIGN.md): base
// delay doubling each attempt up to a cap, bounded by the handler's own
// MaxRetries.
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Factor     float64
	MaxRetries int
}

// DefaultRetryPolicy returns the engine's default schedule: 500ms base,
// factor 2, 30s cap, 3 retries — used whenever a handler's own MaxRetries
// is non-positive.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Factor:     2.0,
		MaxRetries: 3,
	}
}

// Delay returns the backoff duration before retry attempt n (1-indexed),
// with up to 20% jitter to avoid thundering-herd retries against the same
// provider.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Factor
	}
	max := float64(p.MaxDelay)
	if d > max {
		d = max
	}
	jitter := d * 0.2 * rand.Float64()
	return time.Duration(d + jitter)
}

// WithHandlerMaxRetries returns a copy of p using handlerMax in place of
// p.MaxRetries when handlerMax is positive, per §4.4 step 6's
// "retry up to a provider-specified bound".
func (p RetryPolicy) WithHandlerMaxRetries(handlerMax int) RetryPolicy {
	if handlerMax > 0 {
		p.MaxRetries = handlerMax
	}
	return p
}
