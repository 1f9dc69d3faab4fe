package util

import (
	"time"

	"github.com/cenkalti/backoff"
)

// BackoffFactory creates a fresh backoff.BackOff for each retry episode.
type BackoffFactory func() backoff.BackOff

// NewConstantBackoffFactory creates a BackoffFactory whose policy waits exactly interval before every
// attempt and never gives up. It is an ExponentialBackOff with a Multiplier of 1.0 and no jitter,
// timed on clck.
func NewConstantBackoffFactory(interval time.Duration, clck backoff.Clock) BackoffFactory {
	return func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.Clock = clck
		bo.Multiplier = 1.0
		bo.RandomizationFactor = 0
		bo.InitialInterval = interval
		bo.MaxInterval = interval
		bo.MaxElapsedTime = 0
		bo.Reset() // Reset is required to make the InitialInterval change take effect.
		return bo
	}
}
