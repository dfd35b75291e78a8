// Package backoff computes retry delays shared by source fetches and the
// snapshot updater.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

const jitterFrac = 0.2

// Exponential returns initial*2^(failures-1), capped at max, with +/-20%
// jitter so that concurrent retries do not line up.
func Exponential(initial, max time.Duration, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	pow := math.Pow(2, float64(failures-1))
	d := time.Duration(float64(initial) * pow)
	if d > max || d <= 0 {
		d = max
	}

	jitter := time.Duration(rand.Float64()*2*jitterFrac*float64(d)) -
		time.Duration(jitterFrac*float64(d))

	return d + jitter
}
