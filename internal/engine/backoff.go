// internal/engine/backoff.go
package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/d3vnull/restitch/api/schemas"
)

// jitterFraction is the ±25% window applied to exponential delays so that
// synchronized retries spread out instead of stampeding the page.
const jitterFraction = 0.25

// backoffDelay computes the sleep before the next attempt. attempt is the
// 1-based number of the attempt that just failed. The rng is injected so
// tests can seed it deterministically.
func backoffDelay(attempt int, cfg schemas.RetryConfig, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch cfg.Strategy {
	case schemas.BackoffImmediate:
		return 0
	case schemas.BackoffLinear:
		return time.Duration(cfg.BackoffMs*attempt) * time.Millisecond
	case schemas.BackoffExponential:
		base := float64(cfg.BackoffMs) * math.Pow(2, float64(attempt-1))
		jitter := 1 + (rng.Float64()*2-1)*jitterFraction
		ms := math.Round(base * jitter)
		if ms < 0 {
			ms = 0
		}
		return time.Duration(ms) * time.Millisecond
	default:
		return 0
	}
}
