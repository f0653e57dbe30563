// Package backoff provides exponential backoff with jitter for retrying
// transient LLM transport failures.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines the parameters for exponential backoff calculation.
type Policy struct {
	InitialMs float64
	MaxMs     float64
	Factor    float64
	Jitter    float64
}

// Compute calculates the backoff duration for a given attempt (1-indexed):
// base = InitialMs * Factor^(attempt-1), plus up to Jitter*base of random
// jitter, clamped to MaxMs.
func Compute(policy Policy, attempt int) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := policy.InitialMs * math.Pow(policy.Factor, exp)
	jitterAmount := base * policy.Jitter * rand.Float64() // #nosec G404 -- jitter, not security sensitive
	total := math.Min(policy.MaxMs, base+jitterAmount)
	return time.Duration(math.Round(total)) * time.Millisecond
}

// Default returns a sensible default backoff policy: 200ms initial, 30s max,
// factor 2, 10% jitter.
func Default() Policy {
	return Policy{InitialMs: 200, MaxMs: 30000, Factor: 2, Jitter: 0.1}
}
