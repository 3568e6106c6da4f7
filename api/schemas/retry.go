package schemas

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy string

const (
	BackoffImmediate   BackoffStrategy = "immediate"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig governs the retry loop of the executor.
type RetryConfig struct {
	MaxAttempts int             `json:"max_attempts"`
	BackoffMs   int             `json:"backoff_ms"`
	Strategy    BackoffStrategy `json:"strategy"`
}

// DefaultRetryConfig returns the engine wide fallback policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BackoffMs: 500, Strategy: BackoffExponential}
}

// Normalize clamps the config into its invariants: MaxAttempts >= 1,
// BackoffMs >= 0, and a known strategy (unknown falls back to exponential).
func (c RetryConfig) Normalize() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BackoffMs < 0 {
		c.BackoffMs = 0
	}
	switch c.Strategy {
	case BackoffImmediate, BackoffLinear, BackoffExponential:
	default:
		c.Strategy = BackoffExponential
	}
	return c
}
