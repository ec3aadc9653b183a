package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
)

// jitterLow and jitterHigh bound the uniform jitter multiplier applied to
// the computed delay when jitter is enabled.
const (
	jitterLow  = 0.8
	jitterHigh = 1.2

	// rateLimitBaseMultiplier scales base_delay before strategy
	// multiplication for RATE_LIMIT failures, per §4.5.
	rateLimitBaseMultiplier = 10
)

// Policy is the RetryManager's configured defaults, mirrored 1:1 from
// config.RetryConfig but expressed in native Go types (time.Duration
// instead of float seconds) for arithmetic convenience.
type Policy struct {
	MaxRetries         int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	ExponentialFactor  float64
	JitterEnabled      bool
	Strategy           models.RetryStrategyEnum
	BreakerCooloff     time.Duration
}

// delay computes the backoff before attempt n (1-indexed) for failureType,
// applying the RATE_LIMIT base-delay multiplier, clamping to MaxDelay, and
// applying jitter last so the clamp bound itself is never exceeded.
func (p Policy) delay(failureType models.FailureTypeEnum, attempt int, rng *rand.Rand) time.Duration {
	base := p.BaseDelay
	if failureType == models.FailureRateLimit {
		base *= rateLimitBaseMultiplier
	}

	var raw time.Duration
	switch p.Strategy {
	case models.RetryStrategyLinear:
		raw = base * time.Duration(attempt)
	case models.RetryStrategyImmediate:
		raw = 0
	case models.RetryStrategyNone:
		raw = 0
	default: // exponential
		raw = time.Duration(float64(base) * math.Pow(p.ExponentialFactor, float64(attempt-1)))
	}

	if raw > p.MaxDelay {
		raw = p.MaxDelay
	}
	if raw <= 0 {
		return 0
	}
	if !p.JitterEnabled {
		return raw
	}
	factor := jitterLow + rng.Float64()*(jitterHigh-jitterLow)
	jittered := time.Duration(float64(raw) * factor)
	if jittered > p.MaxDelay {
		jittered = p.MaxDelay
	}
	return jittered
}
