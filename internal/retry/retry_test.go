package retry

import (
	"database/sql"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
)

func testPolicy() Policy {
	return Policy{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          300 * time.Second,
		ExponentialFactor: 2,
		JitterEnabled:     false,
		Strategy:          models.RetryStrategyExponential,
		BreakerCooloff:    60 * time.Minute,
	}
}

func TestClassifyKnownSubstrings(t *testing.T) {
	cases := map[string]models.FailureTypeEnum{
		"connection refused":       models.FailureNetworkError,
		"rate limit exceeded":      models.FailureRateLimit,
		"403 forbidden":            models.FailureConfigurationError,
		"invalid JSON payload":     models.FailureDataError,
		"resource not found: 404":  models.FailurePermanentError,
		"something weird happened": models.FailureTemporaryError,
	}
	for msg, want := range cases {
		got := Classify(errors.New(msg))
		if got != want {
			t.Errorf("Classify(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestExponentialBackoffGrowsByFactor(t *testing.T) {
	p := testPolicy()
	rng := deterministicRNG()
	d1 := p.delay(models.FailureTemporaryError, 1, rng)
	d2 := p.delay(models.FailureTemporaryError, 2, rng)
	d3 := p.delay(models.FailureTemporaryError, 3, rng)
	if d1 != time.Second || d2 != 2*time.Second || d3 != 4*time.Second {
		t.Fatalf("expected 1s,2s,4s got %v,%v,%v", d1, d2, d3)
	}
}

func TestRateLimitUsesTenXBaseDelay(t *testing.T) {
	p := testPolicy()
	rng := deterministicRNG()
	got := p.delay(models.FailureRateLimit, 1, rng)
	if got != 10*time.Second {
		t.Fatalf("expected 10s base for rate limit attempt 1, got %v", got)
	}
}

func TestDelayClampsToMaxDelay(t *testing.T) {
	p := testPolicy()
	p.MaxDelay = 5 * time.Second
	rng := deterministicRNG()
	got := p.delay(models.FailureTemporaryError, 10, rng)
	if got != 5*time.Second {
		t.Fatalf("expected clamp to 5s, got %v", got)
	}
}

func TestShouldRetryFalseWhenBreakerOpen(t *testing.T) {
	m := New(testPolicy())
	m.OpenBreaker("item-1", time.Hour)
	if m.ShouldRetry("item-1", models.ItemRecord{}, nil) {
		t.Fatalf("expected should_retry false while breaker open")
	}
}

func TestShouldRetryFalseForPermanentError(t *testing.T) {
	m := New(testPolicy())
	if m.ShouldRetry("item-1", models.ItemRecord{}, errors.New("item not found: 404")) {
		t.Fatalf("expected should_retry false for permanent error")
	}
}

func TestShouldRetryFalseAtMaxRetries(t *testing.T) {
	m := New(testPolicy())
	rec := models.ItemRecord{RetryCount: 3}
	if m.ShouldRetry("item-1", rec, errors.New("temporary blip")) {
		t.Fatalf("expected should_retry false once retry_count reaches max_retries")
	}
}

func TestRecordFailureTripsBreakerAtMaxRetries(t *testing.T) {
	m := New(testPolicy())
	rec := models.ItemRecord{RetryCount: 2}
	m.RecordFailure("item-1", rec, errors.New("temporary blip"))
	if !m.BreakerOpen("item-1") {
		t.Fatalf("expected breaker open after exhausting retries")
	}
}

func TestGetRetryableFiltersByEligibility(t *testing.T) {
	m := New(testPolicy())
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	records := map[string]models.ItemRecord{
		"ready":        {CacheError: sql.NullString{String: "x", Valid: true}, NextRetryAfter: sql.NullTime{Time: past, Valid: true}},
		"not-yet-due":  {CacheError: sql.NullString{String: "x", Valid: true}, NextRetryAfter: sql.NullTime{Time: future, Valid: true}},
		"no-error":     {},
		"breaker-open": {CacheError: sql.NullString{String: "x", Valid: true}, NextRetryAfter: sql.NullTime{Time: past, Valid: true}},
	}
	m.OpenBreaker("breaker-open", time.Hour)

	got := m.GetRetryable(records)
	if len(got) != 1 || got[0] != "ready" {
		t.Fatalf("expected only %q, got %v", "ready", got)
	}
}

func TestClearWipesRetryMetadataAndBreaker(t *testing.T) {
	m := New(testPolicy())
	m.OpenBreaker("item-1", time.Hour)
	patch := m.Clear("item-1")
	if *patch.RetryCount != 0 {
		t.Fatalf("expected retry_count reset to 0")
	}
	if patch.NextRetryAfter != nil || patch.FailureType != nil {
		t.Fatalf("expected next_retry_after/failure_type cleared")
	}
	if m.BreakerOpen("item-1") {
		t.Fatalf("expected breaker cleared")
	}
}

func deterministicRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}
