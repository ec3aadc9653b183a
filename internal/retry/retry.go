// Package retry implements C5: failure classification, backoff
// scheduling, and per-item circuit breaking for item-level operations.
// Ground: error_management_service.go's ClassifyError/ProcessErrorWithPolicy
// for the classify-then-apply-policy shape; the per-item breaker uses
// patrickmn/go-cache for its built-in TTL expiry instead of a hand-rolled
// timer, the same library the teacher uses for its persona/config caches.
package retry

import (
	"math/rand"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

// Manager decides whether, when, and how to retry failed item-level
// operations, and tracks a per-item circuit breaker. Retry metadata itself
// lives on ItemRecord (via the ItemPatch Manager returns), not here, so a
// process restart resumes retry schedules correctly; only the transient
// breaker-open state is held in Manager's own cache.
type Manager struct {
	policy   Policy
	breakers *gocache.Cache
	now      func() time.Time
	rng      *rand.Rand
}

// New constructs a Manager applying policy, with no items currently
// breaker-tripped.
func New(policy Policy) *Manager {
	return &Manager{
		policy:   policy,
		breakers: gocache.New(gocache.NoExpiration, time.Minute),
		now:      time.Now,
		//nolint:gosec // jitter does not need cryptographic randomness
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ShouldRetry reports whether itemID is currently eligible for a retry of
// record, given err (the failure that just occurred, or nil to check
// general eligibility without classifying a fresh error). A breaker-open
// item never retries, regardless of any other state; PERMANENT_ERROR never
// retries; and retry_count at or beyond max_retries never retries.
func (m *Manager) ShouldRetry(itemID string, record models.ItemRecord, err error) bool {
	if m.breakerOpen(itemID) {
		return false
	}
	if err != nil && Classify(err) == models.FailurePermanentError {
		return false
	}
	if m.policy.Strategy == models.RetryStrategyNone {
		return false
	}
	return record.RetryCount < m.policy.MaxRetries
}

// ScheduleRetry classifies err, computes the next backoff, and returns the
// ItemPatch the caller must apply to ItemStore to record the attempt:
// incremented retry_count, next_retry_after, failure_type, and a bounded
// append to retry_history (oldest entries dropped past RetryHistoryCap).
func (m *Manager) ScheduleRetry(record models.ItemRecord, err error) models.ItemPatch {
	failureType := Classify(err)
	attempt := record.RetryCount + 1
	delay := m.policy.delay(failureType, attempt, m.rng)

	now := m.now()
	nextRetryAfter := now.Add(delay)
	failureTypeStr := string(failureType)

	msg := ""
	if err != nil {
		msg = err.Error()
	}

	return models.ItemPatch{
		RetryCount:       &attempt,
		LastRetryAttempt: &now,
		NextRetryAfter:   &nextRetryAfter,
		FailureType:      &failureTypeStr,
		AppendRetryHistory: &models.RetryAttempt{
			AttemptedAt:  now,
			FailureType:  failureType,
			Error:        msg,
			DelaySeconds: delay.Seconds(),
		},
	}
}

// GetRetryable filters records down to those with an outstanding error on
// any phase, not breaker-tripped, whose next_retry_after has arrived.
func (m *Manager) GetRetryable(records map[string]models.ItemRecord) []string {
	now := m.now()
	var ids []string
	for id, rec := range records {
		if !hasAnyError(rec) {
			continue
		}
		if m.breakerOpen(id) {
			continue
		}
		if rec.NextRetryAfter.Valid && rec.NextRetryAfter.Time.After(now) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Clear returns the ItemPatch that wipes an item's retry bookkeeping after
// a successful operation, and clears its circuit-breaker state. It does
// not touch per-phase error annotations: those are scoped to the phase
// that owns them and are cleared by that phase's own success patch.
func (m *Manager) Clear(itemID string) models.ItemPatch {
	m.breakers.Delete(itemID)
	zero := 0
	var nilTime *time.Time
	var nilStr *string
	return models.ItemPatch{
		RetryCount:       &zero,
		LastRetryAttempt: nilTime,
		NextRetryAfter:   nilTime,
		FailureType:      nilStr,
	}
}

// OpenBreaker manually trips itemID's breaker for duration, overriding the
// policy's configured cool-off for this one trip.
func (m *Manager) OpenBreaker(itemID string, duration time.Duration) {
	m.breakers.Set(itemID, true, duration)
}

// BreakerOpen reports whether itemID's circuit breaker is currently open.
func (m *Manager) BreakerOpen(itemID string) bool { return m.breakerOpen(itemID) }

func (m *Manager) breakerOpen(itemID string) bool {
	_, found := m.breakers.Get(itemID)
	return found
}

func (m *Manager) tripBreaker(itemID string) {
	cooloff := m.policy.BreakerCooloff
	if cooloff <= 0 {
		cooloff = 60 * time.Minute
	}
	m.breakers.Set(itemID, true, cooloff)
}

// RecordFailure classifies err and, if the attempt exhausts max_retries,
// trips itemID's breaker for the configured cool-off so further
// ShouldRetry calls short-circuit immediately.
func (m *Manager) RecordFailure(itemID string, record models.ItemRecord, err error) {
	if record.RetryCount+1 >= m.policy.MaxRetries {
		m.tripBreaker(itemID)
	}
}

func hasAnyError(r models.ItemRecord) bool {
	return r.CacheError.Valid || r.MediaError.Valid || r.CategoriesError.Valid ||
		r.KBItemError.Valid || r.DBSyncError.Valid
}
