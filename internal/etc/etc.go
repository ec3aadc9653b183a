// Package etc implements C4: per-phase completion-time estimation from a
// bounded ring of recent item durations, seeded from historical averages.
// Ground: the bounded-history + median idiom has no direct teacher
// analogue; the ring itself is modeled on patrickmn/go-cache's
// expiring-entry bookkeeping style (fixed capacity, oldest evicted first),
// generalized to a plain slice since go-cache itself is keyed by string and
// has no ordering guarantee suitable for a ring.
package etc

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/fntelecomllc/kbagent/internal/statsstore"
)

// RingCapacity bounds the number of recent item durations kept per phase.
const RingCapacity = 50

// noise filter bounds from §4.4: samples outside this range are discarded
// as measurement noise rather than folded into the estimate.
const (
	minSampleDuration = 100 * time.Millisecond
	maxSampleDuration = time.Hour
)

// state is the per-active-phase bookkeeping the estimator holds between
// init and finalize.
type state struct {
	totalItems       int
	processedItems   int
	startTime        time.Time
	lastUpdateTime   time.Time
	itemTimes        []time.Duration // bounded ring, oldest evicted first
	currentAvg       time.Duration
	historicalAvg    time.Duration
	estimatedDoneAt  *time.Time
}

// Estimator tracks in-flight phases and emits best-estimate completion
// timestamps, refining from live samples as items complete.
type Estimator struct {
	mu     sync.Mutex
	stats  statsstore.Store
	now    func() time.Time
	phases map[models.PhaseID]*state
}

// New constructs an Estimator backed by stats for historical seeding.
func New(stats statsstore.Store) *Estimator {
	return &Estimator{stats: stats, now: time.Now, phases: make(map[models.PhaseID]*state)}
}

// Snapshot is the estimator's best-effort answer at a point in time.
type Snapshot struct {
	CurrentAvgTimePerItem   time.Duration
	EstimatedCompletionTime *time.Time
}

// Init begins tracking phase, seeding the estimate from StatsStore's
// historical average if one exists.
func (e *Estimator) Init(ctx context.Context, phase models.PhaseID, totalItems int) (Snapshot, error) {
	now := e.now()
	st := &state{
		totalItems:     totalItems,
		startTime:      now,
		lastUpdateTime: now,
	}

	historical, err := e.stats.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if ph, ok := historical[phase]; ok && ph.AvgTimePerItemSeconds > 0 {
		st.historicalAvg = time.Duration(ph.AvgTimePerItemSeconds * float64(time.Second))
		eta := now.Add(time.Duration(totalItems) * st.historicalAvg)
		st.estimatedDoneAt = &eta
	}

	e.mu.Lock()
	e.phases[phase] = st
	e.mu.Unlock()

	return st.snapshot(), nil
}

// Update advances processedItems for phase and, if itemDuration is
// non-nil, folds it into the ring directly; otherwise it infers a
// per-item duration from elapsed time since the last update divided by
// how many items advanced, per §4.4's "delta_items" rule. A delta of zero
// is a no-op on the ring, matching the edge case in §9.
func (e *Estimator) Update(phase models.PhaseID, processedItems int, itemDuration *time.Duration) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.phases[phase]
	if !ok {
		return Snapshot{}
	}

	now := e.now()
	deltaItems := processedItems - st.processedItems
	st.processedItems = processedItems

	var sample time.Duration
	haveSample := false
	switch {
	case itemDuration != nil:
		sample, haveSample = *itemDuration, true
	case deltaItems > 0:
		sample, haveSample = now.Sub(st.lastUpdateTime)/time.Duration(deltaItems), true
	}
	st.lastUpdateTime = now

	if haveSample && sample >= minSampleDuration && sample <= maxSampleDuration {
		st.itemTimes = append(st.itemTimes, sample)
		if len(st.itemTimes) > RingCapacity {
			st.itemTimes = st.itemTimes[len(st.itemTimes)-RingCapacity:]
		}
	}

	if len(st.itemTimes) > 0 {
		st.currentAvg = median(st.itemTimes)
	} else {
		st.currentAvg = st.historicalAvg
	}

	if st.currentAvg > 0 {
		remaining := st.totalItems - st.processedItems
		if remaining < 0 {
			remaining = 0
		}
		eta := now.Add(time.Duration(remaining) * st.currentAvg)
		st.estimatedDoneAt = &eta
	}

	return st.snapshot()
}

// Finalize computes this run's total elapsed duration for phase, forwards
// it to StatsStore, and drops the in-memory entry.
func (e *Estimator) Finalize(ctx context.Context, phase models.PhaseID) error {
	e.mu.Lock()
	st, ok := e.phases[phase]
	if ok {
		delete(e.phases, phase)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}

	totalDuration := e.now().Sub(st.startTime)
	return e.stats.Record(ctx, phase, int64(st.processedItems), totalDuration.Seconds())
}

// Current returns the latest snapshot for phase without mutating state.
func (e *Estimator) Current(phase models.PhaseID) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.phases[phase]
	if !ok {
		return Snapshot{}, false
	}
	return st.snapshot(), true
}

func (st *state) snapshot() Snapshot {
	return Snapshot{CurrentAvgTimePerItem: st.currentAvg, EstimatedCompletionTime: st.estimatedDoneAt}
}

// median returns the middle value of durations (mean of the two middle
// values for an even-length slice), guarding single-item outliers per
// §4.4's stated rationale.
func median(durations []time.Duration) time.Duration {
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
