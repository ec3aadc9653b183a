// Package statsstore implements C2: monotonically-accumulating per-phase
// aggregates across runs, ground: the atomic read-modify-write idiom in
// campaign_store_counters_test.go and the teacher's
// `UPDATE ... SET x = x + $1` transaction pattern from
// campaign_worker_service.go's ConcurrentWorkerOperation.
package statsstore

import (
	"context"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
)

// Store loads and atomically updates PhaseStats. Record must be a no-op
// when itemsThisRun <= 0, per §4.2.
type Store interface {
	Load(ctx context.Context) (map[models.PhaseID]models.PhaseStats, error)
	Record(ctx context.Context, phase models.PhaseID, itemsThisRun int64, durationThisRunSeconds float64) error
}

// fold adds this run's totals onto existing and recomputes the average;
// shared by every Store implementation so the accumulation rule lives in
// one place regardless of backend.
func fold(existing models.PhaseStats, itemsThisRun int64, durationThisRunSeconds float64, now time.Time) models.PhaseStats {
	existing.TotalItemsProcessed += itemsThisRun
	existing.TotalDurationSeconds += durationThisRunSeconds
	if existing.TotalItemsProcessed > 0 {
		existing.AvgTimePerItemSeconds = existing.TotalDurationSeconds / float64(existing.TotalItemsProcessed)
	}
	existing.LastUpdatedTimestamp = now
	return existing
}
