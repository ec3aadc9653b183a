package statsstore

import (
	"context"
	"sync"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
)

// MemoryStore is an in-process Store guarded by a single mutex, matching
// §5's "writes serialized via read-modify-write behind a store-level
// mutex" requirement directly.
type MemoryStore struct {
	mu    sync.Mutex
	stats map[models.PhaseID]models.PhaseStats
	now   func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stats: make(map[models.PhaseID]models.PhaseStats), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context) (map[models.PhaseID]models.PhaseStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.PhaseID]models.PhaseStats, len(s.stats))
	for k, v := range s.stats {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Record(_ context.Context, phase models.PhaseID, itemsThisRun int64, durationThisRunSeconds float64) error {
	if itemsThisRun <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.stats[phase]
	existing.PhaseID = phase
	s.stats[phase] = fold(existing, itemsThisRun, durationThisRunSeconds, s.now())
	return nil
}
