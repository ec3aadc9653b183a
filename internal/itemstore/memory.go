package itemstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
)

// MemoryStore is an in-process Store backed by a mutex-guarded map; it
// satisfies the same interface as the Postgres store and is used both as
// a test double and as a durable-enough store for single-process
// deployments, ground: the teacher's read-through cache wrapper over a
// primary store (internal/store/cached).
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.ItemRecord
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.ItemRecord), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, itemID string) (*models.ItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[itemID]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (s *MemoryStore) GetMany(_ context.Context, itemIDs []string) (map[string]*models.ItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.ItemRecord, len(itemIDs))
	for _, id := range itemIDs {
		if rec, ok := s.records[id]; ok {
			clone := *rec
			out[id] = &clone
		}
	}
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, itemID string, patch models.ItemPatch) (*models.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[itemID]
	var base models.ItemRecord
	if ok {
		base = *existing
	} else {
		base = models.ItemRecord{ItemID: itemID, CreatedAt: s.now()}
	}
	merged := ApplyPatch(base, patch)
	merged.ItemID = itemID
	merged.UpdatedAt = s.now()
	s.records[itemID] = &merged
	clone := merged
	return &clone, nil
}

func (s *MemoryStore) SetFlags(_ context.Context, itemID string, flags models.FlagPatch) (*models.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[itemID]
	var base models.ItemRecord
	if ok {
		base = *existing
	} else {
		base = models.ItemRecord{ItemID: itemID, CreatedAt: s.now()}
	}
	merged := ApplyFlags(base, flags)
	merged.ItemID = itemID
	merged.UpdatedAt = s.now()
	s.records[itemID] = &merged
	clone := merged
	return &clone, nil
}

func (s *MemoryStore) ClearRuntimeFlags(_ context.Context, itemIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range itemIDs {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		clone := *rec
		clone.CacheSucceededThisRun = false
		clone.MediaSucceededThisRun = false
		clone.CategoriesSucceededThisRun = false
		clone.KBItemSucceededThisRun = false
		clone.DBSyncSucceededThisRun = false
		clone.UpdatedAt = s.now()
		s.records[id] = &clone
	}
	return nil
}

// ListByPredicate performs a full scan; O(n) in the number of stored
// records. Implementers backed by an index (e.g. Postgres) may do better.
func (s *MemoryStore) ListByPredicate(_ context.Context, predicate func(*models.ItemRecord) bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, rec := range s.records {
		if predicate(rec) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]string, error) {
	return s.ListByPredicate(ctx, func(*models.ItemRecord) bool { return true })
}
