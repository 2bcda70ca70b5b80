package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
)

const runKeyPrefix = "timetable:run:"

// RunRecord is what is retained for a run while its TTL lasts. Request is
// kept so exports can resolve names; it is dropped with the record.
type RunRecord struct {
	Run     models.SearchRun    `json:"run"`
	Request *dto.SearchRequest  `json:"request,omitempty"`
	Result  *dto.SearchResponse `json:"result,omitempty"`
}

// RunStore retains run records for a bounded time.
type RunStore interface {
	Save(ctx context.Context, record *RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
}

// NewRunStore picks the Redis-backed store when the cache is enabled and the
// in-process map otherwise.
func NewRunStore(cache *CacheService, ttl time.Duration) RunStore {
	if cache.Enabled() {
		return &cacheRunStore{cache: cache, ttl: ttl}
	}
	return newMemoryRunStore(ttl)
}

var errRunNotFound = appErrors.Clone(appErrors.ErrNotFound, "run not found or expired")

type memoryRunEntry struct {
	record  RunRecord
	savedAt time.Time
}

type memoryRunStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]memoryRunEntry
}

func newMemoryRunStore(ttl time.Duration) *memoryRunStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &memoryRunStore{ttl: ttl, now: time.Now, items: make(map[string]memoryRunEntry)}
}

func (s *memoryRunStore) Save(_ context.Context, record *RunRecord) error {
	if record == nil || record.Run.ID == "" {
		return fmt.Errorf("save run: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[record.Run.ID] = memoryRunEntry{record: *record, savedAt: s.now()}
	return nil
}

func (s *memoryRunStore) Get(_ context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errRunNotFound
	}
	if s.now().Sub(entry.savedAt) > s.ttl {
		s.delete(id)
		return nil, errRunNotFound
	}
	record := entry.record
	return &record, nil
}

func (s *memoryRunStore) delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// sweepLocked drops expired entries so abandoned runs do not accumulate.
func (s *memoryRunStore) sweepLocked() {
	now := s.now()
	for id, entry := range s.items {
		if now.Sub(entry.savedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}

type cacheRunStore struct {
	cache *CacheService
	ttl   time.Duration
}

func (s *cacheRunStore) Save(ctx context.Context, record *RunRecord) error {
	if record == nil || record.Run.ID == "" {
		return fmt.Errorf("save run: missing id")
	}
	return s.cache.Set(ctx, runKeyPrefix+record.Run.ID, record, s.ttl)
}

func (s *cacheRunStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	var record RunRecord
	hit, err := s.cache.Get(ctx, runKeyPrefix+id, &record)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrUnavailable, err, "result store unavailable")
	}
	if !hit {
		return nil, errRunNotFound
	}
	return &record, nil
}
