package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	appErrors "github.com/noah-isme/timetable-sa-api/pkg/errors"
)

type memoryCacheRepo struct {
	items map[string][]byte
	ttls  map[string]time.Duration
	err   error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (r *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if r.err != nil {
		return r.err
	}
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.items[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) Delete(_ context.Context, key string) error {
	delete(r.items, key)
	return nil
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)
	assert.False(t, svc.Enabled())
	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", 1, 0))

	var nilService *CacheService
	assert.False(t, nilService.Enabled())
	_, isMemory := NewRunStore(nilService, time.Minute).(*memoryRunStore)
	assert.True(t, isMemory)
}

func TestCacheServiceRecordsLookups(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "absent", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "present", map[string]int{"a": 1}, 0))
	assert.Equal(t, time.Minute, repo.ttls["present"])

	var out map[string]int
	hit, err = svc.Get(context.Background(), "present", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, out["a"])

	repo.err = errors.New("connection refused")
	_, err = svc.Get(context.Background(), "present", &out)
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))

	require.NoError(t, svc.Delete(context.Background(), "present"))
	hit, _ = svc.Get(context.Background(), "present", &out)
	assert.False(t, hit)
}

func TestCacheRunStoreRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	store := NewRunStore(NewCacheService(repo, nil, time.Minute, nil, true), 5*time.Minute)
	_, isCache := store.(*cacheRunStore)
	require.True(t, isCache)

	record := &RunRecord{
		Run:    models.SearchRun{ID: "run-9", Status: models.SearchRunStatusCompleted},
		Result: &dto.SearchResponse{RunID: "run-9", Cost: 3, Solution: models.Schedule{{Course: "c1", Timeslot: "t1", Room: "r1"}}},
	}
	require.NoError(t, store.Save(context.Background(), record))
	assert.Equal(t, 5*time.Minute, repo.ttls[runKeyPrefix+"run-9"])

	loaded, err := store.Get(context.Background(), "run-9")
	require.NoError(t, err)
	assert.Equal(t, record.Result.Solution, loaded.Result.Solution)

	_, err = store.Get(context.Background(), "run-0")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	repo.err = errors.New("timeout")
	_, err = store.Get(context.Background(), "run-9")
	assert.True(t, errors.Is(err, appErrors.ErrUnavailable))
}

func TestMetricsServiceExposesSearchCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveSearch(models.SearchVariantHybrid, searchOutcomeCompleted, 20*time.Millisecond, 120, 3)
	metrics.ObserveSearch(models.SearchVariantHybrid, searchOutcomeFailed, time.Millisecond, 0, 0)
	metrics.ObserveHTTPRequest("POST", "/api/hybrid_sa", 200, 25*time.Millisecond)
	metrics.JobStarted()

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.searchClamped.WithLabelValues("hybrid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.jobsInFlight))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `timetable_searches_total{outcome="failed",variant="hybrid"} 1`))
	assert.True(t, strings.Contains(body, "http_requests_total"))

	var nilMetrics *MetricsService
	nilMetrics.ObserveSearch(models.SearchVariantHybrid, searchOutcomeCompleted, 0, 0, 0)
	rec = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 503, rec.Code)
}
