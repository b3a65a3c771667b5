package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recruitpro/internal/store"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Hiring Weekly</title>
  <link>https://hiring.example.com</link>
  <item>
    <title>Remote work is here to stay</title>
    <link>https://hiring.example.com/remote</link>
    <description><![CDATA[<p>Employers across <b>every</b> sector keep offering remote roles to attract talent in a tight market.</p><script>alert(1)</script>]]></description>
    <pubDate>Mon, 05 Oct 2026 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Salary transparency laws expand</title>
    <link>https://hiring.example.com/salary</link>
    <description>More states require pay ranges in job ads.</description>
    <pubDate>Tue, 06 Oct 2026 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Third item</title>
    <link>https://hiring.example.com/third</link>
    <description>Third.</description>
    <pubDate>Wed, 07 Oct 2026 09:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) GetTransient(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memoryCache) SetTransient(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteTransient(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, key)
	return nil
}

func (m *memoryCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func newFeedServer(t *testing.T, body string, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestCacheKey(t *testing.T) {
	key := CacheKey("https://example.com/feed")
	if !strings.HasPrefix(key, "recruitpro_rss_") {
		t.Errorf("Expected prefix 'recruitpro_rss_', got '%s'", key)
	}
	if len(key) != len("recruitpro_rss_")+32 {
		t.Errorf("Expected md5 hex suffix, got '%s'", key)
	}
	if key == CacheKey("https://example.com/other") {
		t.Error("Different urls should have different keys")
	}
}

func TestFetchParsesAndCaches(t *testing.T) {
	srv, hits := newFeedServer(t, sampleRSS, http.StatusOK)
	cache := newMemoryCache()
	agg := NewAggregator(cache, Options{MaxItems: 2, MaxWords: 5, Timeout: 5 * time.Second})

	items := agg.Fetch(context.Background(), srv.URL)
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	first := items[0]
	if first.Title != "Remote work is here to stay" {
		t.Errorf("Unexpected title '%s'", first.Title)
	}
	if first.Description != "Employers across every sector keep…" {
		t.Errorf("Unexpected description '%s'", first.Description)
	}
	if first.Source != "Hiring Weekly" {
		t.Errorf("Expected source 'Hiring Weekly', got '%s'", first.Source)
	}
	if first.Published.IsZero() {
		t.Error("Expected published date to be parsed")
	}

	agg.Fetch(context.Background(), srv.URL)
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("Expected 1 upstream hit thanks to the cache, got %d", got)
	}
}

func TestFetchFailureReturnsEmpty(t *testing.T) {
	srv, _ := newFeedServer(t, "oops", http.StatusInternalServerError)
	cache := newMemoryCache()
	agg := NewAggregator(cache, Options{Timeout: 5 * time.Second})

	items := agg.Fetch(context.Background(), srv.URL)
	if items == nil {
		t.Fatal("Expected a non-nil empty slice")
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
	if cache.len() != 0 {
		t.Error("Failures must not be cached")
	}
}

func TestFetchUnparseableFeedReturnsEmpty(t *testing.T) {
	srv, _ := newFeedServer(t, "<html>not a feed</html>", http.StatusOK)
	agg := NewAggregator(newMemoryCache(), Options{Timeout: 5 * time.Second})

	if items := agg.Fetch(context.Background(), srv.URL); len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
}

func TestFetchAllKeepsOrder(t *testing.T) {
	good, _ := newFeedServer(t, sampleRSS, http.StatusOK)
	bad, _ := newFeedServer(t, "", http.StatusBadGateway)
	agg := NewAggregator(newMemoryCache(), Options{Timeout: 5 * time.Second})

	results := agg.FetchAll(context.Background(), []string{bad.URL, good.URL})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].URL != bad.URL || !results[0].Unavailable {
		t.Errorf("Expected first result to be the unavailable feed, got %+v", results[0])
	}
	if results[0].Items == nil {
		t.Error("Unavailable feed should still carry an empty item slice")
	}
	if results[1].Unavailable || results[1].Title != "Hiring Weekly" {
		t.Errorf("Expected second result to load, got %+v", results[1])
	}
}

func TestWarmKeepsPreviousCopyOnFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	agg := NewAggregator(cache, Options{Timeout: 5 * time.Second})
	if err := agg.Warm(context.Background(), srv.URL); err != nil {
		t.Fatalf("first warm: %v", err)
	}

	fail.Store(true)
	if err := agg.Warm(context.Background(), srv.URL); err == nil {
		t.Fatal("Expected warm to fail")
	}
	if items := agg.Fetch(context.Background(), srv.URL); len(items) == 0 {
		t.Error("Expected cached items to survive a failed warm")
	}
}

func TestDropMissingIsNotAnError(t *testing.T) {
	agg := NewAggregator(newMemoryCache(), Options{})
	if err := agg.drop(context.Background(), "https://example.com/feed"); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestUnreadableCacheEntryIsReplaced(t *testing.T) {
	srv, hits := newFeedServer(t, sampleRSS, http.StatusOK)
	cache := newMemoryCache()
	cache.items[CacheKey(srv.URL)] = []byte("{not json")
	agg := NewAggregator(cache, Options{})

	items := agg.Fetch(context.Background(), srv.URL)
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Errorf("Expected 1 upstream fetch, got %d", atomic.LoadInt32(hits))
	}

	var cached cachedFeed
	if found, err := cache.GetTransient(context.Background(), CacheKey(srv.URL), &cached); !found || err != nil {
		t.Fatalf("Expected a readable cache entry, got found=%v err=%v", found, err)
	}
	if len(cached.Items) != 3 {
		t.Errorf("Expected 3 cached items, got %d", len(cached.Items))
	}
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	agg := NewAggregator(newMemoryCache(), Options{})

	const callers = 20
	start := make(chan struct{})
	counts := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			counts[i] = len(agg.Fetch(context.Background(), srv.URL))
		}(i)
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected 1 upstream fetch for %d concurrent misses, got %d", callers, got)
	}
	for i, n := range counts {
		if n != 3 {
			t.Errorf("Caller %d: expected 3 items, got %d", i, n)
		}
	}
}

func TestMerge(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }
	results := []Result{
		{Items: []Item{{Title: "a", Published: day(1)}, {Title: "c", Published: day(3)}}},
		{Items: []Item{{Title: "b", Published: day(2)}}},
	}
	merged := Merge(results, 2)
	if len(merged) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(merged))
	}
	if merged[0].Title != "c" || merged[1].Title != "b" {
		t.Errorf("Expected newest first, got %s, %s", merged[0].Title, merged[1].Title)
	}
}

type countingPurger struct{ calls int }

func (p *countingPurger) PurgeExpiredTransients(context.Context) (int64, error) {
	p.calls++
	return 3, nil
}

func TestRefresherReports(t *testing.T) {
	good, _ := newFeedServer(t, sampleRSS, http.StatusOK)
	bad, _ := newFeedServer(t, "", http.StatusNotFound)
	agg := NewAggregator(newMemoryCache(), Options{Timeout: 5 * time.Second})
	purger := &countingPurger{}

	var reported RefreshReport
	r := NewRefresher(agg, []string{good.URL, bad.URL}, purger, func(rep RefreshReport) {
		reported = rep
	})
	report := r.Refresh(context.Background())

	if report.OK != 1 || report.Failed != 1 {
		t.Errorf("Expected 1 ok and 1 failed, got %+v", report)
	}
	if report.Purged != 3 || purger.calls != 1 {
		t.Errorf("Expected purge to run once, got %+v", report)
	}
	if reported.OK != report.OK {
		t.Error("Expected report callback to receive the report")
	}
}

func TestRefresherRejectsBadSpec(t *testing.T) {
	r := NewRefresher(NewAggregator(newMemoryCache(), Options{}), nil, nil, nil)
	if err := r.Start(context.Background(), "not a spec"); err == nil {
		r.Stop()
		t.Error("Expected error for invalid cron spec")
	}
}
