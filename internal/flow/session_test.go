package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vinulakkur23/forkful-lite/internal/location"
	"github.com/vinulakkur23/forkful-lite/internal/places"
)

func TestBeginSamePhotoURIIsNoop(t *testing.T) {
	m := NewManager()
	s1, fresh := m.Begin("ph://a")
	if !fresh {
		t.Fatal("first Begin should be fresh")
	}
	s2, fresh := m.Begin("ph://a")
	if fresh {
		t.Error("re-Begin with same URI should not be fresh")
	}
	if s1 != s2 {
		t.Error("re-Begin with same URI should return the same session")
	}
	if !s1.Active() {
		t.Error("session should remain active after duplicate Begin")
	}
}

func TestBeginNewPhotoSupersedesOld(t *testing.T) {
	m := NewManager()
	s1, _ := m.Begin("ph://a")
	s1.Cache().Put(Suggestions{Restaurants: []places.Restaurant{{Name: "A"}}, PhotoURI: "ph://a"})

	s2, fresh := m.Begin("ph://b")
	if !fresh {
		t.Fatal("Begin with new URI should be fresh")
	}
	if s1 == s2 || s1.ID == s2.ID {
		t.Error("new session should have a new identity")
	}
	if s1.Active() {
		t.Error("old session context should be canceled")
	}
	select {
	case <-s1.Context().Done():
	default:
		t.Error("old session context not done")
	}
	if _, ok := s1.Cache().Get("ph://a"); ok {
		t.Error("old session cache should be cleared synchronously")
	}
	if !m.IsActive(s2.ID) || m.IsActive(s1.ID) {
		t.Error("IsActive should track only the new session")
	}
}

// Once photo B's session is active, no read path may return data tagged A.
func TestCacheStalenessInvariant(t *testing.T) {
	m := NewManager()
	sA, _ := m.Begin("ph://a")
	cacheA := sA.Cache()

	sB, _ := m.Begin("ph://b")

	// A slow fetch for photo A completes late and writes into the old cache.
	cacheA.Put(Suggestions{Restaurants: []places.Restaurant{{Name: "Stale"}}, PhotoURI: "ph://a"})

	if _, ok := sB.Cache().Get("ph://b"); ok {
		t.Error("new session cache should be empty")
	}
	// Even reading the old cache with the new URI must return nothing.
	if _, ok := cacheA.Get("ph://b"); ok {
		t.Error("tag mismatch must read as no data")
	}
}

func TestCacheRejectsUntaggedData(t *testing.T) {
	c := &SuggestionCache{}
	c.Put(Suggestions{Restaurants: []places.Restaurant{{Name: "X"}}})
	if _, ok := c.Get(""); ok {
		t.Error("untagged suggestions must not be stored")
	}
}

func TestEnd(t *testing.T) {
	m := NewManager()
	s, _ := m.Begin("ph://a")
	m.End()
	if s.Active() {
		t.Error("End should cancel the session")
	}
	if m.Active() != nil {
		t.Error("End should drop the active session")
	}
}

// --- prefetcher ---

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results []places.Restaurant
	err     error
	block   chan struct{} // if set, wait before returning
}

func (f *fakeSearcher) NearbySearch(ctx context.Context, lat, lng float64, radius int) ([]places.Restaurant, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, f.err
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSuggester struct {
	meal string
	err  error
}

func (f *fakeSuggester) SuggestMeal(ctx context.Context, r places.Restaurant) (string, error) {
	return f.meal, f.err
}

func TestWarmPopulatesCache(t *testing.T) {
	m := NewManager()
	sess, _ := m.Begin("ph://a")
	sess.Resolver().Offer(location.Candidate{Latitude: 40.73, Longitude: -73.99, Source: location.SourceDevice})

	search := &fakeSearcher{results: []places.Restaurant{{ID: "p1", Name: "Joe's Pizza"}}}
	p := NewPrefetcher(search, &fakeSuggester{meal: "Margherita slice"})
	p.Warm(sess)

	sug, ok := sess.Cache().Get("ph://a")
	if !ok {
		t.Fatal("cache should be warm")
	}
	if len(sug.Restaurants) != 1 || sug.Restaurants[0].Name != "Joe's Pizza" {
		t.Errorf("restaurants = %+v", sug.Restaurants)
	}
	if sug.MealSuggestion != "Margherita slice" {
		t.Errorf("meal suggestion = %q", sug.MealSuggestion)
	}
	if sug.PhotoURI != "ph://a" {
		t.Errorf("tag = %q, want ph://a", sug.PhotoURI)
	}
}

func TestWarmOncePerSession(t *testing.T) {
	m := NewManager()
	sess, _ := m.Begin("ph://a")
	sess.Resolver().Offer(location.Candidate{Source: location.SourceDevice})

	search := &fakeSearcher{}
	p := NewPrefetcher(search, nil)
	p.Warm(sess)
	p.Warm(sess)
	p.Warm(sess)

	if got := search.callCount(); got != 1 {
		t.Errorf("search calls = %d, want 1", got)
	}
}

func TestWarmNoLocationIsNoop(t *testing.T) {
	m := NewManager()
	sess, _ := m.Begin("ph://a")

	search := &fakeSearcher{}
	NewPrefetcher(search, nil).Warm(sess)

	if search.callCount() != 0 {
		t.Error("prefetch should not search without a location")
	}
	if _, ok := sess.Cache().Get("ph://a"); ok {
		t.Error("cache should stay empty")
	}
}

func TestWarmErrorSwallowed(t *testing.T) {
	m := NewManager()
	sess, _ := m.Begin("ph://a")
	sess.Resolver().Offer(location.Candidate{Source: location.SourceDevice})

	NewPrefetcher(&fakeSearcher{err: errors.New("network down")}, nil).Warm(sess)

	if _, ok := sess.Cache().Get("ph://a"); ok {
		t.Error("failed prefetch must not populate the cache")
	}
	if !sess.Active() {
		t.Error("prefetch failure must not affect the session")
	}
}

func TestWarmAbortsWhenSuperseded(t *testing.T) {
	m := NewManager()
	sessA, _ := m.Begin("ph://a")
	sessA.Resolver().Offer(location.Candidate{Source: location.SourceDevice})

	block := make(chan struct{})
	search := &fakeSearcher{results: []places.Restaurant{{Name: "Stale"}}, block: block}
	p := NewPrefetcher(search, nil)

	done := make(chan struct{})
	go func() {
		p.Warm(sessA)
		close(done)
	}()

	// Supersede while the search is in flight; its context aborts.
	m.Begin("ph://b")
	close(block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Warm did not return")
	}

	if _, ok := sessA.Cache().Get("ph://a"); ok {
		t.Error("superseded session must not retain prefetched data")
	}
	if sug, ok := m.Active().Cache().Get("ph://b"); ok {
		t.Errorf("new session must not see old prefetch data: %+v", sug)
	}
}
