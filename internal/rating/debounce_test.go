package rating

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vinulakkur23/forkful-lite/internal/places"
)

type applyRecorder struct {
	mu      sync.Mutex
	applied [][]places.Restaurant
}

func (a *applyRecorder) apply(results []places.Restaurant) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, results)
}

func (a *applyRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

func (a *applyRecorder) last() []places.Restaurant {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.applied) == 0 {
		return nil
	}
	return a.applied[len(a.applied)-1]
}

type searchRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (s *searchRecorder) search(ctx context.Context, query string) ([]places.Restaurant, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return []places.Restaurant{{Name: query, Vicinity: "somewhere"}}, nil
}

func (s *searchRecorder) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func alwaysActive(string) bool { return true }
func neverActive(string) bool  { return false }

func TestDebouncerCollapsesKeystrokes(t *testing.T) {
	sr := &searchRecorder{}
	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", sr.search, ar.apply, alwaysActive)
	d.delay = 20 * time.Millisecond

	// Simulated typing: each keystroke within the debounce window.
	for _, q := range []string{"Jo", "Joe", "Joe'", "Joe's", "Joe's Pizza"} {
		d.Query(q)
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if got := sr.queryCount(); got != 1 {
		t.Errorf("search calls = %d, want 1", got)
	}
	if got := ar.count(); got != 1 {
		t.Fatalf("applies = %d, want 1", got)
	}
	if last := ar.last(); len(last) != 1 || last[0].Name != "Joe's Pizza" {
		t.Errorf("applied = %+v, want final query's results", last)
	}
}

func TestDebouncerShortQuerySkipped(t *testing.T) {
	sr := &searchRecorder{}
	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", sr.search, ar.apply, alwaysActive)
	d.delay = 10 * time.Millisecond

	d.Query("J")
	time.Sleep(50 * time.Millisecond)

	if sr.queryCount() != 0 {
		t.Error("single-character query should not search")
	}
}

func TestDebouncerDiscardsWhenSessionInactive(t *testing.T) {
	sr := &searchRecorder{}
	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", sr.search, ar.apply, neverActive)
	d.delay = 10 * time.Millisecond

	d.Query("Joe's Pizza")
	time.Sleep(50 * time.Millisecond)

	if ar.count() != 0 {
		t.Error("results for an inactive session must be silently discarded")
	}
}

func TestDebouncerDiscardsSupersededToken(t *testing.T) {
	block := make(chan struct{})
	var mu sync.Mutex
	first := true
	slowSearch := func(ctx context.Context, query string) ([]places.Restaurant, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			<-block
		}
		return []places.Restaurant{{Name: query}}, nil
	}

	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", slowSearch, ar.apply, alwaysActive)
	d.delay = 5 * time.Millisecond

	d.Query("old query")
	time.Sleep(20 * time.Millisecond) // first search fires and blocks

	d.Query("new query") // supersedes the token
	close(block)
	time.Sleep(50 * time.Millisecond)

	// Only the new query's results may be applied.
	if got := ar.count(); got != 1 {
		t.Fatalf("applies = %d, want 1", got)
	}
	if last := ar.last(); last[0].Name != "new query" {
		t.Errorf("applied %q, want results for the new query", last[0].Name)
	}
}

func TestDebouncerFlushCancelsPending(t *testing.T) {
	sr := &searchRecorder{}
	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", sr.search, ar.apply, alwaysActive)
	d.delay = 20 * time.Millisecond

	d.Query("Joe's Pizza")
	d.Flush()
	time.Sleep(60 * time.Millisecond)

	if sr.queryCount() != 0 {
		t.Error("flushed query must not fire")
	}
}

func TestDebouncerSearchRunsImmediately(t *testing.T) {
	sr := &searchRecorder{}
	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", sr.search, ar.apply, alwaysActive)
	d.delay = time.Hour // a pending debounced query would never fire

	d.Query("Joe's")
	d.Search("Joe's Pizza")

	if got := sr.queryCount(); got != 1 {
		t.Fatalf("search calls = %d, want 1", got)
	}
	if last := ar.last(); len(last) != 1 || last[0].Name != "Joe's Pizza" {
		t.Errorf("applied = %+v, want immediate query's results", last)
	}
}

func TestDebouncerSearchRespectsMinLength(t *testing.T) {
	sr := &searchRecorder{}
	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", sr.search, ar.apply, alwaysActive)

	d.Search("J")

	if sr.queryCount() != 0 {
		t.Error("single-character query must not fire")
	}
	if ar.count() != 0 {
		t.Error("nothing should be applied for a short query")
	}
}

func TestDebouncerSearchDiscardedWhenInactive(t *testing.T) {
	sr := &searchRecorder{}
	ar := &applyRecorder{}
	d := NewDebouncer(context.Background(), "s1", sr.search, ar.apply, neverActive)

	d.Search("Joe's Pizza")

	if ar.count() != 0 {
		t.Error("inactive session's results must be discarded")
	}
}
