package flow

import (
	"sync"

	"github.com/vinulakkur23/forkful-lite/internal/places"
)

// Suggestions is one prefetched result set, tagged with the photo it was
// computed for. The tag is load-bearing: consumers must never rely on
// timing alone to decide the data is theirs.
type Suggestions struct {
	Restaurants    []places.Restaurant
	MealSuggestion string
	PhotoURI       string
}

// SuggestionCache holds at most one Suggestions value. It is owned by a
// Session, not shared across sessions; the tag check in Get is a second
// line of defense behind that ownership.
type SuggestionCache struct {
	mu   sync.Mutex
	data *Suggestions
}

// Put stores s. A value tagged with an empty photo URI is rejected since it
// could never be read back safely.
func (c *SuggestionCache) Put(s Suggestions) {
	if s.PhotoURI == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = &s
}

// Get returns the cached suggestions only when their tag matches photoURI.
// A mismatch returns nothing — stale data must read as "no data", never as
// the previous photo's data.
func (c *SuggestionCache) Get(photoURI string) (*Suggestions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil || c.data.PhotoURI != photoURI {
		return nil, false
	}
	cp := *c.data
	return &cp, true
}

// Clear drops any cached value.
func (c *SuggestionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}
