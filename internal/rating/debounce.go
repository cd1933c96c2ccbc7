package rating

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/places"
)

// DebounceDelay is how long after the last keystroke an autocomplete search
// fires.
const DebounceDelay = 500 * time.Millisecond

// MinQueryLength is the shortest query worth searching.
const MinQueryLength = 2

// AutocompleteFunc performs the actual search.
type AutocompleteFunc func(ctx context.Context, query string) ([]places.Restaurant, error)

// ApplyFunc receives results that survived the guards.
type ApplyFunc func(results []places.Restaurant)

// ActiveCheck reports whether the debouncer's session is still the active
// one. Matched against flow.Manager.IsActive.
type ActiveCheck func(sessionID string) bool

// Debouncer owns its own timer and its own latest-query token, scoped to
// one coordinator instance — never ambient state. A search response is
// applied only if (a) its query token is still the newest and (b) the
// issuing session is still active; otherwise it is silently discarded.
// This covers the user switching photos mid-typing.
type Debouncer struct {
	mu        sync.Mutex
	timer     *time.Timer
	token     uint64
	sessionID string
	ctx       context.Context

	delay    time.Duration
	search   AutocompleteFunc
	apply    ApplyFunc
	isActive ActiveCheck
}

// NewDebouncer creates a Debouncer for one session. ctx should be the
// session context so in-flight searches abort on supersession.
func NewDebouncer(ctx context.Context, sessionID string, search AutocompleteFunc, apply ApplyFunc, isActive ActiveCheck) *Debouncer {
	return &Debouncer{
		ctx:       ctx,
		sessionID: sessionID,
		delay:     DebounceDelay,
		search:    search,
		apply:     apply,
		isActive:  isActive,
	}
}

// Query registers a keystroke. The search fires after the debounce delay
// unless another keystroke arrives first. Queries below MinQueryLength
// cancel any pending search and fire nothing.
func (d *Debouncer) Query(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.token++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(query) < MinQueryLength {
		return
	}

	token := d.token
	d.timer = time.AfterFunc(d.delay, func() {
		d.run(token, query)
	})
}

func (d *Debouncer) run(token uint64, query string) {
	results, err := d.search(d.ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Autocomplete search failed")
		return
	}

	d.mu.Lock()
	stale := token != d.token
	d.mu.Unlock()

	if stale {
		log.Debug().Str("query", query).Msg("Autocomplete result discarded, superseded by newer query")
		return
	}
	if d.isActive != nil && !d.isActive(d.sessionID) {
		log.Debug().Str("query", query).Msg("Autocomplete result discarded, session no longer active")
		return
	}

	d.apply(results)
}

// Search runs a query immediately through the same guard path, skipping
// the debounce delay. Supersedes any pending debounced query.
func (d *Debouncer) Search(query string) {
	d.mu.Lock()
	d.token++
	token := d.token
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if len(query) < MinQueryLength {
		return
	}
	d.run(token, query)
}

// Flush cancels any pending timer. Called when the session ends.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
