package flow

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/metrics"
	"github.com/vinulakkur23/forkful-lite/internal/places"
)

// Searcher is the subset of the places client the prefetcher needs.
type Searcher interface {
	NearbySearch(ctx context.Context, lat, lng float64, radiusMeters int) ([]places.Restaurant, error)
}

// MealSuggester optionally provides a meal suggestion for the top nearby
// restaurant, chained after a successful nearby search.
type MealSuggester interface {
	SuggestMeal(ctx context.Context, r places.Restaurant) (string, error)
}

// Prefetcher speculatively warms a session's suggestion cache while the
// user is still cropping, so the rating screen feels instant. Everything
// here is best-effort: errors are logged and swallowed.
type Prefetcher struct {
	search Searcher
	meals  MealSuggester // may be nil
}

// NewPrefetcher creates a Prefetcher. meals may be nil to skip the chained
// meal-suggestion lookup.
func NewPrefetcher(search Searcher, meals MealSuggester) *Prefetcher {
	return &Prefetcher{search: search, meals: meals}
}

// Warm fetches nearby restaurants for the session's current best location
// and stores them in the session cache, tagged with the session's photo
// URI. Runs at most once per session regardless of how many times the
// crop screen triggers it. Typically called as `go p.Warm(sess)`.
func (p *Prefetcher) Warm(sess *Session) {
	sess.warmed.Do(func() {
		p.warm(sess)
	})
}

func (p *Prefetcher) warm(sess *Session) {
	ctx := sess.Context()

	best, ok := sess.Resolver().Best()
	if !ok {
		log.Debug().Str("session_id", sess.ID).Msg("Prefetch skipped, no location candidate")
		return
	}

	restaurants, err := p.search.NearbySearch(ctx, best.Latitude, best.Longitude, places.RadiusOnFocus)
	if err != nil {
		// Best-effort latency optimization; the rating screen re-fetches.
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("Suggestion prefetch failed")
		return
	}
	if !sess.Active() {
		log.Debug().Str("session_id", sess.ID).Msg("Prefetch result discarded, session superseded")
		return
	}

	sug := Suggestions{
		Restaurants: restaurants,
		PhotoURI:    sess.PhotoURI,
	}

	if p.meals != nil && len(restaurants) > 0 {
		if meal, err := p.meals.SuggestMeal(ctx, restaurants[0]); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("Meal suggestion lookup failed")
		} else {
			sug.MealSuggestion = meal
		}
	}

	if !sess.Active() {
		return
	}
	sess.Cache().Put(sug)

	rec := metrics.New()
	rec.Dimension("Operation", "prefetch").
		Metric("PrefetchedRestaurants", float64(len(restaurants)), metrics.UnitCount).
		Property("sessionId", sess.ID).
		Flush()

	log.Debug().
		Str("session_id", sess.ID).
		Int("restaurants", len(restaurants)).
		Str("source", string(best.Source)).
		Msg("Suggestion cache warmed")
}
