package rating

import (
	"testing"
	"time"

	"github.com/vinulakkur23/forkful-lite/internal/location"
	"github.com/vinulakkur23/forkful-lite/internal/places"
)

func TestSuggestAppliesWhenIdle(t *testing.T) {
	c := NewCoordinator("s1", "ph://a", nil)

	if !c.Suggest(FieldRestaurant, "Joe's Pizza", "ph://a") {
		t.Error("suggestion should apply to an idle, untouched field")
	}
	if c.Value(FieldRestaurant) != "Joe's Pizza" {
		t.Errorf("value = %q", c.Value(FieldRestaurant))
	}
}

func TestSuggestBlockedWhileEditing(t *testing.T) {
	c := NewCoordinator("s1", "ph://a", nil)
	c.BeginEdit(FieldMealName)

	if c.Suggest(FieldMealName, "Ramen", "ph://a") {
		t.Error("suggestion must not apply while the user is editing")
	}
	if c.Value(FieldMealName) != "" {
		t.Errorf("value = %q, want empty", c.Value(FieldMealName))
	}
}

func TestSuggestBlockedForWrongPhoto(t *testing.T) {
	c := NewCoordinator("s1", "ph://b", nil)

	if c.Suggest(FieldRestaurant, "Stale Cafe", "ph://a") {
		t.Error("suggestion computed for another photo must be discarded")
	}
}

// Once the user explicitly selects, no later suggestion may overwrite the
// field, regardless of timing.
func TestExplicitSelectionIsSticky(t *testing.T) {
	c := NewCoordinator("s1", "ph://a", nil)

	c.Select(FieldRestaurant, "Ichiran")
	if c.Suggest(FieldRestaurant, "Joe's Pizza", "ph://a") {
		t.Error("suggestion must not overwrite an explicit selection")
	}
	if c.Value(FieldRestaurant) != "Ichiran" {
		t.Errorf("value = %q, want Ichiran", c.Value(FieldRestaurant))
	}

	// Even after edit cycles the flag stays for the session.
	c.BeginEdit(FieldRestaurant)
	c.EndEdit(FieldRestaurant)
	time.Sleep(10 * time.Millisecond)
	if c.Suggest(FieldRestaurant, "Mamoun's", "ph://a") {
		t.Error("explicit flag must survive edit cycles")
	}
}

func TestSetTextBlocksSuggestions(t *testing.T) {
	c := NewCoordinator("s1", "ph://a", nil)
	c.SetText(FieldMealName, "Ram")

	if c.Suggest(FieldMealName, "Pizza", "ph://a") {
		t.Error("typed text must not be clobbered")
	}
	if c.Value(FieldMealName) != "Ram" {
		t.Errorf("value = %q, want Ram", c.Value(FieldMealName))
	}
}

func TestEndEditDebounceReturnsToIdle(t *testing.T) {
	c := NewCoordinator("s1", "ph://a", nil)
	c.blurDelay = 20 * time.Millisecond

	c.BeginEdit(FieldMealName)
	c.EndEdit(FieldMealName)

	// Still editing during the debounce window.
	if c.State(FieldMealName) != UserEditing {
		t.Error("field should stay UserEditing during blur debounce")
	}

	time.Sleep(60 * time.Millisecond)
	if c.State(FieldMealName) != Idle {
		t.Error("field should return to Idle after blur debounce")
	}
	if !c.Suggest(FieldMealName, "Ramen", "ph://a") {
		t.Error("suggestion should apply again once Idle (no explicit selection)")
	}
}

func TestRefocusCancelsBlur(t *testing.T) {
	c := NewCoordinator("s1", "ph://a", nil)
	c.blurDelay = 20 * time.Millisecond

	c.BeginEdit(FieldMealName)
	c.EndEdit(FieldMealName)
	c.BeginEdit(FieldMealName) // quick refocus

	time.Sleep(60 * time.Millisecond)
	if c.State(FieldMealName) != UserEditing {
		t.Error("refocus should cancel the pending blur transition")
	}
}

func TestSelectRestaurantPromotesLocation(t *testing.T) {
	resolver := location.NewResolver()
	resolver.Offer(location.Candidate{Latitude: 1, Longitude: 2, Source: location.SourceDevice})

	c := NewCoordinator("s1", "ph://a", resolver)
	c.SelectRestaurant(places.Restaurant{
		ID:       "p1",
		Name:     "Ichiran",
		Geometry: &places.LatLng{Lat: 35.66, Lng: 139.7},
	})

	best, ok := resolver.Best()
	if !ok || best.Source != location.SourceRestaurantSelection {
		t.Fatalf("best = %+v, want restaurant_selection", best)
	}
	if best.Latitude != 35.66 || best.Longitude != 139.7 {
		t.Errorf("coordinate = (%v, %v)", best.Latitude, best.Longitude)
	}
	if c.Value(FieldRestaurant) != "Ichiran" {
		t.Errorf("restaurant value = %q", c.Value(FieldRestaurant))
	}
	if !c.HasExplicitSelection(FieldRestaurant) {
		t.Error("explicit flag should be set")
	}
}

func TestSelectRestaurantWithoutGeometry(t *testing.T) {
	resolver := location.NewResolver()
	c := NewCoordinator("s1", "ph://a", resolver)
	c.SelectRestaurant(places.Restaurant{Name: "Cash Only Noodles"})

	if _, ok := resolver.Best(); ok {
		t.Error("selection without geometry must not offer a candidate")
	}
}
