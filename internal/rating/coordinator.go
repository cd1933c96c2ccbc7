// Package rating coordinates the meta-entry screen: the user confirms or
// overrides the auto-suggested restaurant and enters a meal name. The one
// rule that matters is that deliberate user input is never clobbered by a
// late-arriving async suggestion. Each field runs a small state machine
// instead of the flag soup (isEditing + hasExplicitSelection + ...) it
// replaces.
package rating

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/location"
	"github.com/vinulakkur23/forkful-lite/internal/places"
)

// Field identifies one editable field on the rating screen.
type Field int

const (
	FieldRestaurant Field = iota
	FieldMealName
)

func (f Field) String() string {
	if f == FieldRestaurant {
		return "restaurant"
	}
	return "mealName"
}

// FieldState is the editing state of one field.
type FieldState int

const (
	// Idle means auto-suggestions may write to the field (unless an
	// explicit selection was recorded).
	Idle FieldState = iota
	// UserEditing means the field has focus or recent keystrokes;
	// no automated write may touch it.
	UserEditing
)

// blurDebounce is how long after blur a field stays in UserEditing, so a
// quick refocus does not let a queued suggestion slip in between.
const blurDebounce = 300 * time.Millisecond

// LocationSink receives the restaurant coordinate when the user makes an
// explicit selection. Satisfied by *location.Resolver.
type LocationSink interface {
	Offer(c location.Candidate) bool
}

type fieldController struct {
	state     FieldState
	explicit  bool // sticky for the life of the session
	value     string
	blurTimer *time.Timer
}

// Coordinator owns the two field state machines for one photo session.
// Safe for concurrent use; suggestions arrive from prefetch goroutines
// while the user types.
type Coordinator struct {
	mu        sync.Mutex
	sessionID string
	photoURI  string
	loc       LocationSink

	fields map[Field]*fieldController

	blurDelay time.Duration
}

// NewCoordinator creates a Coordinator bound to one session and photo.
// loc may be nil when no location resolver participates (CLI dry runs).
func NewCoordinator(sessionID, photoURI string, loc LocationSink) *Coordinator {
	return &Coordinator{
		sessionID: sessionID,
		photoURI:  photoURI,
		loc:       loc,
		fields: map[Field]*fieldController{
			FieldRestaurant: {},
			FieldMealName:   {},
		},
		blurDelay: blurDebounce,
	}
}

// BeginEdit moves a field to UserEditing (focus or keystroke).
func (c *Coordinator) BeginEdit(f Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc := c.fields[f]
	if fc.blurTimer != nil {
		fc.blurTimer.Stop()
		fc.blurTimer = nil
	}
	fc.state = UserEditing
}

// EndEdit schedules the field's return to Idle after a short debounce.
func (c *Coordinator) EndEdit(f Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc := c.fields[f]
	if fc.blurTimer != nil {
		fc.blurTimer.Stop()
	}
	fc.blurTimer = time.AfterFunc(c.blurDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		fc.state = Idle
		fc.blurTimer = nil
	})
}

// SetText records a user keystroke's result. It marks the field as
// user-edited content but does not set the sticky explicit flag; only a
// tap on an autocomplete result does that.
func (c *Coordinator) SetText(f Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc := c.fields[f]
	fc.state = UserEditing
	fc.value = value
}

// Suggest offers an automated value for a field. The write is applied only
// when all of these hold:
//   - the suggestion was computed for this session's photo URI
//   - the field is Idle
//   - no explicit selection has been recorded for the field
//
// Returns whether the suggestion was applied.
func (c *Coordinator) Suggest(f Field, value, photoURI string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if photoURI != c.photoURI {
		log.Debug().
			Str("session_id", c.sessionID).
			Str("field", f.String()).
			Msg("Suggestion discarded, computed for a different photo")
		return false
	}

	fc := c.fields[f]
	if fc.state != Idle || fc.explicit {
		return false
	}
	fc.value = value
	return true
}

// Select records an explicit user selection for a field. From here on no
// suggestion may overwrite the field for the life of the session.
func (c *Coordinator) Select(f Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc := c.fields[f]
	fc.value = value
	fc.explicit = true
	fc.state = Idle
	if fc.blurTimer != nil {
		fc.blurTimer.Stop()
		fc.blurTimer = nil
	}
}

// SelectRestaurant records an explicit restaurant selection and, when the
// restaurant has geometry, promotes its coordinate to the session's
// priority-1 location candidate.
func (c *Coordinator) SelectRestaurant(r places.Restaurant) {
	c.Select(FieldRestaurant, r.Name)

	if c.loc != nil && r.Geometry != nil {
		c.loc.Offer(location.Candidate{
			Latitude:  r.Geometry.Lat,
			Longitude: r.Geometry.Lng,
			Source:    location.SourceRestaurantSelection,
		})
	}

	log.Debug().
		Str("session_id", c.sessionID).
		Str("restaurant", r.Name).
		Bool("has_geometry", r.Geometry != nil).
		Msg("Restaurant selected")
}

// Value returns the field's current value.
func (c *Coordinator) Value(f Field) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields[f].value
}

// State returns the field's current editing state.
func (c *Coordinator) State(f Field) FieldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields[f].state
}

// HasExplicitSelection reports whether the user explicitly selected a value.
func (c *Coordinator) HasExplicitSelection(f Field) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields[f].explicit
}
