// Package store provides persistent meal entry storage. Entries are
// written synchronously with the user-entered fields and then updated
// in place as background enrichment stages complete, so a reader must
// tolerate any subset of the enrichment documents being present.
//
// The package uses a single-table DynamoDB design where all entries for
// a user share a partition key (USER#{userId}) and each entry is one
// item under ENTRY#{entryId}.
package store

import (
	"context"
	"time"
)

// MealEntry is one logged meal. The base fields are written once at
// save time; the enrichment pointers start nil and are filled in by
// UpdateEntryStage as each background stage completes.
type MealEntry struct {
	// EntryID and UserID are derived from PK/SK and not stored as
	// separate attributes.
	EntryID string `dynamodbav:"-"`
	UserID  string `dynamodbav:"-"`

	PhotoURL       *string           `dynamodbav:"photoUrl,omitempty"`
	Rating         int               `dynamodbav:"rating"`
	RestaurantName string            `dynamodbav:"restaurantName,omitempty"`
	MealName       string            `dynamodbav:"mealName,omitempty"`
	MealType       string            `dynamodbav:"mealType,omitempty"`
	Thoughts       string            `dynamodbav:"thoughts,omitempty"`
	Location       *LocationSnapshot `dynamodbav:"location,omitempty"`
	CreatedAt      int64             `dynamodbav:"createdAt"`

	// Enrichment documents. Stored as raw maps so a stage's schema can
	// evolve without a table migration; nil means the stage has not
	// completed.
	QuickCriteria    map[string]any `dynamodbav:"quickCriteria,omitempty"`
	EnhancedMetadata map[string]any `dynamodbav:"enhancedMetadata,omitempty"`
	EnhancedFacts    map[string]any `dynamodbav:"enhancedFacts,omitempty"`

	// Per-stage completion timestamps (Unix seconds). Zero until the
	// stage has written its document.
	QuickCriteriaAt    int64 `dynamodbav:"quickCriteriaAt,omitempty"`
	EnhancedMetadataAt int64 `dynamodbav:"enhancedMetadataAt,omitempty"`
	EnhancedFactsAt    int64 `dynamodbav:"enhancedFactsAt,omitempty"`
}

// LocationSnapshot records where the meal was eaten and how the
// coordinate was obtained.
type LocationSnapshot struct {
	Latitude  float64 `dynamodbav:"latitude" json:"latitude"`
	Longitude float64 `dynamodbav:"longitude" json:"longitude"`
	Source    string  `dynamodbav:"source" json:"source"`
	City      string  `dynamodbav:"city,omitempty" json:"city,omitempty"`
}

// EntryStore defines the persistence interface for meal entries.
// Each method is safe for concurrent use.
//
// GetEntry returns (nil, nil) when the entry does not exist.
// PutEntry performs full-item replacement (upsert semantics).
type EntryStore interface {
	// PutEntry creates or replaces a meal entry.
	PutEntry(ctx context.Context, entry *MealEntry) error

	// GetEntry retrieves an entry. Returns nil, nil if not found.
	GetEntry(ctx context.Context, userID, entryID string) (*MealEntry, error)

	// UpdateEntryStage merges one enrichment stage's document into the
	// entry without overwriting other fields, and records the stage's
	// completion timestamp. doc may be a stage struct or a map; it is
	// marshaled with its dynamodbav tags. Uses DynamoDB UpdateItem.
	UpdateEntryStage(ctx context.Context, userID, entryID, stage string, doc any) error

	// UpdatePhotoURL sets the photo URL after the upload completes.
	UpdatePhotoURL(ctx context.Context, userID, entryID, photoURL string) error

	// DeleteEntry removes an entry.
	DeleteEntry(ctx context.Context, userID, entryID string) error

	// ListEntriesByUser returns all entries for a user, newest first.
	ListEntriesByUser(ctx context.Context, userID string) ([]*MealEntry, error)
}

// NewMealEntry returns an entry with CreatedAt stamped.
func NewMealEntry(userID, entryID string) *MealEntry {
	return &MealEntry{
		EntryID:   entryID,
		UserID:    userID,
		CreatedAt: time.Now().Unix(),
	}
}
