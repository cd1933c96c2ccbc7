package enrich

import "context"

// Enricher produces the per-stage enrichment documents for a meal photo.
// Implementations must tolerate partial input: mealName and restaurant may
// be empty strings when the user saved without filling them in.
type Enricher interface {
	// QuickCriteria identifies the dish in the photo.
	QuickCriteria(ctx context.Context, img Image, mealName, restaurant string) (*QuickCriteria, error)

	// EnhancedMetadata describes a dish already identified by stage one.
	// cuisineContext is the CuisineType from QuickCriteria and may be empty.
	EnhancedMetadata(ctx context.Context, img Image, mealName, restaurant, cuisineContext string) (*EnhancedMetadata, error)

	// EnhancedFacts narrates a dish using the full stage-one output plus
	// the stage-two composition. md may be nil for one-off callers that
	// skipped the metadata stage.
	EnhancedFacts(ctx context.Context, img Image, qc QuickCriteria, md *EnhancedMetadata) (*EnhancedFacts, error)
}
