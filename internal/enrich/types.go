// Package enrich provides the three-stage AI enrichment of a saved meal
// entry. The stages form a strict data-dependency chain: quick criteria
// identifies the dish, enhanced metadata describes an already-identified
// dish, enhanced facts narrate an already-categorized one. Running a later
// stage without the earlier stage's output would feed the model an empty
// context, so the chain stops at the first nil result.
package enrich

// Stage names, used as store field groups and metric dimensions.
const (
	StageQuickCriteria    = "quick_criteria"
	StageEnhancedMetadata = "enhanced_metadata"
	StageEnhancedFacts    = "enhanced_facts"
)

// QuickCriteria is the first-stage output: dish identity plus a short
// checklist of things to evaluate about it.
type QuickCriteria struct {
	DishSpecific string   `json:"dish_specific" dynamodbav:"dishSpecific"`
	DishGeneral  string   `json:"dish_general" dynamodbav:"dishGeneral"`
	CuisineType  string   `json:"cuisine_type" dynamodbav:"cuisineType"`
	DishCriteria []string `json:"dish_criteria" dynamodbav:"dishCriteria"`
}

// EnhancedMetadata is the second-stage output: ingredients, flavor profile,
// and dietary tags for the identified dish.
type EnhancedMetadata struct {
	KeyIngredients  []string `json:"key_ingredients" dynamodbav:"keyIngredients"`
	FlavorProfile   []string `json:"flavor_profile" dynamodbav:"flavorProfile"`
	DietaryInfo     []string `json:"dietary_info" dynamodbav:"dietaryInfo"`
	ConfidenceScore float64  `json:"confidence_score" dynamodbav:"confidenceScore"`
}

// EnhancedFacts is the third-stage output: historical/cultural trivia.
type EnhancedFacts struct {
	Metadata  map[string]string `json:"metadata" dynamodbav:"metadata"`
	FoodFacts []string          `json:"food_facts" dynamodbav:"foodFacts"`
}

// Image is a normalized meal photo ready for an enrichment call.
type Image struct {
	Data     []byte
	MIMEType string
	// Filename is the multipart filename; cosmetic but some backends log it.
	Filename string
}
