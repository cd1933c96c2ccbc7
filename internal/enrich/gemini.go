package enrich

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/vinulakkur23/forkful-lite/internal/jsonutil"
	"github.com/vinulakkur23/forkful-lite/internal/places"
)

// DefaultModelName is the Gemini model used for enrichment.
// Can be overridden via GEMINI_MODEL environment variable.
const DefaultModelName = "gemini-2.5-flash"

// ModelName returns the Gemini model to use, resolved from the
// GEMINI_MODEL environment variable with a flash default. Enrichment is
// a high-volume background workload, so the default favors throughput
// over reasoning depth.
func ModelName() string {
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}

const systemInstruction = `You are a culinary analyst for a meal-logging app.
You are shown a photo of a meal a user just ate, plus whatever text context
the user provided. Answer with ONLY a single JSON object matching the schema
given in the request. No prose, no markdown fences, no trailing commentary.
If you cannot identify the dish, make your best guess rather than refusing.`

// GeminiEnricher generates the per-stage documents directly against the
// Gemini API, skipping the intermediate enrichment service.
type GeminiEnricher struct {
	client *genai.Client
}

var _ Enricher = (*GeminiEnricher)(nil)

// NewGeminiEnricher creates a Gemini-backed enricher with the given API key.
func NewGeminiEnricher(ctx context.Context, apiKey string) (*GeminiEnricher, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiEnricher{client: client}, nil
}

// QuickCriteria implements Enricher.
func (e *GeminiEnricher) QuickCriteria(ctx context.Context, img Image, mealName, restaurant string) (*QuickCriteria, error) {
	prompt := buildQuickCriteriaPrompt(mealName, restaurant)
	text, err := e.generate(ctx, img, prompt, StageQuickCriteria)
	if err != nil {
		return nil, err
	}
	return parseStage[QuickCriteria](text, StageQuickCriteria)
}

// EnhancedMetadata implements Enricher.
func (e *GeminiEnricher) EnhancedMetadata(ctx context.Context, img Image, mealName, restaurant, cuisineContext string) (*EnhancedMetadata, error) {
	prompt := buildEnhancedMetadataPrompt(mealName, restaurant, cuisineContext)
	text, err := e.generate(ctx, img, prompt, StageEnhancedMetadata)
	if err != nil {
		return nil, err
	}
	return parseStage[EnhancedMetadata](text, StageEnhancedMetadata)
}

// EnhancedFacts implements Enricher.
func (e *GeminiEnricher) EnhancedFacts(ctx context.Context, img Image, qc QuickCriteria, md *EnhancedMetadata) (*EnhancedFacts, error) {
	prompt := buildEnhancedFactsPrompt(qc, md)
	text, err := e.generate(ctx, img, prompt, StageEnhancedFacts)
	if err != nil {
		return nil, err
	}
	return parseStage[EnhancedFacts](text, StageEnhancedFacts)
}

// parseStage decodes one stage's raw model output into its document type.
func parseStage[T any](text, stage string) (*T, error) {
	result, err := jsonutil.ParseJSON[T](text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", stage, err)
	}
	return &result, nil
}

// generate sends the photo plus prompt to Gemini and returns the response text.
func (e *GeminiEnricher) generate(ctx context.Context, img Image, prompt, stage string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: img.MIMEType,
				Data:     img.Data,
			},
		},
		{Text: prompt},
	}

	modelName := ModelName()
	log.Debug().
		Str("stage", stage).
		Str("model", modelName).
		Int("image_bytes", len(img.Data)).
		Msg("Starting Gemini enrichment call")

	callStart := time.Now()
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := e.client.Models.GenerateContent(ctx, modelName, contents, config)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).Str("stage", stage).Dur("duration", duration).Msg("Gemini enrichment call failed")
		return "", fmt.Errorf("generating %s: %w", stage, err)
	}
	if resp == nil {
		return "", fmt.Errorf("empty response from Gemini for %s", stage)
	}

	text := resp.Text()
	log.Debug().
		Str("stage", stage).
		Int("response_length", len(text)).
		Dur("duration", duration).
		Msg("Gemini enrichment response received")
	return text, nil
}

// SuggestMeal asks for the single most likely dish to log at a
// restaurant. Text-only call, chained by the prefetcher after a nearby
// search. Satisfies flow.MealSuggester.
func (e *GeminiEnricher) SuggestMeal(ctx context.Context, r places.Restaurant) (string, error) {
	prompt := fmt.Sprintf(
		"A diner is logging a meal at %q (%s). Reply with only the name of the single dish they most likely ordered. No punctuation, no explanation.",
		r.Name, r.Vicinity)

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	resp, err := e.client.Models.GenerateContent(ctx, ModelName(), contents, nil)
	if err != nil {
		return "", fmt.Errorf("suggesting meal for %s: %w", r.Name, err)
	}
	if resp == nil {
		return "", fmt.Errorf("empty response from Gemini for meal suggestion")
	}
	return strings.TrimSpace(resp.Text()), nil
}

// --- Prompt building ---

func buildQuickCriteriaPrompt(mealName, restaurant string) string {
	var sb strings.Builder

	sb.WriteString("## Dish Identification Request\n\n")
	sb.WriteString("Identify the dish in the attached meal photo.\n\n")

	sb.WriteString("### User Context\n\n")
	if mealName != "" {
		sb.WriteString(fmt.Sprintf("- Meal name entered by user: %s\n", mealName))
	}
	if restaurant != "" {
		sb.WriteString(fmt.Sprintf("- Restaurant: %s\n", restaurant))
	}
	if mealName == "" && restaurant == "" {
		sb.WriteString("No context provided. Identify from the photo alone.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("### Response Schema\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"dish_specific\": \"the specific dish name, e.g. 'Tonkotsu Ramen'\",\n")
	sb.WriteString("  \"dish_general\": \"the broader dish family, e.g. 'Ramen'\",\n")
	sb.WriteString("  \"cuisine_type\": \"the cuisine, e.g. 'Japanese'\",\n")
	sb.WriteString("  \"dish_criteria\": [\"3 to 5 short criteria for judging this dish well made\"]\n")
	sb.WriteString("}\n")

	return sb.String()
}

func buildEnhancedMetadataPrompt(mealName, restaurant, cuisineContext string) string {
	var sb strings.Builder

	sb.WriteString("## Dish Metadata Request\n\n")
	sb.WriteString("Describe the ingredients, flavors, and dietary profile of the dish in the attached photo.\n\n")

	sb.WriteString("### Known Context\n\n")
	if mealName != "" {
		sb.WriteString(fmt.Sprintf("- Meal name: %s\n", mealName))
	}
	if restaurant != "" {
		sb.WriteString(fmt.Sprintf("- Restaurant: %s\n", restaurant))
	}
	if cuisineContext != "" {
		sb.WriteString(fmt.Sprintf("- Cuisine: %s\n", cuisineContext))
	}
	if mealName == "" && restaurant == "" && cuisineContext == "" {
		sb.WriteString("No context provided. Work from the photo alone.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("### Response Schema\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"key_ingredients\": [\"visible or strongly implied ingredients\"],\n")
	sb.WriteString("  \"flavor_profile\": [\"e.g. 'savory', 'spicy', 'umami'\"],\n")
	sb.WriteString("  \"dietary_info\": [\"e.g. 'contains gluten', 'vegetarian'\"],\n")
	sb.WriteString("  \"confidence_score\": 0.0\n")
	sb.WriteString("}\n\n")
	sb.WriteString("confidence_score is your 0-1 confidence in the identification.\n")

	return sb.String()
}

func buildEnhancedFactsPrompt(qc QuickCriteria, md *EnhancedMetadata) string {
	var sb strings.Builder

	sb.WriteString("## Dish Facts Request\n\n")
	sb.WriteString("Write interesting, accurate facts about the dish in the attached photo.\n\n")

	sb.WriteString("### Identified Dish\n\n")
	if qc.DishSpecific != "" {
		sb.WriteString(fmt.Sprintf("- Specific dish: %s\n", qc.DishSpecific))
	}
	if qc.DishGeneral != "" {
		sb.WriteString(fmt.Sprintf("- Dish family: %s\n", qc.DishGeneral))
	}
	if qc.CuisineType != "" {
		sb.WriteString(fmt.Sprintf("- Cuisine: %s\n", qc.CuisineType))
	}
	sb.WriteString("\n")

	if md != nil && (len(md.KeyIngredients) > 0 || len(md.FlavorProfile) > 0) {
		sb.WriteString("### Composition\n\n")
		if len(md.KeyIngredients) > 0 {
			sb.WriteString(fmt.Sprintf("- Key ingredients: %s\n", strings.Join(md.KeyIngredients, ", ")))
		}
		if len(md.FlavorProfile) > 0 {
			sb.WriteString(fmt.Sprintf("- Flavor profile: %s\n", strings.Join(md.FlavorProfile, ", ")))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Response Schema\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"metadata\": {\"origin\": \"...\", \"typical_occasion\": \"...\"},\n")
	sb.WriteString("  \"food_facts\": [\"3 short facts about the dish's history or culture\"]\n")
	sb.WriteString("}\n")

	return sb.String()
}
