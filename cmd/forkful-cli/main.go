// Package main provides a terminal client for the meal logging pipeline.
//
// It drives the same capture-to-save flow the mobile app does, against
// the real backing services: a photo is normalized and uploaded to S3,
// the entry lands in DynamoDB, and the enrichment chain runs inline so
// the documents print as they arrive. Useful for exercising the pipeline
// end to end without a device.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vinulakkur23/forkful-lite/internal/auth"
	"github.com/vinulakkur23/forkful-lite/internal/enrich"
	"github.com/vinulakkur23/forkful-lite/internal/flow"
	"github.com/vinulakkur23/forkful-lite/internal/lambdaboot"
	"github.com/vinulakkur23/forkful-lite/internal/logging"
	"github.com/vinulakkur23/forkful-lite/internal/photo"
	"github.com/vinulakkur23/forkful-lite/internal/pipeline"
	"github.com/vinulakkur23/forkful-lite/internal/places"
	"github.com/vinulakkur23/forkful-lite/internal/rating"
	"github.com/vinulakkur23/forkful-lite/internal/s3util"
	"github.com/vinulakkur23/forkful-lite/internal/store"
)

// CLI flags
var (
	userFlag    string
	photoFlag   string
	skipEnrich  bool
	geminiModel string
)

var rootCmd = &cobra.Command{
	Use:   "forkful",
	Short: "Meal logging pipeline CLI",
	Long: `Forkful CLI drives the meal logging pipeline from a terminal.

The log command walks the full flow: photo normalization, location
resolution from EXIF, restaurant suggestions, the rating prompts, the
synchronous save, and the enrichment chain.

Examples:
  forkful log --user alice --photo ./ramen.jpg
  forkful list --user alice
  forkful delete --user alice entry-0123456789abcdef0123456789abcdef`,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log a meal from a photo",
	Run:   runLog,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's meal entries",
	Run:   runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <entryId>",
	Short: "Delete a meal entry and its photo",
	Args:  cobra.ExactArgs(1),
	Run:   runDelete,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID (required)")
	logCmd.Flags().StringVarP(&photoFlag, "photo", "p", "", "Path to the meal photo")
	logCmd.Flags().BoolVar(&skipEnrich, "skip-enrich", false, "Save without running the enrichment chain")
	logCmd.Flags().StringVarP(&geminiModel, "model", "m", "", "Gemini model override (sets GEMINI_MODEL)")

	rootCmd.AddCommand(logCmd, listCmd, deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads .env, initializes logging, and wires the saver against
// the real AWS backing services.
func bootstrap() (*pipeline.Saver, *places.Client) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env")
	}
	logging.Init()

	if userFlag == "" {
		log.Fatal().Msg("--user is required")
	}
	if geminiModel != "" {
		os.Setenv("GEMINI_MODEL", geminiModel)
	}

	clients := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(clients.Config, "PHOTO_BUCKET_NAME")
	photoStore := s3util.NewPhotoStore(s3c.Client, s3c.Presigner, s3c.Bucket)
	entryStore := lambdaboot.InitDynamo(clients.Config, "DYNAMO_TABLE_NAME")

	var enricher enrich.Enricher
	if !skipEnrich {
		key, err := auth.GetAPIKey(context.Background(), clients.SSM,
			"GEMINI_API_KEY", "SSM_GEMINI_KEY_PARAM", auth.DefaultGeminiKeyParam)
		if err != nil {
			log.Fatal().Err(err).Msg("Gemini API key required (or pass --skip-enrich)")
		}
		enricher, err = enrich.NewGeminiEnricher(context.Background(), key)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini enricher")
		}
	}

	var placesClient *places.Client
	if key := lambdaboot.LoadPlacesKey(clients.SSM); key != "" {
		placesClient = places.New(key, os.Getenv("PLACES_BASE_URL"))
	}

	return pipeline.NewSaver(entryStore, photoStore, enricher), placesClient
}

// --- log ---

func runLog(cmd *cobra.Command, args []string) {
	saver, placesClient := bootstrap()

	photoPath := photoFlag
	if photoPath == "" {
		photoPath = prompt("Photo path")
	}
	photoData, err := os.ReadFile(photoPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", photoPath).Msg("Cannot read photo")
	}

	// One capture session per photo, exactly like the app flow.
	sessions := flow.NewManager()
	sess, _ := sessions.Begin(photoPath)
	defer sessions.End()

	loc := resolveLocation(sess, photoPath)

	// Prefetch suggestions while the "user" is still looking at the crop.
	if placesClient != nil {
		flow.NewPrefetcher(placesClient, nil).Warm(sess)
	}

	coord := rating.NewCoordinator(sess.ID, photoPath, sess.Resolver())
	applySuggestions(sess, coord, photoPath)
	promptRestaurant(sess, sessions, coord, placesClient)

	coord.BeginEdit(rating.FieldMealName)
	if meal := prompt("Meal name (optional)"); meal != "" {
		coord.Select(rating.FieldMealName, meal)
	}
	coord.EndEdit(rating.FieldMealName)

	ratingVal := promptRating()
	thoughts := prompt("Thoughts (optional)")

	// The explicit selection may have upgraded the location candidate.
	if best, ok := sess.Resolver().Best(); ok {
		loc = &store.LocationSnapshot{
			Latitude:  best.Latitude,
			Longitude: best.Longitude,
			Source:    string(best.Source),
		}
	}

	entry, normalized, err := saver.Save(context.Background(), pipeline.SaveRequest{
		UserID:         userFlag,
		PhotoData:      photoData,
		Rating:         ratingVal,
		RestaurantName: coord.Value(rating.FieldRestaurant),
		MealName:       coord.Value(rating.FieldMealName),
		Thoughts:       thoughts,
		Location:       loc,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Save failed")
	}
	fmt.Printf("\nSaved %s\n", entry.EntryID)

	if !skipEnrich {
		fmt.Println("Running enrichment chain...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		saver.RunChain(ctx, entry, normalized)
		printEnrichment(ctx, saver, entry)
	}
}

// resolveLocation runs the photo's EXIF through the session resolver.
func resolveLocation(sess *flow.Session, photoPath string) *store.LocationSnapshot {
	f, err := os.Open(photoPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	candidate, ok := sess.Resolver().Resolve(sess.Context(), nil, f, photo.GPSFromReader, nil)
	if !ok {
		fmt.Println("No location found in photo; saving without one.")
		return nil
	}
	fmt.Printf("Location: %.5f, %.5f (%s)\n", candidate.Latitude, candidate.Longitude, candidate.Source)
	return &store.LocationSnapshot{
		Latitude:  candidate.Latitude,
		Longitude: candidate.Longitude,
		Source:    string(candidate.Source),
	}
}

// applySuggestions surfaces the prefetched restaurant, if any, through
// the coordinator's suggestion guards.
func applySuggestions(sess *flow.Session, coord *rating.Coordinator, photoURI string) {
	suggestions, ok := sess.Cache().Get(photoURI)
	if !ok || len(suggestions.Restaurants) == 0 {
		return
	}
	top := suggestions.Restaurants[0]
	if coord.Suggest(rating.FieldRestaurant, top.Name, photoURI) {
		fmt.Printf("Suggested restaurant: %s (%s)\n", top.Name, top.Vicinity)
	}
}

// promptRestaurant lets the user accept the suggestion, search by name,
// or type a free-form restaurant.
func promptRestaurant(sess *flow.Session, sessions *flow.Manager, coord *rating.Coordinator, placesClient *places.Client) {
	current := coord.Value(rating.FieldRestaurant)
	label := "Restaurant (enter to accept, or type to search)"
	if current != "" {
		label = fmt.Sprintf("Restaurant [%s] (enter to accept, or type to search)", current)
	}

	coord.BeginEdit(rating.FieldRestaurant)
	defer coord.EndEdit(rating.FieldRestaurant)

	query := prompt(label)
	if query == "" {
		return
	}
	if placesClient == nil {
		coord.Select(rating.FieldRestaurant, query)
		return
	}

	var results []places.Restaurant
	debouncer := rating.NewDebouncer(sess.Context(), sess.ID,
		func(ctx context.Context, q string) ([]places.Restaurant, error) {
			var bias *places.LatLng
			if best, ok := sess.Resolver().Best(); ok {
				bias = &places.LatLng{Lat: best.Latitude, Lng: best.Longitude}
			}
			return placesClient.Autocomplete(ctx, q, bias)
		},
		func(r []places.Restaurant) { results = r },
		sessions.IsActive,
	)

	// Same guarded search path the app's keystrokes use, minus the
	// debounce delay that makes no sense for a one-shot prompt.
	debouncer.Search(query)

	if len(results) == 0 {
		coord.Select(rating.FieldRestaurant, query)
		return
	}
	for i, r := range results {
		fmt.Printf("  %d) %s — %s\n", i+1, r.Name, r.Vicinity)
	}
	choice := prompt("Pick a number (or enter to keep typed name)")
	if idx, err := strconv.Atoi(choice); err == nil && idx >= 1 && idx <= len(results) {
		coord.SelectRestaurant(results[idx-1])
		return
	}
	coord.Select(rating.FieldRestaurant, query)
}

func promptRating() int {
	for {
		raw := prompt(fmt.Sprintf("Rating (%d-%d)", pipeline.MinRating, pipeline.MaxRating))
		if v, err := strconv.Atoi(raw); err == nil && v >= pipeline.MinRating && v <= pipeline.MaxRating {
			return v
		}
		fmt.Println("Invalid rating.")
	}
}

// printEnrichment re-reads the entry and prints whichever documents the
// chain managed to produce.
func printEnrichment(ctx context.Context, saver *pipeline.Saver, entry *store.MealEntry) {
	final, err := saver.Get(ctx, entry.UserID, entry.EntryID)
	if err != nil || final == nil {
		log.Warn().Err(err).Msg("Could not re-read entry after enrichment")
		return
	}
	if final.QuickCriteria != nil {
		fmt.Printf("\nDish: %v (%v)\n", final.QuickCriteria["dishSpecific"], final.QuickCriteria["cuisineType"])
	}
	if final.EnhancedMetadata != nil {
		fmt.Printf("Ingredients: %v\n", final.EnhancedMetadata["keyIngredients"])
	}
	if final.EnhancedFacts != nil {
		fmt.Printf("Facts: %v\n", final.EnhancedFacts["foodFacts"])
	}
	if final.QuickCriteria == nil {
		fmt.Println("Enrichment produced no documents (see logs).")
	}
}

// --- list ---

func runList(cmd *cobra.Command, args []string) {
	skipEnrich = true
	saver, _ := bootstrap()

	entries, err := saver.List(context.Background(), userFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("List failed")
	}
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return
	}
	for _, e := range entries {
		name := e.MealName
		if name == "" {
			name = "(unnamed)"
		}
		stages := 0
		for _, doc := range []map[string]any{e.QuickCriteria, e.EnhancedMetadata, e.EnhancedFacts} {
			if doc != nil {
				stages++
			}
		}
		fmt.Printf("%s  %s  rating=%d  %s  enriched=%d/3\n",
			e.EntryID, time.Unix(e.CreatedAt, 0).Format("2006-01-02 15:04"), e.Rating, name, stages)
	}
}

// --- delete ---

func runDelete(cmd *cobra.Command, args []string) {
	skipEnrich = true
	saver, _ := bootstrap()

	entryID := args[0]
	if err := saver.Delete(context.Background(), userFlag, entryID); err != nil {
		log.Fatal().Err(err).Str("entryId", entryID).Msg("Delete failed")
	}
	fmt.Printf("Deleted %s\n", entryID)
}

// prompt reads one trimmed line from stdin.
func prompt(label string) string {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
