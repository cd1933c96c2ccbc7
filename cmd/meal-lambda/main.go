// Package main provides the Lambda entry point for the meal logging API.
//
// It fronts the capture-to-save flow behind API Gateway: capture sessions
// with speculative restaurant prefetch, restaurant search for the rating
// screen, and the synchronous entry save that hands off to the enrichment
// worker.
//
// Security:
//   - Origin-verify middleware blocks direct API Gateway access (CloudFront-only)
//   - Input validation on userId, entryId, and photo keys
//   - Cryptographically random entry IDs prevent enumeration
//   - Entry ownership enforced on read and delete
//
// Endpoints:
//
//	GET    /api/health                    — health check (no auth required)
//	GET    /api/upload-url                — presigned S3 PUT URL for direct photo upload
//	POST   /api/sessions                  — begin a capture session, warm suggestions
//	GET    /api/sessions/suggestions      — read prefetched suggestions for a photo
//	GET    /api/restaurants/nearby        — nearby restaurant search
//	GET    /api/restaurants/autocomplete  — restaurant name autocomplete
//	POST   /api/entries                   — save a meal entry (multipart)
//	GET    /api/entries                   — list a user's entries
//	GET    /api/entries/{id}              — read one entry
//	PUT    /api/entries/{id}/photo        — attach or replace the entry's photo
//	DELETE /api/entries/{id}              — delete an entry and its photo
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/enrich"
	"github.com/vinulakkur23/forkful-lite/internal/flow"
	"github.com/vinulakkur23/forkful-lite/internal/jobs"
	"github.com/vinulakkur23/forkful-lite/internal/lambdaboot"
	"github.com/vinulakkur23/forkful-lite/internal/location"
	"github.com/vinulakkur23/forkful-lite/internal/logging"
	"github.com/vinulakkur23/forkful-lite/internal/photo"
	"github.com/vinulakkur23/forkful-lite/internal/pipeline"
	"github.com/vinulakkur23/forkful-lite/internal/places"
	"github.com/vinulakkur23/forkful-lite/internal/s3util"
	"github.com/vinulakkur23/forkful-lite/internal/store"
)

// --- Input validation ---

// idRegex matches generated entry IDs: prefix plus 32 hex chars.
var idRegex = regexp.MustCompile(`^entry-[0-9a-f]{32}$`)

// userIDRegex allows the ID formats our auth provider issues.
var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func validateUserID(id string) error {
	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("invalid userId")
	}
	return nil
}

func validateEntryID(id string) error {
	if !idRegex.MatchString(id) {
		return fmt.Errorf("invalid entryId")
	}
	return nil
}

// maxPhotoSize caps inbound photo uploads (original, pre-normalization).
const maxPhotoSize int64 = 25 * 1024 * 1024

// presignExpiry is how long presigned photo URLs stay valid.
const presignExpiry = 15 * time.Minute

// Clients initialized at cold start.
var (
	photos             *s3util.PhotoStore
	entryStore         *store.DynamoStore
	saver              *pipeline.Saver
	placesClient       *places.Client
	sessions           *flow.Manager
	prefetcher         *flow.Prefetcher
	enrichInvoker      *lambdaboot.Invoker
	originVerifySecret string
)

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(clients.Config, "PHOTO_BUCKET_NAME")
	photos = s3util.NewPhotoStore(s3c.Client, s3c.Presigner, s3c.Bucket)
	entryStore = lambdaboot.InitDynamo(clients.Config, "DYNAMO_TABLE_NAME")
	enrichInvoker = lambdaboot.InitLambdaInvoker(clients.Config, "ENRICH_FUNCTION_NAME")

	// The API Lambda only needs an enricher when no worker Lambda is
	// configured and enrichment runs in-process.
	var enricher enrich.Enricher
	if enrichInvoker == nil {
		lambdaboot.LoadGeminiKey(clients.SSM)
		var err error
		enricher, err = enrich.NewGeminiEnricher(context.Background(), os.Getenv("GEMINI_API_KEY"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini enricher")
		}
	}
	saver = pipeline.NewSaver(entryStore, photos, enricher)

	if placesKey := lambdaboot.LoadPlacesKey(clients.SSM); placesKey != "" {
		placesClient = places.New(placesKey, os.Getenv("PLACES_BASE_URL"))
	}

	sessions = flow.NewManager()
	if placesClient != nil {
		// The chained meal suggestion needs a Gemini client; in worker
		// mode the API Lambda has none and the prefetch skips it.
		var meals flow.MealSuggester
		if g, ok := enricher.(*enrich.GeminiEnricher); ok {
			meals = g
		}
		prefetcher = flow.NewPrefetcher(placesClient, meals)
	}

	originVerifySecret = os.Getenv("ORIGIN_VERIFY_SECRET")
	if originVerifySecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set — origin verification disabled")
	}

	lambdaboot.StartupLog("meal-lambda", initStart).
		S3Bucket("photos", s3c.Bucket).
		DynamoTable("entries", os.Getenv("DYNAMO_TABLE_NAME")).
		Feature("places", placesClient != nil).
		Feature("enrichWorker", enrichInvoker != nil).
		Feature("originVerify", originVerifySecret != "").
		Log()
}

// withOriginVerify rejects requests lacking the correct x-origin-verify
// header. CloudFront injects this header via a custom origin header, so
// direct API Gateway access is blocked.
func withOriginVerify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if originVerifySecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-origin-verify") != originVerifySecret {
			log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
			httpError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/api/upload-url", handleUploadURL)
	mux.HandleFunc("/api/sessions", handleSessionBegin)
	mux.HandleFunc("/api/sessions/suggestions", handleSessionSuggestions)
	mux.HandleFunc("/api/restaurants/nearby", handleNearby)
	mux.HandleFunc("/api/restaurants/autocomplete", handleAutocomplete)
	mux.HandleFunc("/api/entries", handleEntries)
	mux.HandleFunc("/api/entries/", handleEntryRoutes)

	handler := withOriginVerify(mux)

	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}

// --- Health ---

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "forkful-lite",
	})
}

// --- Presigned upload URL ---

// GET /api/upload-url?userId=...
// Returns a presigned S3 PUT URL so the client can upload the original
// photo directly, plus the staging key to reference in the save call.
func handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.URL.Query().Get("userId")
	if err := validateUserID(userID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := s3util.StagingKey(userID, jobs.GenerateID("upload-"))
	url, err := photos.UploadURL(r.Context(), key, presignExpiry)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to generate presigned upload URL")
		httpError(w, http.StatusInternalServerError, "failed to generate upload URL")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"uploadUrl": url,
		"key":       key,
	})
}

// --- Capture sessions ---

type sessionRequest struct {
	PhotoURI string `json:"photoUri"`
	// Asset coordinate from the client's photo library, if present.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	HasGPS    bool    `json:"hasGps"`
}

// POST /api/sessions
// Begins a capture session for a photo. Superseding an older session
// cancels its in-flight work and clears its suggestions before this call
// returns the new session ID. When the request carries a coordinate the
// suggestion cache is warmed in the background.
func handleSessionBegin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PhotoURI == "" {
		httpError(w, http.StatusBadRequest, "photoUri is required")
		return
	}

	sess, fresh := sessions.Begin(req.PhotoURI)
	if fresh && req.HasGPS {
		sess.Resolver().Offer(location.Candidate{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Source:    location.SourcePHAsset,
		})
	}
	if fresh && prefetcher != nil {
		go prefetcher.Warm(sess)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"fresh":     fresh,
	})
}

// GET /api/sessions/suggestions?photoUri=...
// Returns prefetched suggestions if they were computed for this exact
// photo. 204 means nothing usable is cached; the client falls back to an
// on-demand search.
func handleSessionSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	photoURI := r.URL.Query().Get("photoUri")
	if photoURI == "" {
		httpError(w, http.StatusBadRequest, "photoUri is required")
		return
	}

	sess := sessions.Active()
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	suggestions, ok := sess.Cache().Get(photoURI)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"restaurants":    suggestions.Restaurants,
		"mealSuggestion": suggestions.MealSuggestion,
	})
}

// --- Restaurant search ---

// GET /api/restaurants/nearby?lat=...&lng=...&wide=true
// Tight radius by default (rating screen field focus); wide radius for
// the explicit "find restaurants" button.
func handleNearby(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if placesClient == nil {
		httpError(w, http.StatusServiceUnavailable, "restaurant search not configured")
		return
	}

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		httpError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	radius := places.RadiusOnFocus
	if r.URL.Query().Get("wide") == "true" {
		radius = places.RadiusButton
	}

	restaurants, err := placesClient.NearbySearch(r.Context(), lat, lng, radius)
	if err != nil {
		log.Error().Err(err).Msg("Nearby search failed")
		httpError(w, http.StatusBadGateway, "restaurant search failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"restaurants": restaurants})
}

// GET /api/restaurants/autocomplete?query=...&lat=...&lng=...
// lat/lng are optional; when present they bias the search.
func handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if placesClient == nil {
		httpError(w, http.StatusServiceUnavailable, "restaurant search not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	var bias *places.LatLng
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr == nil && lngErr == nil {
		bias = &places.LatLng{Lat: lat, Lng: lng}
	}

	restaurants, err := placesClient.Autocomplete(r.Context(), query, bias)
	if err != nil {
		log.Error().Err(err).Msg("Autocomplete failed")
		httpError(w, http.StatusBadGateway, "autocomplete failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"restaurants": restaurants})
}

// --- Entries ---

// enrichEvent is the async hand-off payload to the enrichment Lambda.
type enrichEvent struct {
	UserID  string `json:"userId"`
	EntryID string `json:"entryId"`
}

func handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		handleEntrySave(w, r)
	case http.MethodGet:
		handleEntryList(w, r)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/entries (multipart/form-data)
// Fields: userId, rating, mealName, restaurantName, mealType, thoughts,
// location (JSON), and either photo (inline file) or photoKey (a staging
// key from /api/upload-url). The response returns as soon as the base
// entry is durable; enrichment continues in the background.
func handleEntrySave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	userID := r.FormValue("userId")
	if err := validateUserID(userID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	rating, err := strconv.Atoi(r.FormValue("rating"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "rating must be an integer")
		return
	}

	req := pipeline.SaveRequest{
		UserID:         userID,
		Rating:         rating,
		RestaurantName: r.FormValue("restaurantName"),
		MealName:       r.FormValue("mealName"),
		MealType:       r.FormValue("mealType"),
		Thoughts:       r.FormValue("thoughts"),
	}

	if locJSON := r.FormValue("location"); locJSON != "" {
		var loc store.LocationSnapshot
		if err := json.Unmarshal([]byte(locJSON), &loc); err != nil {
			httpError(w, http.StatusBadRequest, "invalid location JSON")
			return
		}
		req.Location = &loc
	}

	photoData, stagedKey, status, err := readPhoto(r, userID)
	if err != nil {
		httpError(w, status, err.Error())
		return
	}
	req.PhotoData = photoData

	entry, normalized, err := saver.Save(r.Context(), req)
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to save entry", err.Error())
		return
	}
	releaseStaging(r.Context(), stagedKey)

	// The save already succeeded, so the user gets their entry back no
	// matter what happens to the enrichment hand-off.
	dispatchEnrichment(entry, normalized)

	// End the capture session; the flow for this photo is complete.
	sessions.End()

	respondJSON(w, http.StatusCreated, entryResponse(r.Context(), entry))
}

// readPhoto pulls the photo bytes out of a multipart request: an inline
// "photo" file, or a "photoKey" referencing a staged presigned upload.
// stagedKey is non-empty when the bytes came from staging, so the caller
// can release the staged object once the save succeeds. A request with
// neither field returns empty data and no error.
func readPhoto(r *http.Request, userID string) (data []byte, stagedKey string, status int, err error) {
	if file, _, ferr := r.FormFile("photo"); ferr == nil {
		defer file.Close()
		data, err = photo.ReadLimited(file, maxPhotoSize)
		if errors.Is(err, photo.ErrTooLarge) {
			return nil, "", http.StatusRequestEntityTooLarge, err
		}
		if err != nil {
			return nil, "", http.StatusBadRequest, err
		}
		return data, "", 0, nil
	}

	key := r.FormValue("photoKey")
	if key == "" {
		return nil, "", 0, nil
	}
	if !s3util.ValidStagingKey(userID, key) {
		return nil, "", http.StatusBadRequest, fmt.Errorf("invalid photoKey")
	}
	data, err = photos.DownloadPhoto(r.Context(), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Staged photo not readable")
		return nil, "", http.StatusBadRequest, fmt.Errorf("staged photo not found")
	}
	// Presigned PUTs cannot carry the cost tag; apply it on claim.
	if terr := photos.TagUpload(r.Context(), key); terr != nil {
		log.Warn().Err(terr).Str("key", key).Msg("Failed to tag staged upload")
	}
	return data, key, 0, nil
}

// releaseStaging deletes a claimed staging object. The normalized copy
// lives under the entry's own key by the time this runs.
func releaseStaging(ctx context.Context, stagedKey string) {
	if stagedKey == "" {
		return
	}
	if err := photos.DeleteUpload(context.WithoutCancel(ctx), stagedKey); err != nil {
		log.Warn().Err(err).Str("key", stagedKey).Msg("Failed to delete staged upload")
	}
}

// dispatchEnrichment hands the entry to the worker Lambda, or runs the
// chain in-process when no worker is configured.
func dispatchEnrichment(entry *store.MealEntry, normalized []byte) {
	if entry.PhotoURL == nil {
		return
	}
	if enrichInvoker == nil {
		saver.EnrichAsync(entry, normalized)
		return
	}

	payload, err := json.Marshal(enrichEvent{UserID: entry.UserID, EntryID: entry.EntryID})
	if err != nil {
		log.Error().Err(err).Str("entryId", entry.EntryID).Msg("Failed to marshal enrichment event")
		return
	}
	_, err = enrichInvoker.Client.Invoke(context.Background(), &awslambda.InvokeInput{
		FunctionName:   &enrichInvoker.FunctionName,
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		log.Error().Err(err).Str("entryId", entry.EntryID).Msg("Failed to invoke enrichment Lambda")
		return
	}
	log.Debug().Str("entryId", entry.EntryID).Msg("Enrichment Lambda invoked")
}

// GET /api/entries?userId=...
func handleEntryList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if err := validateUserID(userID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := saver.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to list entries")
		httpError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryResponse(r.Context(), entry))
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleEntryRoutes dispatches /api/entries/{id}.
func handleEntryRoutes(w http.ResponseWriter, r *http.Request) {
	entryID, action, ok := jobs.ParseRoute(r.URL.Path, "/api/entries/")
	if !ok || (action != "" && action != "photo") {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if err := validateEntryID(entryID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := r.URL.Query().Get("userId")
	if err := validateUserID(userID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := saver.Get(r.Context(), userID, entryID)
	if err != nil {
		log.Error().Err(err).Str("entryId", entryID).Msg("Failed to read entry")
		httpError(w, http.StatusInternalServerError, "failed to read entry")
		return
	}
	if entry == nil || !jobs.CheckOwnership(r, entry.UserID) {
		httpError(w, http.StatusNotFound, "entry not found")
		return
	}

	if action == "photo" {
		if r.Method != http.MethodPut {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handleEntryPhoto(w, r, userID, entryID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, entryResponse(r.Context(), entry))
	case http.MethodDelete:
		if err := saver.Delete(r.Context(), userID, entryID); err != nil {
			log.Error().Err(err).Str("entryId", entryID).Msg("Failed to delete entry")
			httpError(w, http.StatusInternalServerError, "failed to delete entry")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// PUT /api/entries/{id}/photo (multipart/form-data)
// Attaches or replaces the entry's photo from an inline file or a staged
// upload, then re-runs enrichment against the new photo.
func handleEntryPhoto(w http.ResponseWriter, r *http.Request, userID, entryID string) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	data, stagedKey, status, err := readPhoto(r, userID)
	if err != nil {
		httpError(w, status, err.Error())
		return
	}
	if len(data) == 0 {
		httpError(w, http.StatusBadRequest, "photo or photoKey is required")
		return
	}

	entry, normalized, err := saver.AttachPhoto(r.Context(), userID, entryID, data)
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to attach photo", err.Error())
		return
	}
	releaseStaging(r.Context(), stagedKey)
	dispatchEnrichment(entry, normalized)

	respondJSON(w, http.StatusOK, entryResponse(r.Context(), entry))
}

// entryResponse shapes an entry for the client, swapping the photo key
// for a presigned view URL.
func entryResponse(ctx context.Context, entry *store.MealEntry) map[string]any {
	out := map[string]any{
		"entryId":        entry.EntryID,
		"userId":         entry.UserID,
		"rating":         entry.Rating,
		"restaurantName": entry.RestaurantName,
		"mealName":       entry.MealName,
		"mealType":       entry.MealType,
		"thoughts":       entry.Thoughts,
		"createdAt":      entry.CreatedAt,
	}
	if entry.Location != nil {
		out["location"] = entry.Location
	}
	if entry.PhotoURL != nil {
		if url, err := photos.ViewURL(ctx, *entry.PhotoURL, presignExpiry); err == nil {
			out["photoUrl"] = url
		} else {
			log.Warn().Err(err).Str("entryId", entry.EntryID).Msg("Failed to presign photo URL")
		}
	}
	if entry.QuickCriteria != nil {
		out["quickCriteria"] = entry.QuickCriteria
	}
	if entry.EnhancedMetadata != nil {
		out["enhancedMetadata"] = entry.EnhancedMetadata
	}
	if entry.EnhancedFacts != nil {
		out["enhancedFacts"] = entry.EnhancedFacts
	}
	return out
}

// --- HTTP helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// httpError sends a JSON error response. The clientMsg is returned to the
// caller. Optional internalDetails are logged server-side but never sent
// to the client.
func httpError(w http.ResponseWriter, status int, clientMsg string, internalDetails ...string) {
	if len(internalDetails) > 0 {
		log.Error().
			Int("status", status).
			Str("clientMsg", clientMsg).
			Strs("internalDetails", internalDetails).
			Msg("HTTP error with internal details")
	}
	respondJSON(w, status, map[string]string{"error": clientMsg})
}
