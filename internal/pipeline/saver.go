// Package pipeline ties the save flow together: photo normalization,
// blob upload, the synchronous base entry write, and the asynchronous
// enrichment chain that fills in the AI documents afterwards.
//
// The base save is the only part the user waits on. Everything the
// enrichment chain produces is additive; a failure partway through the
// chain leaves a valid entry with fewer documents, never a broken one.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/enrich"
	"github.com/vinulakkur23/forkful-lite/internal/jobs"
	"github.com/vinulakkur23/forkful-lite/internal/metrics"
	"github.com/vinulakkur23/forkful-lite/internal/photo"
	"github.com/vinulakkur23/forkful-lite/internal/store"
)

// Rating bounds for a meal entry.
const (
	MinRating = 1
	MaxRating = 7
)

// chainTimeout bounds the whole three-stage enrichment chain.
const chainTimeout = 5 * time.Minute

// stageTimeout bounds one enrichment stage call.
const stageTimeout = 100 * time.Second

// BlobStore abstracts photo blob storage so the save flow can be tested
// without S3.
type BlobStore interface {
	// UploadPhoto stores a normalized JPEG and returns its object key.
	UploadPhoto(ctx context.Context, userID, entryID string, data []byte) (string, error)

	// DownloadPhoto reads a photo back for the enrichment stages.
	DownloadPhoto(ctx context.Context, key string) ([]byte, error)

	// DeletePhoto removes an entry's photo. Idempotent.
	DeletePhoto(ctx context.Context, userID, entryID string) error
}

// SaveRequest carries everything the rating screen collected.
type SaveRequest struct {
	UserID         string
	PhotoData      []byte
	Rating         int
	RestaurantName string
	MealName       string
	MealType       string
	Thoughts       string
	Location       *store.LocationSnapshot
}

// Saver runs the save flow. The zero value is not usable; construct with
// NewSaver.
type Saver struct {
	store    store.EntryStore
	blobs    BlobStore
	enricher enrich.Enricher

	maxDimension int
	jpegQuality  int
}

// NewSaver wires a Saver from its dependencies. enricher may be nil,
// which disables the enrichment chain (entries stay base-only).
func NewSaver(entries store.EntryStore, blobs BlobStore, enricher enrich.Enricher) *Saver {
	return &Saver{
		store:        entries,
		blobs:        blobs,
		enricher:     enricher,
		maxDimension: photo.DefaultMaxDimension,
		jpegQuality:  photo.DefaultJPEGQuality,
	}
}

// Save validates the request, normalizes and uploads the photo, and
// writes the base entry. It returns once the entry is durable; the
// enrichment chain runs separately via EnrichAsync or the worker Lambda.
//
// The returned entry carries the normalized photo bytes' object key in
// PhotoURL. The photo is optional: a request without PhotoData produces
// an entry with no photo and no enrichment.
func (s *Saver) Save(ctx context.Context, req SaveRequest) (*store.MealEntry, []byte, error) {
	if req.UserID == "" {
		return nil, nil, fmt.Errorf("userID is required")
	}
	if req.Rating < MinRating || req.Rating > MaxRating {
		return nil, nil, fmt.Errorf("rating %d out of range [%d, %d]", req.Rating, MinRating, MaxRating)
	}

	entryID := jobs.GenerateID("entry-")
	entry := store.NewMealEntry(req.UserID, entryID)
	entry.Rating = req.Rating
	entry.RestaurantName = req.RestaurantName
	entry.MealName = req.MealName
	entry.MealType = req.MealType
	entry.Thoughts = req.Thoughts
	entry.Location = req.Location

	var normalized []byte
	if len(req.PhotoData) > 0 {
		data, width, height, err := photo.Normalize(req.PhotoData, s.maxDimension, s.jpegQuality)
		if err != nil {
			return nil, nil, fmt.Errorf("normalizing photo: %w", err)
		}
		normalized = data

		key, err := s.blobs.UploadPhoto(ctx, req.UserID, entryID, data)
		if err != nil {
			return nil, nil, fmt.Errorf("uploading photo: %w", err)
		}
		entry.PhotoURL = &key

		log.Debug().
			Str("entryId", entryID).
			Int("width", width).
			Int("height", height).
			Int("bytes", len(data)).
			Msg("Photo normalized and uploaded")
	}

	if err := s.store.PutEntry(ctx, entry); err != nil {
		// The upload is orphaned if this fails; clean it up so retries
		// do not accumulate blobs.
		if entry.PhotoURL != nil {
			if delErr := s.blobs.DeletePhoto(context.WithoutCancel(ctx), req.UserID, entryID); delErr != nil {
				log.Warn().Err(delErr).Str("entryId", entryID).Msg("Failed to clean up photo after store error")
			}
		}
		return nil, nil, fmt.Errorf("persisting entry: %w", err)
	}

	log.Info().
		Str("userId", req.UserID).
		Str("entryId", entryID).
		Int("rating", req.Rating).
		Bool("hasPhoto", entry.PhotoURL != nil).
		Msg("Meal entry saved")
	return entry, normalized, nil
}

// AttachPhoto normalizes and uploads a photo for an existing entry and
// points the entry at it. Used when the photo arrives after the base
// save, or to replace an entry's photo. Returns the updated entry and
// the normalized bytes so the caller can re-run enrichment.
func (s *Saver) AttachPhoto(ctx context.Context, userID, entryID string, photoData []byte) (*store.MealEntry, []byte, error) {
	entry, err := s.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading entry: %w", err)
	}
	if entry == nil {
		return nil, nil, fmt.Errorf("entry %s not found", entryID)
	}

	normalized, width, height, err := photo.Normalize(photoData, s.maxDimension, s.jpegQuality)
	if err != nil {
		return nil, nil, fmt.Errorf("normalizing photo: %w", err)
	}
	key, err := s.blobs.UploadPhoto(ctx, userID, entryID, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("uploading photo: %w", err)
	}
	if err := s.store.UpdatePhotoURL(ctx, userID, entryID, key); err != nil {
		// The conditional update fails if the entry was deleted between
		// the read and here; the upload is then an orphan.
		if delErr := s.blobs.DeletePhoto(context.WithoutCancel(ctx), userID, entryID); delErr != nil {
			log.Warn().Err(delErr).Str("entryId", entryID).Msg("Failed to clean up photo after update error")
		}
		return nil, nil, fmt.Errorf("updating photo URL: %w", err)
	}
	entry.PhotoURL = &key

	log.Info().
		Str("entryId", entryID).
		Int("width", width).
		Int("height", height).
		Msg("Photo attached to entry")
	return entry, normalized, nil
}

// Get returns an entry, or (nil, nil) when it does not exist.
func (s *Saver) Get(ctx context.Context, userID, entryID string) (*store.MealEntry, error) {
	return s.store.GetEntry(ctx, userID, entryID)
}

// List returns a user's entries, newest first.
func (s *Saver) List(ctx context.Context, userID string) ([]*store.MealEntry, error) {
	return s.store.ListEntriesByUser(ctx, userID)
}

// Delete removes an entry and, best-effort, its photo. A still-running
// enrichment stage for the entry will fail its conditional update rather
// than resurrect the item.
func (s *Saver) Delete(ctx context.Context, userID, entryID string) error {
	if err := s.store.DeleteEntry(ctx, userID, entryID); err != nil {
		return err
	}
	if err := s.blobs.DeletePhoto(ctx, userID, entryID); err != nil {
		log.Warn().Err(err).Str("entryId", entryID).Msg("Failed to delete photo blob")
	}
	return nil
}

// EnrichAsync starts the enrichment chain in the background and returns
// immediately. img is the already-normalized photo; passing it avoids a
// round trip through blob storage when the saver still has the bytes.
func (s *Saver) EnrichAsync(entry *store.MealEntry, img []byte) {
	if s.enricher == nil || len(img) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), chainTimeout)
		defer cancel()
		s.RunChain(ctx, entry, img)
	}()
}

// EnrichFromBlob downloads the entry's photo and runs the chain. Used by
// the worker Lambda, which receives only the entry reference.
func (s *Saver) EnrichFromBlob(ctx context.Context, entry *store.MealEntry) error {
	if s.enricher == nil {
		return fmt.Errorf("no enricher configured")
	}
	if entry.PhotoURL == nil {
		return fmt.Errorf("entry %s has no photo", entry.EntryID)
	}
	img, err := s.blobs.DownloadPhoto(ctx, *entry.PhotoURL)
	if err != nil {
		return fmt.Errorf("downloading photo for enrichment: %w", err)
	}
	s.RunChain(ctx, entry, img)
	return nil
}

// RunChain runs the three enrichment stages in order, persisting each
// result before starting the next. The chain halts at the first failed
// stage; earlier results stay persisted.
func (s *Saver) RunChain(ctx context.Context, entry *store.MealEntry, imgData []byte) {
	img := enrich.Image{Data: imgData, MIMEType: "image/jpeg"}

	qc, ok := runStage(ctx, entry, enrich.StageQuickCriteria, func(stageCtx context.Context) (*enrich.QuickCriteria, error) {
		return s.enricher.QuickCriteria(stageCtx, img, entry.MealName, entry.RestaurantName)
	})
	if !ok || !s.persistStage(ctx, entry, enrich.StageQuickCriteria, qc) {
		return
	}

	md, ok := runStage(ctx, entry, enrich.StageEnhancedMetadata, func(stageCtx context.Context) (*enrich.EnhancedMetadata, error) {
		return s.enricher.EnhancedMetadata(stageCtx, img, entry.MealName, entry.RestaurantName, qc.CuisineType)
	})
	if !ok || !s.persistStage(ctx, entry, enrich.StageEnhancedMetadata, md) {
		return
	}

	facts, ok := runStage(ctx, entry, enrich.StageEnhancedFacts, func(stageCtx context.Context) (*enrich.EnhancedFacts, error) {
		return s.enricher.EnhancedFacts(stageCtx, img, *qc, md)
	})
	if !ok {
		return
	}
	s.persistStage(ctx, entry, enrich.StageEnhancedFacts, facts)
}

// runStage executes one stage with its own timeout and emits a latency
// metric. Returns ok=false on failure; the caller stops the chain.
func runStage[T any](ctx context.Context, entry *store.MealEntry, stage string, fn func(context.Context) (*T, error)) (*T, bool) {
	stageCtx, cancel := context.WithTimeout(ctx, stageTimeout)
	defer cancel()

	start := time.Now()
	result, err := fn(stageCtx)
	elapsed := time.Since(start)

	rec := metrics.New().
		Property("entryId", entry.EntryID).
		StageLatency(stage, elapsed)
	if err != nil {
		rec.Metric("StageFailure", 1, metrics.UnitCount).Flush()
		log.Error().Err(err).
			Str("entryId", entry.EntryID).
			Str("stage", stage).
			Dur("elapsed", elapsed).
			Msg("Enrichment stage failed, halting chain")
		return nil, false
	}
	if result == nil {
		// A stage that produced no document counts as failed; persisting
		// a nil document would let the next stage read fields off it.
		rec.Metric("StageFailure", 1, metrics.UnitCount).Flush()
		log.Error().
			Str("entryId", entry.EntryID).
			Str("stage", stage).
			Msg("Enrichment stage returned no document, halting chain")
		return nil, false
	}
	rec.Flush()

	log.Info().
		Str("entryId", entry.EntryID).
		Str("stage", stage).
		Dur("elapsed", elapsed).
		Msg("Enrichment stage complete")
	return result, true
}

// persistStage writes a stage document to the store. Returns false on
// failure so the chain stops rather than build later stages on
// unpersisted state.
func (s *Saver) persistStage(ctx context.Context, entry *store.MealEntry, stage string, doc any) bool {
	if err := s.store.UpdateEntryStage(ctx, entry.UserID, entry.EntryID, stage, doc); err != nil {
		log.Error().Err(err).
			Str("entryId", entry.EntryID).
			Str("stage", stage).
			Msg("Failed to persist enrichment stage, halting chain")
		return false
	}
	return true
}
