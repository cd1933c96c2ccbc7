// Package main provides the enrichment worker Lambda entry point.
//
// The worker is invoked asynchronously by the API Lambda via
// lambda:Invoke with InvocationType=Event after a meal entry's base save
// completes. It downloads the entry's photo and runs the three-stage
// enrichment chain, persisting each stage's document as it lands. The
// API Lambda never waits on this; clients see the documents appear on
// subsequent reads.
//
// Event format:
//
//	{
//	  "userId": "...",
//	  "entryId": "entry-xxx"
//	}
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/enrich"
	"github.com/vinulakkur23/forkful-lite/internal/lambdaboot"
	"github.com/vinulakkur23/forkful-lite/internal/logging"
	"github.com/vinulakkur23/forkful-lite/internal/pipeline"
	"github.com/vinulakkur23/forkful-lite/internal/s3util"
	"github.com/vinulakkur23/forkful-lite/internal/store"
)

var coldStart = true

// Clients initialized at cold start.
var (
	entryStore *store.DynamoStore
	saver      *pipeline.Saver
)

// EnrichEvent is the event received from the API Lambda.
type EnrichEvent struct {
	UserID  string `json:"userId"`
	EntryID string `json:"entryId"`
}

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	s3c := lambdaboot.InitS3(clients.Config, "PHOTO_BUCKET_NAME")
	photos := s3util.NewPhotoStore(s3c.Client, s3c.Presigner, s3c.Bucket)
	entryStore = lambdaboot.InitDynamo(clients.Config, "DYNAMO_TABLE_NAME")

	lambdaboot.LoadGeminiKey(clients.SSM)
	enricher, err := enrich.NewGeminiEnricher(context.Background(), os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini enricher")
	}
	saver = pipeline.NewSaver(entryStore, photos, enricher)

	lambdaboot.StartupLog("enrich-lambda", initStart).
		S3Bucket("photos", s3c.Bucket).
		DynamoTable("entries", os.Getenv("DYNAMO_TABLE_NAME")).
		Config("model", enrich.ModelName()).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, event EnrichEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "enrich-lambda").Msg("Cold start — first invocation")
	}
	log.Info().
		Str("userId", event.UserID).
		Str("entryId", event.EntryID).
		Msg("Enrichment worker invoked")

	if event.UserID == "" || event.EntryID == "" {
		return fmt.Errorf("userId and entryId are required")
	}

	entry, err := entryStore.GetEntry(ctx, event.UserID, event.EntryID)
	if err != nil {
		return fmt.Errorf("loading entry %s: %w", event.EntryID, err)
	}
	if entry == nil {
		// Deleted between save and invocation. Nothing to enrich.
		log.Warn().Str("entryId", event.EntryID).Msg("Entry no longer exists, skipping enrichment")
		return nil
	}

	if err := saver.EnrichFromBlob(ctx, entry); err != nil {
		return fmt.Errorf("enriching entry %s: %w", event.EntryID, err)
	}
	return nil
}
