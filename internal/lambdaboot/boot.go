// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Both Lambdas need some subset of: AWS config, S3, DynamoDB, SSM key
// fetch, a Lambda invoker, and startup logging. This package extracts
// the common init patterns so each Lambda's init() is a short
// composition of helpers.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/auth"
	"github.com/vinulakkur23/forkful-lite/internal/logging"
	"github.com/vinulakkur23/forkful-lite/internal/store"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// S3Clients holds S3 client, presigner, and bucket name.
type S3Clients struct {
	Client    *s3.Client
	Presigner *s3.PresignClient
	Bucket    string
}

// Invoker holds a Lambda client and the target function for async
// enrichment hand-off.
type Invoker struct {
	Client       *lambda.Client
	FunctionName string
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitS3 creates an S3 client, presigner, and reads the bucket name from the
// given environment variable. Fatals if the env var is empty.
func InitS3(cfg aws.Config, bucketEnvVar string) S3Clients {
	client := s3.NewFromConfig(cfg)
	bucket := os.Getenv(bucketEnvVar)
	if bucket == "" {
		log.Fatal().Str("envVar", bucketEnvVar).Msg("Bucket environment variable is required")
	}
	return S3Clients{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
	}
}

// InitDynamo creates a DynamoDB entry store from the given config and
// table name environment variable. Fatals if the env var is empty.
func InitDynamo(cfg aws.Config, tableEnvVar string) *store.DynamoStore {
	tableName := os.Getenv(tableEnvVar)
	if tableName == "" {
		log.Fatal().Str("envVar", tableEnvVar).Msg("DynamoDB table environment variable is required")
	}
	ddbClient := dynamodb.NewFromConfig(cfg)
	return store.NewDynamoStore(ddbClient, tableName)
}

// InitLambdaInvoker creates a Lambda invoker targeting the function named
// by the given environment variable. Returns nil (with a warning) if not
// configured; callers then run enrichment in-process instead.
func InitLambdaInvoker(cfg aws.Config, funcEnvVar string) *Invoker {
	functionName := os.Getenv(funcEnvVar)
	if functionName == "" {
		log.Warn().Str("envVar", funcEnvVar).Msg("Enrichment Lambda not set — running enrichment in-process")
		return nil
	}
	return &Invoker{
		Client:       lambda.NewFromConfig(cfg),
		FunctionName: functionName,
	}
}

// LoadGeminiKey resolves the Gemini API key via auth.GetAPIKey and stores
// it in GEMINI_API_KEY for downstream client construction. Fatals on error.
func LoadGeminiKey(ssmClient *ssm.Client) {
	start := time.Now()
	key, err := auth.GetAPIKey(context.Background(), ssmClient,
		"GEMINI_API_KEY", "SSM_GEMINI_KEY_PARAM", auth.DefaultGeminiKeyParam)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve Gemini API key")
	}
	os.Setenv("GEMINI_API_KEY", key)
	log.Debug().Dur("elapsed", time.Since(start)).Msg("Gemini API key resolved")
}

// LoadPlacesKey resolves the places API key. Non-fatal: returns "" (with
// a warning) when unconfigured; restaurant suggestions are then disabled.
func LoadPlacesKey(ssmClient *ssm.Client) string {
	key, err := auth.GetAPIKey(context.Background(), ssmClient,
		"PLACES_API_KEY", "SSM_PLACES_KEY_PARAM", auth.DefaultPlacesKeyParam)
	if err != nil {
		log.Warn().Err(err).Msg("Places API key not configured — restaurant suggestions disabled")
		return ""
	}
	return key
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
