// Package auth resolves API credentials for the pipeline's external services
// (Gemini, the places backend). Keys come from the environment in local/dev
// runs and from SSM Parameter Store in Lambda.
package auth

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// Default SSM parameter names for service credentials.
const (
	DefaultGeminiKeyParam = "/forkful/prod/gemini-api-key"
	DefaultPlacesKeyParam = "/forkful/prod/places-api-key"
)

// ParameterGetter is the subset of the SSM client used by this package.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// GetAPIKey retrieves an API key for an external service.
// Priority order:
//  1. The envVar environment variable
//  2. SSM Parameter Store (decrypted), parameter name from paramEnvVar or defaultParam
//
// ssmClient may be nil in local runs; then only the environment is consulted.
func GetAPIKey(ctx context.Context, ssmClient ParameterGetter, envVar, paramEnvVar, defaultParam string) (string, error) {
	if key := os.Getenv(envVar); key != "" {
		log.Debug().Str("env_var", envVar).Msg("Using API key from environment variable")
		return key, nil
	}

	if ssmClient == nil {
		return "", fmt.Errorf("API key not found: set %s", envVar)
	}

	paramName := os.Getenv(paramEnvVar)
	if paramName == "" {
		paramName = defaultParam
	}

	result, err := ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s from SSM: %w", paramName, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("SSM parameter %s is empty", paramName)
	}

	log.Debug().Str("param", paramName).Msg("Using API key from SSM Parameter Store")
	return *result.Parameter.Value, nil
}
