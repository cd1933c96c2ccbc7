package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	value     string
	err       error
	lastParam string
}

func (f *fakeSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if params.Name != nil {
		f.lastParam = *params.Name
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: &f.value},
	}, nil
}

func TestGetAPIKey_EnvWins(t *testing.T) {
	t.Setenv("TEST_API_KEY", "from-env")

	key, err := GetAPIKey(context.Background(), &fakeSSM{value: "from-ssm"}, "TEST_API_KEY", "TEST_PARAM", "/test/key")
	if err != nil {
		t.Fatalf("GetAPIKey() error: %v", err)
	}
	if key != "from-env" {
		t.Errorf("key = %q, want from-env", key)
	}
}

func TestGetAPIKey_SSMFallback(t *testing.T) {
	t.Setenv("TEST_API_KEY", "")
	t.Setenv("TEST_PARAM", "")

	fake := &fakeSSM{value: "from-ssm"}
	key, err := GetAPIKey(context.Background(), fake, "TEST_API_KEY", "TEST_PARAM", "/test/key")
	if err != nil {
		t.Fatalf("GetAPIKey() error: %v", err)
	}
	if key != "from-ssm" {
		t.Errorf("key = %q, want from-ssm", key)
	}
	if fake.lastParam != "/test/key" {
		t.Errorf("SSM parameter = %q, want /test/key", fake.lastParam)
	}
}

func TestGetAPIKey_ParamEnvOverride(t *testing.T) {
	t.Setenv("TEST_API_KEY", "")
	t.Setenv("TEST_PARAM", "/custom/key")

	fake := &fakeSSM{value: "v"}
	if _, err := GetAPIKey(context.Background(), fake, "TEST_API_KEY", "TEST_PARAM", "/test/key"); err != nil {
		t.Fatalf("GetAPIKey() error: %v", err)
	}
	if fake.lastParam != "/custom/key" {
		t.Errorf("SSM parameter = %q, want /custom/key", fake.lastParam)
	}
}

func TestGetAPIKey_Errors(t *testing.T) {
	t.Setenv("TEST_API_KEY", "")

	if _, err := GetAPIKey(context.Background(), nil, "TEST_API_KEY", "TEST_PARAM", "/test/key"); err == nil {
		t.Error("expected error with no env and nil SSM client")
	}

	fake := &fakeSSM{err: errors.New("boom")}
	if _, err := GetAPIKey(context.Background(), fake, "TEST_API_KEY", "TEST_PARAM", "/test/key"); err == nil {
		t.Error("expected error when SSM fails")
	}
}
