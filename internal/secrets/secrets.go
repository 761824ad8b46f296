package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/ca-srg/medassist/internal/types"
)

// SecretsAPI is the subset of the Secrets Manager client used to resolve API keys
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewClient builds a Secrets Manager client for the given region using the default AWS credential chain
func NewClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// Apply fetches the JSON secret and fills API keys that are still empty in cfg.
// Keys already set through the environment win over the secret.
func Apply(ctx context.Context, api SecretsAPI, secretID string, cfg *types.Config) error {
	if api == nil {
		return fmt.Errorf("secrets client is nil")
	}
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}

	raw := aws.ToString(out.SecretString)
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("secret %s has no string value", secretID)
	}

	values := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return fmt.Errorf("secret %s is not a JSON object of strings: %w", secretID, err)
	}

	fill(&cfg.GeminiAPIKey, values["GEMINI_API_KEY"])
	fill(&cfg.OpenFDAAPIKey, values["OPENFDA_API_KEY"])
	fill(&cfg.NCBIAPIKey, values["NCBI_API_KEY"])

	return nil
}

func fill(dst *string, value string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = strings.TrimSpace(value)
	}
}
