package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Credentials selects static keys when both are set, otherwise the default chain.
type Credentials struct {
	Region    string
	AccessKey string
	SecretKey string
}

func loadConfig(ctx context.Context, creds Credentials) (awssdk.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(creds.Region)}
	if creds.AccessKey != "" && creds.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}
