package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/caarlos0/env/v11"
)

// S3Settings holds the permit document bucket settings.
type S3Settings struct {
	Region          string `env:"AWS_REGION"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"S3_ENDPOINT"`
	Bucket          string `env:"S3_BUCKET_NAME"`
	PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
}

type S3Config struct {
	S3Settings
	Client *s3.Client
}

// Enabled reports whether a bucket is configured.
func (c *S3Config) Enabled() bool {
	return c != nil && c.Bucket != ""
}

// NewS3Config reads the S3 settings and builds a client when a bucket is
// configured.
func NewS3Config(ctx context.Context) (*S3Config, error) {
	var cfg S3Config
	if err := env.Parse(&cfg.S3Settings); err != nil {
		return nil, fmt.Errorf("parse s3 env: %w", err)
	}
	if !cfg.Enabled() {
		return &cfg, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	cfg.Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &cfg, nil
}
