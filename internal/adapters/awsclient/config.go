package awsclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Config holds the AWS settings shared by the SQS, DynamoDB and SNS clients.
type Config struct {
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	Endpoint           string // optional override, e.g. a localstack URL
	InsecureSkipVerify bool
}

// NewConfig builds an aws.Config. Static credentials are used when both keys
// are set; otherwise the SDK's default credential chain is loaded.
func NewConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	if cfg.InsecureSkipVerify {
		log.Printf("[AWS] WARNING: TLS certificate verification is disabled. Use only in development.")
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
				MinVersion:         tls.VersionTLS12,
			},
		},
	}

	var awsCfg aws.Config
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region: cfg.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretAccessKey,
					"",
				),
			),
			HTTPClient: httpClient,
		}
	} else {
		loaded, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithHTTPClient(httpClient),
		)
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
		}
		awsCfg = loaded
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awsCfg, nil
}
