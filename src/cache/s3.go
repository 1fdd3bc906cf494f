package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"bench-harvester/src/bench"
	"bench-harvester/src/logger"
)

// S3API is the part of the S3 client used by S3Cache.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client. Static credentials are used when an
// access key is given, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, region, accessKey, secretKey string) (*s3.Client, error) {
	if accessKey != "" {
		cfg := aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		}
		return s3.NewFromConfig(cfg), nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3Cache stores reports as <prefix><runID>.json objects in a bucket.
type S3Cache struct {
	client S3API
	bucket string
	prefix string
	logger logger.Logger
}

// NewS3Cache creates a cache over bucket. prefix is prepended verbatim to
// object keys.
func NewS3Cache(client S3API, bucket, prefix string, log logger.Logger) *S3Cache {
	return &S3Cache{client: client, bucket: bucket, prefix: prefix, logger: log}
}

func (c *S3Cache) key(runID string) string {
	return c.prefix + path.Base(runID) + ".json"
}

// Fetch downloads and decodes the report object for runID.
func (c *S3Cache) Fetch(ctx context.Context, runID string) (*bench.JobReport, error) {
	key := c.key(runID)
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, bench.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", c.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", c.bucket, key, err)
	}

	var report bench.JobReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode s3://%s/%s: %w", c.bucket, key, err)
	}
	return &report, nil
}

// Put uploads report, replacing any existing object.
func (c *S3Cache) Put(ctx context.Context, runID string, report *bench.JobReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	key := c.key(runID)
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", c.bucket, key, err)
	}

	c.logger.Debug("Cached report for run %s at s3://%s/%s", runID, c.bucket, key)
	return nil
}

func (c *S3Cache) Sync(ctx context.Context) error { return nil }

func (c *S3Cache) Close() error { return nil }
