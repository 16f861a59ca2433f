package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3StoreConfig holds configuration for S3Store.
type S3StoreConfig struct {
	Region        string
	Endpoint      string // Optional custom endpoint (MinIO, LocalStack)
	BucketPrefix  string // Prepended to every logical bucket name
	PublicBaseURL string // Optional CDN in front of the buckets
}

// S3Store implements ObjectStore on S3-compatible storage.
type S3Store struct {
	client *s3.Client
	cfg    S3StoreConfig
	logger *zap.Logger
}

// NewS3Store creates a new S3-backed object store.
func NewS3Store(ctx context.Context, cfg S3StoreConfig, logger *zap.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3Store initialized", zap.String("region", cfg.Region), zap.String("endpoint", cfg.Endpoint))
	return &S3Store{client: client, cfg: cfg, logger: logger}, nil
}

func (s *S3Store) bucketName(bucket Bucket) string {
	return s.cfg.BucketPrefix + string(bucket)
}

// Put uploads body as a public-read object.
func (s *S3Store) Put(ctx context.Context, bucket Bucket, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName(bucket)),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s/%s failed: %w", bucket, key, err)
	}
	return &Object{
		Bucket:      bucket,
		Key:         key,
		URL:         s.PublicURL(bucket, key),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// Delete removes an object.
func (s *S3Store) Delete(ctx context.Context, bucket Bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName(bucket)),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s failed: %w", bucket, key, err)
	}
	return nil
}

// PublicURL points at the CDN when one is configured, otherwise at the
// path-style bucket URL.
func (s *S3Store) PublicURL(bucket Bucket, key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + string(bucket) + "/" + key
	}
	endpoint := s.cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", s.cfg.Region)
	}
	return strings.TrimRight(endpoint, "/") + "/" + s.bucketName(bucket) + "/" + key
}
