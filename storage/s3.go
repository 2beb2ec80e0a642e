package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"atlas/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const s3OpTimeout = 30 * time.Second

// S3Config contains minimal configuration for the S3-backed content store.
// Bucket is required; the rest falls back to the standard AWS config chain.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every object key, e.g. "atlas/"
	Prefix string
	// Region to use for requests. If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile.
	Profile string
	// UsePathStyle forces path-style addressing (S3-compatible providers).
	UsePathStyle bool
}

// S3Store keeps raw content in an S3 bucket, one object per item under a
// per-content-type key prefix. Like FileStore it answers the raw-URL
// existence check.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3Store using the default AWS configuration chain
// with optional overrides from S3Config.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Key returns the object key for content fetched from url.
func (s *S3Store) Key(contentType types.ContentType, url string) string {
	return path.Join(s.prefix, typeDirs[contentType], types.GenerateUID(url)+".json")
}

// Exists reports whether content for the url is already stored under any
// content-type prefix. A 404/NotFound from HeadObject means absent; any
// other error propagates.
func (s *S3Store) Exists(url string) (bool, error) {
	if url == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()

	for contentType := range typeDirs {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.Key(contentType, url)),
		})
		if err == nil {
			return true, nil
		}
		if isNotFound(err) {
			continue
		}
		return false, fmt.Errorf("failed to probe s3 object: %w", err)
	}
	return false, nil
}

// Put stores raw content bytes for the url.
func (s *S3Store) Put(ctx context.Context, contentType types.ContentType, url string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(contentType, url)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}

// Delete removes stored content for the url under every content-type
// prefix. S3 deletes are idempotent, so missing objects are not an error.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	for contentType := range typeDirs {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.Key(contentType, url)),
		})
		if err != nil {
			return fmt.Errorf("failed to delete s3 object: %w", err)
		}
	}
	return nil
}

// isNotFound reports whether err is an HTTP 404 or NotFound API error.
func isNotFound(err error) bool {
	var respErr *http.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return true
	}
	return false
}
