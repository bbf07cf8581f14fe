// Package s3 implements a RIB snapshot Store backed by Amazon S3 or an
// S3-compatible object store, for deployments that want snapshot
// durability outside the local disk entirely.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rinacore/ipcpd/internal/rina/rib"
)

// Config configures the S3 snapshot store.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Key             string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// Store persists a RIB snapshot as a single object in an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	key    string
}

// NewClient builds an S3 client from cfg's endpoint and credentials.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore/s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return client, nil
}

// Open verifies access to cfg's bucket and returns a Store backed by it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("snapshotstore/s3: bucket is required")
	}
	if cfg.Key == "" {
		cfg.Key = "rib.snapshot"
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("snapshotstore/s3: access bucket %q: %w", cfg.Bucket, err)
	}
	return &Store{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

// PersistSnapshot uploads data as the bucket's snapshot object, replacing
// any previous version.
func (s *Store) PersistSnapshot(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("snapshotstore/s3: put object: %w", err)
	}
	return nil
}

// LoadSnapshot downloads the bucket's snapshot object, reporting ok=false
// if it does not exist.
func (s *Store) LoadSnapshot(ctx context.Context) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("snapshotstore/s3: get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("snapshotstore/s3: read object body: %w", err)
	}
	return data, true, nil
}

var _ rib.Store = (*Store)(nil)
