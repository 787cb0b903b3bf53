// Package s3 implements blob.Store on an S3-compatible backend (AWS S3 or MinIO), so that archived lists can be
// kept off the machine that runs the list.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nicolagi/shopping/blob"
)

// Store implements blob.Store with a single bucket. Keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds explicit construction parameters. Credentials come from the default chain (environment,
// shared config, instance role).
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional; set for MinIO and other S3-compatible servers
	PathStyle bool
}

// Environment variables read by ConfigFromEnv:
//   SHOPPING_S3_BUCKET=<bucket> (required)
//   SHOPPING_S3_REGION=<region> (default us-east-1)
//   SHOPPING_S3_ENDPOINT=<url> (optional, for MinIO)
//   SHOPPING_S3_PATH_STYLE=true|false (default false)

// ConfigFromEnv overlays the SHOPPING_S3_* variables on cfg.
func ConfigFromEnv(cfg Config) Config {
	if v := os.Getenv("SHOPPING_S3_BUCKET"); v != "" {
		cfg.Bucket = v
	}
	if v := os.Getenv("SHOPPING_S3_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("SHOPPING_S3_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("SHOPPING_S3_PATH_STYLE"); v != "" {
		cfg.PathStyle = strings.EqualFold(v, "true")
	}
	return cfg
}

// New creates an S3 blob store from Config. Extra options are applied to the S3 client, after the ones derived
// from cfg (tests use this to plug a fake transport).
func New(ctx context.Context, cfg Config, optFns ...func(*s3.Options)) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewFromConfig(awsCfg, cfg, optFns...), nil
}

// NewFromConfig is New with an already loaded AWS configuration.
func NewFromConfig(awsCfg aws.Config, cfg Config, optFns ...func(*s3.Options)) *Store {
	opts := []func(*s3.Options){func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}
	client := s3.NewFromConfig(awsCfg, append(opts, optFns...)...)
	return &Store{client: client, bucket: cfg.Bucket}
}

func (s *Store) Driver() blob.Driver { return blob.DriverS3 }

// Put implements blob.Store. Create-only is emulated with a HEAD request first; a concurrent writer could still
// slip in between, which for timestamped archive keys is not a practical concern.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (blob.Info, error) {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key}); err == nil {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, blob.ErrExists)
	} else if !isNotFound(err) {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	// The SDK wants a seekable body to compute the payload checksum.
	data, err := io.ReadAll(r)
	if err != nil {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	input := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return blob.Info{Key: key, Size: int64(len(data)), ContentType: contentType, LastModified: time.Now().UTC()}, nil
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get %s: %w", key, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

// List implements blob.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.Info, error) {
	var infos []blob.Info
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			infos = append(infos, blob.Info{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// isNotFound recognises the typed errors for missing objects, and the bare 404 that HEAD responses produce
// (they have no body to carry an error code).
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re interface{ HTTPStatusCode() int }
	return errors.As(err, &re) && re.HTTPStatusCode() == 404
}
