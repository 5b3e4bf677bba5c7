// Package blob implements the cloud-blob Content Store backend on top of
// Amazon S3 (or an S3-compatible endpoint), spec §4.1.
package blob

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/contentstore"
	"github.com/amd-aig-aima/bimserver/internal/storekeys"
)

const backendName = "blob"

// Config carries the connection details for a blob Content Store.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for S3-compatible services
}

// Store writes objects to a single S3 bucket.
type Store struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
}

var _ contentstore.Store = (*Store)(nil)

// New builds a Store from Config, resolving AWS credentials the standard
// way (environment, shared config, or instance role).
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, apperrors.NewValidation("blob: bucket is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, apperrors.NewInternal(err, "blob: load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		bucket:   cfg.Bucket,
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, stream io.Reader, contentType string) error {
	if err := storekeys.Validate(key); err != nil {
		return err
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.NewAlreadyExists("blob: key %q already exists", key)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   stream,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return apperrors.NewTransient(err, "blob: put %s", key)
	}
	return nil
}

func (s *Store) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewInternal(err, "blob: get %s", key)
	}
	return out.Body, nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	existed, err := s.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return false, apperrors.NewInternal(err, "blob: delete %s", key)
	}
	return true, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, apperrors.NewInternal(err, "blob: head %s", key)
	}
	return true, nil
}

func (s *Store) Size(ctx context.Context, key string) (*int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewInternal(err, "blob: head %s", key)
	}
	if out.ContentLength == nil {
		return nil, nil
	}
	size := *out.ContentLength
	return &size, nil
}

// GenerateUploadURL returns a presigned PUT URL scoped to key and
// contentType, expiring at expiresAt (spec §4.1, direct-to-blob uploads).
func (s *Store) GenerateUploadURL(ctx context.Context, key string, contentType string, expiresAt time.Time) (string, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return "", apperrors.NewValidation("blob: expiresAt must be in the future")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", apperrors.NewInternal(err, "blob: presign put %s", key)
	}
	return req.URL, nil
}

func (s *Store) CheckHealth(ctx context.Context) (contentstore.HealthReport, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return contentstore.HealthReport{Healthy: false, Message: err.Error()}, nil
	}
	return contentstore.HealthReport{
		Healthy: true,
		Message: "ok",
		Data:    map[string]interface{}{"bucket": s.bucket},
	}, nil
}

func (s *Store) Name() string { return backendName }

func isNotFound(err error) bool {
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	var nb *types.NotFound
	if errors.As(err, &nb) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}
