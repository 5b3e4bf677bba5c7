// Package contentstore defines the pluggable blob/file capability (spec
// §4.1, component C1). internal/contentstore/local and
// internal/contentstore/blob provide the filesystem and cloud-blob
// implementations respectively.
package contentstore

import (
	"context"
	"io"
	"time"
)

// HealthReport is the result of a cheap liveness probe.
type HealthReport struct {
	Healthy bool
	Message string
	Data    map[string]interface{}
}

// Store is the capability set every Content Store backend implements.
// All operations are cancellable via ctx.
type Store interface {
	// Put writes stream under key. Returns AlreadyExists if key is already
	// occupied — put never overwrites.
	Put(ctx context.Context, key string, stream io.Reader, contentType string) error

	// OpenRead opens key for streaming read. Returns a nil stream (not an
	// error) when key does not exist.
	OpenRead(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Idempotent: returns false if key was already
	// absent.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Size returns the object size in bytes, or nil if key is absent.
	Size(ctx context.Context, key string) (*int64, error)

	// GenerateUploadURL returns a presigned URL granting create+write on
	// key only, expiring at expiresAt. Returns ("", nil) when the backend
	// does not support direct uploads.
	GenerateUploadURL(ctx context.Context, key string, contentType string, expiresAt time.Time) (string, error)

	// CheckHealth performs an inexpensive liveness probe.
	CheckHealth(ctx context.Context) (HealthReport, error)

	// Name identifies the backend for File.storageProvider.
	Name() string
}
