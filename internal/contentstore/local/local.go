// Package local implements the filesystem Content Store backend. It never
// returns a presigned upload URL (spec §4.1).
package local

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/contentstore"
	"github.com/amd-aig-aima/bimserver/internal/storekeys"
)

const backendName = "local"

// Store writes objects under a base directory, one file per key plus a
// "<key>.meta" sidecar carrying the content type (spec §6 storage layout).
type Store struct {
	baseDir string
}

var _ contentstore.Store = (*Store)(nil)

func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, apperrors.NewInternal(err, "local: create base dir %s", baseDir)
	}
	return &Store{baseDir: baseDir}, nil
}

type metaSidecar struct {
	ContentType string `json:"contentType"`
}

func (s *Store) resolve(key string) (string, error) {
	if err := storekeys.Validate(key); err != nil {
		return "", err
	}
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", apperrors.NewInternal(err, "local: resolve base dir")
	}
	full := filepath.Join(base, filepath.FromSlash(key))
	// Defense in depth: the joined path must still live under base, even if
	// storekeys.Validate missed some unicode or platform-specific trick.
	if full != base && !strings.HasPrefix(full, base+string(os.PathSeparator)) {
		return "", apperrors.NewValidation("local: key %q escapes base directory", key)
	}
	return full, nil
}

func (s *Store) Put(_ context.Context, key string, stream io.Reader, contentType string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(full); statErr == nil {
		return apperrors.NewAlreadyExists("local: key %q already exists", key)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return apperrors.NewInternal(err, "local: mkdir for %s", key)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return apperrors.NewAlreadyExists("local: key %q already exists", key)
		}
		return apperrors.NewInternal(err, "local: open %s for write", key)
	}
	defer f.Close()

	if _, err := io.Copy(f, stream); err != nil {
		_ = os.Remove(full)
		return apperrors.NewTransient(err, "local: write %s", key)
	}

	meta := metaSidecar{ContentType: contentType}
	metaBytes, _ := json.Marshal(meta)
	if err := os.WriteFile(full+".meta", metaBytes, 0o644); err != nil {
		return apperrors.NewInternal(err, "local: write meta for %s", key)
	}
	return nil
}

func (s *Store) OpenRead(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.NewInternal(err, "local: open %s for read", key)
	}
	return f, nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_ = os.Remove(full + ".meta")
	err = os.Remove(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.NewInternal(err, "local: delete %s", key)
	}
	return true, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(full)
	if statErr == nil {
		return true, nil
	}
	if os.IsNotExist(statErr) {
		return false, nil
	}
	return false, apperrors.NewInternal(statErr, "local: stat %s", key)
}

func (s *Store) Size(_ context.Context, key string) (*int64, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	info, statErr := os.Stat(full)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, nil
		}
		return nil, apperrors.NewInternal(statErr, "local: stat %s", key)
	}
	size := info.Size()
	return &size, nil
}

// GenerateUploadURL always returns ("", nil): the filesystem backend does
// not support direct-to-store uploads (spec §4.1).
func (s *Store) GenerateUploadURL(_ context.Context, _ string, _ string, _ time.Time) (string, error) {
	return "", nil
}

func (s *Store) CheckHealth(_ context.Context) (contentstore.HealthReport, error) {
	sentinel := filepath.Join(s.baseDir, ".health-sentinel")
	if err := os.WriteFile(sentinel, []byte("ok"), 0o644); err != nil {
		return contentstore.HealthReport{Healthy: false, Message: err.Error()}, nil
	}
	defer os.Remove(sentinel)
	if _, err := os.ReadFile(sentinel); err != nil {
		return contentstore.HealthReport{Healthy: false, Message: err.Error()}, nil
	}

	var stat syscall.Statfs_t
	data := map[string]interface{}{}
	if err := syscall.Statfs(s.baseDir, &stat); err == nil {
		data["freeBytes"] = stat.Bavail * uint64(stat.Bsize)
	}
	return contentstore.HealthReport{Healthy: true, Message: "ok", Data: data}, nil
}

func (s *Store) Name() string { return backendName }
