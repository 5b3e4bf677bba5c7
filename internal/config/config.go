// Package config loads the process configuration once at startup using
// viper, the way the teacher's common module binds its apiserver config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageBlob  StorageBackend = "blob"
)

// Config is the fully-resolved process configuration, bound once in
// Load and passed by value/pointer to every component constructor —
// there is no dynamic reload.
type Config struct {
	HTTPAddr string

	PostgresDSN string

	Storage        StorageBackend
	LocalBaseDir   string
	BlobBucket     string
	BlobEndpoint   string
	BlobRegion     string

	JWTSigningKey   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AuthCodeTTL     time.Duration
	PATDefaultTTL   time.Duration
	UploadSessionTTL time.Duration

	PKCEMethod string // "S256" (default) or "plain"

	QueueCapacity int // 0 = unbounded
	WorkerCount   int

	// DevMode is loaded from dev_mode but no component reads it:
	// authz.RequireSameWorkspace skips the workspace check for any
	// principal without a `tid` claim whether or not DevMode is set.
	DevMode bool
}

// Load binds environment variables (prefix BIMSERVER_) and optional config
// file values, applying the defaults named throughout spec §4.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIMSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("storage.backend", string(StorageLocal))
	v.SetDefault("storage.local_base_dir", "./data")
	v.SetDefault("token.access_ttl", "1h")
	v.SetDefault("token.refresh_ttl", "720h") // 30 days
	v.SetDefault("token.auth_code_ttl", "10m")
	v.SetDefault("token.pat_ttl", "8760h") // 1 year
	v.SetDefault("upload.session_ttl", "30m")
	v.SetDefault("oauth.pkce_method", "S256")
	v.SetDefault("queue.capacity", 0)
	v.SetDefault("queue.workers", 1)
	v.SetDefault("dev_mode", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		HTTPAddr:         v.GetString("http.addr"),
		PostgresDSN:      v.GetString("postgres.dsn"),
		Storage:          StorageBackend(v.GetString("storage.backend")),
		LocalBaseDir:     v.GetString("storage.local_base_dir"),
		BlobBucket:       v.GetString("storage.blob_bucket"),
		BlobEndpoint:     v.GetString("storage.blob_endpoint"),
		BlobRegion:       v.GetString("storage.blob_region"),
		JWTSigningKey:    v.GetString("token.jwt_signing_key"),
		AccessTokenTTL:   v.GetDuration("token.access_ttl"),
		RefreshTokenTTL:  v.GetDuration("token.refresh_ttl"),
		AuthCodeTTL:      v.GetDuration("token.auth_code_ttl"),
		PATDefaultTTL:    v.GetDuration("token.pat_ttl"),
		UploadSessionTTL: v.GetDuration("upload.session_ttl"),
		PKCEMethod:       v.GetString("oauth.pkce_method"),
		QueueCapacity:    v.GetInt("queue.capacity"),
		WorkerCount:      v.GetInt("queue.workers"),
		DevMode:          v.GetBool("dev_mode"),
	}

	if cfg.Storage == StorageLocal && cfg.LocalBaseDir == "" {
		return nil, fmt.Errorf("config: storage.local_base_dir is required for local backend")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return cfg, nil
}
