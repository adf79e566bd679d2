// Package config decodes the tool's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvcrn/gcs-stream/internal/apperr"
	"github.com/dvcrn/gcs-stream/internal/env"
	"github.com/joeshaw/envdecode"
)

// CredentialsEnv names the service-account key path variable.
const CredentialsEnv = "GOOGLE_APPLICATION_CREDENTIALS"

// ErrEmptyCredentialsPath marks GOOGLE_APPLICATION_CREDENTIALS set to a blank
// value. Only an unset variable selects the metadata server.
var ErrEmptyCredentialsPath = errors.New(CredentialsEnv + " is set but empty")

// Default endpoints of the Google APIs the tool talks to.
const (
	DefaultTokenURL         = "https://www.googleapis.com/oauth2/v4/token"
	DefaultScopeBaseURL     = "https://www.googleapis.com/auth"
	DefaultMetadataTokenURL = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
	DefaultStorageBaseURL   = "https://www.googleapis.com/storage/v1"
	DefaultUploadBaseURL    = "https://www.googleapis.com/upload/storage/v1"

	// DefaultBufferSize balances throughput against memory use for the
	// stdin and stdout buffers.
	DefaultBufferSize = 256 * 1024
	// DefaultTimeout applies separately to connecting, each read and each write.
	DefaultTimeout = 30 * time.Second
)

// Config holds every setting. An empty CredentialsPath selects the metadata
// server strategy; Load only allows that when the variable is unset.
type Config struct {
	// CredentialsPath is the service-account key file. ENV: GOOGLE_APPLICATION_CREDENTIALS
	CredentialsPath string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	TokenURL         string `env:"GCS_STREAM_TOKEN_URL,default=https://www.googleapis.com/oauth2/v4/token"`
	ScopeBaseURL     string `env:"GCS_STREAM_SCOPE_BASE_URL,default=https://www.googleapis.com/auth"`
	MetadataTokenURL string `env:"GCS_STREAM_METADATA_TOKEN_URL,default=http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"`
	StorageBaseURL   string `env:"GCS_STREAM_STORAGE_URL,default=https://www.googleapis.com/storage/v1"`
	UploadBaseURL    string `env:"GCS_STREAM_UPLOAD_URL,default=https://www.googleapis.com/upload/storage/v1"`

	BufferSize int           `env:"GCS_STREAM_BUFFER_SIZE,default=262144"`
	Timeout    time.Duration `env:"GCS_STREAM_TIMEOUT,default=30s"`
}

// Default returns the configuration used when no environment overrides exist.
func Default() Config {
	return Config{
		TokenURL:         DefaultTokenURL,
		ScopeBaseURL:     DefaultScopeBaseURL,
		MetadataTokenURL: DefaultMetadataTokenURL,
		StorageBaseURL:   DefaultStorageBaseURL,
		UploadBaseURL:    DefaultUploadBaseURL,
		BufferSize:       DefaultBufferSize,
		Timeout:          DefaultTimeout,
	}
}

// Load decodes the environment on top of Default and validates the result.
func Load() (Config, error) {
	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("failed to decode environment: %w", err)
	}
	if strings.TrimSpace(cfg.CredentialsPath) == "" && env.IsSet(CredentialsEnv) {
		return Config{}, apperr.NewFatal(ErrEmptyCredentialsPath)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the transfer cannot run with.
func (c Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("GCS_STREAM_BUFFER_SIZE must be positive, got %d", c.BufferSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("GCS_STREAM_TIMEOUT must be positive, got %s", c.Timeout)
	}
	for name, value := range map[string]string{
		"GCS_STREAM_TOKEN_URL":          c.TokenURL,
		"GCS_STREAM_SCOPE_BASE_URL":     c.ScopeBaseURL,
		"GCS_STREAM_METADATA_TOKEN_URL": c.MetadataTokenURL,
		"GCS_STREAM_STORAGE_URL":        c.StorageBaseURL,
		"GCS_STREAM_UPLOAD_URL":         c.UploadBaseURL,
	} {
		if value == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}
