// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/kbimport/core"
)

// Environment variables read by FromEnv.
const (
	EnvBaseURL = "OPENWEBUI_URL"
	EnvAPIKey  = "OPENWEBUI_API_KEY"
)

// Config holds the settings for an import run.
type Config struct {
	// BaseURL is the base URL of the knowledge service.
	// Example: "http://localhost:3000"
	BaseURL string

	// APIKey is the bearer token used to authenticate.
	// Keys issued by the service start with "sk-".
	APIKey string

	// Extensions restricts the scan to the given file extensions,
	// case-insensitively. Empty means every file is eligible.
	// Example: []string{".pdf", ".md", "txt"}
	Extensions []string

	// Concurrency is the upload worker pool size per knowledge base.
	// Default: 5
	Concurrency int

	// MaxAttempts is the total number of tries for each remote operation.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the base delay before the first retry; later retries
	// double it. Default: 1s
	RetryDelay time.Duration

	// Timeout bounds each HTTP request. Default: 30s
	Timeout time.Duration

	// ProcessingWait bounds how long each upload waits for the service to
	// finish processing the file before moving on. Zero disables the wait.
	// Default: 60s
	ProcessingWait time.Duration

	// ProcessingInterval is the poll interval while waiting for processing.
	// Default: 2s
	ProcessingInterval time.Duration

	// DryRun reports what would be imported without contacting the service.
	DryRun bool
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithBaseURL sets the knowledge service base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithExtensions sets the extension allow-list.
func WithExtensions(extensions []string) Option {
	return func(c *Config) {
		c.Extensions = extensions
	}
}

// WithConcurrency sets the upload worker pool size.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithMaxAttempts sets the total number of tries per remote operation.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithRetryDelay sets the base retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithProcessingWait sets how long each upload waits for remote processing
// to complete. Zero disables the wait.
func WithProcessingWait(d time.Duration) Option {
	return func(c *Config) {
		c.ProcessingWait = d
	}
}

// WithProcessingInterval sets the poll interval for the processing wait.
func WithProcessingInterval(d time.Duration) Option {
	return func(c *Config) {
		c.ProcessingInterval = d
	}
}

// WithDryRun toggles dry-run mode.
func WithDryRun(dryRun bool) Option {
	return func(c *Config) {
		c.DryRun = dryRun
	}
}

// Default returns a Config with the stock settings. The URL and key are left
// empty; fill them from options, the environment, or flags.
func Default() *Config {
	return &Config{
		Concurrency:        5,
		MaxAttempts:        3,
		RetryDelay:         time.Second,
		Timeout:            30 * time.Second,
		ProcessingWait:     60 * time.Second,
		ProcessingInterval: 2 * time.Second,
	}
}

// New creates a Config with the default values and applies the provided
// options.
//
// Example:
//
//	cfg := config.New(
//	    config.WithBaseURL("http://localhost:3000"),
//	    config.WithAPIKey(os.Getenv("OPENWEBUI_API_KEY")),
//	)
func New(opts ...Option) *Config {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// FromEnv creates a Config from the environment, applying any options on
// top. A .env file in the working directory is loaded first when present;
// real environment variables win over it.
func FromEnv(opts ...Option) *Config {
	// Ignore a missing .env; godotenv never overrides existing variables.
	_ = godotenv.Load()

	cfg := Default()
	cfg.BaseURL = os.Getenv(EnvBaseURL)
	cfg.APIKey = os.Getenv(EnvAPIKey)
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the configuration into canonical form: the base URL loses
// its trailing slash and extensions gain a leading dot and lose case.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)

	for idx, ext := range c.Extensions {
		c.Extensions[idx] = core.NormalizeExtension(ext)
	}
}

// Validate checks that the configuration can drive a run. Dry runs need no
// credentials, so the URL and key are only required for live runs.
func (c *Config) Validate() error {
	if !c.DryRun {
		if c.BaseURL == "" {
			return ErrMissingBaseURL
		}
		parsed, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
		}
		if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
		}

		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
		if !strings.HasPrefix(c.APIKey, "sk-") || len(c.APIKey) < 10 {
			return ErrInvalidAPIKey
		}
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Concurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxAttempts, c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRetryDelay, c.RetryDelay)
	}
	if c.ProcessingWait < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidProcessingWait, c.ProcessingWait)
	}
	return nil
}
