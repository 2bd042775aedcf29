// Package config defines discod's configuration: the manifest
// authority, the pinned trust material, and daemon options.
//
// Configuration is layered: compiled-in defaults, then an optional Lua
// config file parsed in a restricted sandbox, then environment
// overrides (DISCOD_*).
package config

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultPublicKey is the discovery authority's current minisign
// public key, compiled in at build time. It is never derived from
// network input.
const DefaultPublicKey = "RWRtBSX1alxyGX+Xn3LuZnWUT0w//B6EmTJvgaAxBMYzGbjwKYmnl6pn"

// Config is the complete discod configuration.
type Config struct {
	Authority Authority
	Server    Server
	Refresh   Refresh
	Log       Log
}

// Authority describes the manifest authority and the trust material
// used against it.
type Authority struct {
	// BaseURL is the root under which the manifests are published
	BaseURL string
	// SignatureSuffix is appended to a manifest URL to locate its
	// detached signature
	SignatureSuffix string
	// PublicKeys are the pinned verification keys (base64)
	PublicKeys []string
	// GoneStatuses are the HTTP statuses treated as "manifest deleted"
	GoneStatuses []int
}

// Server holds the local catalog API options.
type Server struct {
	// Listen is the address the catalog API binds to
	Listen string
}

// Refresh holds the periodic refresh timing.
type Refresh struct {
	// Interval between refresh cycles
	Interval time.Duration
	// FetchTimeout bounds each HTTP request
	FetchTimeout time.Duration
	// RetryWindow bounds transport-failure retries within a cycle
	RetryWindow time.Duration
}

// Log holds logging options.
type Log struct {
	// Level is one of debug, info, warn, error
	Level string
	// Format is console or json
	Format string
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Authority: Authority{
			BaseURL:         "https://disco.lumivpn.org",
			SignatureSuffix: ".minisig",
			PublicKeys:      []string{DefaultPublicKey},
			GoneStatuses:    []int{404, 410},
		},
		Server: Server{
			Listen: "127.0.0.1:8153",
		},
		Refresh: Refresh{
			Interval:     time.Hour,
			FetchTimeout: 30 * time.Second,
			RetryWindow:  2 * time.Minute,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Authority.BaseURL)
	if err != nil {
		return fmt.Errorf("authority base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("authority base_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("authority base_url: missing host")
	}

	if c.Authority.SignatureSuffix == "" {
		return fmt.Errorf("authority signature_suffix must not be empty")
	}
	if len(c.Authority.PublicKeys) == 0 {
		return fmt.Errorf("at least one pinned public key is required")
	}
	for i, code := range c.Authority.GoneStatuses {
		if code < 100 || code > 599 {
			return fmt.Errorf("gone status %d (index %d) is not a valid HTTP status", code, i)
		}
	}

	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address must not be empty")
	}

	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Refresh.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Refresh.RetryWindow <= 0 {
		return fmt.Errorf("retry window must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}
