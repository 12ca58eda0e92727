// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtekky/deepseek4free/lib/sealed"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "DSK_CONFIG"

// Config is the complete dsk configuration.
type Config struct {
	// BaseURL is the API root every endpoint path is appended to.
	BaseURL string `yaml:"base_url"`

	// TokenFile holds the bearer token. Optional: the token may also
	// come from the environment or an interactive prompt.
	TokenFile string `yaml:"token_file"`

	Transport TransportConfig `yaml:"transport"`
	Cookies   CookiesConfig   `yaml:"cookies"`
	Bypass    BypassConfig    `yaml:"bypass"`
	Pow       PowConfig       `yaml:"pow"`
	Retry     RetryConfig     `yaml:"retry"`
	Stream    StreamConfig    `yaml:"stream"`
	Log       LogConfig       `yaml:"log"`
}

// TransportConfig selects the TLS fingerprint.
type TransportConfig struct {
	// Profile is a tls-client profile name, e.g. "chrome_133".
	Profile string `yaml:"profile"`

	// Proxy is an optional http:// or socks5:// proxy URL.
	Proxy string `yaml:"proxy"`
}

// CookiesConfig locates the clearance cookie file.
type CookiesConfig struct {
	File string `yaml:"file"`

	// IdentityFile holds the age identity used to open a sealed cookie
	// file. Unused when the file is plaintext.
	IdentityFile string `yaml:"identity_file"`

	// Recipients seal the file on save. Empty writes plaintext JSON.
	Recipients []string `yaml:"recipients"`
}

// BypassConfig points at the browser-automation cookie service.
type BypassConfig struct {
	URL      string        `yaml:"url"`
	Target   string        `yaml:"target"`
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// PowConfig locates the hashing module.
type PowConfig struct {
	// Module is a .wasm or zstd-compressed .wasm.zst file.
	Module string `yaml:"module"`

	// Digest optionally pins the BLAKE3 hex digest of the
	// decompressed module.
	Digest string `yaml:"digest"`
}

// RetryConfig bounds the bot-challenge retry loop.
type RetryConfig struct {
	BotChallengeAttempts int `yaml:"bot_challenge_attempts"`

	// Delay is the pause after a cookie refresh. Zero retries
	// immediately.
	Delay time.Duration `yaml:"delay"`
}

// StreamConfig bounds the event stream decoder.
type StreamConfig struct {
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// LogConfig configures the command's slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BaseURL: "https://chat.deepseek.com/api/v0",
		Transport: TransportConfig{
			Profile: "chrome_133",
		},
		Cookies: CookiesConfig{
			File: "${XDG_CONFIG_HOME:-${HOME}/.config}/dsk/cookies.json",
		},
		Bypass: BypassConfig{
			URL:      "http://localhost:8000",
			Target:   "https://chat.deepseek.com",
			Attempts: 5,
			Interval: 5 * time.Second,
		},
		Pow: PowConfig{
			Module: "${XDG_DATA_HOME:-${HOME}/.local/share}/dsk/sha3_wasm_bg.wasm",
		},
		Retry: RetryConfig{
			BotChallengeAttempts: 2,
			Delay:                time.Second,
		},
		Stream: StreamConfig{
			MaxLineBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by DSK_CONFIG. It fails when the variable
// is unset; callers that accept a config-less run use Default instead.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your dsk.yaml or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile reads path on top of Default, expands path variables, and
// validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.ExpandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// ExpandVariables expands ${VAR} and ${VAR:-default} in path fields.
// Default values may themselves contain references.
func (c *Config) ExpandVariables() {
	c.TokenFile = expandVars(c.TokenFile)
	c.Cookies.File = expandVars(c.Cookies.File)
	c.Cookies.IdentityFile = expandVars(c.Cookies.IdentityFile)
	c.Pow.Module = expandVars(c.Pow.Module)
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return expandVars(parts[2])
	})
}

// Validate reports every impossible value at once.
func (c *Config) Validate() error {
	var errs []error

	if parsed, err := url.Parse(c.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL))
	}
	if c.Transport.Profile == "" {
		errs = append(errs, errors.New("transport.profile is required"))
	}
	if c.Transport.Proxy != "" {
		if parsed, err := url.Parse(c.Transport.Proxy); err != nil || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("transport.proxy %q is not a URL", c.Transport.Proxy))
		}
	}
	if c.Cookies.File == "" {
		errs = append(errs, errors.New("cookies.file is required"))
	}
	if len(c.Cookies.Recipients) > 0 && c.Cookies.IdentityFile == "" {
		errs = append(errs, errors.New("cookies.identity_file is required when cookies.recipients is set"))
	}
	for index, recipient := range c.Cookies.Recipients {
		if err := sealed.ParsePublicKey(recipient); err != nil {
			errs = append(errs, fmt.Errorf("cookies.recipients[%d]: %w", index, err))
		}
	}
	if c.Bypass.Attempts < 1 {
		errs = append(errs, fmt.Errorf("bypass.attempts must be at least 1, got %d", c.Bypass.Attempts))
	}
	if c.Bypass.Interval < 0 {
		errs = append(errs, fmt.Errorf("bypass.interval must not be negative, got %v", c.Bypass.Interval))
	}
	if c.Pow.Module == "" {
		errs = append(errs, errors.New("pow.module is required"))
	}
	if c.Retry.BotChallengeAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.bot_challenge_attempts must be at least 1, got %d", c.Retry.BotChallengeAttempts))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative, got %v", c.Retry.Delay))
	}
	if c.Stream.MaxLineBytes < 4096 {
		errs = append(errs, fmt.Errorf("stream.max_line_bytes must be at least 4096, got %d", c.Stream.MaxLineBytes))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ParseLevel maps a log.level value to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn, or error, got %q", level)
}
