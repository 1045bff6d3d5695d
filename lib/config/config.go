// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the parley client configuration.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Server locates the agent platform.
	Server ServerConfig `yaml:"server"`

	// Transport tunes the chat and feed channels.
	Transport TransportConfig `yaml:"transport"`

	// Auth says where the bearer credential comes from.
	Auth AuthConfig `yaml:"auth"`

	// State configures the persisted session key.
	State StateConfig `yaml:"state"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for parley data.
	Root string `yaml:"root"`
}

// ServerConfig locates the agent platform. ChatPath and FeedPath are
// resolved against BaseURL; the chat URL's scheme is switched to ws or
// wss to match.
type ServerConfig struct {
	BaseURL  string `yaml:"base_url"`
	ChatPath string `yaml:"chat_path"`
	FeedPath string `yaml:"feed_path"`
}

// TransportConfig tunes the connection supervisors.
type TransportConfig struct {
	// ReconnectDelay is the fixed wait between a connection failure and
	// the next attempt. Default: 3s.
	ReconnectDelay Duration `yaml:"reconnect_delay"`

	// HandshakeTimeout bounds the websocket upgrade and the feed's
	// response headers. Default: 10s.
	HandshakeTimeout Duration `yaml:"handshake_timeout"`

	// WriteTimeout bounds a single outbound chat frame. Default: 5s.
	WriteTimeout Duration `yaml:"write_timeout"`

	// EventQueue is the capacity of each channel's delivery queue.
	// Default: 256.
	EventQueue int `yaml:"event_queue"`

	// FeedCompression is the Accept-Encoding offered on the feed:
	// none, gzip, or zstd. Default: none.
	FeedCompression string `yaml:"feed_compression"`
}

// AuthConfig says where the bearer credential comes from. TokenFile
// wins when both are set.
type AuthConfig struct {
	TokenFile string `yaml:"token_file"`
	TokenEnv  string `yaml:"token_env"`
}

// StateConfig configures the persisted session key.
type StateConfig struct {
	// Path is the state file. Empty keeps the session in memory only.
	Path string `yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default: info.
	Level string `yaml:"level"`
}

// Duration is a time.Duration that unmarshals from Go duration syntax.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Compression values accepted by transport.feed_compression.
var compressionValues = []string{"none", "gzip", "zstd"}

var logLevels = []string{"debug", "info", "warn", "error"}

// Default returns the default configuration. The config file is still
// required; defaults only fill fields the file leaves out.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "state", "parley")

	return &Config{
		Paths: PathsConfig{Root: defaultRoot},
		Server: ServerConfig{
			ChatPath: "/ws/chat",
			FeedPath: "/api/work-items/stream",
		},
		Transport: TransportConfig{
			ReconnectDelay:   Duration(3 * time.Second),
			HandshakeTimeout: Duration(10 * time.Second),
			WriteTimeout:     Duration(5 * time.Second),
			EventQueue:       256,
			FeedCompression:  "none",
		},
		Auth: AuthConfig{TokenEnv: "PARLEY_TOKEN"},
		State: StateConfig{
			Path: "${PARLEY_ROOT}/session.cbor",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load loads configuration from the PARLEY_CONFIG environment variable.
// There is no fallback: if PARLEY_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("PARLEY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PARLEY_CONFIG environment variable not set; " +
			"set it to the path of your parley.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path and expands
// path variables. It does not validate; call Validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"PARLEY_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["PARLEY_ROOT"] = c.Paths.Root

	c.Auth.TokenFile = expandVars(c.Auth.TokenFile, vars)
	c.State.Path = expandVars(c.State.Path, vars)
	c.Server.BaseURL = expandVars(c.Server.BaseURL, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.BaseURL == "" {
		errs = append(errs, fmt.Errorf("server.base_url is required"))
	} else if parsed, err := url.Parse(c.Server.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("server.base_url: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("server.base_url must be http or https, got %q", parsed.Scheme))
	}

	if !strings.HasPrefix(c.Server.ChatPath, "/") {
		errs = append(errs, fmt.Errorf("server.chat_path must start with /"))
	}
	if !strings.HasPrefix(c.Server.FeedPath, "/") {
		errs = append(errs, fmt.Errorf("server.feed_path must start with /"))
	}

	if c.Transport.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("transport.reconnect_delay must be positive"))
	}
	if c.Transport.HandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("transport.handshake_timeout must be positive"))
	}
	if c.Transport.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("transport.write_timeout must be positive"))
	}
	if c.Transport.EventQueue < 1 {
		errs = append(errs, fmt.Errorf("transport.event_queue must be at least 1"))
	}
	if !slices.Contains(compressionValues, c.Transport.FeedCompression) {
		errs = append(errs, fmt.Errorf("transport.feed_compression must be one of: %v", compressionValues))
	}

	if c.Auth.TokenFile == "" && c.Auth.TokenEnv == "" {
		errs = append(errs, fmt.Errorf("auth.token_file or auth.token_env is required"))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}

	return errors.Join(errs...)
}

// ChatURL returns the websocket URL of the duplex chat channel.
func (c *Config) ChatURL() (string, error) {
	resolved, err := c.resolve(c.Server.ChatPath)
	if err != nil {
		return "", err
	}
	switch resolved.Scheme {
	case "https":
		resolved.Scheme = "wss"
	default:
		resolved.Scheme = "ws"
	}
	return resolved.String(), nil
}

// FeedURL returns the URL of the work-item event feed.
func (c *Config) FeedURL() (string, error) {
	resolved, err := c.resolve(c.Server.FeedPath)
	if err != nil {
		return "", err
	}
	return resolved.String(), nil
}

func (c *Config) resolve(path string) (*url.URL, error) {
	base, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("config: parsing server.base_url: %w", err)
	}
	reference, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	return base.ResolveReference(reference), nil
}

// EnsurePaths creates the root and the state file's directory.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Root}
	if c.State.Path != "" {
		paths = append(paths, filepath.Dir(c.State.Path))
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
