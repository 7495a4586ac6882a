package config

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vango-dev/tx/internal/errors"
	"github.com/vango-dev/tx/pkg/engine"
	"github.com/vango-dev/tx/pkg/exchange"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "tx.json"

	// TOMLFileName is the name of the TOML configuration file.
	TOMLFileName = "tx.toml"

	// DefaultWSPath is the default WebSocket bridge route.
	DefaultWSPath = "/tx/ws"

	// DefaultAddr is the default listen address for tx serve.
	DefaultAddr = ":8080"

	// DefaultSnapshotKey is the key tx run saves snapshots under.
	DefaultSnapshotKey = "last"
)

// Transport names.
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Snapshot store names.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreS3     = "s3"
)

// Config represents tx.json or tx.toml.
type Config struct {
	// BaseURL is the page URL used when tx run is given a relative path.
	BaseURL string `json:"baseURL,omitempty" toml:"baseURL"`

	// HandlerPrefix is the route prefix handler identifiers are appended to.
	HandlerPrefix string `json:"handlerPrefix,omitempty" toml:"handlerPrefix"`

	// Transport is "http" or "ws".
	Transport string `json:"transport,omitempty" toml:"transport"`

	// WSPath is the WebSocket bridge route, used when Transport is "ws".
	WSPath string `json:"wsPath,omitempty" toml:"wsPath"`

	// ExchangeTimeout bounds each exchange, as a Go duration. Empty or "0"
	// means no limit.
	ExchangeTimeout string `json:"exchangeTimeout,omitempty" toml:"exchangeTimeout"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty" toml:"logLevel"`

	Snapshot SnapshotConfig `json:"snapshot,omitempty" toml:"snapshot"`

	Serve ServeConfig `json:"serve,omitempty" toml:"serve"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SnapshotConfig selects where tx run persists snapshots.
type SnapshotConfig struct {
	// Store is memory, redis or s3.
	Store string `json:"store,omitempty" toml:"store"`

	// Key is the default snapshot key.
	Key string `json:"key,omitempty" toml:"key"`

	RedisAddr string `json:"redisAddr,omitempty" toml:"redisAddr"`

	S3Bucket   string `json:"s3Bucket,omitempty" toml:"s3Bucket"`
	S3Region   string `json:"s3Region,omitempty" toml:"s3Region"`
	S3Endpoint string `json:"s3Endpoint,omitempty" toml:"s3Endpoint"`
}

// ServeConfig configures tx serve.
type ServeConfig struct {
	Addr string `json:"addr,omitempty" toml:"addr"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		HandlerPrefix: exchange.DefaultPrefix,
		Transport:     TransportHTTP,
		WSPath:        DefaultWSPath,
		LogLevel:      "info",
		Snapshot: SnapshotConfig{
			Store: StoreMemory,
			Key:   DefaultSnapshotKey,
		},
		Serve: ServeConfig{
			Addr: DefaultAddr,
		},
	}
}

// LoadFromDir reads tx.json from dir, falling back to tx.toml. When neither
// exists the defaults are returned.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, TOMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return New(), nil
}

// Load reads configuration from path. Files ending in .toml are decoded as
// TOML, everything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E021").
			WithDetail("Cannot read " + path).
			Wrap(err)
	}

	cfg := New()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.New("E021").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E021").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for fields left empty in the file.
func (c *Config) applyDefaults() {
	d := New()
	if c.HandlerPrefix == "" {
		c.HandlerPrefix = d.HandlerPrefix
	}
	if c.Transport == "" {
		c.Transport = d.Transport
	}
	if c.WSPath == "" {
		c.WSPath = d.WSPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Snapshot.Store == "" {
		c.Snapshot.Store = d.Snapshot.Store
	}
	if c.Snapshot.Key == "" {
		c.Snapshot.Key = d.Snapshot.Key
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
}

// Validate checks the configuration and returns an E020 error describing the
// first problem found.
func (c *Config) Validate() error {
	invalid := func(detail, suggestion string) error {
		err := errors.New("E020").WithDetail(detail)
		if suggestion != "" {
			err = err.WithSuggestion(suggestion)
		}
		return err
	}

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("baseURL must be an absolute URL, got "+c.BaseURL, "")
		}
	}
	if !strings.HasPrefix(c.HandlerPrefix, "/") || !strings.HasSuffix(c.HandlerPrefix, "/") {
		return invalid("handlerPrefix must start and end with '/'", `Use "/tx/"`)
	}
	switch c.Transport {
	case TransportHTTP, TransportWS:
	default:
		return invalid("transport must be http or ws, got "+c.Transport, "")
	}
	if c.Transport == TransportWS && !strings.HasPrefix(c.WSPath, "/") {
		return invalid("wsPath must be an absolute path", "")
	}
	if _, err := c.Timeout(); err != nil {
		return invalid("exchangeTimeout: "+err.Error(), `Use a duration such as "5s"`)
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return invalid("logLevel must be debug, info, warn or error, got "+c.LogLevel, "")
	}
	switch c.Snapshot.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Snapshot.RedisAddr == "" {
			return invalid("snapshot.redisAddr is required for the redis store", "")
		}
	case StoreS3:
		if c.Snapshot.S3Bucket == "" {
			return invalid("snapshot.s3Bucket is required for the s3 store", "")
		}
	default:
		return invalid("snapshot.store must be memory, redis or s3, got "+c.Snapshot.Store, "")
	}
	return nil
}

// Timeout returns the parsed exchange timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.ExchangeTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ExchangeTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Newf(errors.CategoryConfig, "negative duration %s", c.ExchangeTimeout)
	}
	return d, nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// ResolveURL resolves target against BaseURL. Absolute targets are returned
// unchanged.
func (c *Config) ResolveURL(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() || c.BaseURL == "" {
		return u, nil
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(u), nil
}

// ToEngineOptions converts the configuration into engine options for a page
// at pageURL. With the ws transport a WSTransport dialing pageURL's host is
// installed.
func (c *Config) ToEngineOptions(pageURL *url.URL) []engine.Option {
	timeout, _ := c.Timeout()
	opts := []engine.Option{
		engine.WithHandlerPrefix(c.HandlerPrefix),
		engine.WithExchangeTimeout(timeout),
	}
	if c.Transport == TransportWS && pageURL != nil {
		t := exchange.NewWSTransport(exchange.WSEndpoint(pageURL, c.WSPath))
		t.Prefix = c.HandlerPrefix
		opts = append(opts, engine.WithTransport(t))
	}
	return opts
}
