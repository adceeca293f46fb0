// Package config loads the host configuration: defaults, then an optional YAML file,
// then TALISMAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/persistence/middleware"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TALISMAN_HTTP_ADDR.
const EnvPrefix = "TALISMAN"

// Config is the complete host configuration.
type Config struct {
	Log       LogConfig      `mapstructure:"log"`
	Pacing    PacingConfig   `mapstructure:"pacing"`
	Inference BackendConfig  `mapstructure:"inference"`
	Images    BackendConfig  `mapstructure:"images"`
	Artifact  ArtifactConfig `mapstructure:"artifact"`
	Store     StoreConfig    `mapstructure:"store"`
	Sessions  SessionsConfig `mapstructure:"sessions"`
	Redis     RedisConfig    `mapstructure:"redis"`
	HTTP      HTTPConfig     `mapstructure:"http"`
	Taxonomy  string         `mapstructure:"taxonomy"`
	Offline   bool           `mapstructure:"offline"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PacingConfig drives the typing simulation.
type PacingConfig struct {
	PerRune   time.Duration `mapstructure:"per_rune"`
	MinTyping time.Duration `mapstructure:"min_typing"`
	MaxTyping time.Duration `mapstructure:"max_typing"`
	ReadDelay time.Duration `mapstructure:"read_delay"`
	Instant   bool          `mapstructure:"instant"`
}

// BackendConfig addresses a remote backend. An empty URL selects the offline backend
// when Offline is set.
type BackendConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type ArtifactConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// StoreConfig selects the consultation store: memory, sqlite or redis.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// SessionsConfig selects the snapshot store: memory, file or redis.
type SessionsConfig struct {
	Driver string        `mapstructure:"driver"`
	Path   string        `mapstructure:"path"`
	TTL    time.Duration `mapstructure:"ttl"`
	Lock   bool          `mapstructure:"lock"`

	// EncryptionKey is a base64 AES-256 key. When set, snapshots are sealed at rest.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys still open snapshots sealed before a key rotation.
	FallbackKeys []string `mapstructure:"fallback_keys"`
	// MaskPII lists patterns of profile keys replaced before saving.
	MaskPII []string `mapstructure:"mask_pii"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Pacing: PacingConfig{
			PerRune:   30 * time.Millisecond,
			MinTyping: 400 * time.Millisecond,
			MaxTyping: 2500 * time.Millisecond,
			ReadDelay: 400 * time.Millisecond,
		},
		Inference: BackendConfig{Timeout: 60 * time.Second, MaxRetries: 3},
		Images:    BackendConfig{Timeout: 30 * time.Second, MaxRetries: 3},
		Artifact:  ArtifactConfig{Enabled: true, Interval: time.Second, MaxRetries: 30},
		Store:     StoreConfig{Driver: "memory", Path: ".talisman/consultations.db"},
		Sessions:  SessionsConfig{Driver: "memory", Path: ".talisman/sessions", TTL: 24 * time.Hour},
		Redis:     RedisConfig{Addr: "localhost:6379", Prefix: "talisman:"},
		HTTP:      HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Metrics:   MetricsConfig{Enabled: true},
	}
}

// Load reads path (optional) and the environment on top of the defaults, applies
// overrides (command-line flags), then validates the result.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	overlayEnv(raw, os.LookupEnv)

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// overlayEnv writes every TALISMAN_<SECTION>_<KEY> variable that names a known key
// into raw.
func overlayEnv(raw map[string]any, lookup func(string) (string, bool)) {
	for _, path := range keyPaths(reflect.TypeOf(Config{}), nil) {
		name := EnvPrefix + "_" + strings.ToUpper(strings.Join(path, "_"))
		val, ok := lookup(name)
		if !ok {
			continue
		}
		m := raw
		for _, seg := range path[:len(path)-1] {
			next, ok := m[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[seg] = next
			}
			m = next
		}
		m[path[len(path)-1]] = val
	}
}

// keyPaths lists the mapstructure key path of every leaf field of t.
func keyPaths(t reflect.Type, prefix []string) [][]string {
	var out [][]string
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		path := append(append([]string(nil), prefix...), tag)
		if f.Type.Kind() == reflect.Struct {
			out = append(out, keyPaths(f.Type, path)...)
			continue
		}
		out = append(out, path)
	}
	return out
}

// Validate reports configuration errors that would only surface at startup.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	switch c.Store.Driver {
	case "memory", "redis":
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be memory, sqlite or redis, got %q", c.Store.Driver))
	}
	switch c.Sessions.Driver {
	case "memory", "redis":
	case "file":
		if c.Sessions.Path == "" {
			errs = append(errs, errors.New("sessions.path is required for file"))
		}
	default:
		errs = append(errs, fmt.Errorf("sessions.driver must be memory, file or redis, got %q", c.Sessions.Driver))
	}
	if c.Sessions.Lock && c.Sessions.Driver != "redis" {
		errs = append(errs, errors.New("sessions.lock requires the redis driver"))
	}
	if c.Sessions.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Sessions.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("sessions.encryption_key: %w", err))
		}
	} else if len(c.Sessions.FallbackKeys) > 0 {
		errs = append(errs, errors.New("sessions.fallback_keys requires sessions.encryption_key"))
	}
	for i, k := range c.Sessions.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("sessions.fallback_keys[%d]: %w", i, err))
		}
	}
	for _, p := range c.Sessions.MaskPII {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("sessions.mask_pii: invalid pattern %q: %w", p, err))
		}
	}
	if !c.Offline && c.Inference.URL == "" {
		errs = append(errs, errors.New("inference.url is required unless offline"))
	}
	if c.Pacing.MinTyping > c.Pacing.MaxTyping {
		errs = append(errs, errors.New("pacing.min_typing exceeds pacing.max_typing"))
	}
	if c.Artifact.MaxRetries < 0 {
		errs = append(errs, errors.New("artifact.max_retries must not be negative"))
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs the redis client.
func (c *Config) UsesRedis() bool {
	return c.Store.Driver == "redis" || c.Sessions.Driver == "redis"
}
