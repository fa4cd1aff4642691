// Package sstconfig loads the typed configuration surface for the SSTable
// storage layer: cache capacities, the path prefix, and which object-store
// backend to build against. Sourced with viper, with a mapstructure
// decode hook for human-readable byte sizes and go-playground/validator
// struct-tag validation.
package sstconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/brookdb/brookdb/internal/bytesize"
)

// Backend selects which objstore.Store implementation sstablectl and the
// store facade are built against.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFS     Backend = "fs"
	BackendS3     Backend = "s3"
)

// Config is the complete configuration surface for a standalone SSTable
// store: which object-store backend to use, the path prefix the store
// applies to every object key, and the two cache capacities named in
// spec.md §6.
type Config struct {
	// PathPrefix is the store's object-key prefix; see Store.SstMetaPath
	// / Store.SstDataPath.
	PathPrefix string `mapstructure:"path_prefix" validate:"required" yaml:"path_prefix"`

	// BlockCacheBytes and MetaCacheBytes bound the two in-memory caches.
	// Accepts human-readable sizes ("256Mi", "2Gi") via the byte-size
	// decode hook below.
	BlockCacheBytes bytesize.ByteSize `mapstructure:"block_cache_bytes" validate:"required,gt=0" yaml:"block_cache_bytes"`
	MetaCacheBytes  bytesize.ByteSize `mapstructure:"meta_cache_bytes" validate:"required,gt=0" yaml:"meta_cache_bytes"`

	// Backend selects the object-store implementation.
	Backend Backend `mapstructure:"backend" validate:"required,oneof=memory fs s3" yaml:"backend"`

	// FS configures the local-filesystem backend; only read when Backend
	// is "fs".
	FS FSConfig `mapstructure:"fs" yaml:"fs"`

	// S3 configures the S3-compatible backend; only read when Backend is
	// "s3".
	S3 S3Config `mapstructure:"s3" yaml:"s3"`

	// Profiling configures continuous profiling export for sstablectl's
	// long-running subcommands.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`

	// Tracing configures OTLP span export for Store operations.
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`

	// Logging configures the structured logger sstablectl initializes
	// before dispatching to a subcommand.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig configures internal/logger's level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
}

// ProfilingConfig configures continuous profiling via Pyroscope.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	ServiceName  string   `mapstructure:"service_name" yaml:"service_name"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// FSConfig configures objstore/fsstore.
type FSConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// S3Config configures objstore/s3store.
type S3Config struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix" yaml:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Region          string `mapstructure:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns a Config with sensible defaults: the memory
// backend and generous but bounded cache sizes, suitable for local
// experimentation with sstablectl.
func DefaultConfig() *Config {
	return &Config{
		PathPrefix:      "sstables",
		BlockCacheBytes: 256 * bytesize.MiB,
		MetaCacheBytes:  64 * bytesize.MiB,
		Backend:         BackendMemory,
		FS:              FSConfig{Root: "./sstable-data"},
		Profiling: ProfilingConfig{
			Enabled:      false,
			ServiceName:  "sstablectl",
			ProfileTypes: []string{"cpu", "alloc_objects", "inuse_space"},
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Insecure: true,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// ApplyDefaults fills any zero-valued fields in cfg with DefaultConfig's
// values. Store-specific defaults (backend-specific sub-structs) are only
// applied when that backend is in use.
func ApplyDefaults(cfg *Config) {
	d := DefaultConfig()

	if cfg.PathPrefix == "" {
		cfg.PathPrefix = d.PathPrefix
	}
	if cfg.BlockCacheBytes == 0 {
		cfg.BlockCacheBytes = d.BlockCacheBytes
	}
	if cfg.MetaCacheBytes == 0 {
		cfg.MetaCacheBytes = d.MetaCacheBytes
	}
	if cfg.Backend == "" {
		cfg.Backend = d.Backend
	}
	if cfg.Backend == BackendFS && cfg.FS.Root == "" {
		cfg.FS.Root = d.FS.Root
	}
	if cfg.Profiling.ServiceName == "" {
		cfg.Profiling.ServiceName = d.Profiling.ServiceName
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = d.Profiling.ProfileTypes
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = d.Tracing.Endpoint
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
}

// Validate runs struct-tag validation over cfg using go-playground's
// validator.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid sstable config: %w", err)
	}
	if cfg.Backend == BackendS3 && cfg.S3.Bucket == "" {
		return fmt.Errorf("invalid sstable config: s3 backend requires s3.bucket")
	}
	return nil
}

// Load reads configuration from configPath (YAML or TOML), lets
// SSTABLE_-prefixed environment variables override the keys that file
// sets, applies defaults, and validates the result. An empty configPath
// yields the default configuration without requiring a file on disk;
// environment variables are not consulted in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SSTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	cfg := DefaultConfig()
	if configPath != "" {
		if err := v.Unmarshal(cfg, viper.DecodeHook(byteSizeDecodeHook())); err != nil {
			return nil, fmt.Errorf("unmarshal sstable config: %w", err)
		}
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// byteSizeDecodeHook converts strings and numeric types into
// bytesize.ByteSize during viper's Unmarshal, enabling config files to
// write "256Mi" instead of a raw byte count.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// DefaultConfigPath returns the XDG-conventional path sstablectl looks for
// a config file at when none is specified.
func DefaultConfigPath() string {
	dir := configDir()
	return filepath.Join(dir, "sstablectl", "config.yaml")
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}
