package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/jpg-converter/internal/model"
)

const (
	SinkNone  = "none"
	SinkDir   = "dir"
	SinkMinio = "minio"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Converter Converter `mapstructure:"converter"`
	Output    Output    `mapstructure:"output"`
	Storage   Storage   `mapstructure:"storage"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Retry     Retry     `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort     string        `mapstructure:"http_port"`     // HTTP address to listen on, e.g. ":8080"
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // covers a whole export, conversion included
}

// Converter holds the fixed conversion parameters of a session.
type Converter struct {
	Mode           string `mapstructure:"mode"`             // initial mode: svg or heic
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"` // in-memory limit for one upload request
	SVG            SVG    `mapstructure:"svg"`
	HEIC           HEIC   `mapstructure:"heic"`
}

// SVG holds SVG rasterization parameters.
type SVG struct {
	Scale          float64 `mapstructure:"scale"`
	Quality        int     `mapstructure:"quality"`
	FallbackWidth  int     `mapstructure:"fallback_width"`
	FallbackHeight int     `mapstructure:"fallback_height"`
}

// HEIC holds HEIC conversion parameters.
type HEIC struct {
	Quality int `mapstructure:"quality"`
}

// Output selects where a copy of every exported archive is saved.
type Output struct {
	Sink   string `mapstructure:"sink"`   // none, dir or minio
	Dir    string `mapstructure:"dir"`    // base directory for the dir sink
	Subdir string `mapstructure:"subdir"` // subdirectory or object prefix
}

// Storage holds configuration for the S3-compatible storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for publishing conversion events.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", ":8080")
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("converter.mode", string(model.ModeSVG))
	v.SetDefault("converter.max_upload_bytes", 32<<20)
	v.SetDefault("converter.svg.scale", 2.0)
	v.SetDefault("converter.svg.quality", 92)
	v.SetDefault("converter.svg.fallback_width", 800)
	v.SetDefault("converter.svg.fallback_height", 800)
	v.SetDefault("converter.heic.quality", 90)
	v.SetDefault("output.sink", SinkNone)
	v.SetDefault("output.dir", "./exports")
	v.SetDefault("output.subdir", "archives")
	v.SetDefault("kafka.topic", "conversion-events")
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 200*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
}

// bindEnv binds credentials that should not live in the config file.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
		"kafka.brokers":      "KAFKA_BROKERS",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	return nil
}

// Load reads the configuration from the YAML file at path, applies defaults
// and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or is invalid.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if _, err := model.ParseMode(c.Converter.Mode); err != nil {
		return fmt.Errorf("converter.mode: %w", err)
	}
	if c.Converter.SVG.Scale <= 0 {
		return fmt.Errorf("converter.svg.scale must be positive, got %v", c.Converter.SVG.Scale)
	}
	if q := c.Converter.SVG.Quality; q < 1 || q > 100 {
		return fmt.Errorf("converter.svg.quality must be within 1-100, got %d", q)
	}
	if q := c.Converter.HEIC.Quality; q < 1 || q > 100 {
		return fmt.Errorf("converter.heic.quality must be within 1-100, got %d", q)
	}

	switch c.Output.Sink {
	case SinkNone:
	case SinkDir:
		if c.Output.Dir == "" {
			return fmt.Errorf("output.dir is required for the %q sink", SinkDir)
		}
	case SinkMinio:
		if c.Storage.Endpoint == "" || c.Storage.BucketName == "" {
			return fmt.Errorf("storage.endpoint and storage.bucket_name are required for the %q sink", SinkMinio)
		}
	default:
		return fmt.Errorf("unknown output.sink %q", c.Output.Sink)
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}

	return nil
}
