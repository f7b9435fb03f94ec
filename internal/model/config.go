package model

import "time"

// Config is the complete runtime configuration.
// It is loaded by viper from defaults, config file, CANARI_* env vars and flags.
type Config struct {
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Paths        PathsConfig        `mapstructure:"paths" yaml:"paths"`
	Wizard       WizardConfig       `mapstructure:"wizard" yaml:"wizard"`
	Presets      PresetsConfig      `mapstructure:"presets" yaml:"presets"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Events       EventsConfig       `mapstructure:"events" yaml:"events"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// StoreConfig selects and configures the document store backend
type StoreConfig struct {
	Driver string      `mapstructure:"driver" yaml:"driver"` // memory, redis, mysql, gcs
	Redis  RedisConfig `mapstructure:"redis" yaml:"redis"`
	MySQL  MySQLConfig `mapstructure:"mysql" yaml:"mysql"`
	GCS    GCSConfig   `mapstructure:"gcs" yaml:"gcs"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"` // key namespace
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
}

// PathsConfig holds the document store collection paths
type PathsConfig struct {
	Batches           string `mapstructure:"batches" yaml:"batches"`
	Counts            string `mapstructure:"counts" yaml:"counts"`
	PresetsCollection string `mapstructure:"presets_collection" yaml:"presets_collection"`
	PresetsDocument   string `mapstructure:"presets_document" yaml:"presets_document"`
}

type WizardConfig struct {
	SampleCount int `mapstructure:"sample_count" yaml:"sample_count"` // apples per batch form
}

type PresetsConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	CacheDir string        `mapstructure:"cache_dir" yaml:"cache_dir"` // also keep the list on disk when set
}

type RateLimitingConfig struct {
	WritesPerSecond float64 `mapstructure:"writes_per_second" yaml:"writes_per_second"`
	Burst           int     `mapstructure:"burst" yaml:"burst"`
}

type ServerConfig struct {
	Addr        string        `mapstructure:"addr" yaml:"addr"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	CORSOrigins []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// EventsConfig enables Pub/Sub notifications when both fields are set
type EventsConfig struct {
	PubSubProject string `mapstructure:"pubsub_project" yaml:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic" yaml:"pubsub_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or text
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "canari",
			},
			MySQL: MySQLConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
			GCS: GCSConfig{
				Prefix: "canari",
			},
		},
		Paths: PathsConfig{
			Batches:           "companyData/demo/demo/AppleSamples/batches",
			Counts:            "companyData/demo/demo/AppleCounts/counts",
			PresetsCollection: "companyData/demo/assets/presets",
			PresetsDocument:   "presets",
		},
		Wizard: WizardConfig{
			SampleCount: 10,
		},
		Presets: PresetsConfig{
			CacheTTL: 10 * time.Minute,
		},
		RateLimiting: RateLimitingConfig{
			WritesPerSecond: 5,
			Burst:           10,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			SessionTTL:  2 * time.Hour,
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
