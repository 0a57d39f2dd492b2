package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the complete server configuration.
// Each section is unmarshalled from prefab's config (prefab.yaml + PF__ env vars).
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Hotspots   HotspotsConfig   `koanf:"hotspots"`
	Geocoding  GeocodingConfig  `koanf:"geocoding"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Kafka      KafkaConfig      `koanf:"kafka"`
}

// ServerConfig holds process-level settings. Listen address and port are prefab's.
type ServerConfig struct {
	DatabasePath    string `koanf:"database_path"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
	ServiceName     string `koanf:"service_name"`
}

// HotspotsConfig holds clustering defaults; HTTP query parameters override them per request
type HotspotsConfig struct {
	TimeWindowHours float64       `koanf:"time_window_hours"`
	EpsMeters       float64       `koanf:"eps_meters"`
	MinPoints       int           `koanf:"min_points"`
	TrendWindow     time.Duration `koanf:"trend_window"`
	SeverityMode    string        `koanf:"severity_mode"`
	Concurrency     int           `koanf:"concurrency"`
	// Schedule is a cron spec for periodic runs; empty disables them
	Schedule string `koanf:"schedule"`
}

// GeocodingConfig holds reverse geocoding provider settings
type GeocodingConfig struct {
	GoogleAPIKey     string        `koanf:"google_api_key"`
	GoogleBaseURL    string        `koanf:"google_base_url"`
	NominatimBaseURL string        `koanf:"nominatim_base_url"`
	UserAgent        string        `koanf:"user_agent"`
	NominatimRPS     float64       `koanf:"nominatim_rps"`
	Timeout          time.Duration `koanf:"timeout"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	DefaultLocality  string        `koanf:"default_locality"`
}

// EnrichmentConfig holds AI enrichment settings
type EnrichmentConfig struct {
	Interval     time.Duration `koanf:"interval"`
	ChunkSize    int           `koanf:"chunk_size"`
	RoutingTypes []string      `koanf:"routing_types"`
	Timeout      time.Duration `koanf:"timeout"`
	// OpenAI is the primary generator; Alternates are tried in order when it fails
	OpenAI     GeneratorConfig   `koanf:"openai"`
	Alternates []GeneratorConfig `koanf:"alternates"`
}

// Generators returns the primary generator followed by the alternates
func (e EnrichmentConfig) Generators() []GeneratorConfig {
	return append([]GeneratorConfig{e.OpenAI}, e.Alternates...)
}

// GeneratorConfig configures one OpenAI-compatible text-generation provider
type GeneratorConfig struct {
	Name    string `koanf:"name"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// KafkaConfig enables publishing hotspot updates when brokers are set
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			DatabasePath: "pulse.db",
			ServiceName:  "campus-pulse",
		},
		Hotspots: HotspotsConfig{
			TimeWindowHours: 72,
			EpsMeters:       400,
			MinPoints:       3,
			SeverityMode:    "bucket",
			Concurrency:     4,
			Schedule:        "@every 10m",
		},
		Geocoding: GeocodingConfig{
			NominatimRPS:    1,
			Timeout:         30 * time.Second,
			CacheTTL:        24 * time.Hour,
			DefaultLocality: "Rocky Point",
		},
		Enrichment: EnrichmentConfig{
			Interval:     20 * time.Minute,
			ChunkSize:    10,
			RoutingTypes: []string{},
			Timeout:      2 * time.Minute,
			OpenAI: GeneratorConfig{
				Name:  "openai",
				Model: "gpt-3.5-turbo",
			},
		},
		Kafka: KafkaConfig{
			Topic: "campus-pulse.hotspots",
		},
	}
}

// Validate reports configuration values the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Hotspots.TimeWindowHours <= 0 {
		errs = append(errs, fmt.Errorf("hotspots.time_window_hours must be positive, got %v", c.Hotspots.TimeWindowHours))
	}
	if c.Hotspots.EpsMeters <= 0 {
		errs = append(errs, fmt.Errorf("hotspots.eps_meters must be positive, got %v", c.Hotspots.EpsMeters))
	}
	if c.Hotspots.MinPoints <= 0 {
		errs = append(errs, fmt.Errorf("hotspots.min_points must be positive, got %d", c.Hotspots.MinPoints))
	}
	switch c.Hotspots.SeverityMode {
	case "", "bucket", "score":
	default:
		errs = append(errs, fmt.Errorf("hotspots.severity_mode must be bucket or score, got %q", c.Hotspots.SeverityMode))
	}
	if c.Enrichment.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("enrichment.chunk_size must not be negative, got %d", c.Enrichment.ChunkSize))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}
