package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ServerConfig holds all configuration for the server binary.
type ServerConfig struct {
	Storage         StorageConfig       `yaml:"storage" json:"storage"`
	HTTP            HTTPConfig          `yaml:"http" json:"http"`
	Auth            AuthConfig          `yaml:"auth" json:"auth"`
	Todo            TodoConfig          `yaml:"todo" json:"todo"`
	Weather         WeatherConfig       `yaml:"weather" json:"weather"`
	Cache           CacheConfig         `yaml:"cache" json:"cache"`
	Observability   ObservabilityConfig `yaml:"observability" json:"observability"`
	ShutdownTimeout time.Duration       `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"WT_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig holds HTTP server configuration. Zero values take the server's defaults.
type HTTPConfig struct {
	Host              string        `yaml:"host" json:"host" env:"WT_HTTP_HOST"`
	Port              string        `yaml:"port" json:"port" env:"WT_HTTP_PORT" env-default:"8080"`
	ReadTimeout       time.Duration `yaml:"read_timeout" json:"read_timeout" env:"WT_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `yaml:"write_timeout" json:"write_timeout" env:"WT_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" json:"idle_timeout" env:"WT_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout" env:"WT_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes" json:"max_header_bytes" env:"WT_HTTP_MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" json:"max_body_bytes" env:"WT_HTTP_MAX_BODY_BYTES"`
}

// AuthConfig holds authenticator configuration.
type AuthConfig struct {
	OperationTimeout time.Duration `yaml:"operation_timeout" json:"operation_timeout" env:"WT_AUTH_OPERATION_TIMEOUT" env-default:"5s"`
	UpdateQueueSize  int           `yaml:"update_queue_size" json:"update_queue_size" env:"WT_AUTH_UPDATE_QUEUE_SIZE" env-default:"1000"`
}

// TodoConfig holds todo service configuration.
type TodoConfig struct {
	DefaultPageSize int `yaml:"default_page_size" json:"default_page_size" env:"WT_DEFAULT_PAGE_SIZE" env-default:"10"`
	MaxPageSize     int `yaml:"max_page_size" json:"max_page_size" env:"WT_MAX_PAGE_SIZE" env-default:"100"`
}

// Validate validates pagination limits.
func (c *TodoConfig) Validate() error {
	if c.DefaultPageSize < 1 || c.MaxPageSize < 1 {
		return errors.New("WT_DEFAULT_PAGE_SIZE and WT_MAX_PAGE_SIZE must be >= 1")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("WT_MAX_PAGE_SIZE (%d) must be >= WT_DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	return nil
}

// WeatherConfig selects the weather source. A non-empty Static label
// replaces the HTTP client.
type WeatherConfig struct {
	URL     string        `yaml:"url" json:"url" env:"WT_WEATHER_URL" env-default:"https://f-api.github.io/f-api/weather.json"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"WT_WEATHER_TIMEOUT" env-default:"5s"`
	Static  string        `yaml:"static" json:"static" env:"WT_WEATHER_STATIC" env-description:"Fixed weather label for offline runs"`
}

// CacheConfig configures the Redis lookup cache. The cache is disabled when
// neither Addr nor URL is set.
type CacheConfig struct {
	Addr     string        `yaml:"addr" json:"addr" env:"WT_REDIS_ADDR"`
	Password string        `yaml:"password" json:"password" env:"WT_REDIS_PASSWORD"`
	DB       int           `yaml:"db" json:"db" env:"WT_REDIS_DB" env-default:"0"`
	URL      string        `yaml:"url" json:"url" env:"WT_REDIS_URL" env-description:"redis:// URL, overrides addr, password and db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" env:"WT_CACHE_TTL" env-default:"10m"`
}

// Enabled reports whether a Redis endpoint is configured.
func (c *CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// Validate resolves URL into Addr, Password and DB.
func (c *CacheConfig) Validate() error {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return fmt.Errorf("WT_REDIS_URL: %w", err)
		}
		c.Addr = opts.Addr
		c.Password = opts.Password
		c.DB = opts.DB
	}
	if c.TTL < 0 {
		return errors.New("WT_CACHE_TTL must be >= 0")
	}
	return nil
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `yaml:"otel_enabled" json:"otel_enabled" env:"WT_OTEL_ENABLED" env-default:"false"`
	ServiceName string `yaml:"service_name" json:"service_name" env:"OTEL_SERVICE_NAME"`
	LogLevel    string `yaml:"log_level" json:"log_level" env:"WT_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
}

// Level parses LogLevel.
func (c *ObservabilityConfig) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate rejects unknown log levels.
func (c *ObservabilityConfig) Validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("WT_LOG_LEVEL: %w", err)
	}
	return nil
}

// Validate validates every section.
func (c *ServerConfig) Validate() error {
	if err := validateAll(&c.Storage, &c.Todo, &c.Cache, &c.Observability); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("WT_SHUTDOWN_TIMEOUT must be > 0")
	}
	return nil
}

// LoadServerConfig loads and validates server configuration.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := read(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	return cfg, nil
}
