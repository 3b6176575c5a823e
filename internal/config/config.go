package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Import    ImportConfig    `mapstructure:"import"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	CORS            CORSConfig    `mapstructure:"cors"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb" validate:"min=1"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the SQL driver and its connection settings.
// For postgres, URL wins over the discrete host fields when set.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN builds the driver-specific connection string.
// Returns:
//   - string: sqlite file path or postgres URL.
func (c *DatabaseConfig) DSN() string {
	if c.Driver != "postgres" {
		return c.Path
	}
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

type StorageConfig struct {
	Type      string `mapstructure:"type" validate:"omitempty,oneof=s3 r2 s3compatible memory"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket" validate:"required"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	AdminUsername string        `mapstructure:"admin_username" validate:"required"`
	AdminPassword string        `mapstructure:"admin_password" validate:"required,min=6"`
}

type DiscoveryConfig struct {
	VideoSearch  VideoSearchConfig  `mapstructure:"video_search"`
	Autocomplete AutocompleteConfig `mapstructure:"autocomplete"`
	Suggestions  SuggestionsConfig  `mapstructure:"suggestions"`
}

// VideoSearchConfig configures the external video search provider.
// An empty APIKey leaves the provider disabled.
type VideoSearchConfig struct {
	APIKey       string          `mapstructure:"api_key"`
	BaseURL      string          `mapstructure:"base_url" validate:"required,url"`
	Timeout      time.Duration   `mapstructure:"timeout" validate:"gt=0"`
	BrowseLimit  int             `mapstructure:"browse_limit" validate:"min=1,max=50"`
	SearchLimit  int             `mapstructure:"search_limit" validate:"min=1,max=50"`
	TopicKeyword string          `mapstructure:"topic_keyword"`
	Breaker      BreakerConfig   `mapstructure:"breaker"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type AutocompleteConfig struct {
	Enabled    bool            `mapstructure:"enabled"`
	BaseURL    string          `mapstructure:"base_url" validate:"required,url"`
	Timeout    time.Duration   `mapstructure:"timeout" validate:"gt=0"`
	MaxResults int             `mapstructure:"max_results" validate:"min=1"`
	Breaker    BreakerConfig   `mapstructure:"breaker"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"min=1"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
}

// RateLimitConfig bounds outbound calls per provider. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst" validate:"min=0"`
}

type SuggestionsConfig struct {
	TTL        time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Capacity   int           `mapstructure:"capacity" validate:"min=1"`
	LocalLimit int           `mapstructure:"local_limit" validate:"min=0"`
	MaxTotal   int           `mapstructure:"max_total" validate:"min=1"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"min=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ImportConfig struct {
	Workers    int    `mapstructure:"workers" validate:"min=1"`
	BatchSize  int    `mapstructure:"batch_size" validate:"min=1"`
	StagingDir string `mapstructure:"staging_dir"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
}

// Load reads configuration from file, .env and environment.
// Parameters:
//   - configPath: explicit config file, or empty to search ./configs and the working directory.
// Returns:
//   - *Config: validated configuration.
//   - error: non-nil if reading, decoding or validation fails.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment-specific values
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.admin_password", "ADMIN_PASSWORD")
	v.BindEnv("discovery.video_search.api_key", "YOUTUBE_API_KEY")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/recipes.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.bucket", "recipes")
	v.SetDefault("storage.public_url", "http://localhost:9000/recipes")

	v.SetDefault("auth.jwt_secret", "change-me-in-production-please")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "admin123")

	v.SetDefault("discovery.video_search.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("discovery.video_search.timeout", 5*time.Second)
	v.SetDefault("discovery.video_search.browse_limit", 8)
	v.SetDefault("discovery.video_search.search_limit", 10)
	v.SetDefault("discovery.video_search.topic_keyword", "recipe")
	v.SetDefault("discovery.video_search.breaker.failure_threshold", 5)
	v.SetDefault("discovery.video_search.breaker.open_timeout", 30*time.Second)
	v.SetDefault("discovery.video_search.rate_limit.rps", 5)
	v.SetDefault("discovery.video_search.rate_limit.burst", 10)

	v.SetDefault("discovery.autocomplete.enabled", true)
	v.SetDefault("discovery.autocomplete.base_url", "https://suggestqueries.google.com/complete/search")
	v.SetDefault("discovery.autocomplete.timeout", 1500*time.Millisecond)
	v.SetDefault("discovery.autocomplete.max_results", 4)
	v.SetDefault("discovery.autocomplete.breaker.failure_threshold", 5)
	v.SetDefault("discovery.autocomplete.breaker.open_timeout", 15*time.Second)
	v.SetDefault("discovery.autocomplete.rate_limit.rps", 20)
	v.SetDefault("discovery.autocomplete.rate_limit.burst", 40)

	v.SetDefault("discovery.suggestions.ttl", 300*time.Second)
	v.SetDefault("discovery.suggestions.capacity", 10000)
	v.SetDefault("discovery.suggestions.local_limit", 3)
	v.SetDefault("discovery.suggestions.max_total", 7)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "recipeclip:suggest:")

	v.SetDefault("import.workers", 4)
	v.SetDefault("import.batch_size", 20)
	v.SetDefault("import.staging_dir", "./data/staging")

	v.SetDefault("telemetry.service_name", "recipeclip")
}

// Validate checks struct constraints on the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
