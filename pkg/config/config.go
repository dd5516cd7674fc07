package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Database. When DATABASE_URL is empty the store falls back to a sqlite
	// file under DATA_DIR.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DataDir     string `mapstructure:"DATA_DIR"`

	// Redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWT
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Projections
	CurrentSeason int `mapstructure:"CURRENT_SEASON"`

	// Stat provider. "sportsdata" needs an API key; "espn" is the keyless
	// public feed.
	ProviderName       string        `mapstructure:"PROVIDER_NAME"`
	ProviderBaseURL    string        `mapstructure:"PROVIDER_BASE_URL"`
	ProviderAPIKey     string        `mapstructure:"PROVIDER_API_KEY"`
	ProviderRateLimit  int           `mapstructure:"PROVIDER_RATE_LIMIT"`
	ExternalAPITimeout time.Duration `mapstructure:"EXTERNAL_API_TIMEOUT"`

	// Background jobs
	EnableBackgroundJobs bool   `mapstructure:"ENABLE_BACKGROUND_JOBS"`
	SyncSchedule         string `mapstructure:"SYNC_SCHEDULE"`
	RevalidateSchedule   string `mapstructure:"REVALIDATE_SCHEDULE"`

	// Cache
	CacheTTLSeconds int `mapstructure:"CACHE_TTL_SECONDS"`

	// Rate limiting on heavy endpoints
	RateLimitRPS   int `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int `mapstructure:"RATE_LIMIT_BURST"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("JWT_SECRET", "your-secret-key")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CURRENT_SEASON", 2024)
	viper.SetDefault("PROVIDER_NAME", "sportsdata")
	viper.SetDefault("PROVIDER_BASE_URL", "https://api.sportsdata.example.com/v3/nfl")
	viper.SetDefault("PROVIDER_API_KEY", "")
	viper.SetDefault("PROVIDER_RATE_LIMIT", 10) // requests per minute
	viper.SetDefault("EXTERNAL_API_TIMEOUT", "10s")
	viper.SetDefault("ENABLE_BACKGROUND_JOBS", false)
	viper.SetDefault("SYNC_SCHEDULE", "0 4 * * *")       // nightly provider sync
	viper.SetDefault("REVALIDATE_SCHEDULE", "0 5 * * *") // after sync
	viper.SetDefault("CACHE_TTL_SECONDS", 300)
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := viper.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}

	return &config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CacheTTL returns the configured cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
