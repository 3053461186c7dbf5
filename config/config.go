// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port       string `mapstructure:"PORT"`
	AppEnv     string `mapstructure:"APP_ENV"`
	AppVersion string `mapstructure:"APP_VERSION"`
	PublicDir  string `mapstructure:"PUBLIC_DIR"`

	// External collaborators.
	APIBaseURL     string `mapstructure:"API_BASE_URL"`
	ImageUploadAPI string `mapstructure:"IMAGE_UPLOAD_API"`
	GeminiAPIKey   string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL  string `mapstructure:"GEMINI_BASE_URL"`

	RedisURL string `mapstructure:"REDIS_URL"`

	DBEnabled  bool   `mapstructure:"DB_ENABLED"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	DeviceTokenSecret string `mapstructure:"DEVICE_TOKEN_SECRET"`
	ImageProxyHosts   string `mapstructure:"IMAGE_PROXY_HOSTS"`
	AIDailyLimit      int    `mapstructure:"AI_DAILY_LIMIT"`
}

// LoadConfig loads application configuration from .env, config file and environment variables.
func LoadConfig() *Config {
	// .env is optional; deployments inject environment variables directly.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &notFoundErr) {
			log.Println("Config file not found; using environment variables and defaults")
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	}

	// Set default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_VERSION", "1.0.0")
	viper.SetDefault("PUBLIC_DIR", "./public")
	viper.SetDefault("API_BASE_URL", "http://localhost:8081")
	viper.SetDefault("IMAGE_UPLOAD_API", "")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("DB_ENABLED", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "anoo")
	viper.SetDefault("DEVICE_TOKEN_SECRET", "change-me-in-production")
	viper.SetDefault("IMAGE_PROXY_HOSTS", "")
	viper.SetDefault("AI_DAILY_LIMIT", 5)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode config into struct, %v", err)
	}

	return &config
}

// ProxyAllowedHosts returns the extra image-proxy hosts configured beyond the
// built-in S3 patterns.
func (c *Config) ProxyAllowedHosts() []string {
	if c.ImageProxyHosts == "" {
		return nil
	}
	parts := strings.Split(c.ImageProxyHosts, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		if h := strings.TrimSpace(p); h != "" {
			hosts = append(hosts, strings.ToLower(h))
		}
	}
	return hosts
}
