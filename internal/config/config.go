package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Scraper     ScraperConfig
	Summarizer  SummarizerConfig
	Logging     LoggingConfig
	Environment string
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
}

type ScraperConfig struct {
	// SourcePath points at the YAML source-site definition; empty means the
	// built-in defaults.
	SourcePath string
	// BaseURL overrides the source site origin from the YAML file.
	BaseURL string
	// Scheduler controls whether the twice-daily scrape loop runs.
	Scheduler bool
}

type SummarizerConfig struct {
	Endpoint string
	APIKey   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Scraper: ScraperConfig{
			SourcePath: getEnv("SCRAPER_SOURCE_CONFIG", ""),
			BaseURL:    getEnv("SCRAPER_BASE_URL", ""),
			Scheduler:  getEnvBool("SCRAPER_SCHEDULER", true),
		},
		Summarizer: SummarizerConfig{
			Endpoint: getEnv("SUMMARIZER_ENDPOINT", ""),
			APIKey:   getEnv("SUMMARIZER_API_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("SERVER_PORT out of range: %d", cfg.Server.Port)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
