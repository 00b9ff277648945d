package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Scraper  ScraperConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ScraperConfig bounds a scrape run: how many new concerts one run may
// persist, how many venues scrape-all works in parallel, and how many
// detail pages one venue run fetches at once.
type ScraperConfig struct {
	MaxConcerts   int
	VenueWorkers  int
	DetailWorkers int
	FetchTimeout  time.Duration
	UserAgent     string
}

type ServerConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level      string
	FilePath   string
	WebhookURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "concertradar"),
		},
		Scraper: ScraperConfig{
			MaxConcerts:   getIntEnv("SCRAPER_MAX_CONCERTS", 25),
			VenueWorkers:  getIntEnv("SCRAPER_VENUE_WORKERS", 4),
			DetailWorkers: getIntEnv("SCRAPER_DETAIL_WORKERS", 2),
			FetchTimeout:  getDurationEnv("SCRAPER_FETCH_TIMEOUT", 30*time.Second),
			UserAgent:     getEnv("SCRAPER_USER_AGENT", "concertradar-data/1.0"),
		},
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE", "concertradar.log"),
			WebhookURL: getEnv("LOG_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

func (c *DatabaseConfig) Validate() error {
	if c.Host == "" || c.Port == "" || c.User == "" || c.DBName == "" {
		return fmt.Errorf("database host, port, user and name are required")
	}
	return nil
}

func (c *ScraperConfig) Validate() error {
	if c.MaxConcerts <= 0 {
		return fmt.Errorf("max concerts must be positive")
	}
	if c.VenueWorkers <= 0 || c.DetailWorkers <= 0 {
		return fmt.Errorf("worker counts must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
