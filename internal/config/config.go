package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds all runtime settings for the server.
// Values are resolved in order: defaults, config.yaml (if present),
// then environment variables.
type Config struct {
	Server struct {
		Port     string `yaml:"port"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"server"`
	Finnhub struct {
		APIKey    string `yaml:"apiKey"`
		BaseURL   string `yaml:"baseUrl"`
		StreamURL string `yaml:"streamUrl"`
	} `yaml:"finnhub"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Auth struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"apiKey"`
	} `yaml:"auth"`
	Watchlist struct {
		GuestFile string `yaml:"guestFile"`
	} `yaml:"watchlist"`
}

// Load reads configuration for the server. A missing .env or yaml file is
// not an error; a missing Finnhub API key is.
func Load(yamlPath string) (*Config, error) {
	// Load .env into the process environment first, as the ingestor did.
	_ = godotenv.Load(".env")

	cfg := defaults()

	if yamlPath != "" {
		if raw, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", yamlPath, err)
			}
		}
	}

	applyEnv(cfg)

	if cfg.Finnhub.APIKey == "" {
		return nil, fmt.Errorf("config: FINNHUB_API_KEY is not set")
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.LogLevel = "info"
	cfg.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	cfg.Finnhub.StreamURL = "wss://ws.finnhub.io"
	cfg.Database.URL = ""
	cfg.Redis.Addr = "localhost:6379"
	cfg.Watchlist.GuestFile = "watchlist.json"
	return cfg
}

func applyEnv(cfg *Config) {
	setIfPresent(&cfg.Server.Port, "PORT")
	setIfPresent(&cfg.Server.LogLevel, "LOG_LEVEL")
	setIfPresent(&cfg.Finnhub.APIKey, "FINNHUB_API_KEY")
	setIfPresent(&cfg.Finnhub.BaseURL, "FINNHUB_BASE_URL")
	setIfPresent(&cfg.Finnhub.StreamURL, "FINNHUB_STREAM_URL")
	setIfPresent(&cfg.Database.URL, "DATABASE_URL")
	setIfPresent(&cfg.Redis.Addr, "REDIS_ADDR")
	setIfPresent(&cfg.Auth.URL, "AUTH_URL")
	setIfPresent(&cfg.Auth.APIKey, "AUTH_API_KEY")
	setIfPresent(&cfg.Watchlist.GuestFile, "GUEST_WATCHLIST_FILE")
}

func setIfPresent(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
