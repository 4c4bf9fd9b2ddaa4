package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the analyzer server.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Transcription TranscriptionConfig
	Resolver      ResolverConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type TranscriptionConfig struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxPolls     int
}

type ResolverConfig struct {
	BinPath  string
	ProxyURL string
	Timeout  time.Duration
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is loaded first when present.
// The transcription API key is deliberately not validated here: a missing
// key fails individual jobs with a clear message instead of blocking startup.
func Load() (*Config, error) {
	// Best effort; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ANALYZER_PORT", 8080),
			Env:  envString("ANALYZER_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Transcription: TranscriptionConfig{
			BaseURL:      envString("TRANSCRIPTION_BASE_URL", "https://api.assemblyai.com"),
			APIKey:       os.Getenv("TRANSCRIPTION_API_KEY"),
			PollInterval: envDuration("TRANSCRIPTION_POLL_INTERVAL", 2500*time.Millisecond),
			MaxPolls:     envInt("TRANSCRIPTION_MAX_POLLS", 120),
		},
		Resolver: ResolverConfig{
			BinPath:  envString("YTDLP_PATH", "yt-dlp"),
			ProxyURL: os.Getenv("RESOLVER_PROXY_URL"),
			Timeout:  envDuration("RESOLVER_TIMEOUT", 90*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Transcription.BaseURL, "http://") && !strings.HasPrefix(c.Transcription.BaseURL, "https://") {
		return fmt.Errorf("TRANSCRIPTION_BASE_URL must start with http:// or https://, got %q", c.Transcription.BaseURL)
	}

	if c.Transcription.MaxPolls < 1 {
		return fmt.Errorf("TRANSCRIPTION_MAX_POLLS must be at least 1, got %d", c.Transcription.MaxPolls)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
