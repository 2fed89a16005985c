package core

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Spotify SpotifyConfig
	Search  SearchConfig
	Server  ServerConfig
	Log     LogConfig
	App     AppConfig
}

// SpotifyConfig carries Web API credentials. Both fields blank means the
// public embed page is scraped instead of calling the API.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type SearchConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestsPerMin int
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	OutputDir string
	CacheDir  string
}

func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "cadenza-cache")
	if userCache, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(userCache, "cadenza")
	}

	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			ReadTimeout: 10 * time.Second,
			// Resolutions download whole audio streams inside the handler.
			WriteTimeout:   5 * time.Minute,
			RequestsPerMin: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			OutputDir: os.TempDir(),
			CacheDir:  cacheDir,
		},
	}
}
