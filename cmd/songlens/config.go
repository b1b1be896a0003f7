package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains application-wide settings sourced from the environment.
type Config struct {
	Addr          string
	AllowedOrigin string

	// DatabaseURL is optional; without it artist names are not persisted
	// across restarts.
	DatabaseURL string

	MusicBrainzURL    string
	YouTubeAPIKey     string
	YouTubeAPIURL     string
	YouTubeDailyQuota int

	CacheMaxEntries int

	LogLevel  string
	LogFormat string
}

func loadConfig() (Config, error) {
	_ = godotenv.Load("config/local.env")

	addr := fmt.Sprintf(":%s", envOrDefault("PORT", "8080"))

	dailyQuota, err := strconv.Atoi(envOrDefault("YOUTUBE_DAILY_QUOTA", "100"))
	if err != nil || dailyQuota < 0 {
		return Config{}, fmt.Errorf("invalid YOUTUBE_DAILY_QUOTA: %q", os.Getenv("YOUTUBE_DAILY_QUOTA"))
	}

	cacheEntries, err := strconv.Atoi(envOrDefault("CACHE_MAX_ENTRIES", "10000"))
	if err != nil || cacheEntries <= 0 {
		return Config{}, fmt.Errorf("invalid CACHE_MAX_ENTRIES: %q", os.Getenv("CACHE_MAX_ENTRIES"))
	}

	return Config{
		Addr:              addr,
		AllowedOrigin:     envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MusicBrainzURL:    os.Getenv("MUSICBRAINZ_API_URL"),
		YouTubeAPIKey:     os.Getenv("YOUTUBE_API_KEY"),
		YouTubeAPIURL:     os.Getenv("YOUTUBE_API_URL"),
		YouTubeDailyQuota: dailyQuota,
		CacheMaxEntries:   cacheEntries,
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
