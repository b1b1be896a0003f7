package main

import (
	"context"
	"log"
	"net/http"

	"songlens/internal/cache"
	"songlens/internal/httpapi"
	"songlens/internal/logging"
	"songlens/internal/middleware"
	"songlens/internal/musicbrainz"
	"songlens/internal/quota"
	"songlens/internal/songs"
	"songlens/internal/store"
	"songlens/internal/video"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()
	memCache := cache.NewMemory(cfg.CacheMaxEntries)

	var names songs.NameStore
	if cfg.DatabaseURL != "" {
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("database unavailable")
		}
		defer db.Close()

		artistStore := store.New(db)
		if err := artistStore.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("schema setup failed")
		}
		names = artistStore
	} else {
		logger.Warn().Msg("DATABASE_URL not set, artist names will not survive restarts")
	}

	catalog := musicbrainz.NewClient(cfg.MusicBrainzURL, memCache, logger)
	videoSvc := video.New(cfg.YouTubeAPIKey, cfg.YouTubeAPIURL, quota.New(cfg.YouTubeDailyQuota), memCache, logger)
	songSvc := songs.New(catalog, videoSvc, memCache, names, logger)

	handler := httpapi.New(songSvc).Routes()
	handler = middleware.CORS(cfg.AllowedOrigin)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestLogging(logger)(handler)

	logger.Info().Str("addr", cfg.Addr).Msg("server listening")
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
