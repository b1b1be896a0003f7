// Package video finds a playable preview for a song through a YouTube-style
// search API, under a strict daily request budget.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"songlens/internal/cache"
	"songlens/internal/models"
	"songlens/internal/quota"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

	requestTimeout = 5 * time.Second
	maxResults     = 3

	// A hit is worth keeping for a day; a miss is retried after an hour in
	// case the provider was having a bad moment.
	successTTL = 24 * time.Hour
	failureTTL = time.Hour
)

// Service searches for preview videos. Every successful or failed lookup is
// cached so repeat queries never touch the daily quota.
type Service struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	quota      *quota.Guard
	cache      cache.Cache
	log        zerolog.Logger
}

// New builds a video search service. An empty apiKey disables outbound calls;
// lookups then resolve to nothing without burning quota.
func New(apiKey, baseURL string, guard *quota.Guard, store cache.Cache, logger zerolog.Logger) *Service {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Service{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		quota:      guard,
		cache:      store,
		log:        logger.With().Str("component", "video").Logger(),
	}
}

// FindPreview returns preview candidates for the song, most relevant first.
// The result is empty when nothing usable was found, the provider failed, or
// the daily budget is spent; the Error field says which.
func (s *Service) FindPreview(ctx context.Context, artist, title string) models.VideoSearchResult {
	key := cache.VideoKey(artist, title)
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.(models.VideoSearchResult); ok {
			return cached
		}
	}

	if s.apiKey == "" {
		return models.VideoSearchResult{Error: "video search not configured"}
	}

	for _, query := range searchQueries(artist, title) {
		if !s.quota.TryReserve() {
			s.log.Warn().Str("query", query).Msg("daily video quota spent, skipping lookup")
			// Not cached: the budget resets at midnight and the query
			// deserves a fresh chance then.
			return models.VideoSearchResult{Error: "daily quota exceeded"}
		}

		videos, err := s.search(ctx, query)
		if err != nil {
			if isQuotaExceeded(err) {
				s.log.Warn().Msg("provider reports quota exceeded")
				return models.VideoSearchResult{Error: "daily quota exceeded"}
			}
			s.log.Error().Err(err).Str("query", query).Msg("video search failed")
			continue
		}
		if len(videos) == 0 {
			continue
		}

		result := models.VideoSearchResult{Videos: videos}
		s.cache.Set(key, result, successTTL)
		return result
	}

	result := models.VideoSearchResult{Error: "no video found"}
	s.cache.Set(key, result, failureTTL)
	return result
}

func (s *Service) search(ctx context.Context, query string) ([]models.Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("maxResults", fmt.Sprint(maxResults))
	params.Set("q", query)
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.reason() != "" {
			return nil, fmt.Errorf("video api error: %s", apiErr.reason())
		}
		return nil, fmt.Errorf("video api error: %s", resp.Status)
	}

	var res searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var videos []models.Video
	for _, item := range res.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, models.Video{
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			ThumbnailURL: item.Snippet.Thumbnails.Medium.URL,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return videos, nil
}

// searchQueries orders the query variants to try, most specific first.
func searchQueries(artist, title string) []string {
	if artist != "" {
		return []string{artist + " " + title}
	}
	return []string{title}
}

func isQuotaExceeded(err error) bool {
	return err != nil && strings.Contains(err.Error(), "quotaExceeded")
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type apiErrorResponse struct {
	Error struct {
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (e apiErrorResponse) reason() string {
	if len(e.Error.Errors) == 0 {
		return ""
	}
	return e.Error.Errors[0].Reason
}
