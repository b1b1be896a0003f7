// Package musicbrainz resolves songs, credits, and performing artists against
// a MusicBrainz-compatible catalog API.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"songlens/internal/cache"
	"songlens/internal/models"
)

const (
	defaultBaseURL = "https://musicbrainz.org/ws/2"
	userAgent      = "songlens/1.0 (https://github.com/songlens/songlens)"

	// Per-call timeouts. Interactive lookups stay tight; the credit fetch
	// and the bulk artist-works listing are allowed to be slow because they
	// run in the background or behind a cache.
	workSearchTimeout      = time.Second
	workDetailTimeout      = time.Second
	recordingSearchTimeout = time.Second
	recordingDetailTimeout = 2 * time.Second
	creditsTimeout         = 30 * time.Second
	artistWorksTimeout     = 15 * time.Second

	workTTL            = 24 * time.Hour
	songArtistTTL      = time.Hour
	recordingArtistTTL = 24 * time.Hour
)

var errNotFound = errors.New("entity not found")

// Client is a rate-limited, caching catalog client. The Find* lookups absorb
// transport and decode failures: they log and return nil or empty results so
// a degraded catalog never takes the caller down with it. LookupWork and
// FindArtistWorksFast surface errors for callers that schedule retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      cache.Cache
	log        zerolog.Logger
}

// NewClient builds a catalog client against baseURL, or the public
// MusicBrainz endpoint when baseURL is empty.
func NewClient(baseURL string, store cache.Cache, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		cache:      store,
		log:        logger.With().Str("component", "musicbrainz").Logger(),
	}
}

// LookupWork resolves a work into a full song record: title, type, writing
// credits, and the performing artist chosen by the recording scorer. Unlike
// FindWorkByID it surfaces the transport error, so schedulers can tell a
// timeout (worth retrying) from a missing work.
func (c *Client) LookupWork(ctx context.Context, id string) (*models.Song, error) {
	if v, ok := c.cache.Get(cache.WorkKey(id)); ok {
		if song, ok := v.(models.Song); ok {
			return &song, nil
		}
	}

	params := url.Values{}
	params.Set("inc", "artist-rels recording-rels")
	var w workResponse
	if err := c.doRequest(ctx, "/work/"+id, params, workDetailTimeout, &w); err != nil {
		return nil, err
	}

	song := models.Song{
		ID:        w.ID,
		Title:     w.Title,
		Artist:    c.resolveArtist(ctx, w),
		Type:      workType(w.Type),
		Composers: creatorsByType(w.Relations, "composer"),
		Lyricists: creatorsByType(w.Relations, "lyricist"),
	}
	c.cache.Set(cache.WorkKey(id), song, workTTL)
	c.cache.Set(cache.SongArtistKey(id), song.Artist, songArtistTTL)
	return &song, nil
}

// FindWorkByID is LookupWork with failures absorbed: it logs and returns nil
// when the work does not exist or the catalog is unreachable.
func (c *Client) FindWorkByID(ctx context.Context, id string) *models.Song {
	song, err := c.LookupWork(ctx, id)
	if err != nil {
		c.logDegraded("work lookup", id, err)
		return nil
	}
	return song
}

// FindRecordingByID resolves a recording to the work it performs, falling
// back to a work-less song synthesized from the recording itself when no
// performance relationship is linked.
func (c *Client) FindRecordingByID(ctx context.Context, id string) *models.Song {
	params := url.Values{}
	params.Set("inc", "artist-credits work-rels")
	var rec recordingResponse
	if err := c.doRequest(ctx, "/recording/"+id, params, recordingDetailTimeout, &rec); err != nil {
		c.logDegraded("recording lookup", id, err)
		return nil
	}

	for _, rel := range rec.Relations {
		if rel.Type == "performance" && rel.TargetType == "work" && rel.Work != nil {
			if song := c.FindWorkByID(ctx, rel.Work.ID); song != nil {
				return song
			}
		}
	}

	if rec.ID == "" {
		return nil
	}
	song := models.Song{
		ID:     rec.ID,
		Title:  rec.Title,
		Type:   "Recording",
		Artist: firstCreditName(rec.ArtistCredit),
	}
	return &song
}

// FindArtistWorksFast lists works credited to an artist without resolving
// performing artists. Returned songs carry LoadingArtist so callers know the
// artist field still needs enrichment. Transport errors are surfaced.
func (c *Client) FindArtistWorksFast(ctx context.Context, artistID string, limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("query", "arid:"+artistID)
	params.Set("inc", "artist-rels")
	params.Set("limit", strconv.Itoa(limit))
	var res workSearchResponse
	if err := c.doRequest(ctx, "/work", params, artistWorksTimeout, &res); err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(res.Works))
	for _, w := range res.Works {
		if w.ID == "" {
			continue
		}
		songs = append(songs, models.Song{
			ID:            w.ID,
			Title:         w.Title,
			Type:          workType(w.Type),
			Composers:     creatorsByType(w.Relations, "composer"),
			Lyricists:     creatorsByType(w.Relations, "lyricist"),
			LoadingArtist: true,
		})
	}
	return songs, nil
}

// doRequest performs one rate-limited GET against the catalog and decodes the
// JSON body into result.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, timeout time.Duration, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if params == nil {
		params = url.Values{}
	}
	params.Set("fmt", "json")
	// Multi-valued inc parameters are written space-separated above; Encode
	// turns the spaces into the '+' separators the API expects.
	apiURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog api error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) logDegraded(op, target string, err error) {
	evt := c.log.Error()
	if errors.Is(err, errNotFound) {
		evt = c.log.Debug()
	}
	evt.Err(err).Str("op", op).Str("target", target).Msg("catalog call returned no result")
}

func workType(t string) string {
	if t == "" {
		return "Song"
	}
	return t
}

func creatorsByType(rels []relation, relType string) []models.CreatorRef {
	var refs []models.CreatorRef
	for _, rel := range rels {
		if rel.Type != relType || rel.Artist == nil {
			continue
		}
		refs = append(refs, models.CreatorRef{Name: rel.Artist.Name, ID: rel.Artist.ID})
	}
	return refs
}

func firstCreditName(credits []artistCredit) string {
	if len(credits) == 0 {
		return ""
	}
	return credits[0].Name
}
