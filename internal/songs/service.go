// Package songs orchestrates song search, detail resolution, and enrichment
// across the catalog client, the caches, and the video finder.
package songs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"songlens/internal/cache"
	"songlens/internal/enrich"
	"songlens/internal/models"
	"songlens/internal/store"
)

const (
	// Page size for other-works listings; detailWorksLimit is how many works
	// are fetched up front for the detail view, fetchLimit for the paginated
	// endpoint.
	otherWorksPageSize   = 10
	detailWorksLimit     = 20
	otherWorksFetchLimit = 100

	artistWorksTTL = time.Hour
	songArtistTTL  = time.Hour
	// A failed artist resolution is remembered briefly so a flapping catalog
	// is not hammered, but recovers quickly.
	artistPendingTTL = 10 * time.Minute
)

// Catalog resolves songs and credits. The interactive lookups absorb their
// own failures and return nil instead of errors; LookupWork and
// FindArtistWorksFast surface transport errors so the enricher can retry
// timed-out calls.
type Catalog interface {
	SearchWorks(ctx context.Context, title, artist string) []models.Song
	FindWorkByID(ctx context.Context, id string) *models.Song
	FindRecordingByID(ctx context.Context, id string) *models.Song
	LookupWork(ctx context.Context, id string) (*models.Song, error)
	FindArtistWorksFast(ctx context.Context, artistID string, limit int) ([]models.Song, error)
}

// VideoFinder locates a playable preview for a song.
type VideoFinder interface {
	FindPreview(ctx context.Context, artist, title string) models.VideoSearchResult
}

// NameStore persists resolved artist names across restarts. Get reports
// store.ErrNotCached for unknown ids and records an access on hits.
type NameStore interface {
	Get(ctx context.Context, workID string) (string, error)
	Put(ctx context.Context, workID, artistName string) error
	GetBatch(ctx context.Context, workIDs []string) (map[string]string, error)
	Delete(ctx context.Context, workID string) error
}

// Service is the application core behind the HTTP API.
type Service struct {
	catalog Catalog
	videos  VideoFinder
	cache   cache.Cache
	names   NameStore // nil when no database is configured
	log     zerolog.Logger
}

// New wires the service. names may be nil; persistence is then skipped.
func New(catalog Catalog, videos VideoFinder, store cache.Cache, names NameStore, logger zerolog.Logger) *Service {
	return &Service{
		catalog: catalog,
		videos:  videos,
		cache:   store,
		names:   names,
		log:     logger.With().Str("component", "songs").Logger(),
	}
}

// SearchResponse is the payload for a song search.
type SearchResponse struct {
	Songs []models.Song `json:"songs"`
	// ExactHit reports that at least one result's title matches the query
	// exactly, letting clients jump straight to the detail view.
	ExactHit bool `json:"exactHit"`
}

// SearchSongs resolves a free-text title and optional artist hint into ranked
// song matches.
func (s *Service) SearchSongs(ctx context.Context, title, artist string) SearchResponse {
	songs := s.catalog.SearchWorks(ctx, title, artist)

	exact := false
	for _, song := range songs {
		if strings.EqualFold(song.Title, title) {
			exact = true
			break
		}
	}
	return SearchResponse{Songs: songs, ExactHit: exact}
}

// OtherWorks is the first page of a creator's other songs.
type OtherWorks struct {
	ArtistID string        `json:"artistId"`
	Songs    []models.Song `json:"songs"`
	HasMore  bool          `json:"hasMore"`
}

// SongDetail is a fully resolved song plus the other works of everyone
// credited on it, keyed by creator name.
type SongDetail struct {
	Song          models.Song           `json:"song"`
	CreatorNames  string                `json:"creatorNames"`
	ComposerWorks map[string]OtherWorks `json:"composerWorks"`
	LyricistWorks map[string]OtherWorks `json:"lyricistWorks"`
}

// GetSongDetail resolves id as a work, falling back to treating it as a
// recording id, and fans out one bounded lookup per credited creator for
// their other songs. Returns nil when the id resolves to nothing.
func (s *Service) GetSongDetail(ctx context.Context, id string) *SongDetail {
	song := s.catalog.FindWorkByID(ctx, id)
	if song == nil {
		song = s.catalog.FindRecordingByID(ctx, id)
	}
	if song == nil {
		return nil
	}

	detail := &SongDetail{
		Song:          *song,
		CreatorNames:  song.CreatorNames(),
		ComposerWorks: make(map[string]OtherWorks),
		LyricistWorks: make(map[string]OtherWorks),
	}

	creators := song.AllCreators()
	var linked []models.CreatorRef
	for _, c := range creators {
		if c.ID != "" {
			linked = append(linked, c)
		}
	}
	if len(linked) == 0 {
		return detail
	}

	tasks := make([]enrich.Task[[]models.Song], len(linked))
	for i, c := range linked {
		artistID := c.ID
		tasks[i] = func(taskCtx context.Context) ([]models.Song, error) {
			return s.artistWorks(taskCtx, artistID)
		}
	}
	works := enrich.Run(ctx, tasks, enrich.Options[[]models.Song]{})

	for i, c := range linked {
		other := excludeSong(works[i], song.ID)
		page := OtherWorks{
			ArtistID: c.ID,
			Songs:    firstPage(other),
			HasMore:  len(other) > otherWorksPageSize,
		}
		if creatorHasRef(song.Composers, c) {
			detail.ComposerWorks[c.Name] = page
		}
		if creatorHasRef(song.Lyricists, c) {
			detail.LyricistWorks[c.Name] = page
		}
	}
	return detail
}

// OtherWorksPage is one page of a creator's works for the paginated endpoint.
type OtherWorksPage struct {
	Songs   []models.Song `json:"songs"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"hasMore"`
}

// GetArtistOtherWorks pages through an artist's works, excluding the song the
// caller came from. The full listing is fetched once and cached; pages are
// sliced out of it.
func (s *Service) GetArtistOtherWorks(ctx context.Context, artistID, excludeSongID string, offset int) OtherWorksPage {
	if offset < 0 {
		offset = 0
	}

	full, err := s.artistWorksFull(ctx, artistID)
	if err != nil {
		s.log.Error().Err(err).Str("artist_id", artistID).Msg("artist works lookup failed")
	}
	works := excludeSong(full, excludeSongID)

	if offset >= len(works) {
		return OtherWorksPage{Songs: []models.Song{}, Offset: offset}
	}
	end := offset + otherWorksPageSize
	if end > len(works) {
		end = len(works)
	}
	return OtherWorksPage{
		Songs:   works[offset:end],
		Offset:  offset,
		HasMore: end < len(works),
	}
}

// ArtistName pairs a song with its resolved performing artist. Artist is
// empty while resolution is still pending or has failed.
type ArtistName struct {
	SongID string `json:"songId"`
	Artist string `json:"artist"`
}

// GetArtistNamesForSongs resolves performing artists for songs listed through
// the fast path. Names come from the in-memory cache, then the persistent
// store, and only then from the catalog, concurrently and bounded. Results
// are in input order.
func (s *Service) GetArtistNamesForSongs(ctx context.Context, songIDs []string) []ArtistName {
	out := make([]ArtistName, len(songIDs))
	var missing []int

	for i, id := range songIDs {
		out[i].SongID = id
		if v, ok := s.cache.Get(cache.SongArtistKey(id)); ok {
			if name, ok := v.(string); ok {
				out[i].Artist = name
				continue
			}
		}
		missing = append(missing, i)
	}

	missing = s.fillFromStore(ctx, out, missing)
	if len(missing) == 0 {
		return out
	}

	tasks := make([]enrich.Task[string], len(missing))
	for t, i := range missing {
		songID := songIDs[i]
		tasks[t] = func(taskCtx context.Context) (string, error) {
			song, err := s.catalog.LookupWork(taskCtx, songID)
			if err != nil {
				return "", err
			}
			return song.Artist, nil
		}
	}
	resolved := enrich.Run(ctx, tasks, enrich.Options[string]{Fallback: artistUnavailable})

	for t, i := range missing {
		id := songIDs[i]
		if resolved[t] == artistUnavailable {
			s.cache.Set(cache.SongArtistKey(id), "", artistPendingTTL)
			continue
		}
		out[i].Artist = resolved[t]
		s.cache.Set(cache.SongArtistKey(id), resolved[t], songArtistTTL)
		s.persistName(ctx, id, resolved[t])
	}
	return out
}

// artistUnavailable marks a lookup the enricher had to give up on. It never
// leaves the service.
const artistUnavailable = "\x00unavailable"

// FindVideoPreview returns preview candidates for a song.
func (s *Service) FindVideoPreview(ctx context.Context, artist, title string) models.VideoSearchResult {
	return s.videos.FindPreview(ctx, artist, title)
}

// RefreshSong drops every cached trace of a song so the next lookup resolves
// it fresh from the catalog.
func (s *Service) RefreshSong(ctx context.Context, id string) error {
	s.cache.Delete(cache.WorkKey(id))
	s.cache.Delete(cache.SongArtistKey(id))
	if s.names == nil {
		return nil
	}
	return s.names.Delete(ctx, id)
}

// artistWorks returns up to detailWorksLimit works for the detail view,
// cached alongside the full listing under the same key.
func (s *Service) artistWorks(ctx context.Context, artistID string) ([]models.Song, error) {
	works, err := s.artistWorksFull(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if len(works) > detailWorksLimit {
		works = works[:detailWorksLimit]
	}
	return works, nil
}

func (s *Service) artistWorksFull(ctx context.Context, artistID string) ([]models.Song, error) {
	key := cache.ArtistWorksKey(artistID)
	if v, ok := s.cache.Get(key); ok {
		if works, ok := v.([]models.Song); ok {
			return works, nil
		}
	}

	works, err := s.catalog.FindArtistWorksFast(ctx, artistID, otherWorksFetchLimit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, works, artistWorksTTL)
	return works, nil
}

// fillFromStore resolves what it can from the persistent store and returns
// the indexes still missing. A single miss goes through the tracked
// single-id read so access statistics accrue for it.
func (s *Service) fillFromStore(ctx context.Context, out []ArtistName, missing []int) []int {
	if s.names == nil || len(missing) == 0 {
		return missing
	}

	if len(missing) == 1 {
		i := missing[0]
		name, err := s.names.Get(ctx, out[i].SongID)
		if err != nil {
			if !errors.Is(err, store.ErrNotCached) {
				s.log.Error().Err(err).Str("work_id", out[i].SongID).Msg("artist name read failed")
			}
			return missing
		}
		out[i].Artist = name
		s.cache.Set(cache.SongArtistKey(out[i].SongID), name, songArtistTTL)
		return nil
	}

	ids := make([]string, len(missing))
	for t, i := range missing {
		ids[t] = out[i].SongID
	}
	stored, err := s.names.GetBatch(ctx, ids)
	if err != nil {
		s.log.Error().Err(err).Msg("artist name batch read failed")
		return missing
	}

	var still []int
	for _, i := range missing {
		name, ok := stored[out[i].SongID]
		if !ok {
			still = append(still, i)
			continue
		}
		out[i].Artist = name
		s.cache.Set(cache.SongArtistKey(out[i].SongID), name, songArtistTTL)
	}
	return still
}

func (s *Service) persistName(ctx context.Context, workID, name string) {
	if s.names == nil || name == "" {
		return
	}
	if err := s.names.Put(ctx, workID, name); err != nil {
		s.log.Error().Err(err).Str("work_id", workID).Msg("persist artist name failed")
	}
}

func excludeSong(songs []models.Song, id string) []models.Song {
	if id == "" {
		return songs
	}
	var out []models.Song
	for _, s := range songs {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func firstPage(songs []models.Song) []models.Song {
	if len(songs) > otherWorksPageSize {
		return songs[:otherWorksPageSize]
	}
	return songs
}

func creatorHasRef(refs []models.CreatorRef, c models.CreatorRef) bool {
	for _, r := range refs {
		if r.ID == c.ID && r.Name == c.Name {
			return true
		}
	}
	return false
}
