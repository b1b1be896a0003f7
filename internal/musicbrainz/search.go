package musicbrainz

import (
	"context"
	"net/url"
	"strings"
	"time"

	"songlens/internal/models"
)

const (
	maxSearchResults     = 10
	recordingSearchLimit = 5

	// searchBudget bounds the whole two-strategy search. If the work-first
	// pass already spent it, the recording-first pass is skipped rather than
	// stretching the caller's wait.
	searchBudget = 1500 * time.Millisecond
)

// SearchWorks resolves a free-text title (and optional artist hint) into a
// ranked list of songs. Works found through recordings by the named artist
// rank above plain work-index matches; at most maxSearchResults are returned.
func (c *Client) SearchWorks(ctx context.Context, title, artist string) []models.Song {
	start := time.Now()

	workMatches := c.searchWorkIndex(ctx, title, artist)

	if title == "" || artist == "" {
		return truncate(workMatches, maxSearchResults)
	}
	if time.Since(start) > searchBudget {
		c.log.Warn().
			Str("title", title).
			Dur("elapsed", time.Since(start)).
			Msg("search budget spent, skipping recording pass")
		return truncate(workMatches, maxSearchResults)
	}

	recordingMatches := c.searchViaRecordings(ctx, title, artist)
	if len(recordingMatches) == 0 {
		return truncate(workMatches, maxSearchResults)
	}
	return truncate(mergeMatches(recordingMatches, workMatches), maxSearchResults)
}

// searchWorkIndex queries the work index directly. Search hits carry partial
// relation data, so each hit is refetched through FindWorkByID (and its
// cache) for full credits and a resolved artist. When an artist hint is
// present, works with no trace of that artist are dropped.
func (c *Client) searchWorkIndex(ctx context.Context, title, artist string) []models.Song {
	params := url.Values{}
	params.Set("query", buildWorkQuery(title, artist))
	params.Set("limit", "10")
	params.Set("sort", "score")
	var res workSearchResponse
	if err := c.doRequest(ctx, "/work", params, workSearchTimeout, &res); err != nil {
		c.logDegraded("work search", title, err)
		return nil
	}

	var out []models.Song
	for _, w := range res.Works {
		if w.ID == "" {
			continue
		}
		song := c.FindWorkByID(ctx, w.ID)
		if song == nil {
			continue
		}
		out = append(out, *song)
	}
	if artist != "" {
		out = filterByArtist(out, artist)
	}
	return out
}

// searchViaRecordings queries the recording index with both title and artist,
// then follows each hit's performance relation back to its work. Finding the
// work through a recording by the named artist pins the right song even when
// many works share a title.
func (c *Client) searchViaRecordings(ctx context.Context, title, artist string) []models.Song {
	params := url.Values{}
	params.Set("query", `recording:"`+escapeQuery(title)+`" AND artist:"`+escapeQuery(artist)+`"`)
	params.Set("limit", "5")
	params.Set("sort", "score")
	var res recordingSearchResponse
	if err := c.doRequest(ctx, "/recording", params, recordingSearchTimeout, &res); err != nil {
		c.logDegraded("recording search", title, err)
		return nil
	}

	var out []models.Song
	for i, rec := range res.Recordings {
		if i >= recordingSearchLimit || rec.ID == "" {
			continue
		}

		detailParams := url.Values{}
		detailParams.Set("inc", "artist-credits work-rels")
		var detail recordingResponse
		if err := c.doRequest(ctx, "/recording/"+rec.ID, detailParams, recordingDetailTimeout, &detail); err != nil {
			c.logDegraded("recording detail", rec.ID, err)
			continue
		}

		artistName := firstCreditName(detail.ArtistCredit)
		for _, rel := range detail.Relations {
			if rel.Type != "performance" || rel.TargetType != "work" || rel.Work == nil {
				continue
			}
			out = append(out, models.Song{
				ID:     rel.Work.ID,
				Title:  rel.Work.Title,
				Artist: artistName,
				Type:   workType(rel.Work.Type),
			})
		}
	}
	return out
}

// mergeMatches concatenates the recording-derived matches (ranked first) with
// the work-index matches, dropping work-index entries that duplicate an
// earlier match by id or by case-insensitive title/artist pair.
func mergeMatches(primary, secondary []models.Song) []models.Song {
	out := dedupeByID(primary)

	seenID := make(map[string]bool, len(out))
	seenPair := make(map[string]bool, len(out))
	for _, s := range out {
		seenID[s.ID] = true
		seenPair[pairKey(s)] = true
	}
	for _, s := range secondary {
		if seenID[s.ID] || seenPair[pairKey(s)] {
			continue
		}
		seenID[s.ID] = true
		seenPair[pairKey(s)] = true
		out = append(out, s)
	}
	return out
}

func dedupeByID(songs []models.Song) []models.Song {
	seen := make(map[string]bool, len(songs))
	var out []models.Song
	for _, s := range songs {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func pairKey(s models.Song) string {
	return strings.ToLower(s.Title) + "\x00" + strings.ToLower(s.Artist)
}

func filterByArtist(songs []models.Song, artist string) []models.Song {
	var out []models.Song
	for _, s := range songs {
		if strings.Contains(s.Artist, artist) ||
			creatorMatches(s.Composers, artist) ||
			creatorMatches(s.Lyricists, artist) {
			out = append(out, s)
		}
	}
	return out
}

func creatorMatches(refs []models.CreatorRef, artist string) bool {
	for _, r := range refs {
		if strings.Contains(r.Name, artist) {
			return true
		}
	}
	return false
}

func buildWorkQuery(title, artist string) string {
	switch {
	case title != "":
		return title
	case artist != "":
		return `artist:"` + escapeQuery(artist) + `"`
	default:
		return "*:*"
	}
}

// escapeQuery neutralizes double quotes so user text cannot break out of a
// quoted Lucene phrase.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func truncate(songs []models.Song, n int) []models.Song {
	if len(songs) > n {
		return songs[:n]
	}
	return songs
}
