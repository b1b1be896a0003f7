package musicbrainz

import (
	"context"
	"net/url"
	"strings"

	"songlens/internal/cache"
)

// Performance attribute penalties. A work's canonical recording should be the
// original studio performance; derivative renditions are pushed down.
const (
	heavyPenalty    = 100  // cover, instrumental, partial, live, karaoke
	lightPenalty    = 50   // medley, remix, acoustic
	cleanBonus      = -500 // no attributes at all
	titleMatchBonus = -1000
)

var heavyAttributes = map[string]bool{
	"cover":        true,
	"instrumental": true,
	"partial":      true,
	"live":         true,
	"karaoke":      true,
}

var lightAttributes = map[string]bool{
	"medley":   true,
	"remix":    true,
	"acoustic": true,
}

// resolveArtist picks the work's best performance recording and returns its
// formatted artist credit. Empty when the work has no performances or the
// credit fetch fails.
func (c *Client) resolveArtist(ctx context.Context, w workResponse) string {
	best := pickBestPerformance(w)
	if best == nil {
		return ""
	}
	return c.artistForRecording(ctx, best.Recording.ID)
}

// artistForRecording fetches a recording's credited-artist list and joins it
// into a display string.
func (c *Client) artistForRecording(ctx context.Context, recordingID string) string {
	key := cache.RecordingArtistKey(recordingID)
	if v, ok := c.cache.Get(key); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}

	params := url.Values{}
	params.Set("inc", "artist-credits")
	var rec recordingResponse
	if err := c.doRequest(ctx, "/recording/"+recordingID, params, creditsTimeout, &rec); err != nil {
		c.logDegraded("recording credits", recordingID, err)
		return ""
	}

	name := formatArtistCredit(rec.ArtistCredit)
	c.cache.Set(key, name, recordingArtistTTL)
	return name
}

// pickBestPerformance scores every performance relation on the work and
// returns the lowest-penalty one. Ties keep the earlier relation, so the
// choice is deterministic for a given response.
func pickBestPerformance(w workResponse) *relation {
	var best *relation
	bestScore := 0
	for i := range w.Relations {
		rel := &w.Relations[i]
		if rel.Type != "performance" || rel.Recording == nil {
			continue
		}
		score := performancePenalty(*rel, w.Title)
		if best == nil || score < bestScore {
			best = rel
			bestScore = score
		}
	}
	return best
}

func performancePenalty(rel relation, workTitle string) int {
	score := 0
	for _, attr := range rel.Attributes {
		switch {
		case heavyAttributes[attr]:
			score += heavyPenalty
		case lightAttributes[attr]:
			score += lightPenalty
		}
	}
	if len(rel.Attributes) == 0 {
		score += cleanBonus
	}
	if normalizeTitle(rel.Recording.Title) == normalizeTitle(workTitle) {
		score += titleMatchBonus
	}
	return score
}

// normalizeTitle folds the full-width punctuation common in Japanese catalog
// entries before a case-insensitive compare.
func normalizeTitle(s string) string {
	s = strings.ReplaceAll(s, "！", "!")
	s = strings.ReplaceAll(s, "　", " ")
	return strings.ToLower(s)
}

// formatArtistCredit concatenates credit names with their join phrases, e.g.
// "A feat. B & C".
func formatArtistCredit(credits []artistCredit) string {
	var b strings.Builder
	for _, credit := range credits {
		b.WriteString(credit.Name)
		b.WriteString(credit.JoinPhrase)
	}
	return b.String()
}
