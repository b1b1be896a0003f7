package models

import (
	"sort"
	"strings"
)

// CreatorRef identifies a composer or lyricist credited on a song. ID is the
// catalog identifier and may be empty when the catalog did not link the
// credit to an artist record; such creators cannot be used for follow-up
// lookups.
type CreatorRef struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// Song is a musical work resolved from the catalog. When a song is fetched
// through the fast artist-works path the Artist field is left empty and
// LoadingArtist is set so the caller knows enrichment is still pending.
type Song struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Artist        string       `json:"artist"`
	Type          string       `json:"type"`
	Composers     []CreatorRef `json:"composers"`
	Lyricists     []CreatorRef `json:"lyricists"`
	LoadingArtist bool         `json:"loadingArtist"`
}

// SameCreator reports whether the composer and lyricist credits name the same
// set of people.
func (s Song) SameCreator() bool {
	if len(s.Composers) == 0 || len(s.Lyricists) == 0 {
		return false
	}
	return creatorNameSet(s.Composers) == creatorNameSet(s.Lyricists)
}

// AllCreators returns the combined composer and lyricist credits with
// duplicate names removed, composers first.
func (s Song) AllCreators() []CreatorRef {
	seen := make(map[string]bool)
	var out []CreatorRef
	for _, c := range append(append([]CreatorRef{}, s.Composers...), s.Lyricists...) {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}

// CreatorNames formats the credits for display. When one set of people wrote
// both words and music the credit is collapsed into a single part.
func (s Song) CreatorNames() string {
	composers := creatorNameList(s.Composers)
	lyricists := creatorNameList(s.Lyricists)

	if s.SameCreator() {
		return "Words & music: " + strings.Join(composers, ", ")
	}

	var parts []string
	if len(lyricists) > 0 {
		parts = append(parts, "Lyrics: "+strings.Join(lyricists, ", "))
	}
	if len(composers) > 0 {
		parts = append(parts, "Music: "+strings.Join(composers, ", "))
	}
	return strings.Join(parts, " / ")
}

func creatorNameList(refs []CreatorRef) []string {
	var names []string
	for _, r := range refs {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return names
}

func creatorNameSet(refs []CreatorRef) string {
	names := creatorNameList(refs)
	sort.Strings(names)
	return strings.Join(names, "\x00")
}
