package musicbrainz

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"songlens/internal/models"
)

// searchFixture serves a small catalog: two works titled "Yesterday", one
// performed by The Beatles and one by a tribute act, plus a recording index
// that links the Beatles recording back to its work.
func searchFixture(t *testing.T, recordingSearches *atomic.Int32) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /work", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"works": [
				{"id": "w-beatles", "title": "Yesterday"},
				{"id": "w-tribute", "title": "Yesterday"}
			]
		}`))
	})
	mux.HandleFunc("GET /work/w-beatles", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "w-beatles",
			"title": "Yesterday",
			"type": "Song",
			"relations": [
				{"type": "composer", "artist": {"id": "a-pm", "name": "Paul McCartney"}},
				{"type": "performance", "recording": {"id": "r-beatles", "title": "Yesterday"}}
			]
		}`))
	})
	mux.HandleFunc("GET /work/w-tribute", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "w-tribute",
			"title": "Yesterday",
			"type": "Song",
			"relations": [
				{"type": "performance", "recording": {"id": "r-tribute", "title": "Yesterday"}}
			]
		}`))
	})
	mux.HandleFunc("GET /recording/r-beatles", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("inc"), "work-rels") {
			w.Write([]byte(`{
				"id": "r-beatles",
				"title": "Yesterday",
				"artist-credit": [{"name": "The Beatles"}],
				"relations": [
					{"type": "performance", "target-type": "work",
					 "work": {"id": "w-beatles", "title": "Yesterday", "type": "Song"}}
				]
			}`))
			return
		}
		w.Write([]byte(`{
			"id": "r-beatles",
			"title": "Yesterday",
			"artist-credit": [{"name": "The Beatles"}]
		}`))
	})
	mux.HandleFunc("GET /recording/r-tribute", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "r-tribute",
			"title": "Yesterday",
			"artist-credit": [{"name": "The Bootleg Beetles"}]
		}`))
	})
	mux.HandleFunc("GET /recording", func(w http.ResponseWriter, r *http.Request) {
		if recordingSearches != nil {
			recordingSearches.Add(1)
		}
		query := r.URL.Query().Get("query")
		if !strings.Contains(query, `recording:"Yesterday"`) || !strings.Contains(query, `artist:"The Beatles"`) {
			t.Errorf("recording query = %q", query)
		}
		w.Write([]byte(`{
			"recordings": [{"id": "r-beatles", "title": "Yesterday"}]
		}`))
	})

	return mux
}

func TestSearchWorksWithArtistHint(t *testing.T) {
	var recordingSearches atomic.Int32
	c := newTestClient(t, searchFixture(t, &recordingSearches))

	songs := c.SearchWorks(context.Background(), "Yesterday", "The Beatles")

	if len(songs) != 1 {
		t.Fatalf("got %d results, want 1: %+v", len(songs), songs)
	}
	if songs[0].ID != "w-beatles" {
		t.Errorf("result id = %q, want w-beatles", songs[0].ID)
	}
	if songs[0].Artist != "The Beatles" {
		t.Errorf("artist = %q, want The Beatles", songs[0].Artist)
	}
	if recordingSearches.Load() != 1 {
		t.Errorf("recording index searched %d times, want 1", recordingSearches.Load())
	}
}

func TestSearchWorksTitleOnlySkipsRecordingPass(t *testing.T) {
	var recordingSearches atomic.Int32
	c := newTestClient(t, searchFixture(t, &recordingSearches))

	songs := c.SearchWorks(context.Background(), "Yesterday", "")

	if len(songs) != 2 {
		t.Fatalf("got %d results, want both works without an artist filter", len(songs))
	}
	if recordingSearches.Load() != 0 {
		t.Error("recording pass should be skipped without an artist hint")
	}
}

func TestSearchWorksCatalogDown(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	}))

	if songs := c.SearchWorks(context.Background(), "Yesterday", "The Beatles"); len(songs) != 0 {
		t.Errorf("expected no results when the catalog is down, got %+v", songs)
	}
}

func TestMergeMatches(t *testing.T) {
	primary := []models.Song{
		{ID: "w1", Title: "Yesterday", Artist: "The Beatles"},
		{ID: "w1", Title: "Yesterday", Artist: "The Beatles"}, // duplicate hit
	}
	secondary := []models.Song{
		{ID: "w2", Title: "yesterday", Artist: "the beatles"}, // same pair, different id
		{ID: "w3", Title: "Yesterday Once More", Artist: "Carpenters"},
	}

	got := mergeMatches(primary, secondary)

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(got), got)
	}
	if got[0].ID != "w1" {
		t.Errorf("recording-derived match should rank first, got %q", got[0].ID)
	}
	if got[1].ID != "w3" {
		t.Errorf("got[1].ID = %q, want w3", got[1].ID)
	}
}

func TestBuildWorkQuery(t *testing.T) {
	tests := []struct {
		title  string
		artist string
		want   string
	}{
		{"Yesterday", "The Beatles", "Yesterday"},
		{"Yesterday", "", "Yesterday"},
		{"", "The Beatles", `artist:"The Beatles"`},
		{"", `A "B" C`, `artist:"A \"B\" C"`},
		{"", "", "*:*"},
	}

	for _, tt := range tests {
		if got := buildWorkQuery(tt.title, tt.artist); got != tt.want {
			t.Errorf("buildWorkQuery(%q, %q) = %q, want %q", tt.title, tt.artist, got, tt.want)
		}
	}
}

func TestFilterByArtist(t *testing.T) {
	songs := []models.Song{
		{ID: "w1", Title: "Yesterday", Artist: "The Beatles"},
		{ID: "w2", Title: "Yesterday", Artist: "Unknown",
			Composers: []models.CreatorRef{{Name: "The Beatles Songbook"}}},
		{ID: "w3", Title: "Yesterday", Artist: "Leona Lewis"},
	}

	got := filterByArtist(songs, "The Beatles")

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (performer or creator match)", len(got))
	}
	if got[0].ID != "w1" || got[1].ID != "w2" {
		t.Errorf("kept %q and %q, want w1 and w2", got[0].ID, got[1].ID)
	}
}
