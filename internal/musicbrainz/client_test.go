package musicbrainz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"songlens/internal/cache"
	"songlens/internal/enrich"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, cache.NewMemory(128), zerolog.Nop())
	c.limiter = rate.NewLimiter(rate.Inf, 0)
	return c
}

func TestFindWorkByID(t *testing.T) {
	var workCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /work/w1", func(w http.ResponseWriter, r *http.Request) {
		workCalls.Add(1)
		if got := r.URL.Query().Get("fmt"); got != "json" {
			t.Errorf("fmt = %q, want json", got)
		}
		if got := r.URL.Query().Get("inc"); got != "artist-rels recording-rels" {
			t.Errorf("inc = %q", got)
		}
		w.Write([]byte(`{
			"id": "w1",
			"title": "Yesterday",
			"type": "Song",
			"relations": [
				{"type": "composer", "artist": {"id": "a1", "name": "Paul McCartney"}},
				{"type": "lyricist", "artist": {"id": "a1", "name": "Paul McCartney"}},
				{"type": "performance", "attributes": ["cover"],
				 "recording": {"id": "r-cover", "title": "Yesterday"}},
				{"type": "performance", "attributes": [],
				 "recording": {"id": "r-orig", "title": "Yesterday"}}
			]
		}`))
	})
	mux.HandleFunc("GET /recording/r-orig", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "r-orig",
			"title": "Yesterday",
			"artist-credit": [{"name": "The Beatles"}]
		}`))
	})

	c := newTestClient(t, mux)

	song := c.FindWorkByID(context.Background(), "w1")
	if song == nil {
		t.Fatal("expected a song")
	}
	if song.Title != "Yesterday" || song.Artist != "The Beatles" {
		t.Errorf("song = %q by %q, want Yesterday by The Beatles", song.Title, song.Artist)
	}
	if len(song.Composers) != 1 || song.Composers[0].Name != "Paul McCartney" {
		t.Errorf("composers = %+v", song.Composers)
	}
	if !song.SameCreator() {
		t.Error("one-person words-and-music credit should report SameCreator")
	}

	// Second lookup is served from cache.
	if again := c.FindWorkByID(context.Background(), "w1"); again == nil || again.ID != "w1" {
		t.Fatal("cached lookup failed")
	}
	if workCalls.Load() != 1 {
		t.Errorf("work endpoint hit %d times, want 1", workCalls.Load())
	}
}

func TestFindWorkByIDNotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	if song := c.FindWorkByID(context.Background(), "missing"); song != nil {
		t.Errorf("expected nil for unknown work, got %+v", song)
	}
}

func TestFindRecordingByIDFollowsWorkRelation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /recording/r1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "r1",
			"title": "Yesterday",
			"artist-credit": [{"name": "The Beatles"}],
			"relations": [
				{"type": "performance", "target-type": "work",
				 "work": {"id": "w1", "title": "Yesterday", "type": "Song"}}
			]
		}`))
	})
	mux.HandleFunc("GET /work/w1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "w1",
			"title": "Yesterday",
			"type": "Song",
			"relations": [
				{"type": "composer", "artist": {"id": "a1", "name": "Paul McCartney"}},
				{"type": "performance", "recording": {"id": "r1", "title": "Yesterday"}}
			]
		}`))
	})

	c := newTestClient(t, mux)

	song := c.FindRecordingByID(context.Background(), "r1")
	if song == nil {
		t.Fatal("expected a song")
	}
	if song.ID != "w1" {
		t.Errorf("song id = %q, want the linked work w1", song.ID)
	}
	if song.Artist != "The Beatles" {
		t.Errorf("artist = %q, want The Beatles", song.Artist)
	}
}

func TestFindRecordingByIDWithoutWork(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /recording/r9", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "r9",
			"title": "Improvisation No. 4",
			"artist-credit": [{"name": "Keith Jarrett"}]
		}`))
	})

	c := newTestClient(t, mux)

	song := c.FindRecordingByID(context.Background(), "r9")
	if song == nil {
		t.Fatal("expected a synthesized song")
	}
	if song.Type != "Recording" {
		t.Errorf("type = %q, want Recording", song.Type)
	}
	if song.Artist != "Keith Jarrett" {
		t.Errorf("artist = %q", song.Artist)
	}
}

func TestFindArtistWorksFast(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /work", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "arid:a1" {
			t.Errorf("query = %q, want arid:a1", got)
		}
		if got := r.URL.Query().Get("inc"); got != "artist-rels" {
			t.Errorf("inc = %q, want artist-rels", got)
		}
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("limit = %q, want 20", got)
		}
		w.Write([]byte(`{
			"works": [
				{"id": "w1", "title": "Yesterday", "type": "Song",
				 "relations": [{"type": "composer", "artist": {"id": "a1", "name": "Paul McCartney"}}]},
				{"id": "w2", "title": "Blackbird"}
			]
		}`))
	})

	c := newTestClient(t, mux)

	songs, err := c.FindArtistWorksFast(context.Background(), "a1", 20)
	if err != nil {
		t.Fatalf("FindArtistWorksFast error: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("got %d songs, want 2", len(songs))
	}
	for _, s := range songs {
		if !s.LoadingArtist {
			t.Errorf("song %q should be flagged as pending artist enrichment", s.ID)
		}
		if s.Artist != "" {
			t.Errorf("fast listing should not resolve artists, got %q", s.Artist)
		}
	}
	if songs[1].Type != "Song" {
		t.Errorf("missing work type should default to Song, got %q", songs[1].Type)
	}
}

func TestLookupWorkSurfacesTimeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(workDetailTimeout + 500*time.Millisecond)
		w.Write([]byte(`{"id": "w1", "title": "Yesterday"}`))
	}))

	song, err := c.LookupWork(context.Background(), "w1")
	if err == nil {
		t.Fatalf("expected an error, got song %+v", song)
	}
	if !enrich.IsTimeout(err) {
		t.Errorf("a slow catalog should surface as a timeout, got %v", err)
	}
}

func TestDoRequestServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	}))

	if songs, err := c.FindArtistWorksFast(context.Background(), "a1", 5); err == nil {
		t.Errorf("expected an error on server failure, got %v", songs)
	}
}
