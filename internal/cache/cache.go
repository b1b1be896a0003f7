package cache

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a read-through key/value store with a per-entry TTL. Entries are
// never invalidated except by Delete (operator-triggered refresh) or expiry.
// Implementations must be safe for concurrent use; last write wins.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
}

// maxEntryTTL bounds how long the backing store may retain an entry. It must
// exceed the longest TTL handed to Set (25h for quota counters).
const maxEntryTTL = 26 * time.Hour

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-process Cache backed by a size-bounded LRU. Each entry
// carries its own deadline, checked on read; the LRU's own expiry is only a
// backstop that reclaims memory for entries nobody reads again.
type Memory struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewMemory builds a Memory cache holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		lru: expirable.NewLRU[string, entry](maxEntries, nil, maxEntryTTL),
		now: time.Now,
	}
}

func (m *Memory) Get(key string) (any, bool) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value any, ttl time.Duration) {
	m.lru.Add(key, entry{value: value, expiresAt: m.now().Add(ttl)})
}

func (m *Memory) Delete(key string) {
	m.lru.Remove(key)
}

// Key builders. One logical cache per concern, distinguished by prefix.

// WorkKey caches a fully resolved song under its work id (24h).
func WorkKey(id string) string { return "work:" + id }

// SongArtistKey caches the resolved performing-artist string for a work (1h).
func SongArtistKey(id string) string { return "song_artist:" + id }

// ArtistWorksKey caches the fast works-by-artist listing (1h).
func ArtistWorksKey(id string) string { return "artist_works:" + id }

// RecordingArtistKey caches the formatted artist-credit string for a
// recording (24h). Many works resolve to the same recording.
func RecordingArtistKey(id string) string { return "recording_artist:" + id }

// VideoKey caches a preview lookup result. The digest keeps arbitrary query
// text out of the key space.
func VideoKey(artist, title string) string {
	sum := md5.Sum([]byte(artist + ":" + title))
	return "youtube_search:" + hex.EncodeToString(sum[:])
}
