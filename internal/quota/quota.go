// Package quota enforces the daily request ceiling for the rate-limited
// video search API.
package quota

import (
	"sync"
	"time"
)

// counterTTL keeps a day's counter alive past midnight so a reservation made
// at 23:59 still counts against the right day.
const counterTTL = 25 * time.Hour

type counter struct {
	n         int
	expiresAt time.Time
}

// Guard maintains one counter per UTC calendar day and refuses reservations
// once the ceiling is reached. Safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	limit  int
	counts map[string]*counter
	now    func() time.Time
}

// New builds a Guard allowing limit reservations per day.
func New(limit int) *Guard {
	return &Guard{
		limit:  limit,
		counts: make(map[string]*counter),
		now:    time.Now,
	}
}

// TryReserve consumes one unit of today's budget. It returns false once the
// daily ceiling is reached; callers must degrade rather than fail.
func (g *Guard) TryReserve() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.prune(now)

	key := now.UTC().Format("2006-01-02")
	c, ok := g.counts[key]
	if !ok {
		c = &counter{expiresAt: now.Add(counterTTL)}
		g.counts[key] = c
	}
	if c.n >= g.limit {
		return false
	}
	c.n++
	return true
}

// Used reports how much of today's budget has been consumed.
func (g *Guard) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := g.now().UTC().Format("2006-01-02")
	if c, ok := g.counts[key]; ok {
		return c.n
	}
	return 0
}

func (g *Guard) prune(now time.Time) {
	for key, c := range g.counts {
		if now.After(c.expiresAt) {
			delete(g.counts, key)
		}
	}
}
