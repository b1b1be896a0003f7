package quota

import (
	"sync"
	"testing"
	"time"
)

func TestGuardCeiling(t *testing.T) {
	g := New(100)

	for i := 0; i < 100; i++ {
		if !g.TryReserve() {
			t.Fatalf("reservation %d should have been permitted", i+1)
		}
	}

	if g.TryReserve() {
		t.Fatal("101st reservation should be denied")
	}
	if got := g.Used(); got != 100 {
		t.Fatalf("Used() = %d, want 100", got)
	}
}

func TestGuardResetsOnNewDay(t *testing.T) {
	g := New(1)
	now := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	if !g.TryReserve() {
		t.Fatal("first reservation should succeed")
	}
	if g.TryReserve() {
		t.Fatal("budget exhausted, reservation should be denied")
	}

	now = now.Add(2 * time.Hour) // past midnight UTC
	if !g.TryReserve() {
		t.Fatal("first reservation of the new day should succeed")
	}
}

func TestGuardPrunesExpiredCounters(t *testing.T) {
	g := New(5)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	g.TryReserve()
	now = now.Add(26 * time.Hour)
	g.TryReserve()

	if len(g.counts) != 1 {
		t.Fatalf("expected stale counter to be pruned, have %d counters", len(g.counts))
	}
}

func TestGuardConcurrentReservations(t *testing.T) {
	g := New(50)

	var wg sync.WaitGroup
	granted := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- g.TryReserve()
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for ok := range granted {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Fatalf("granted %d reservations, want exactly 50", count)
	}
}
