package guard

import (
	"context"
	"sync"
	"time"

	"cubeduel/models"
)

type throwKey struct {
	matchID int64
	seat    models.Seat
}

// MemoryThrowGuard keeps in-flight throws in process memory. It is only
// correct while a single bot process serves every table.
type MemoryThrowGuard struct {
	mu       sync.Mutex
	inFlight map[throwKey]struct{}
}

func NewMemoryThrowGuard() *MemoryThrowGuard {
	return &MemoryThrowGuard{inFlight: make(map[throwKey]struct{})}
}

// Acquire returns false when a throw for the same match and seat is already running
func (g *MemoryThrowGuard) Acquire(_ context.Context, matchID int64, seat models.Seat) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := throwKey{matchID, seat}
	if _, busy := g.inFlight[key]; busy {
		return false, nil
	}
	g.inFlight[key] = struct{}{}
	return true, nil
}

func (g *MemoryThrowGuard) Release(_ context.Context, matchID int64, seat models.Seat) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, throwKey{matchID, seat})
	return nil
}

// Clear drops both seats of a match
func (g *MemoryThrowGuard) Clear(_ context.Context, matchID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, throwKey{matchID, models.SeatHost})
	delete(g.inFlight, throwKey{matchID, models.SeatGuest})
	return nil
}

// MemoryCooldowns tracks rejoin cooldowns in process memory
type MemoryCooldowns struct {
	mu      sync.Mutex
	window  time.Duration
	until   map[int64]time.Time
	nowFunc func() time.Time
}

func NewMemoryCooldowns(window time.Duration) *MemoryCooldowns {
	return newMemoryCooldownsWithClock(window, time.Now)
}

func newMemoryCooldownsWithClock(window time.Duration, now func() time.Time) *MemoryCooldowns {
	return &MemoryCooldowns{
		window:  window,
		until:   make(map[int64]time.Time),
		nowFunc: now,
	}
}

// Start begins a fresh cooldown window, replacing any running one
func (c *MemoryCooldowns) Start(_ context.Context, telegramID int64) error {
	if c.window <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.until[telegramID] = c.nowFunc().Add(c.window)
	return nil
}

func (c *MemoryCooldowns) Remaining(_ context.Context, telegramID int64) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	until, ok := c.until[telegramID]
	if !ok {
		return 0, nil
	}
	remaining := until.Sub(c.nowFunc())
	if remaining <= 0 {
		delete(c.until, telegramID)
		return 0, nil
	}
	return remaining, nil
}
