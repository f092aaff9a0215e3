package service

import (
	"sync/atomic"
	"time"

	"cubeduel/models"

	"github.com/shopspring/decimal"
)

// TurnTimeout is the context a turn timer carries to perform forfeiture
type TurnTimeout struct {
	MatchID    int64
	Seat       models.Seat
	PlayerID   int64
	OpponentID int64
	TurnNumber int
	Wager      decimal.Decimal
}

const (
	timerArmed int32 = iota
	timerFired
	timerCanceled
)

// TurnTimer is a handle to one armed deadline
type TurnTimer struct {
	timeout TurnTimeout
	timer   *time.Timer
	state   atomic.Int32
}

// Timeout returns the context the timer was armed with
func (t *TurnTimer) Timeout() TurnTimeout {
	return t.timeout
}

// Pending reports whether the timer has neither fired nor been canceled
func (t *TurnTimer) Pending() bool {
	return t.state.Load() == timerArmed
}

type timerScheduler struct{}

// NewTurnScheduler creates a scheduler backed by runtime timers.
// It does not deduplicate by match; the caller replaces handles itself.
func NewTurnScheduler() TurnScheduler {
	return &timerScheduler{}
}

// Arm schedules fire to run once after deadline unless canceled first
func (s *timerScheduler) Arm(deadline time.Duration, timeout TurnTimeout, fire func(TurnTimeout)) *TurnTimer {
	t := &TurnTimer{timeout: timeout}
	t.timer = time.AfterFunc(deadline, func() {
		if t.state.CompareAndSwap(timerArmed, timerFired) {
			fire(timeout)
		}
	})
	return t
}

// Cancel stops the timer. Safe on nil, fired or already canceled handles.
func (s *timerScheduler) Cancel(t *TurnTimer) {
	if t == nil {
		return
	}
	if t.state.CompareAndSwap(timerArmed, timerCanceled) {
		t.timer.Stop()
	}
}
