package events

import (
	"context"
	"sync"

	"cubeduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeUserCreated        EventType = "user_created"
	EventTypeCubeMatchOpened    EventType = "cube_match_opened"
	EventTypeCubeMatchStarted   EventType = "cube_match_started"
	EventTypeCubeThrowRecorded  EventType = "cube_throw_recorded"
	EventTypeCubeRoundTied      EventType = "cube_round_tied"
	EventTypeCubeMatchSettled   EventType = "cube_match_settled"
	EventTypeCubeMatchForfeited EventType = "cube_match_forfeited"
	EventTypeCubeMatchCanceled  EventType = "cube_match_canceled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64
	OldBalance      decimal.Decimal
	NewBalance      decimal.Decimal
	TransactionType models.TransactionType
	ChangeAmount    decimal.Decimal
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID         int64
	TelegramID     int64
	Username       string
	InitialBalance decimal.Decimal
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// CubeMatchOpenedEvent is emitted when a player opens a new table and waits
type CubeMatchOpenedEvent struct {
	MatchID int64
	HostID  int64
	Wager   decimal.Decimal
}

func (e CubeMatchOpenedEvent) Type() EventType {
	return EventTypeCubeMatchOpened
}

// CubeMatchStartedEvent is emitted when the guest seat is filled
type CubeMatchStartedEvent struct {
	MatchID int64
	HostID  int64
	GuestID int64
	Wager   decimal.Decimal
}

func (e CubeMatchStartedEvent) Type() EventType {
	return EventTypeCubeMatchStarted
}

// CubeThrowRecordedEvent is emitted after the host's throw, handing the turn to the guest
type CubeThrowRecordedEvent struct {
	MatchID  int64
	Seat     models.Seat
	PlayerID int64
	NextID   int64
	Value    int
}

func (e CubeThrowRecordedEvent) Type() EventType {
	return EventTypeCubeThrowRecorded
}

// CubeRoundTiedEvent is emitted when both throws match and the round restarts
type CubeRoundTiedEvent struct {
	MatchID int64
	HostID  int64
	GuestID int64
	Value   int
}

func (e CubeRoundTiedEvent) Type() EventType {
	return EventTypeCubeRoundTied
}

// CubeMatchSettledEvent is emitted once stars have moved and the match is finished
type CubeMatchSettledEvent struct {
	MatchID       int64
	WinnerID      int64
	LoserID       int64
	HostValue     int
	GuestValue    int
	Wager         decimal.Decimal
	Stake         decimal.Decimal
	Payout        decimal.Decimal
	Commission    decimal.Decimal
	WinnerBalance decimal.Decimal
	LoserBalance  decimal.Decimal
}

func (e CubeMatchSettledEvent) Type() EventType {
	return EventTypeCubeMatchSettled
}

// CubeMatchForfeitedEvent is emitted when a turn timer expires and the table reopens
type CubeMatchForfeitedEvent struct {
	MatchID     int64
	LeaverID    int64
	RemainingID int64
	Wager       decimal.Decimal
	Debited     bool
}

func (e CubeMatchForfeitedEvent) Type() EventType {
	return EventTypeCubeMatchForfeited
}

// CubeMatchCanceledEvent is emitted when the host leaves an unfilled table
type CubeMatchCanceledEvent struct {
	MatchID int64
	HostID  int64
	Wager   decimal.Decimal
}

func (e CubeMatchCanceledEvent) Type() EventType {
	return EventTypeCubeMatchCanceled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": handlerIndex,
			}).Debug("Calling event handler")
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Use background context for event emission to avoid issues with transaction context expiration
	// Events should be processed independently of the transaction lifecycle
	eventCtx := context.Background()

	for _, ev := range b.pending {
		log.WithFields(log.Fields{
			"eventType": ev.Type(),
		}).Debug("Emitting event to main event bus")
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	log.Debug("All pending events flushed, transactional bus cleared")
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
