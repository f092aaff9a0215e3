package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"cubeduel/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		UserID:          42,
		OldBalance:      decimal.RequireFromString("10.00"),
		NewBalance:      decimal.RequireFromString("14.00"),
		TransactionType: models.TransactionTypeCubeWin,
		ChangeAmount:    decimal.RequireFromString("4.00"),
	}

	transactionalBus.Publish(testEvent)

	// Nothing is delivered before the flush
	select {
	case <-eventReceived:
		t.Fatal("Event delivered before flush")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent.UserID, received.UserID)
		assert.True(t, testEvent.NewBalance.Equal(received.NewBalance))
		assert.True(t, testEvent.ChangeAmount.Equal(received.ChangeAmount))
		assert.Equal(t, models.TransactionTypeCubeWin, received.TransactionType)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMixedEventTypesDelivery checks that handlers only see their own event type
func TestMixedEventTypesDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	var settled []CubeMatchSettledEvent
	var tied []CubeRoundTiedEvent
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.Subscribe(EventTypeCubeMatchSettled, func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		defer mu.Unlock()
		settled = append(settled, event.(CubeMatchSettledEvent))
	})
	mainBus.Subscribe(EventTypeCubeRoundTied, func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		defer mu.Unlock()
		tied = append(tied, event.(CubeRoundTiedEvent))
	})

	transactionalBus.Publish(CubeRoundTiedEvent{MatchID: 1, HostID: 10, GuestID: 20, Value: 3})
	transactionalBus.Publish(CubeRoundTiedEvent{MatchID: 1, HostID: 10, GuestID: 20, Value: 6})
	transactionalBus.Publish(CubeMatchSettledEvent{MatchID: 1, WinnerID: 10, LoserID: 20, HostValue: 5, GuestValue: 2})

	require.NoError(t, transactionalBus.Flush(context.Background()))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handlers did not run within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, tied, 2)
	require.Len(t, settled, 1)
	assert.Equal(t, int64(10), settled[0].WinnerID)
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeCubeMatchForfeited, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(CubeMatchForfeitedEvent{MatchID: 7, LeaverID: 1, RemainingID: 2})

	// Discard instead of flush (simulating transaction rollback)
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}
