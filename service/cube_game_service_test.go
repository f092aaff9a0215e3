package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cubeduel/config"
	"cubeduel/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type duelHarness struct {
	ctx       context.Context
	uow       *MockUnitOfWork
	factory   *MockUnitOfWorkFactory
	users     *MockUserRepository
	history   *MockBalanceHistoryRepository
	matches   *MockCubeMatchRepository
	settings  *MockGameSettingsRepository
	bus       *MockEventPublisher
	guard     *MockThrowGuard
	cooldowns *MockCooldownStore
	scheduler *fakeScheduler
	service   *cubeGameService
}

func newDuelHarness(t *testing.T) *duelHarness {
	t.Helper()

	h := &duelHarness{
		ctx:       context.Background(),
		uow:       new(MockUnitOfWork),
		factory:   new(MockUnitOfWorkFactory),
		users:     new(MockUserRepository),
		history:   new(MockBalanceHistoryRepository),
		matches:   new(MockCubeMatchRepository),
		settings:  new(MockGameSettingsRepository),
		bus:       new(MockEventPublisher),
		guard:     new(MockThrowGuard),
		cooldowns: new(MockCooldownStore),
		scheduler: newFakeScheduler(),
	}
	h.uow.SetRepositories(h.users, h.history, h.matches, h.settings, h.bus)
	h.factory.On("Create").Return(h.uow)
	h.uow.On("Begin", mock.Anything).Return(nil)
	h.uow.On("Rollback").Return(nil)

	cfg := config.NewTestConfig().Cube
	h.service = NewCubeGameService(h.factory, cfg, h.guard, h.cooldowns, h.scheduler).(*cubeGameService)
	return h
}

func (h *duelHarness) expectCommit() {
	h.uow.On("Commit").Return(nil)
}

func (h *duelHarness) expectThrowGuard(matchID int64, seat models.Seat) {
	h.guard.On("Acquire", h.ctx, matchID, seat).Return(true, nil)
	h.guard.On("Release", mock.Anything, matchID, seat).Return(nil)
}

func (h *duelHarness) assertExpectations(t *testing.T) {
	h.uow.AssertExpectations(t)
	h.users.AssertExpectations(t)
	h.history.AssertExpectations(t)
	h.matches.AssertExpectations(t)
	h.settings.AssertExpectations(t)
	h.guard.AssertExpectations(t)
	h.cooldowns.AssertExpectations(t)
}

func decEq(v string) interface{} {
	want := decimal.RequireFromString(v)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func stars(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func inProgressMatch(turn models.Seat, turnNumber int, firstValue *int) *models.CubeMatch {
	return &models.CubeMatch{
		ID:          7,
		Player1ID:   1,
		Player2ID:   int64Ptr(2),
		Status:      models.MatchStatusInProgress,
		Wager:       stars("5"),
		CurrentTurn: turn,
		FirstValue:  firstValue,
		TurnNumber:  turnNumber,
	}
}

func TestCubeGameService_JoinOrCreateTable_OpensTable(t *testing.T) {
	h := newDuelHarness(t)

	user := &models.User{ID: 1, TelegramID: 1001, Stars: stars("10")}
	opened := &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting, Wager: stars("5")}

	h.users.On("GetByIDForUpdate", h.ctx, int64(1)).Return(user, nil)
	h.cooldowns.On("Remaining", h.ctx, int64(1001)).Return(time.Duration(0), nil)
	h.matches.On("ActiveMatchFor", h.ctx, int64(1)).Return(nil, nil)
	h.matches.On("FindOpenTable", h.ctx, decEq("5"), int64(1)).Return(nil, nil)
	h.matches.On("OpenTable", h.ctx, int64(1), decEq("5")).Return(opened, nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeMatchOpenedEvent")).Return()
	h.expectCommit()

	result, err := h.service.JoinOrCreateTable(h.ctx, 1, stars("5"))

	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, result.Role)
	assert.Equal(t, int64(7), result.Match.ID)
	assert.Empty(t, h.scheduler.armed, "no timer until a second player sits down")
	h.assertExpectations(t)
	h.bus.AssertExpectations(t)
}

func TestCubeGameService_JoinOrCreateTable_SeatsGuestAndArmsHostTimer(t *testing.T) {
	h := newDuelHarness(t)

	user := &models.User{ID: 2, TelegramID: 1002, Stars: stars("10")}
	open := &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting, Wager: stars("5")}
	started := inProgressMatch(models.SeatHost, 1, nil)

	h.users.On("GetByIDForUpdate", h.ctx, int64(2)).Return(user, nil)
	h.cooldowns.On("Remaining", h.ctx, int64(1002)).Return(time.Duration(0), nil)
	h.matches.On("ActiveMatchFor", h.ctx, int64(2)).Return(nil, nil)
	h.matches.On("FindOpenTable", h.ctx, decEq("5"), int64(2)).Return(open, nil)
	h.matches.On("SeatSecondPlayer", h.ctx, int64(7), int64(2)).Return(started, nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeMatchStartedEvent")).Return()
	h.expectCommit()

	result, err := h.service.JoinOrCreateTable(h.ctx, 2, stars("5"))

	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, result.Role)

	timer := h.scheduler.last()
	require.NotNil(t, timer)
	assert.Equal(t, int64(1), timer.Timeout().PlayerID, "host throws first")
	assert.Equal(t, int64(2), timer.Timeout().OpponentID)
	assert.Equal(t, models.SeatHost, timer.Timeout().Seat)
	assert.Equal(t, 1, timer.Timeout().TurnNumber)
	h.assertExpectations(t)
}

func TestCubeGameService_JoinOrCreateTable_RetriesLostRace(t *testing.T) {
	h := newDuelHarness(t)

	user := &models.User{ID: 2, TelegramID: 1002, Stars: stars("10")}
	open := &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting, Wager: stars("5")}
	opened := &models.CubeMatch{ID: 8, Player1ID: 2, Status: models.MatchStatusWaiting, Wager: stars("5")}

	h.users.On("GetByIDForUpdate", h.ctx, int64(2)).Return(user, nil)
	h.cooldowns.On("Remaining", h.ctx, int64(1002)).Return(time.Duration(0), nil)
	h.matches.On("ActiveMatchFor", h.ctx, int64(2)).Return(nil, nil)
	h.matches.On("FindOpenTable", h.ctx, decEq("5"), int64(2)).Return(open, nil).Once()
	h.matches.On("SeatSecondPlayer", h.ctx, int64(7), int64(2)).Return(nil, models.ErrInvalidTransition).Once()
	h.matches.On("FindOpenTable", h.ctx, decEq("5"), int64(2)).Return(nil, nil).Once()
	h.matches.On("OpenTable", h.ctx, int64(2), decEq("5")).Return(opened, nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeMatchOpenedEvent")).Return()
	h.expectCommit()

	result, err := h.service.JoinOrCreateTable(h.ctx, 2, stars("5"))

	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, result.Role)
	assert.Equal(t, int64(8), result.Match.ID)
	h.assertExpectations(t)
}

func TestCubeGameService_JoinOrCreateTable_SkipsTableThatCannotSeat(t *testing.T) {
	h := newDuelHarness(t)

	user := &models.User{ID: 2, TelegramID: 1002, Stars: stars("10")}
	full := inProgressMatch(models.SeatHost, 1, nil)
	full.Player2ID = int64Ptr(3)
	opened := &models.CubeMatch{ID: 8, Player1ID: 2, Status: models.MatchStatusWaiting, Wager: stars("5")}

	h.users.On("GetByIDForUpdate", h.ctx, int64(2)).Return(user, nil)
	h.cooldowns.On("Remaining", h.ctx, int64(1002)).Return(time.Duration(0), nil)
	h.matches.On("ActiveMatchFor", h.ctx, int64(2)).Return(nil, nil)
	h.matches.On("FindOpenTable", h.ctx, decEq("5"), int64(2)).Return(full, nil).Once()
	h.matches.On("FindOpenTable", h.ctx, decEq("5"), int64(2)).Return(nil, nil).Once()
	h.matches.On("OpenTable", h.ctx, int64(2), decEq("5")).Return(opened, nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeMatchOpenedEvent")).Return()
	h.expectCommit()

	result, err := h.service.JoinOrCreateTable(h.ctx, 2, stars("5"))

	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, result.Role)
	h.matches.AssertNotCalled(t, "SeatSecondPlayer", mock.Anything, mock.Anything, mock.Anything)
}

func TestCubeGameService_JoinOrCreateTable_GivesUpAfterRetries(t *testing.T) {
	h := newDuelHarness(t)

	user := &models.User{ID: 2, TelegramID: 1002, Stars: stars("10")}
	open := &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting, Wager: stars("5")}

	h.users.On("GetByIDForUpdate", h.ctx, int64(2)).Return(user, nil)
	h.cooldowns.On("Remaining", h.ctx, int64(1002)).Return(time.Duration(0), nil)
	h.matches.On("ActiveMatchFor", h.ctx, int64(2)).Return(nil, nil)
	h.matches.On("FindOpenTable", h.ctx, decEq("5"), int64(2)).Return(open, nil)
	h.matches.On("SeatSecondPlayer", h.ctx, int64(7), int64(2)).Return(nil, models.ErrInvalidTransition)

	_, err := h.service.JoinOrCreateTable(h.ctx, 2, stars("5"))

	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	h.matches.AssertNumberOfCalls(t, "SeatSecondPlayer", 3)
}

func TestCubeGameService_JoinOrCreateTable_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		user    *models.User
		wait    time.Duration
		active  *models.CubeMatch
		wager   string
		wantErr error
	}{
		{
			name:    "cooldown active",
			user:    &models.User{ID: 1, TelegramID: 1001, Stars: stars("10")},
			wait:    10 * time.Second,
			wager:   "5",
			wantErr: models.ErrCooldown,
		},
		{
			name:    "already seated",
			user:    &models.User{ID: 1, TelegramID: 1001, Stars: stars("10")},
			active:  &models.CubeMatch{ID: 3, Player1ID: 1, Status: models.MatchStatusWaiting},
			wager:   "5",
			wantErr: models.ErrAlreadyInMatch,
		},
		{
			name:    "insufficient balance",
			user:    &models.User{ID: 1, TelegramID: 1001, Stars: stars("4.99")},
			wager:   "5",
			wantErr: models.ErrInsufficientBalance,
		},
		{
			name:    "banned",
			user:    &models.User{ID: 1, TelegramID: 1001, Stars: stars("10"), IsBanned: true},
			wager:   "5",
			wantErr: models.ErrUserBanned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newDuelHarness(t)

			h.users.On("GetByIDForUpdate", h.ctx, int64(1)).Return(tt.user, nil)
			h.cooldowns.On("Remaining", h.ctx, int64(1001)).Return(tt.wait, nil).Maybe()
			h.matches.On("ActiveMatchFor", h.ctx, int64(1)).Return(tt.active, nil).Maybe()

			_, err := h.service.JoinOrCreateTable(h.ctx, 1, stars(tt.wager))

			assert.ErrorIs(t, err, tt.wantErr)
			h.matches.AssertNotCalled(t, "OpenTable", mock.Anything, mock.Anything, mock.Anything)
			h.uow.AssertNotCalled(t, "Commit")
		})
	}
}

func TestCubeGameService_JoinOrCreateTable_CooldownReportsRemaining(t *testing.T) {
	h := newDuelHarness(t)

	user := &models.User{ID: 1, TelegramID: 1001, Stars: stars("10")}
	h.users.On("GetByIDForUpdate", h.ctx, int64(1)).Return(user, nil)
	h.cooldowns.On("Remaining", h.ctx, int64(1001)).Return(9500*time.Millisecond, nil)

	_, err := h.service.JoinOrCreateTable(h.ctx, 1, stars("5"))

	var cooldownErr *models.CooldownError
	require.True(t, errors.As(err, &cooldownErr))
	assert.Equal(t, 10, cooldownErr.RemainingSeconds())
}

func TestCubeGameService_JoinOrCreateTable_InvalidWager(t *testing.T) {
	h := newDuelHarness(t)

	for _, wager := range []string{"0", "-5", "1.005"} {
		_, err := h.service.JoinOrCreateTable(h.ctx, 1, stars(wager))
		assert.ErrorIs(t, err, models.ErrInvalidWager, wager)
	}
	h.factory.AssertNotCalled(t, "Create")
}

func TestCubeGameService_SubmitThrow_HostThrowHandsTurnToGuest(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatHost, 1, nil)
	updated := inProgressMatch(models.SeatGuest, 2, intPtr(3))

	// Deadline armed when the guest sat down
	h.service.armTurnTimer(match)
	hostTimer := h.scheduler.last()

	h.expectThrowGuard(7, models.SeatHost)
	h.matches.On("GetByID", h.ctx, int64(7)).Return(match, nil)
	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(match, nil)
	h.matches.On("RecordThrow", h.ctx, int64(7), 1, 3).Return(updated, nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeThrowRecordedEvent")).Return()
	h.expectCommit()

	outcome, err := h.service.SubmitThrow(h.ctx, 7, models.SeatHost, 1, &FixedDice{Faces: []int{3}})

	require.NoError(t, err)
	assert.Equal(t, OutcomeAwaitingOpponent, outcome.Kind)
	assert.Equal(t, 3, outcome.Value)
	assert.Nil(t, outcome.Settlement)

	assert.Contains(t, h.scheduler.canceled, hostTimer)
	guestTimer := h.scheduler.last()
	assert.NotSame(t, hostTimer, guestTimer)
	assert.Equal(t, int64(2), guestTimer.Timeout().PlayerID)
	assert.Equal(t, 2, guestTimer.Timeout().TurnNumber)
	h.users.AssertNotCalled(t, "DeductStars", mock.Anything, mock.Anything, mock.Anything)
	h.assertExpectations(t)
}

func TestCubeGameService_SubmitThrow_TieReturnsTurnToHost(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatGuest, 2, intPtr(3))
	reset := inProgressMatch(models.SeatHost, 3, nil)

	h.expectThrowGuard(7, models.SeatGuest)
	h.matches.On("GetByID", h.ctx, int64(7)).Return(match, nil)
	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(match, nil)
	h.matches.On("ResetRound", h.ctx, int64(7), 2).Return(reset, nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeRoundTiedEvent")).Return()
	h.expectCommit()

	outcome, err := h.service.SubmitThrow(h.ctx, 7, models.SeatGuest, 2, &FixedDice{Faces: []int{3}})

	require.NoError(t, err)
	assert.Equal(t, OutcomeTie, outcome.Kind)
	assert.Equal(t, 3, outcome.HostValue)

	timer := h.scheduler.last()
	require.NotNil(t, timer)
	assert.Equal(t, int64(1), timer.Timeout().PlayerID)
	assert.Equal(t, 3, timer.Timeout().TurnNumber)
	h.users.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
	h.assertExpectations(t)
}

func TestCubeGameService_SubmitThrow_SettlesWithDefaultCommission(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatGuest, 2, intPtr(2))
	match.Wager = stars("10")
	host := &models.User{ID: 1, TelegramID: 1001, Stars: stars("50")}
	guest := &models.User{ID: 2, TelegramID: 1002, Stars: stars("20")}

	h.expectThrowGuard(7, models.SeatGuest)
	h.guard.On("Clear", mock.Anything, int64(7)).Return(nil)
	h.matches.On("GetByID", h.ctx, int64(7)).Return(match, nil)
	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(match, nil)
	h.settings.On("Get", h.ctx, models.SettingCubeCommission).Return(nil, nil)
	h.users.On("GetByIDForUpdate", h.ctx, int64(1)).Return(host, nil)
	h.users.On("GetByIDForUpdate", h.ctx, int64(2)).Return(guest, nil)
	h.users.On("DeductStars", h.ctx, int64(1), decEq("10")).Return(stars("40"), nil)
	h.users.On("AddStars", h.ctx, int64(2), decEq("8")).Return(stars("28"), nil)
	h.history.On("Record", h.ctx, mock.MatchedBy(func(b *models.BalanceHistory) bool {
		return b.UserID == 1 && b.TransactionType == models.TransactionTypeCubeLoss && b.ChangeAmount.Equal(stars("-10"))
	})).Return(nil)
	h.history.On("Record", h.ctx, mock.MatchedBy(func(b *models.BalanceHistory) bool {
		return b.UserID == 2 && b.TransactionType == models.TransactionTypeCubeWin && b.ChangeAmount.Equal(stars("8"))
	})).Return(nil)
	h.matches.On("Finish", h.ctx, int64(7), int64(2)).Return(nil)
	h.bus.On("Publish", mock.Anything).Return()
	h.expectCommit()

	outcome, err := h.service.SubmitThrow(h.ctx, 7, models.SeatGuest, 2, &FixedDice{Faces: []int{6}})

	require.NoError(t, err)
	require.Equal(t, OutcomeSettled, outcome.Kind)
	assert.Equal(t, models.MatchStatusFinished, outcome.Match.Status)
	assert.Equal(t, int64(2), *outcome.Match.WinnerID)

	s := outcome.Settlement
	assert.True(t, s.Stake.Equal(stars("10")))
	assert.True(t, s.Payout.Equal(stars("8")))
	assert.True(t, s.Commission.Equal(stars("2")))
	assert.True(t, s.WinnerBalance.Equal(stars("28")))
	assert.True(t, s.LoserBalance.Equal(stars("40")))
	assert.Empty(t, h.scheduler.armed, "finished matches have no deadline")
	h.assertExpectations(t)
}

// Stars are checked at join time but not held, so a loser may have spent
// part of the wager elsewhere before settlement. They pay what they have.
func TestCubeGameService_SubmitThrow_CapsStakeAtLoserBalance(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatGuest, 2, intPtr(5))
	host := &models.User{ID: 1, TelegramID: 1001, Stars: stars("20")}
	guest := &models.User{ID: 2, TelegramID: 1002, Stars: stars("2.5")}

	h.expectThrowGuard(7, models.SeatGuest)
	h.guard.On("Clear", mock.Anything, int64(7)).Return(nil)
	h.matches.On("GetByID", h.ctx, int64(7)).Return(match, nil)
	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(match, nil)
	h.settings.On("Get", h.ctx, models.SettingCubeCommission).Return(&models.GameSetting{Key: models.SettingCubeCommission, Value: stars("20")}, nil)
	h.users.On("GetByIDForUpdate", h.ctx, int64(1)).Return(host, nil)
	h.users.On("GetByIDForUpdate", h.ctx, int64(2)).Return(guest, nil)
	h.users.On("DeductStars", h.ctx, int64(2), decEq("2.5")).Return(stars("0"), nil)
	h.users.On("AddStars", h.ctx, int64(1), decEq("2")).Return(stars("22"), nil)
	h.history.On("Record", h.ctx, mock.Anything).Return(nil)
	h.matches.On("Finish", h.ctx, int64(7), int64(1)).Return(nil)
	h.bus.On("Publish", mock.Anything).Return()
	h.expectCommit()

	outcome, err := h.service.SubmitThrow(h.ctx, 7, models.SeatGuest, 2, &FixedDice{Faces: []int{1}})

	require.NoError(t, err)
	s := outcome.Settlement
	assert.Equal(t, int64(1), s.WinnerID)
	assert.True(t, s.Wager.Equal(stars("5")))
	assert.True(t, s.Stake.Equal(stars("2.5")))
	assert.True(t, s.Payout.Equal(stars("2")))
	assert.True(t, s.LoserBalance.IsZero())
	h.assertExpectations(t)
}

func TestCubeGameService_SubmitThrow_RejectsConcurrentThrow(t *testing.T) {
	h := newDuelHarness(t)

	h.guard.On("Acquire", h.ctx, int64(7), models.SeatHost).Return(false, nil)

	_, err := h.service.SubmitThrow(h.ctx, 7, models.SeatHost, 1, &FixedDice{Faces: []int{4}})

	assert.ErrorIs(t, err, models.ErrAlreadyActing)
	h.factory.AssertNotCalled(t, "Create")
	h.guard.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestCubeGameService_SubmitThrow_RejectsWrongTurn(t *testing.T) {
	tests := []struct {
		name   string
		match  *models.CubeMatch
		seat   models.Seat
		userID int64
	}{
		{"guest before host", inProgressMatch(models.SeatHost, 1, nil), models.SeatGuest, 2},
		{"wrong user in seat", inProgressMatch(models.SeatHost, 1, nil), models.SeatHost, 2},
		{"finished match", &models.CubeMatch{ID: 7, Player1ID: 1, Player2ID: int64Ptr(2), Status: models.MatchStatusFinished}, models.SeatGuest, 2},
		{"waiting table", &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting}, models.SeatHost, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newDuelHarness(t)
			h.expectThrowGuard(7, tt.seat)
			h.matches.On("GetByID", h.ctx, int64(7)).Return(tt.match, nil)

			dice := &FixedDice{Faces: []int{4}}
			_, err := h.service.SubmitThrow(h.ctx, 7, tt.seat, tt.userID, dice)

			assert.ErrorIs(t, err, models.ErrNotYourTurn)
			assert.Equal(t, 0, dice.next, "no die is rolled for a rejected throw")
			h.matches.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
		})
	}
}

func TestCubeGameService_SubmitThrow_MatchMovedWhileRolling(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatHost, 1, nil)
	// A timeout reopened the table before the roll finished
	reopened := &models.CubeMatch{ID: 7, Player1ID: 2, Status: models.MatchStatusWaiting, Wager: stars("5"), TurnNumber: 1}

	h.expectThrowGuard(7, models.SeatHost)
	h.matches.On("GetByID", h.ctx, int64(7)).Return(match, nil)
	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(reopened, nil)

	_, err := h.service.SubmitThrow(h.ctx, 7, models.SeatHost, 1, &FixedDice{Faces: []int{6}})

	assert.ErrorIs(t, err, models.ErrNotYourTurn)
	h.matches.AssertNotCalled(t, "RecordThrow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.uow.AssertNotCalled(t, "Commit")
	assert.Empty(t, h.scheduler.armed)
}

func TestCubeGameService_SubmitThrow_RollFailureRearmsDeadline(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatHost, 1, nil)
	h.expectThrowGuard(7, models.SeatHost)
	h.matches.On("GetByID", h.ctx, int64(7)).Return(match, nil)

	_, err := h.service.SubmitThrow(h.ctx, 7, models.SeatHost, 1, &FixedDice{})

	assert.Error(t, err)
	timer := h.scheduler.last()
	require.NotNil(t, timer)
	assert.True(t, timer.Pending())
	assert.Equal(t, int64(1), timer.Timeout().PlayerID)
}

func TestCubeGameService_HandleTurnTimeout_DebitsAndReopens(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatHost, 1, nil)
	leaver := &models.User{ID: 1, TelegramID: 1001, Stars: stars("10")}
	reopened := &models.CubeMatch{ID: 7, Player1ID: 2, Status: models.MatchStatusWaiting, Wager: stars("5"), TurnNumber: 2}

	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(match, nil)
	h.users.On("GetByIDForUpdate", h.ctx, int64(1)).Return(leaver, nil)
	h.users.On("DeductStars", h.ctx, int64(1), decEq("5")).Return(stars("5"), nil)
	h.history.On("Record", h.ctx, mock.MatchedBy(func(b *models.BalanceHistory) bool {
		return b.TransactionType == models.TransactionTypeCubeForfeit && b.BalanceAfter.Equal(stars("5"))
	})).Return(nil)
	h.matches.On("RecordForfeit", h.ctx, int64(7), int64(1)).Return(reopened, nil)
	h.bus.On("Publish", mock.Anything).Return()
	h.guard.On("Clear", mock.Anything, int64(7)).Return(nil)
	h.expectCommit()

	result, err := h.service.HandleTurnTimeout(h.ctx, TurnTimeout{MatchID: 7, PlayerID: 1, OpponentID: 2, TurnNumber: 1, Seat: models.SeatHost})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Debited)
	assert.Equal(t, int64(1), result.LeaverID)
	assert.Equal(t, int64(2), result.RemainingID)
	assert.Equal(t, models.MatchStatusWaiting, result.Match.Status)
	assert.Nil(t, result.Match.Player2ID)
	h.assertExpectations(t)
}

func TestCubeGameService_HandleTurnTimeout_SkipsDebitWhenShort(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatGuest, 2, intPtr(4))
	leaver := &models.User{ID: 2, TelegramID: 1002, Stars: stars("3")}
	reopened := &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting, Wager: stars("5"), TurnNumber: 3}

	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(match, nil)
	h.users.On("GetByIDForUpdate", h.ctx, int64(2)).Return(leaver, nil)
	h.matches.On("RecordForfeit", h.ctx, int64(7), int64(2)).Return(reopened, nil)
	h.bus.On("Publish", mock.Anything).Return()
	h.guard.On("Clear", mock.Anything, int64(7)).Return(nil)
	h.expectCommit()

	result, err := h.service.HandleTurnTimeout(h.ctx, TurnTimeout{MatchID: 7, PlayerID: 2, OpponentID: 1, TurnNumber: 2, Seat: models.SeatGuest})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Debited)
	assert.Equal(t, int64(1), result.RemainingID)
	h.users.AssertNotCalled(t, "DeductStars", mock.Anything, mock.Anything, mock.Anything)
	h.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	h.assertExpectations(t)
}

func TestCubeGameService_HandleTurnTimeout_StaleTimerIsNoop(t *testing.T) {
	tests := []struct {
		name  string
		match *models.CubeMatch
	}{
		{"turn moved on", inProgressMatch(models.SeatGuest, 2, intPtr(3))},
		{"match finished", &models.CubeMatch{ID: 7, Player1ID: 1, Player2ID: int64Ptr(2), Status: models.MatchStatusFinished, TurnNumber: 1}},
		{"match gone", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newDuelHarness(t)
			if tt.match == nil {
				h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(nil, nil)
			} else {
				h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(tt.match, nil)
			}

			result, err := h.service.HandleTurnTimeout(h.ctx, TurnTimeout{MatchID: 7, PlayerID: 1, TurnNumber: 1, Seat: models.SeatHost})

			assert.NoError(t, err)
			assert.Nil(t, result)
			h.uow.AssertNotCalled(t, "Commit")
			h.users.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
		})
	}
}

func TestCubeGameService_TimerFiresForfeit(t *testing.T) {
	h := newDuelHarness(t)

	match := inProgressMatch(models.SeatHost, 1, nil)
	leaver := &models.User{ID: 1, TelegramID: 1001, Stars: stars("1")}
	reopened := &models.CubeMatch{ID: 7, Player1ID: 2, Status: models.MatchStatusWaiting, Wager: stars("5"), TurnNumber: 2}

	h.matches.On("GetByIDForUpdate", mock.Anything, int64(7)).Return(match, nil)
	h.users.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(leaver, nil)
	h.matches.On("RecordForfeit", mock.Anything, int64(7), int64(1)).Return(reopened, nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeMatchForfeitedEvent")).Return()
	h.guard.On("Clear", mock.Anything, int64(7)).Return(nil)
	h.expectCommit()

	h.service.armTurnTimer(match)
	h.scheduler.fire(h.scheduler.last())

	h.matches.AssertCalled(t, "RecordForfeit", mock.Anything, int64(7), int64(1))
	h.service.timersMu.Lock()
	assert.Empty(t, h.service.timers)
	h.service.timersMu.Unlock()
}

func TestCubeGameService_ArmTurnTimer_KeepsLaterTurn(t *testing.T) {
	h := newDuelHarness(t)

	h.service.armTurnTimer(inProgressMatch(models.SeatHost, 3, nil))
	later := h.scheduler.last()

	// A slow caller finishing bookkeeping for turn 2 must not replace turn 3's deadline
	h.service.armTurnTimer(inProgressMatch(models.SeatGuest, 2, intPtr(1)))

	assert.Len(t, h.scheduler.armed, 1)
	assert.True(t, later.Pending())

	h.service.disarmTurnTimer(7, 2)
	assert.True(t, later.Pending(), "disarming an earlier turn leaves the later deadline alone")

	h.service.disarmTurnTimer(7, 3)
	assert.False(t, later.Pending())
}

func TestCubeGameService_CancelTable(t *testing.T) {
	h := newDuelHarness(t)

	waiting := &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting, Wager: stars("5")}
	user := &models.User{ID: 1, TelegramID: 1001}

	h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(waiting, nil)
	h.users.On("GetByID", h.ctx, int64(1)).Return(user, nil)
	h.matches.On("Cancel", h.ctx, int64(7)).Return(nil)
	h.bus.On("Publish", mock.AnythingOfType("events.CubeMatchCanceledEvent")).Return()
	h.cooldowns.On("Start", mock.Anything, int64(1001)).Return(nil)
	h.guard.On("Clear", mock.Anything, int64(7)).Return(nil)
	h.expectCommit()

	err := h.service.CancelTable(h.ctx, 7, 1)

	require.NoError(t, err)
	h.assertExpectations(t)
}

func TestCubeGameService_CancelTable_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		match   *models.CubeMatch
		userID  int64
		wantErr error
	}{
		{"not seated at the table", &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusWaiting}, 2, models.ErrMatchNotFound},
		{"host of duel in progress", inProgressMatch(models.SeatHost, 1, nil), 1, models.ErrTableInPlay},
		{"guest of duel in progress", inProgressMatch(models.SeatHost, 1, nil), 2, models.ErrTableInPlay},
		{"already canceled", &models.CubeMatch{ID: 7, Player1ID: 1, Status: models.MatchStatusCanceled}, 1, models.ErrMatchNotFound},
		{"unknown table", nil, 1, models.ErrMatchNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newDuelHarness(t)
			if tt.match == nil {
				h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(nil, nil)
			} else {
				h.matches.On("GetByIDForUpdate", h.ctx, int64(7)).Return(tt.match, nil)
			}

			err := h.service.CancelTable(h.ctx, 7, tt.userID)

			assert.ErrorIs(t, err, tt.wantErr)
			h.cooldowns.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
			h.matches.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
		})
	}
}

func TestCubeGameService_GetLobby(t *testing.T) {
	h := newDuelHarness(t)

	for i, wager := range []string{"1", "5", "10"} {
		h.matches.On("CountWaiting", h.ctx, decEq(wager)).Return(i, nil)
		h.matches.On("CountActivePlayers", h.ctx, decEq(wager)).Return(i*2, nil)
	}

	lobby, err := h.service.GetLobby(h.ctx)

	require.NoError(t, err)
	require.Len(t, lobby, 3)
	assert.True(t, lobby[2].Wager.Equal(stars("10")))
	assert.Equal(t, 2, lobby[2].Waiting)
	assert.Equal(t, 4, lobby[2].Active)
}

func TestCubeGameService_RestoreTurnTimers(t *testing.T) {
	h := newDuelHarness(t)

	first := inProgressMatch(models.SeatHost, 1, nil)
	second := inProgressMatch(models.SeatGuest, 4, intPtr(2))
	second.ID = 8
	h.matches.On("ListInProgress", h.ctx).Return([]*models.CubeMatch{first, second}, nil)

	restored, err := h.service.RestoreTurnTimers(h.ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.Len(t, h.scheduler.armed, 2)

	h.service.Shutdown()
	for _, timer := range h.scheduler.armed {
		assert.False(t, timer.Pending())
	}
}

func TestPayoutFor(t *testing.T) {
	tests := []struct {
		stake      string
		commission string
		want       string
	}{
		{"5", "20", "4"},
		{"10", "20", "8"},
		{"1", "0", "1"},
		{"1", "100", "0"},
		{"2.5", "20", "2"},
		{"0.01", "20", "0.01"},
		{"3.33", "15", "2.83"},
	}

	for _, tt := range tests {
		got := PayoutFor(stars(tt.stake), stars(tt.commission))
		assert.True(t, got.Equal(stars(tt.want)), "stake %s at %s%%: got %s", tt.stake, tt.commission, got)
	}
}
