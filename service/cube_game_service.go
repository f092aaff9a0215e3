package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cubeduel/config"
	"cubeduel/events"
	"cubeduel/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const timeoutHandlerDeadline = 15 * time.Second

// cubeGameService implements the CubeGameService interface
type cubeGameService struct {
	uowFactory UnitOfWorkFactory
	cfg        config.CubeConfig
	guard      ThrowGuard
	cooldowns  CooldownStore
	scheduler  TurnScheduler

	timersMu sync.Mutex
	timers   map[int64]*TurnTimer
}

// NewCubeGameService creates the dice duel engine
func NewCubeGameService(
	uowFactory UnitOfWorkFactory,
	cfg config.CubeConfig,
	guard ThrowGuard,
	cooldowns CooldownStore,
	scheduler TurnScheduler,
) CubeGameService {
	return &cubeGameService{
		uowFactory: uowFactory,
		cfg:        cfg,
		guard:      guard,
		cooldowns:  cooldowns,
		scheduler:  scheduler,
		timers:     make(map[int64]*TurnTimer),
	}
}

// JoinOrCreateTable seats the user at the oldest open table for the wager,
// or opens a new one. Lost races against other joiners are retried.
func (s *cubeGameService) JoinOrCreateTable(ctx context.Context, userID int64, wager decimal.Decimal) (*JoinResult, error) {
	if !wager.IsPositive() || !wager.Equal(wager.Round(2)) {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidWager, wager)
	}

	attempts := s.cfg.JoinRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := s.tryJoinOrCreate(ctx, userID, wager)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, models.ErrInvalidTransition) {
			return nil, err
		}
		lastErr = err
		log.WithFields(log.Fields{
			"user_id": userID,
			"wager":   wager.String(),
			"attempt": attempt,
		}).Debug("Lost table race, searching again")
	}

	return nil, fmt.Errorf("failed to join table after %d attempts: %w", attempts, lastErr)
}

func (s *cubeGameService) tryJoinOrCreate(ctx context.Context, userID int64, wager decimal.Decimal) (*JoinResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Locking the user row serializes concurrent joins by the same player
	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	if user.IsBanned {
		return nil, models.ErrUserBanned
	}

	remaining, err := s.cooldowns.Remaining(ctx, user.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to check cooldown: %w", err)
	}
	if remaining > 0 {
		return nil, &models.CooldownError{Remaining: remaining}
	}

	active, err := uow.CubeMatchRepository().ActiveMatchFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active match: %w", err)
	}
	if active != nil {
		return nil, models.ErrAlreadyInMatch
	}

	// Checked, not escrowed; stars only move at settlement or forfeit
	if !user.CanCover(wager) {
		return nil, models.ErrInsufficientBalance
	}

	open, err := uow.CubeMatchRepository().FindOpenTable(ctx, wager, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find open table: %w", err)
	}

	if open != nil {
		if !open.CanSeatSecondPlayer(userID) {
			return nil, fmt.Errorf("%w: table %d cannot seat user %d", models.ErrInvalidTransition, open.ID, userID)
		}
		match, err := uow.CubeMatchRepository().SeatSecondPlayer(ctx, open.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to seat second player: %w", err)
		}

		uow.EventBus().Publish(events.CubeMatchStartedEvent{
			MatchID: match.ID,
			HostID:  match.Player1ID,
			GuestID: userID,
			Wager:   match.Wager,
		})

		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		s.armTurnTimer(match)

		log.WithFields(log.Fields{
			"match_id": match.ID,
			"host_id":  match.Player1ID,
			"guest_id": userID,
			"wager":    wager.String(),
		}).Info("Cube match started")

		return &JoinResult{Match: match, Role: models.RoleGuest}, nil
	}

	match, err := uow.CubeMatchRepository().OpenTable(ctx, userID, wager)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}

	uow.EventBus().Publish(events.CubeMatchOpenedEvent{
		MatchID: match.ID,
		HostID:  userID,
		Wager:   match.Wager,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"match_id": match.ID,
		"host_id":  userID,
		"wager":    wager.String(),
	}).Info("Cube table opened")

	return &JoinResult{Match: match, Role: models.RoleHost}, nil
}

// SubmitThrow rolls for the seat whose turn it is and advances the duel
func (s *cubeGameService) SubmitThrow(ctx context.Context, matchID int64, seat models.Seat, userID int64, source RandomSource) (*TurnOutcome, error) {
	if !seat.Valid() {
		return nil, models.ErrNotYourTurn
	}

	acquired, err := s.guard.Acquire(ctx, matchID, seat)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire throw guard: %w", err)
	}
	if !acquired {
		return nil, models.ErrAlreadyActing
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), matchID, seat); err != nil {
			log.WithError(err).WithField("match_id", matchID).Warn("Failed to release throw guard")
		}
	}()

	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, models.ErrMatchNotFound
	}
	if !match.IsTurnOf(userID, seat) {
		return nil, models.ErrNotYourTurn
	}

	// The player has acted, so their deadline no longer applies
	s.disarmTurnTimer(matchID, match.TurnNumber)

	value, err := source.Roll(ctx)
	if err == nil && !validFace(value) {
		err = fmt.Errorf("die returned face %d", value)
	}
	if err != nil {
		s.armTurnTimer(match)
		return nil, fmt.Errorf("failed to roll die: %w", err)
	}

	outcome, err := s.applyThrow(ctx, matchID, seat, userID, match.TurnNumber, value)
	if err != nil {
		if !errors.Is(err, models.ErrNotYourTurn) && !errors.Is(err, models.ErrMatchNotFound) {
			// Storage failed; keep the match from stalling without a deadline
			s.armTurnTimer(match)
		}
		return nil, err
	}

	switch outcome.Kind {
	case OutcomeAwaitingOpponent, OutcomeTie:
		s.armTurnTimer(outcome.Match)
	case OutcomeSettled:
		s.disarmTurnTimer(matchID, outcome.Match.TurnNumber)
		if err := s.guard.Clear(context.WithoutCancel(ctx), matchID); err != nil {
			log.WithError(err).WithField("match_id", matchID).Warn("Failed to clear throw guard")
		}
	}

	return outcome, nil
}

// applyThrow records one die value under the match row lock
func (s *cubeGameService) applyThrow(ctx context.Context, matchID int64, seat models.Seat, userID int64, turnNumber int, value int) (*TurnOutcome, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.CubeMatchRepository().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	if match == nil {
		return nil, models.ErrMatchNotFound
	}
	// A timeout or a concurrent throw may have moved the match while the die was rolling
	if match.TurnNumber != turnNumber || !match.IsTurnOf(userID, seat) {
		return nil, models.ErrNotYourTurn
	}

	var outcome *TurnOutcome
	if seat == models.SeatHost {
		outcome, err = s.recordHostThrow(ctx, uow, match, value)
	} else {
		outcome, err = s.resolveRound(ctx, uow, match, value)
	}
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return outcome, nil
}

func (s *cubeGameService) recordHostThrow(ctx context.Context, uow UnitOfWork, match *models.CubeMatch, value int) (*TurnOutcome, error) {
	updated, err := uow.CubeMatchRepository().RecordThrow(ctx, match.ID, match.TurnNumber, value)
	if err != nil {
		return nil, fmt.Errorf("failed to record throw: %w", err)
	}

	uow.EventBus().Publish(events.CubeThrowRecordedEvent{
		MatchID:  match.ID,
		Seat:     models.SeatHost,
		PlayerID: match.Player1ID,
		NextID:   updated.PlayerAt(models.SeatGuest),
		Value:    value,
	})

	return &TurnOutcome{
		Kind:      OutcomeAwaitingOpponent,
		Match:     updated,
		Seat:      models.SeatHost,
		Value:     value,
		HostValue: value,
	}, nil
}

func (s *cubeGameService) resolveRound(ctx context.Context, uow UnitOfWork, match *models.CubeMatch, guestValue int) (*TurnOutcome, error) {
	if match.FirstValue == nil {
		return nil, fmt.Errorf("match %d has no host value on the guest turn", match.ID)
	}
	hostValue := *match.FirstValue
	guestID := match.PlayerAt(models.SeatGuest)

	if hostValue == guestValue {
		updated, err := uow.CubeMatchRepository().ResetRound(ctx, match.ID, match.TurnNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to reset round: %w", err)
		}

		uow.EventBus().Publish(events.CubeRoundTiedEvent{
			MatchID: match.ID,
			HostID:  match.Player1ID,
			GuestID: guestID,
			Value:   guestValue,
		})

		return &TurnOutcome{
			Kind:      OutcomeTie,
			Match:     updated,
			Seat:      models.SeatGuest,
			Value:     guestValue,
			HostValue: hostValue,
		}, nil
	}

	winnerID, loserID := match.Player1ID, guestID
	if guestValue > hostValue {
		winnerID, loserID = guestID, match.Player1ID
	}

	settlement, err := s.settle(ctx, uow, match, winnerID, loserID)
	if err != nil {
		return nil, err
	}

	if err := uow.CubeMatchRepository().Finish(ctx, match.ID, winnerID); err != nil {
		return nil, fmt.Errorf("failed to finish match: %w", err)
	}

	finished := *match
	finished.Status = models.MatchStatusFinished
	finished.WinnerID = &winnerID
	finished.CurrentTurn = models.SeatNone

	uow.EventBus().Publish(events.CubeMatchSettledEvent{
		MatchID:       match.ID,
		WinnerID:      winnerID,
		LoserID:       loserID,
		HostValue:     hostValue,
		GuestValue:    guestValue,
		Wager:         match.Wager,
		Stake:         settlement.Stake,
		Payout:        settlement.Payout,
		Commission:    settlement.Commission,
		WinnerBalance: settlement.WinnerBalance,
		LoserBalance:  settlement.LoserBalance,
	})

	log.WithFields(log.Fields{
		"match_id":   match.ID,
		"winner_id":  winnerID,
		"loser_id":   loserID,
		"stake":      settlement.Stake.String(),
		"payout":     settlement.Payout.String(),
		"commission": settlement.Commission.String(),
	}).Info("Cube match settled")

	return &TurnOutcome{
		Kind:       OutcomeSettled,
		Match:      &finished,
		Seat:       models.SeatGuest,
		Value:      guestValue,
		HostValue:  hostValue,
		Settlement: settlement,
	}, nil
}

// settle moves stars from loser to winner less the house commission.
// A loser who can no longer cover the wager pays what they hold.
func (s *cubeGameService) settle(ctx context.Context, uow UnitOfWork, match *models.CubeMatch, winnerID, loserID int64) (*Settlement, error) {
	commission, err := settingOrDefault(ctx, uow, models.SettingCubeCommission, s.cfg.DefaultCommission)
	if err != nil {
		return nil, err
	}

	users, err := lockUsers(ctx, uow, winnerID, loserID)
	if err != nil {
		return nil, err
	}
	winner, loser := users[winnerID], users[loserID]

	stake := match.Wager
	if !loser.CanCover(stake) {
		log.WithFields(log.Fields{
			"match_id": match.ID,
			"loser_id": loserID,
			"wager":    match.Wager.String(),
			"balance":  loser.Stars.String(),
		}).Warn("Loser cannot cover wager, capping stake at balance")
		stake = loser.Stars
	}

	payout := PayoutFor(stake, commission)
	result := &Settlement{
		WinnerID:      winnerID,
		LoserID:       loserID,
		Wager:         match.Wager,
		Stake:         stake,
		Payout:        payout,
		Commission:    stake.Sub(payout),
		WinnerBalance: winner.Stars,
		LoserBalance:  loser.Stars,
	}

	relatedID, relatedType := cubeMatchRelation(match.ID)
	metadata := map[string]any{
		"wager":          match.Wager.String(),
		"commission_pct": commission.String(),
		"opponent_id":    winnerID,
	}

	if stake.IsPositive() {
		history, err := DebitStars(ctx, uow, LedgerEntry{
			UserID:          loserID,
			Amount:          stake,
			TransactionType: models.TransactionTypeCubeLoss,
			Metadata:        metadata,
			RelatedID:       relatedID,
			RelatedType:     relatedType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to debit loser: %w", err)
		}
		result.LoserBalance = history.BalanceAfter
	}

	if payout.IsPositive() {
		history, err := CreditStars(ctx, uow, LedgerEntry{
			UserID:          winnerID,
			Amount:          payout,
			TransactionType: models.TransactionTypeCubeWin,
			Metadata: map[string]any{
				"wager":          match.Wager.String(),
				"commission_pct": commission.String(),
				"opponent_id":    loserID,
			},
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit winner: %w", err)
		}
		result.WinnerBalance = history.BalanceAfter
	}

	return result, nil
}

// PayoutFor returns what the winner receives for a stake at the given commission percent
func PayoutFor(stake, commissionPercent decimal.Decimal) decimal.Decimal {
	keep := hundred.Sub(commissionPercent).Div(hundred)
	return stake.Mul(keep).Round(2)
}

// lockUsers locks the given user rows in ascending id order so that
// concurrent settlements cannot deadlock on each other
func lockUsers(ctx context.Context, uow UnitOfWork, ids ...int64) (map[int64]*models.User, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	users := make(map[int64]*models.User, len(sorted))
	for _, id := range sorted {
		user, err := uow.UserRepository().GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
		}
		if user == nil {
			return nil, fmt.Errorf("%w: %d", models.ErrUserNotFound, id)
		}
		users[id] = user
	}
	return users, nil
}

// CancelTable closes a waiting table at its host's request
func (s *cubeGameService) CancelTable(ctx context.Context, matchID int64, userID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.CubeMatchRepository().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to lock match: %w", err)
	}
	if match == nil || !match.IsOpen() || !match.IsParticipant(userID) {
		return models.ErrMatchNotFound
	}
	if !match.CanBeCanceledBy(userID) {
		return fmt.Errorf("%w: table %d, user %d", models.ErrTableInPlay, matchID, userID)
	}

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return models.ErrUserNotFound
	}

	if err := uow.CubeMatchRepository().Cancel(ctx, matchID); err != nil {
		return fmt.Errorf("failed to cancel match: %w", err)
	}

	uow.EventBus().Publish(events.CubeMatchCanceledEvent{
		MatchID: matchID,
		HostID:  userID,
		Wager:   match.Wager,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.cooldowns.Start(context.WithoutCancel(ctx), user.TelegramID); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to start rejoin cooldown")
	}
	if err := s.guard.Clear(context.WithoutCancel(ctx), matchID); err != nil {
		log.WithError(err).WithField("match_id", matchID).Warn("Failed to clear throw guard")
	}

	log.WithFields(log.Fields{
		"match_id": matchID,
		"user_id":  userID,
	}).Info("Cube table canceled")

	return nil
}

// GetTableCounts returns the lobby figures for one wager
func (s *cubeGameService) GetTableCounts(ctx context.Context, wager decimal.Decimal) (*models.TableCounts, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return tableCounts(ctx, uow, wager)
}

// GetLobby returns the lobby figures for every configured wager
func (s *cubeGameService) GetLobby(ctx context.Context) ([]*models.TableCounts, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lobby := make([]*models.TableCounts, 0, len(s.cfg.TableWagers))
	for _, wager := range s.cfg.TableWagers {
		counts, err := tableCounts(ctx, uow, wager)
		if err != nil {
			return nil, err
		}
		lobby = append(lobby, counts)
	}
	return lobby, nil
}

func tableCounts(ctx context.Context, uow UnitOfWork, wager decimal.Decimal) (*models.TableCounts, error) {
	waiting, err := uow.CubeMatchRepository().CountWaiting(ctx, wager)
	if err != nil {
		return nil, fmt.Errorf("failed to count waiting tables: %w", err)
	}
	active, err := uow.CubeMatchRepository().CountActivePlayers(ctx, wager)
	if err != nil {
		return nil, fmt.Errorf("failed to count active players: %w", err)
	}
	return &models.TableCounts{Wager: wager, Waiting: waiting, Active: active}, nil
}

// GetMatch returns nil when the match does not exist
func (s *cubeGameService) GetMatch(ctx context.Context, matchID int64) (*models.CubeMatch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.CubeMatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// ActiveMatchFor returns nil when the user is not seated anywhere
func (s *cubeGameService) ActiveMatchFor(ctx context.Context, userID int64) (*models.CubeMatch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.CubeMatchRepository().ActiveMatchFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active match: %w", err)
	}
	return match, nil
}

// HandleTurnTimeout forfeits the acting player and reopens the table.
// It returns nil without error when the turn has already moved on.
func (s *cubeGameService) HandleTurnTimeout(ctx context.Context, timeout TurnTimeout) (*ForfeitResult, error) {
	logger := log.WithFields(log.Fields{
		"match_id":    timeout.MatchID,
		"player_id":   timeout.PlayerID,
		"turn_number": timeout.TurnNumber,
	})

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.CubeMatchRepository().GetByIDForUpdate(ctx, timeout.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	if match == nil || match.Status != models.MatchStatusInProgress ||
		match.TurnNumber != timeout.TurnNumber || match.ActorID() != timeout.PlayerID {
		logger.Debug("Turn timer fired for a turn that already moved on")
		return nil, nil
	}

	leaver, err := uow.UserRepository().GetByIDForUpdate(ctx, timeout.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock leaver: %w", err)
	}

	debited := false
	if leaver != nil && leaver.CanCover(match.Wager) {
		relatedID, relatedType := cubeMatchRelation(match.ID)
		_, err := DebitStars(ctx, uow, LedgerEntry{
			UserID:          timeout.PlayerID,
			Amount:          match.Wager,
			TransactionType: models.TransactionTypeCubeForfeit,
			Metadata: map[string]any{
				"wager":       match.Wager.String(),
				"turn_number": match.TurnNumber,
			},
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to debit forfeiting player: %w", err)
		}
		debited = true
	} else {
		logger.Warn("Forfeiting player cannot cover wager, skipping debit")
	}

	reopened, err := uow.CubeMatchRepository().RecordForfeit(ctx, match.ID, timeout.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen table: %w", err)
	}

	uow.EventBus().Publish(events.CubeMatchForfeitedEvent{
		MatchID:     match.ID,
		LeaverID:    timeout.PlayerID,
		RemainingID: reopened.Player1ID,
		Wager:       match.Wager,
		Debited:     debited,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.guard.Clear(context.WithoutCancel(ctx), match.ID); err != nil {
		logger.WithError(err).Warn("Failed to clear throw guard")
	}

	logger.WithFields(log.Fields{
		"remaining_id": reopened.Player1ID,
		"debited":      debited,
	}).Info("Player forfeited by timeout, table reopened")

	return &ForfeitResult{
		Match:       reopened,
		LeaverID:    timeout.PlayerID,
		RemainingID: reopened.Player1ID,
		Debited:     debited,
	}, nil
}

// RestoreTurnTimers gives every in-progress match a fresh deadline
func (s *cubeGameService) RestoreTurnTimers(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	matches, err := uow.CubeMatchRepository().ListInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list in-progress matches: %w", err)
	}

	for _, match := range matches {
		s.armTurnTimer(match)
	}
	return len(matches), nil
}

// Shutdown cancels every pending turn timer
func (s *cubeGameService) Shutdown() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	for id, timer := range s.timers {
		s.scheduler.Cancel(timer)
		delete(s.timers, id)
	}
}

// armTurnTimer gives the current actor a fresh deadline. A handle for a later
// turn is never replaced by one for an earlier turn.
func (s *cubeGameService) armTurnTimer(match *models.CubeMatch) {
	if match == nil || match.Status != models.MatchStatusInProgress {
		return
	}

	timeout := TurnTimeout{
		MatchID:    match.ID,
		Seat:       match.CurrentTurn,
		PlayerID:   match.ActorID(),
		OpponentID: match.PlayerAt(match.CurrentTurn.Other()),
		TurnNumber: match.TurnNumber,
		Wager:      match.Wager,
	}

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if existing, ok := s.timers[match.ID]; ok {
		if existing.Timeout().TurnNumber > timeout.TurnNumber {
			return
		}
		s.scheduler.Cancel(existing)
	}
	s.timers[match.ID] = s.scheduler.Arm(s.cfg.TurnTimeout, timeout, s.onTurnTimeout)
}

// disarmTurnTimer cancels the match's timer if it belongs to turnNumber or earlier
func (s *cubeGameService) disarmTurnTimer(matchID int64, turnNumber int) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	existing, ok := s.timers[matchID]
	if !ok || existing.Timeout().TurnNumber > turnNumber {
		return
	}
	s.scheduler.Cancel(existing)
	delete(s.timers, matchID)
}

func (s *cubeGameService) onTurnTimeout(timeout TurnTimeout) {
	s.timersMu.Lock()
	if existing, ok := s.timers[timeout.MatchID]; ok && existing.Timeout().TurnNumber == timeout.TurnNumber {
		delete(s.timers, timeout.MatchID)
	}
	s.timersMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutHandlerDeadline)
	defer cancel()

	if _, err := s.HandleTurnTimeout(ctx, timeout); err != nil {
		log.WithError(err).WithField("match_id", timeout.MatchID).Error("Failed to handle turn timeout")
	}
}
