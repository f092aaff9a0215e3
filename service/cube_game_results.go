package service

import (
	"cubeduel/models"

	"github.com/shopspring/decimal"
)

// JoinResult reports where the user was seated
type JoinResult struct {
	Match *models.CubeMatch
	Role  models.Role
}

// TurnOutcomeKind classifies what a throw did to the match
type TurnOutcomeKind string

const (
	OutcomeAwaitingOpponent TurnOutcomeKind = "awaiting_opponent"
	OutcomeTie              TurnOutcomeKind = "tie"
	OutcomeSettled          TurnOutcomeKind = "settled"
)

// TurnOutcome is the result of one accepted throw
type TurnOutcome struct {
	Kind       TurnOutcomeKind
	Match      *models.CubeMatch
	Seat       models.Seat
	Value      int
	HostValue  int
	Settlement *Settlement
}

// Settlement describes the star transfer that finished a match
type Settlement struct {
	WinnerID      int64
	LoserID       int64
	Wager         decimal.Decimal
	Stake         decimal.Decimal // what the loser actually paid, capped at their balance
	Payout        decimal.Decimal
	Commission    decimal.Decimal // house cut taken from the stake
	WinnerBalance decimal.Decimal
	LoserBalance  decimal.Decimal
}

// ForfeitResult describes a table reopened after a turn timeout
type ForfeitResult struct {
	Match       *models.CubeMatch
	LeaverID    int64
	RemainingID int64
	Debited     bool
}
