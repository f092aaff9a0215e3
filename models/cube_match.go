package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus represents the lifecycle state of a cube match
type MatchStatus string

const (
	MatchStatusWaiting    MatchStatus = "waiting"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusCanceled   MatchStatus = "canceled"
)

// Seat is a player's position at the table. Seat 1 always throws first.
type Seat int

const (
	SeatNone  Seat = 0
	SeatHost  Seat = 1
	SeatGuest Seat = 2
)

// Other returns the opposite seat
func (s Seat) Other() Seat {
	switch s {
	case SeatHost:
		return SeatGuest
	case SeatGuest:
		return SeatHost
	default:
		return SeatNone
	}
}

// Valid reports whether the seat is one of the two playable seats
func (s Seat) Valid() bool {
	return s == SeatHost || s == SeatGuest
}

// Role describes how a player entered a match
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// CubeMatch represents one dice duel table
type CubeMatch struct {
	ID          int64           `db:"id"`
	Player1ID   int64           `db:"player1_id"`
	Player2ID   *int64          `db:"player2_id"`
	WinnerID    *int64          `db:"winner_id"`
	Status      MatchStatus     `db:"status"`
	Wager       decimal.Decimal `db:"wager"`
	CurrentTurn Seat            `db:"current_turn"`
	FirstValue  *int            `db:"first_value"`
	TurnNumber  int             `db:"turn_number"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// IsOpen reports whether the match still occupies its players
func (m *CubeMatch) IsOpen() bool {
	return m.Status == MatchStatusWaiting || m.Status == MatchStatusInProgress
}

// IsParticipant checks if a user is seated at the table
func (m *CubeMatch) IsParticipant(userID int64) bool {
	return m.SeatOf(userID) != SeatNone
}

// SeatOf returns the seat the user occupies, or SeatNone
func (m *CubeMatch) SeatOf(userID int64) Seat {
	if m.Player1ID == userID {
		return SeatHost
	}
	if m.Player2ID != nil && *m.Player2ID == userID {
		return SeatGuest
	}
	return SeatNone
}

// PlayerAt returns the user seated at the given seat, or 0 when empty
func (m *CubeMatch) PlayerAt(seat Seat) int64 {
	switch seat {
	case SeatHost:
		return m.Player1ID
	case SeatGuest:
		if m.Player2ID != nil {
			return *m.Player2ID
		}
	}
	return 0
}

// OpponentOf returns the other player's ID for a given participant, or 0
func (m *CubeMatch) OpponentOf(userID int64) int64 {
	seat := m.SeatOf(userID)
	if seat == SeatNone {
		return 0
	}
	return m.PlayerAt(seat.Other())
}

// ActorID returns the user expected to throw next, or 0 when nobody is
func (m *CubeMatch) ActorID() int64 {
	if m.Status != MatchStatusInProgress {
		return 0
	}
	return m.PlayerAt(m.CurrentTurn)
}

// IsTurnOf checks whether the given user may throw from the given seat right now
func (m *CubeMatch) IsTurnOf(userID int64, seat Seat) bool {
	return m.Status == MatchStatusInProgress &&
		m.CurrentTurn == seat &&
		m.PlayerAt(seat) == userID
}

// CanSeatSecondPlayer checks if another user may take the guest seat
func (m *CubeMatch) CanSeatSecondPlayer(userID int64) bool {
	return m.Status == MatchStatusWaiting && m.Player2ID == nil && m.Player1ID != userID
}

// CanBeCanceledBy checks if the table can be closed by the given user
func (m *CubeMatch) CanBeCanceledBy(userID int64) bool {
	return m.Status == MatchStatusWaiting && m.Player2ID == nil && m.Player1ID == userID
}

// TableCounts is the lobby view for one wager tier
type TableCounts struct {
	Wager   decimal.Decimal
	Waiting int
	Active  int
}
