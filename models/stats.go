package models

import "github.com/shopspring/decimal"

// CubeGameStats represents aggregated statistics over finished duels
type CubeGameStats struct {
	TotalGames        int
	TotalWagered      decimal.Decimal
	TotalWon          decimal.Decimal
	TotalLost         decimal.Decimal
	BotCommission     decimal.Decimal
	CommissionPercent decimal.Decimal
}

// UserCubeStats represents one user's duel record
type UserCubeStats struct {
	UserID      int64
	GamesPlayed int
	Wins        int
	Losses      int
	Forfeits    int
	NetStars    decimal.Decimal
}

// WinRate returns the share of played games the user won, in percent
func (s *UserCubeStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}
