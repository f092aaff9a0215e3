package httpapi

import (
	"time"

	"cubeduel/models"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type TableResponse struct {
	Wager   string `json:"wager"`
	Waiting int    `json:"waiting"`
	Active  int    `json:"active"`
}

type StatsResponse struct {
	TotalGames        int    `json:"total_games"`
	TotalWagered      string `json:"total_wagered"`
	TotalWon          string `json:"total_won"`
	TotalLost         string `json:"total_lost"`
	BotCommission     string `json:"bot_commission"`
	CommissionPercent string `json:"commission_percent"`
}

type SettingResponse struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

type AdjustStarsRequest struct {
	Delta  string `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type SetBannedRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

type UserResponse struct {
	ID          int64   `json:"id"`
	TelegramID  int64   `json:"telegram_id"`
	Username    string  `json:"username"`
	Stars       string  `json:"stars"`
	IsBanned    bool    `json:"is_banned"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
	Forfeits    int     `json:"forfeits"`
	WinRate     float64 `json:"win_rate"`
	NetStars    string  `json:"net_stars"`
}

func newTableResponse(counts *models.TableCounts) TableResponse {
	return TableResponse{
		Wager:   counts.Wager.String(),
		Waiting: counts.Waiting,
		Active:  counts.Active,
	}
}

func newSettingResponse(setting *models.GameSetting) SettingResponse {
	resp := SettingResponse{Key: setting.Key, Value: setting.Value.String()}
	if !setting.UpdatedAt.IsZero() {
		updated := setting.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func newUserResponse(user *models.User, stats *models.UserCubeStats) UserResponse {
	resp := UserResponse{
		ID:         user.ID,
		TelegramID: user.TelegramID,
		Username:   user.Username,
		Stars:      user.Stars.StringFixed(2),
		IsBanned:   user.IsBanned,
		NetStars:   "0.00",
	}
	if stats != nil {
		resp.GamesPlayed = stats.GamesPlayed
		resp.Wins = stats.Wins
		resp.Forfeits = stats.Forfeits
		resp.WinRate = stats.WinRate()
		resp.NetStars = stats.NetStars.StringFixed(2)
	}
	return resp
}
