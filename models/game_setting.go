package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// SettingCubeCommission is the house cut on duel payouts, in percent
	SettingCubeCommission = "cube_commission"
)

// GameSetting is a tunable numeric parameter
type GameSetting struct {
	Key       string          `db:"key"`
	Value     decimal.Decimal `db:"value"`
	UpdatedAt time.Time       `db:"updated_at"`
}
