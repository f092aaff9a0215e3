package settings

import (
	"cubeduel/service"

	"github.com/shopspring/decimal"
)

// Feature lets administrators tune game settings from chat
type Feature struct {
	settingsService   service.GameSettingsService
	defaultCommission decimal.Decimal
	isAdmin           func(telegramID int64) bool
}

// NewFeature creates a new settings feature instance
func NewFeature(settingsService service.GameSettingsService, defaultCommission decimal.Decimal, isAdmin func(telegramID int64) bool) *Feature {
	return &Feature{
		settingsService:   settingsService,
		defaultCommission: defaultCommission,
		isAdmin:           isAdmin,
	}
}
