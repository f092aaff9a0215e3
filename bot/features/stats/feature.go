package stats

import (
	"cubeduel/service"
)

// Feature represents the stats feature
type Feature struct {
	statsService service.StatsService
	isAdmin      func(telegramID int64) bool
}

// NewFeature creates a new stats feature instance
func NewFeature(statsService service.StatsService, isAdmin func(telegramID int64) bool) *Feature {
	return &Feature{
		statsService: statsService,
		isAdmin:      isAdmin,
	}
}
