package balance

import (
	"cubeduel/service"

	"gopkg.in/telebot.v3"
)

// CallbackBalance is the payload of the main menu balance button
const CallbackBalance = "balance"

type Feature struct {
	userService  service.UserService
	statsService service.StatsService
}

func New(userService service.UserService, statsService service.StatsService) *Feature {
	return &Feature{
		userService:  userService,
		statsService: statsService,
	}
}

func (f *Feature) HandleCommand(c telebot.Context) error {
	return f.handleBalance(c, false)
}

func (f *Feature) HandleCallback(c telebot.Context) error {
	if err := c.Respond(); err != nil {
		return err
	}
	return f.handleBalance(c, true)
}
