package cube

import (
	"strings"
	"time"

	"cubeduel/service"

	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v3"
)

// Config holds the duel parameters the chat layer needs
type Config struct {
	TableWagers []decimal.Decimal
	TurnTimeout time.Duration
	ThrowPacing time.Duration
}

// Feature serves the dice duel lobby and table buttons
type Feature struct {
	config      Config
	cubeGame    service.CubeGameService
	userService service.UserService
	sender      Sender
}

// New creates a new cube feature instance
func New(config Config, cubeGame service.CubeGameService, userService service.UserService, sender Sender) *Feature {
	return &Feature{
		config:      config,
		cubeGame:    cubeGame,
		userService: userService,
		sender:      sender,
	}
}

// HandleCommand handles the /cube command
func (f *Feature) HandleCommand(c telebot.Context) error {
	return f.showLobby(c, false)
}

// Handles reports whether the callback payload belongs to this feature
func (f *Feature) Handles(data string) bool {
	return data == CallbackLobby ||
		data == CallbackRefresh ||
		strings.HasPrefix(data, BetPrefix) ||
		strings.HasPrefix(data, ThrowPrefix) ||
		strings.HasPrefix(data, CancelPrefix)
}

// HandleCallback routes cube button presses
func (f *Feature) HandleCallback(c telebot.Context) error {
	data := c.Callback().Data

	switch {
	case data == CallbackLobby:
		if err := c.Respond(); err != nil {
			return err
		}
		return f.showLobby(c, true)
	case data == CallbackRefresh:
		if err := c.Respond(&telebot.CallbackResponse{Text: "Обновлено"}); err != nil {
			return err
		}
		return f.showLobby(c, true)
	case strings.HasPrefix(data, BetPrefix):
		return f.handleBet(c, data)
	case strings.HasPrefix(data, ThrowPrefix):
		return f.handleThrow(c, data)
	case strings.HasPrefix(data, CancelPrefix):
		return f.handleCancel(c, data)
	}
	return c.Respond()
}

func (f *Feature) offersWager(wager decimal.Decimal) bool {
	for _, w := range f.config.TableWagers {
		if w.Equal(wager) {
			return true
		}
	}
	return false
}
