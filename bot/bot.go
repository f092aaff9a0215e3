package bot

import (
	"context"
	"fmt"
	"time"

	"cubeduel/bot/common"
	"cubeduel/bot/features/balance"
	"cubeduel/bot/features/cube"
	"cubeduel/bot/features/settings"
	"cubeduel/bot/features/stats"
	"cubeduel/events"
	"cubeduel/service"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Config holds bot configuration
type Config struct {
	Token             string
	PollTimeout       time.Duration
	Cube              cube.Config
	DefaultCommission decimal.Decimal
	IsAdmin           func(telegramID int64) bool
}

type Bot struct {
	config      Config
	tb          *telebot.Bot
	userService service.UserService
	cubeGame    service.CubeGameService

	cube     *cube.Feature
	balance  *balance.Feature
	settings *settings.Feature
	stats    *stats.Feature
}

func New(config Config, userService service.UserService, cubeGame service.CubeGameService, statsService service.StatsService, settingsService service.GameSettingsService, eventBus *events.Bus) (*Bot, error) {
	if config.PollTimeout <= 0 {
		config.PollTimeout = 10 * time.Second
	}
	if config.IsAdmin == nil {
		config.IsAdmin = func(int64) bool { return false }
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:     config.Token,
		Poller:    &telebot.LongPoller{Timeout: config.PollTimeout},
		ParseMode: telebot.ModeHTML,
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("telegram_id", c.Sender().ID)
			}
			entry.Error("Unhandled error in telegram handler")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	bot := &Bot{
		config:      config,
		tb:          tb,
		userService: userService,
		cubeGame:    cubeGame,
		cube:        cube.New(config.Cube, cubeGame, userService, tb),
		balance:     balance.New(userService, statsService),
		settings:    settings.NewFeature(settingsService, config.DefaultCommission, config.IsAdmin),
		stats:       stats.NewFeature(statsService, config.IsAdmin),
	}

	bot.registerHandlers()

	cube.NewNotifier(tb, userService, config.Cube.TurnTimeout).Subscribe(eventBus)

	return bot, nil
}

// Start begins long polling in the background
func (b *Bot) Start() {
	go b.tb.Start()
	log.WithField("username", b.tb.Me.Username).Info("Telegram bot started")
}

// Close stops polling and waits for the poller to exit
func (b *Bot) Close() error {
	b.tb.Stop()
	return nil
}

func (b *Bot) registerHandlers() {
	b.tb.Use(b.loadUser, b.rejectBanned, b.blockWhilePlaying)

	// Commands
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/cube", b.cube.HandleCommand)
	b.tb.Handle("/balance", b.balance.HandleCommand)
	b.tb.Handle("/commission", b.settings.HandleCommission)
	b.tb.Handle("/cubestats", b.stats.HandleCubeStats)

	// Inline buttons carry plain payloads, so they all arrive here
	b.tb.Handle(telebot.OnCallback, b.handleCallback)
}

func (b *Bot) handleCallback(c telebot.Context) error {
	data := c.Callback().Data

	switch {
	case b.cube.Handles(data):
		return b.cube.HandleCallback(c)
	case data == balance.CallbackBalance:
		return b.balance.HandleCallback(c)
	case data == cube.CallbackMainMenu:
		if err := c.Respond(); err != nil {
			return err
		}
		return b.showMainMenu(c, true)
	}

	log.WithField("callback", data).Debug("Ignoring unknown callback")
	return c.Respond()
}

// handleStart registers the player and shows the main menu
func (b *Bot) handleStart(c telebot.Context) error {
	return b.showMainMenu(c, false)
}

func (b *Bot) showMainMenu(c telebot.Context, edit bool) error {
	user, err := common.CurrentUser(context.Background(), c, b.userService)
	if err != nil {
		return common.HandleError(c, err, "Failed to register user")
	}

	text := fmt.Sprintf("👋 Привет, %s!\n\nВаш баланс: <b>%s ⭐</b>", common.DisplayName(user), common.FormatStars(user.Stars))
	markup := mainMenuKeyboard()
	if edit {
		return c.Edit(text, markup)
	}
	return c.Send(text, markup)
}

func mainMenuKeyboard() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{
		{{Text: "🎲 Кубики", Data: cube.CallbackLobby}},
		{{Text: "💰 Баланс", Data: balance.CallbackBalance}},
	}}
}
