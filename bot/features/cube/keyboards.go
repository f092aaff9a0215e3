package cube

import (
	"fmt"
	"strconv"
	"strings"

	"cubeduel/bot/common"
	"cubeduel/models"

	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v3"
)

// Callback payloads carried by inline buttons
const (
	CallbackLobby    = "cube_game"
	CallbackRefresh  = "cube_refresh"
	CallbackMainMenu = "main_menu"
	BetPrefix        = "cube_bet_"
	ThrowPrefix      = "throw_cube_"
	CancelPrefix     = "cancel_game_"
)

// LobbyKeyboard lists every wager tier with its waiting tables and seated players
func LobbyKeyboard(lobby []*models.TableCounts) *telebot.ReplyMarkup {
	rows := make([][]telebot.InlineButton, 0, len(lobby)+2)
	for _, tier := range lobby {
		rows = append(rows, []telebot.InlineButton{{
			Text: fmt.Sprintf("Ставка %s ⭐ | ⏳%d | 🎮%d", common.FormatWager(tier.Wager), tier.Waiting, tier.Active),
			Data: BetData(tier.Wager),
		}})
	}
	rows = append(rows,
		[]telebot.InlineButton{{Text: "🔄 Обновить", Data: CallbackRefresh}},
		[]telebot.InlineButton{{Text: "🔙 Назад", Data: CallbackMainMenu}},
	)
	return &telebot.ReplyMarkup{InlineKeyboard: rows}
}

// WaitingKeyboard lets the host leave a table nobody has joined yet
func WaitingKeyboard(matchID int64) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{
		{{Text: "🔙 Выйти", Data: CancelData(matchID)}},
	}}
}

// ThrowKeyboard is sent to the player whose turn it is
func ThrowKeyboard(matchID int64, seat models.Seat) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{
		{{Text: "Бросить кубик 🎲", Data: ThrowData(matchID, seat)}},
	}}
}

// BackToLobbyKeyboard returns the player to the table list
func BackToLobbyKeyboard() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{
		{{Text: "🔙 Вернуться к столам", Data: CallbackLobby}},
	}}
}

// EndGameKeyboard offers a rematch at the same wager
func EndGameKeyboard(wager decimal.Decimal) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{
		{{Text: "🔁 Сыграть ещё", Data: BetData(wager)}},
		{{Text: "🔙 Выйти", Data: CallbackLobby}},
	}}
}

func BetData(wager decimal.Decimal) string {
	return BetPrefix + wager.String()
}

func ThrowData(matchID int64, seat models.Seat) string {
	return fmt.Sprintf("%s%d_%d", ThrowPrefix, matchID, seat)
}

func CancelData(matchID int64) string {
	return fmt.Sprintf("%s%d", CancelPrefix, matchID)
}

// ParseBetData extracts the wager from a cube_bet_<wager> payload
func ParseBetData(data string) (decimal.Decimal, error) {
	raw, ok := strings.CutPrefix(data, BetPrefix)
	if !ok {
		return decimal.Zero, fmt.Errorf("not a bet callback: %q", data)
	}
	wager, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", models.ErrInvalidWager, raw)
	}
	return wager, nil
}

// ParseThrowData extracts the match and seat from a throw_cube_<match>_<seat> payload
func ParseThrowData(data string) (int64, models.Seat, error) {
	raw, ok := strings.CutPrefix(data, ThrowPrefix)
	if !ok {
		return 0, models.SeatNone, fmt.Errorf("not a throw callback: %q", data)
	}
	matchPart, seatPart, ok := strings.Cut(raw, "_")
	if !ok {
		return 0, models.SeatNone, fmt.Errorf("malformed throw callback: %q", data)
	}
	matchID, err := strconv.ParseInt(matchPart, 10, 64)
	if err != nil {
		return 0, models.SeatNone, fmt.Errorf("malformed match id in %q: %w", data, err)
	}
	seatNum, err := strconv.Atoi(seatPart)
	if err != nil {
		return 0, models.SeatNone, fmt.Errorf("malformed seat in %q: %w", data, err)
	}
	seat := models.Seat(seatNum)
	if !seat.Valid() {
		return 0, models.SeatNone, fmt.Errorf("unknown seat %d in %q", seatNum, data)
	}
	return matchID, seat, nil
}

// ParseCancelData extracts the match from a cancel_game_<match> payload
func ParseCancelData(data string) (int64, error) {
	raw, ok := strings.CutPrefix(data, CancelPrefix)
	if !ok {
		return 0, fmt.Errorf("not a cancel callback: %q", data)
	}
	matchID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed match id in %q: %w", data, err)
	}
	return matchID, nil
}
