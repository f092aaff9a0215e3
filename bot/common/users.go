package common

import (
	"context"

	"cubeduel/models"
	"cubeduel/service"

	"gopkg.in/telebot.v3"
)

// UserKey is where middleware stores the registered user of an update
const UserKey = "cubeduel.user"

// StoredUser returns the user attached to the update by middleware, if any
func StoredUser(c telebot.Context) *models.User {
	user, _ := c.Get(UserKey).(*models.User)
	return user
}

// CurrentUser returns the user behind the update, registering them on first contact
func CurrentUser(ctx context.Context, c telebot.Context, users service.UserService) (*models.User, error) {
	if user := StoredUser(c); user != nil {
		return user, nil
	}

	sender := c.Sender()
	if sender == nil {
		return nil, models.ErrUserNotFound
	}

	user, err := users.GetOrCreateUser(ctx, sender.ID, sender.Username)
	if err != nil {
		return nil, err
	}
	c.Set(UserKey, user)
	return user, nil
}

// Recipient addresses the private chat of a Telegram account
func Recipient(telegramID int64) telebot.Recipient {
	return &telebot.User{ID: telegramID}
}
