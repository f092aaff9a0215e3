// Package bottest provides Telegram fakes for handler and middleware tests.
package bottest

import (
	"strings"
	"sync"

	"gopkg.in/telebot.v3"
)

// Reply is one message the handler sent, edited or answered
type Reply struct {
	Text   string
	Markup *telebot.ReplyMarkup
	Alert  bool
}

// Context is a telebot.Context backed by plain fields. Methods not
// overridden here panic through the nil embedded interface.
type Context struct {
	telebot.Context

	User      *telebot.User
	CbQuery   *telebot.Callback
	Msg       *telebot.Message
	Arguments []string

	mu        sync.Mutex
	store     map[string]interface{}
	Sent      []Reply
	Edited    []Reply
	Responses []Reply
}

var _ telebot.Context = (*Context)(nil)

// NewMessage builds a context for a text message or command from telegramID
func NewMessage(telegramID int64, username string, args ...string) *Context {
	return &Context{
		User:      &telebot.User{ID: telegramID, Username: username},
		Msg:       &telebot.Message{ID: 1, Chat: &telebot.Chat{ID: telegramID}},
		Arguments: args,
	}
}

// NewCallback builds a context for an inline button press
func NewCallback(telegramID int64, username, data string) *Context {
	c := NewMessage(telegramID, username)
	c.CbQuery = &telebot.Callback{ID: "cb", Data: data, Message: c.Msg}
	return c
}

func (c *Context) Sender() *telebot.User       { return c.User }
func (c *Context) Callback() *telebot.Callback { return c.CbQuery }
func (c *Context) Message() *telebot.Message   { return c.Msg }
func (c *Context) Args() []string              { return c.Arguments }

func (c *Context) Chat() *telebot.Chat {
	if c.Msg == nil {
		return nil
	}
	return c.Msg.Chat
}

func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = val
}

func (c *Context) Send(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, toReply(what, opts))
	return nil
}

func (c *Context) Edit(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edited = append(c.Edited, toReply(what, opts))
	return nil
}

func (c *Context) Respond(resp ...*telebot.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply := Reply{}
	if len(resp) > 0 && resp[0] != nil {
		reply.Text = resp[0].Text
		reply.Alert = resp[0].ShowAlert
	}
	c.Responses = append(c.Responses, reply)
	return nil
}

// LastText returns the most recent sent or edited text
func (c *Context) LastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.Edited); n > 0 {
		return c.Edited[n-1].Text
	}
	if n := len(c.Sent); n > 0 {
		return c.Sent[n-1].Text
	}
	return ""
}

func toReply(what interface{}, opts []interface{}) Reply {
	reply := Reply{}
	switch v := what.(type) {
	case string:
		reply.Text = v
	case *telebot.ReplyMarkup:
		reply.Markup = v
	}
	for _, opt := range opts {
		if markup, ok := opt.(*telebot.ReplyMarkup); ok {
			reply.Markup = markup
		}
	}
	return reply
}

// Sender records messages pushed to chats outside of an update
type Sender struct {
	mu       sync.Mutex
	Messages []Outgoing
	// DiceValue is returned for every dice sent
	DiceValue  int
	Err        error
	ForwardErr error
}

// Outgoing is one message delivered through Sender
type Outgoing struct {
	ChatID string
	Reply
	// Dice is set when a die was sent or forwarded
	Dice      bool
	Forwarded bool
}

func (s *Sender) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	msg := &telebot.Message{ID: len(s.Messages) + 1}
	out := Outgoing{ChatID: to.Recipient(), Reply: toReply(what, opts)}
	if dice, ok := what.(*telebot.Dice); ok {
		msg.Dice = &telebot.Dice{Type: dice.Type, Value: s.DiceValue}
		out.Dice = true
	}
	s.Messages = append(s.Messages, out)
	return msg, nil
}

func (s *Sender) Forward(to telebot.Recipient, msg telebot.Editable, opts ...interface{}) (*telebot.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ForwardErr != nil {
		return nil, s.ForwardErr
	}
	out := Outgoing{ChatID: to.Recipient(), Forwarded: true}
	forwarded := &telebot.Message{ID: len(s.Messages) + 1}
	if original, ok := msg.(*telebot.Message); ok && original.Dice != nil {
		forwarded.Dice = original.Dice
		out.Dice = true
	}
	s.Messages = append(s.Messages, out)
	return forwarded, nil
}

// DiceChats returns the chats that received a die, in delivery order
func (s *Sender) DiceChats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chats []string
	for _, m := range s.Messages {
		if m.Dice {
			chats = append(chats, m.ChatID)
		}
	}
	return chats
}

// To returns the texts delivered to one chat
func (s *Sender) To(chatID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var texts []string
	for _, m := range s.Messages {
		if m.ChatID == chatID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// Count returns how many messages were delivered
func (s *Sender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Messages)
}

// ButtonData flattens an inline keyboard into its callback payloads
func ButtonData(markup *telebot.ReplyMarkup) []string {
	if markup == nil {
		return nil
	}
	var data []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			data = append(data, btn.Data)
		}
	}
	return data
}

// ButtonText flattens an inline keyboard into its labels
func ButtonText(markup *telebot.ReplyMarkup) string {
	if markup == nil {
		return ""
	}
	var labels []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
	}
	return strings.Join(labels, "\n")
}
