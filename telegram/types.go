// Package telegram implements the Bot API transport: inbound update types, an
// HTTP client for outbound calls, and a long-poll update loop.
package telegram

// Update is one inbound event from the Bot API. Exactly one of the payload
// fields is normally set.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Chat identifies one conversation with the bot.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the sender metadata Telegram attaches to messages and button presses.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// CallbackQuery is an inline keyboard button press. Data carries the short
// payload token configured on the button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// InlineKeyboardButton is one labeled choice in a quick-reply menu.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// InlineKeyboardMarkup attaches a quick-reply menu to an outbound message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// BotCommand is an entry in the bot's command menu (setMyCommands).
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// SenderName returns a human-readable sender label for logging.
func (m *Message) SenderName() string {
	if m == nil || m.From == nil {
		return ""
	}
	if m.From.Username != "" {
		return m.From.Username
	}
	return m.From.FirstName
}
