// Package bot implements the command dispatcher: it routes each inbound
// Telegram update to a stateless command handler or an in-progress multi-step
// flow, enforcing the admin authentication boundary along the way.
package bot

import (
	"strings"
	"unicode"

	"github.com/zayedali554/udaylive-bot/telegram"
)

// Command is the canonical name of one operator command. All textual spellings
// (slash form, separator-free form, button payloads and labels) resolve to one
// of these.
type Command string

const (
	CmdStart         Command = "start"
	CmdHelp          Command = "help"
	CmdLogin         Command = "login"
	CmdLogout        Command = "logout"
	CmdStatus        Command = "status"
	CmdGetURL        Command = "get_url"
	CmdGetStats      Command = "get_stats"
	CmdEnableVideo   Command = "enable_video"
	CmdDisableVideo  Command = "disable_video"
	CmdChangeURL     Command = "change_url"
	CmdToggleChat    Command = "toggle_chat"
	CmdClearMessages Command = "clear_messages"
)

// commandKeys maps normalized tokens to canonical commands. Keys are the
// output of canonicalKey, so "/disable_video", "/disablevideo",
// "Disable Video" and the button payload "disable_video" all land on the same
// entry.
var commandKeys = map[string]Command{
	"start":         CmdStart,
	"help":          CmdHelp,
	"login":         CmdLogin,
	"logout":        CmdLogout,
	"status":        CmdStatus,
	"geturl":        CmdGetURL,
	"getstats":      CmdGetStats,
	"enablevideo":   CmdEnableVideo,
	"disablevideo":  CmdDisableVideo,
	"changeurl":     CmdChangeURL,
	"togglechat":    CmdToggleChat,
	"clearmessages": CmdClearMessages,
}

// adminCommands are gated on an authenticated admin session.
var adminCommands = map[Command]bool{
	CmdLogout:        true,
	CmdEnableVideo:   true,
	CmdDisableVideo:  true,
	CmdChangeURL:     true,
	CmdToggleChat:    true,
	CmdClearMessages: true,
}

// AdminOnly reports whether the command requires an authenticated session.
func (c Command) AdminOnly() bool { return adminCommands[c] }

func (c Command) String() string { return string(c) }

// canonicalKey normalizes one command spelling: lower case, strip the slash
// prefix and any @botname suffix, then keep only letters and digits so
// separators and emoji decorations never matter.
func canonicalKey(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	token = strings.TrimPrefix(token, "/")
	if i := strings.Index(token, "@"); i >= 0 {
		token = token[:i]
	}
	var b strings.Builder
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveInput splits inbound text into a command and its raw argument
// remainder. The remainder keeps internal whitespace (passwords may contain
// spaces) but is trimmed at both ends.
func ResolveInput(text string) (Command, string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", "", false
	}
	token := trimmed
	rest := ""
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i >= 0 {
		token = trimmed[:i]
		rest = strings.TrimSpace(trimmed[i:])
	}
	cmd, ok := commandKeys[canonicalKey(token)]
	if !ok {
		return "", "", false
	}
	return cmd, rest, true
}

// ResolveButton maps a button payload or label to a command. The whole payload
// is normalized as one token, so both "disable_video" and a decorated label
// like "🔴 Disable Video" resolve.
func ResolveButton(payload string) (Command, bool) {
	cmd, ok := commandKeys[canonicalKey(payload)]
	return cmd, ok
}

// IsCommandText reports whether text carries the command prefix. A pending
// flow consumes any non-command text; command-prefixed text cancels it.
func IsCommandText(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// MenuCommands returns the command menu registered with Telegram at startup.
func MenuCommands() []telegram.BotCommand {
	return []telegram.BotCommand{
		{Command: "start", Description: "Welcome message and bot info"},
		{Command: "help", Description: "Show all available commands"},
		{Command: "login", Description: "Authenticate as admin"},
		{Command: "status", Description: "Check platform status"},
		{Command: "get_url", Description: "Get current video URL"},
		{Command: "get_stats", Description: "Get platform statistics"},
		{Command: "disable_video", Description: "Disable video streaming (admin)"},
		{Command: "enable_video", Description: "Enable video streaming (admin)"},
		{Command: "change_url", Description: "Change video source URL (admin)"},
		{Command: "toggle_chat", Description: "Toggle chat on/off (admin)"},
		{Command: "clear_messages", Description: "Clear chat messages (admin)"},
		{Command: "logout", Description: "Logout from admin session"},
	}
}
