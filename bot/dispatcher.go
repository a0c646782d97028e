package bot

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zayedali554/udaylive-bot/session"
	"github.com/zayedali554/udaylive-bot/supabase"
	"github.com/zayedali554/udaylive-bot/telegram"
	"github.com/zayedali554/udaylive-bot/telemetry"
)

// Verifier checks an email/password pair with the identity provider and
// returns the short-lived credential on success.
type Verifier interface {
	SignIn(ctx context.Context, email, password string) (*supabase.Credential, error)
}

// PlatformStore is the mutable platform state the admin commands act on.
// Reads report nil/empty for unset fields; writes are absolute so duplicate
// deliveries converge.
type PlatformStore interface {
	VideoEnabled(ctx context.Context) (*bool, error)
	SetVideoEnabled(ctx context.Context, enabled bool, cred supabase.Credential) error
	ChatEnabled(ctx context.Context) (*bool, error)
	SetChatEnabled(ctx context.Context, enabled bool, cred supabase.Credential) error
	VideoURL(ctx context.Context) (string, error)
	SetVideoURL(ctx context.Context, url string, cred supabase.Credential) error
	ClearMessages(ctx context.Context, cred supabase.Credential) error
	GetStats(ctx context.Context) (supabase.Stats, error)
}

// Responder delivers replies back to the conversation. *telegram.Client
// satisfies it.
type Responder interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Dispatcher routes inbound updates to command handlers and flow steps. It is
// safe for concurrent use; all per-conversation state lives in the stores.
type Dispatcher struct {
	Sessions  session.Store
	Flows     session.FlowStore
	Verifier  Verifier
	Platform  PlatformStore
	Responder Responder
}

func NewDispatcher(sessions session.Store, flows session.FlowStore, verifier Verifier, platform PlatformStore, responder Responder) *Dispatcher {
	return &Dispatcher{
		Sessions:  sessions,
		Flows:     flows,
		Verifier:  verifier,
		Platform:  platform,
		Responder: responder,
	}
}

// HandleUpdate processes one inbound update end to end. It never returns an
// error: every failure mode ends in either a reply to the operator or a
// logged drop, because Telegram will redeliver on anything else.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd telegram.Update) {
	inc(telemetry.UpdatesReceived)
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())

	var (
		chatID     int64
		text       string
		button     string
		callbackID string
		sender     string
	)
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		chatID = upd.CallbackQuery.Message.Chat.ID
		button = upd.CallbackQuery.Data
		callbackID = upd.CallbackQuery.ID
		if upd.CallbackQuery.From != nil {
			sender = upd.CallbackQuery.From.Username
		}
	case upd.Message != nil && upd.Message.Text != "":
		chatID = upd.Message.Chat.ID
		text = upd.Message.Text
		sender = upd.Message.SenderName()
	default:
		// Joins, stickers, edits: nothing for us to do.
		inc(telemetry.UpdatesDropped)
		return
	}

	conv := strconv.FormatInt(chatID, 10)
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("conversation", conv),
		slog.Int64("update_id", upd.UpdateID))

	ctx, span := telemetry.StartSpan(ctx, "bot", "handle_update",
		telemetry.ConversationAttr(conv))
	defer span.End()

	telemetry.TimeFunc(telemetry.HandleDuration, func() {
		if callbackID != "" {
			// Stop the client-side spinner before doing any work.
			if err := d.Responder.AnswerCallbackQuery(ctx, callbackID); err != nil {
				log.Warn("answer callback failed", slog.Any("err", err))
			}
			d.dispatchButton(ctx, log, chatID, conv, button)
			return
		}
		d.dispatchText(ctx, log, chatID, conv, sender, text)
	})
}

func (d *Dispatcher) dispatchButton(ctx context.Context, log *slog.Logger, chatID int64, conv, payload string) {
	cmd, ok := ResolveButton(payload)
	if !ok {
		inc(telemetry.UnknownCommands)
		log.Warn("unknown button payload", slog.String("payload", payload))
		d.send(ctx, chatID, msgUnknown, nil)
		return
	}
	// A button press is a command; it replaces any pending flow.
	d.cancelFlow(ctx, log, conv)
	d.dispatchCommand(ctx, log, chatID, conv, cmd, "")
}

func (d *Dispatcher) dispatchText(ctx context.Context, log *slog.Logger, chatID int64, conv, sender, text string) {
	flow, err := d.Flows.Get(ctx, conv)
	if err != nil {
		telemetry.CountCollaboratorFailure("flow_store")
		log.Error("flow lookup failed", slog.Any("err", err))
		flow = nil
	}

	if flow != nil {
		if !IsCommandText(text) {
			d.continueFlow(ctx, log, chatID, conv, *flow, text)
			return
		}
		// A new command cancels the pending flow rather than being swallowed
		// as flow input.
		log.Info("pending flow cancelled by new command", slog.String("step", string(flow.Step)))
		d.cancelFlow(ctx, log, conv)
	}

	cmd, rest, ok := ResolveInput(text)
	if !ok {
		inc(telemetry.UnknownCommands)
		log.Info("unrecognized input", slog.String("sender", sender))
		d.send(ctx, chatID, msgUnknown, nil)
		return
	}
	d.dispatchCommand(ctx, log, chatID, conv, cmd, rest)
}

// dispatchCommand enforces the admin gate, then executes. The session check
// happens before any platform read or write.
func (d *Dispatcher) dispatchCommand(ctx context.Context, log *slog.Logger, chatID int64, conv string, cmd Command, rest string) {
	telemetry.CountCommand(cmd.String())
	log = log.With(slog.String("command", cmd.String()))

	var sess *session.Session
	if cmd.AdminOnly() {
		var err error
		sess, err = d.Sessions.Get(ctx, conv)
		if err != nil {
			telemetry.CountCollaboratorFailure("session_store")
			log.Error("session lookup failed", slog.Any("err", err))
			d.send(ctx, chatID, msgSessionUnavailable, nil)
			return
		}
		if sess == nil {
			inc(telemetry.AuthFailures)
			log.Info("admin command refused, no session")
			if cmd == CmdLogout {
				// Logout of a dead session is already its goal state.
				d.send(ctx, chatID, msgNotLoggedIn, nil)
				return
			}
			d.send(ctx, chatID, msgAuthRequired, nil)
			return
		}
	}

	switch cmd {
	case CmdStart:
		d.send(ctx, chatID, msgWelcome, nil)
	case CmdHelp:
		d.send(ctx, chatID, msgHelp, nil)
	case CmdLogin:
		d.handleLogin(ctx, log, chatID, conv, rest)
	case CmdLogout:
		d.handleLogout(ctx, log, chatID, conv)
	case CmdStatus:
		d.handleStatus(ctx, log, chatID)
	case CmdGetURL:
		d.handleGetURL(ctx, log, chatID)
	case CmdGetStats:
		d.handleGetStats(ctx, log, chatID)
	case CmdEnableVideo:
		d.handleSetVideo(ctx, log, chatID, conv, *sess, true)
	case CmdDisableVideo:
		d.handleSetVideo(ctx, log, chatID, conv, *sess, false)
	case CmdToggleChat:
		d.handleToggleChat(ctx, log, chatID, conv, *sess)
	case CmdChangeURL:
		d.handleChangeURL(ctx, log, chatID, conv, *sess, rest)
	case CmdClearMessages:
		d.handleClearMessages(ctx, log, chatID, conv, *sess)
	default:
		inc(telemetry.UnknownCommands)
		d.send(ctx, chatID, msgUnknown, nil)
	}
}

// send delivers a reply; delivery failures are terminal for this update and
// only logged, never retried.
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	if err := d.Responder.SendMessage(ctx, chatID, text, markup); err != nil {
		inc(telemetry.SendErrors)
		telemetry.LoggerWithCorr(ctx).Error("send failed",
			slog.Int64("chat_id", chatID), slog.Any("err", err))
	}
}

func (d *Dispatcher) cancelFlow(ctx context.Context, log *slog.Logger, conv string) {
	if err := d.Flows.Delete(ctx, conv); err != nil {
		telemetry.CountCollaboratorFailure("flow_store")
		log.Warn("flow delete failed", slog.Any("err", err))
	}
}

// credential rebuilds the platform-write capability from a stored session.
func credential(s session.Session) supabase.Credential {
	return supabase.Credential{Email: s.Email, AccessToken: s.AccessToken}
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
