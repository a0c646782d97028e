package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zayedali554/udaylive-bot/session"
	"github.com/zayedali554/udaylive-bot/supabase"
	"github.com/zayedali554/udaylive-bot/telemetry"
)

func (d *Dispatcher) handleStatus(ctx context.Context, log *slog.Logger, chatID int64) {
	video, err := d.Platform.VideoEnabled(ctx)
	if err != nil {
		d.platformReadFailed(ctx, log, chatID, "status", err)
		return
	}
	chat, err := d.Platform.ChatEnabled(ctx)
	if err != nil {
		d.platformReadFailed(ctx, log, chatID, "status", err)
		return
	}
	url, err := d.Platform.VideoURL(ctx)
	if err != nil {
		d.platformReadFailed(ctx, log, chatID, "status", err)
		return
	}
	d.send(ctx, chatID, msgStatus(video, chat, url), nil)
}

func (d *Dispatcher) handleGetURL(ctx context.Context, log *slog.Logger, chatID int64) {
	url, err := d.Platform.VideoURL(ctx)
	if err != nil {
		d.platformReadFailed(ctx, log, chatID, "get_url", err)
		return
	}
	if url == "" {
		d.send(ctx, chatID, msgNoURL, nil)
		return
	}
	d.send(ctx, chatID, msgCurrentURL(url), nil)
}

func (d *Dispatcher) handleGetStats(ctx context.Context, log *slog.Logger, chatID int64) {
	stats, err := d.Platform.GetStats(ctx)
	if err != nil {
		d.platformReadFailed(ctx, log, chatID, "get_stats", err)
		return
	}
	d.send(ctx, chatID, msgStats(stats.TotalMessages, stats.UniqueUsers), nil)
}

// handleSetVideo writes the absolute flag, so a redelivered /disable_video on
// an already-disabled platform converges instead of flapping.
func (d *Dispatcher) handleSetVideo(ctx context.Context, log *slog.Logger, chatID int64, conv string, sess session.Session, enabled bool) {
	if err := d.Platform.SetVideoEnabled(ctx, enabled, credential(sess)); err != nil {
		d.platformWriteFailed(ctx, log, chatID, conv, "set_video", err)
		return
	}
	log.Info("video flag written", slog.Bool("enabled", enabled))
	if enabled {
		d.send(ctx, chatID, msgVideoEnabled, nil)
		return
	}
	d.send(ctx, chatID, msgVideoDisabled, nil)
}

// handleToggleChat reads the current flag, defaults an unset flag to enabled,
// and writes the negation.
func (d *Dispatcher) handleToggleChat(ctx context.Context, log *slog.Logger, chatID int64, conv string, sess session.Session) {
	cur, err := d.Platform.ChatEnabled(ctx)
	if err != nil {
		d.platformReadFailed(ctx, log, chatID, "toggle_chat", err)
		return
	}
	enabled := true
	if cur != nil {
		enabled = *cur
	}
	next := !enabled
	if err := d.Platform.SetChatEnabled(ctx, next, credential(sess)); err != nil {
		d.platformWriteFailed(ctx, log, chatID, conv, "toggle_chat", err)
		return
	}
	log.Info("chat flag written", slog.Bool("enabled", next))
	if next {
		d.send(ctx, chatID, msgChatEnabled, nil)
		return
	}
	d.send(ctx, chatID, msgChatDisabled, nil)
}

func (d *Dispatcher) handleChangeURL(ctx context.Context, log *slog.Logger, chatID int64, conv string, sess session.Session, rest string) {
	if rest == "" {
		// Interactive form: prompt and wait for the URL as the next message.
		flow := session.Flow{ConversationID: conv, Step: session.StepAwaitingURL}
		if err := d.Flows.Put(ctx, flow); err != nil {
			telemetry.CountCollaboratorFailure("flow_store")
			log.Error("flow save failed", slog.Any("err", err))
			d.send(ctx, chatID, msgTransient("change_url"), nil)
			return
		}
		d.send(ctx, chatID, msgEnterURL, nil)
		return
	}
	if !validVideoURL(rest) {
		d.send(ctx, chatID, msgInvalidURL, nil)
		return
	}
	d.performURLChange(ctx, log, chatID, conv, sess, rest)
}

func (d *Dispatcher) handleClearMessages(ctx context.Context, log *slog.Logger, chatID int64, conv string, sess session.Session) {
	if err := d.Platform.ClearMessages(ctx, credential(sess)); err != nil {
		d.platformWriteFailed(ctx, log, chatID, conv, "clear_messages", err)
		return
	}
	log.Info("chat messages cleared")
	d.send(ctx, chatID, msgMessagesCleared, adminMenu())
}

func (d *Dispatcher) handleLogout(ctx context.Context, log *slog.Logger, chatID int64, conv string) {
	if err := d.Sessions.Delete(ctx, conv); err != nil {
		telemetry.CountCollaboratorFailure("session_store")
		log.Error("session delete failed", slog.Any("err", err))
		d.send(ctx, chatID, msgTransient("logout"), nil)
		return
	}
	log.Info("admin logged out")
	d.send(ctx, chatID, msgLoggedOut, nil)
}

// platformReadFailed reports a failed platform-state read.
func (d *Dispatcher) platformReadFailed(ctx context.Context, log *slog.Logger, chatID int64, op string, err error) {
	telemetry.CountCollaboratorFailure("platform_store")
	log.Error("platform read failed", slog.String("op", op), slog.Any("err", err))
	d.send(ctx, chatID, msgTransient(op), nil)
}

// platformWriteFailed reports a failed platform-state write. A rejected
// credential means the stored session went stale: it is destroyed and the
// operator is told to log in again, distinct from the transient-failure reply.
func (d *Dispatcher) platformWriteFailed(ctx context.Context, log *slog.Logger, chatID int64, conv, op string, err error) {
	if errors.Is(err, supabase.ErrUnauthorized) {
		inc(telemetry.AuthFailures)
		log.Warn("platform write rejected, destroying stale session", slog.String("op", op))
		if derr := d.Sessions.Delete(ctx, conv); derr != nil {
			log.Error("stale session delete failed", slog.Any("err", derr))
		}
		d.send(ctx, chatID, msgSessionExpired, nil)
		return
	}
	telemetry.CountCollaboratorFailure("platform_store")
	log.Error("platform write failed", slog.String("op", op), slog.Any("err", err))
	d.send(ctx, chatID, msgTransient(op), nil)
}
