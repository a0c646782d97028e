package telegram

import (
	"context"
	"log/slog"
	"time"
)

// OffsetStore persists the confirmed update offset across restarts. A nil
// store is allowed; the poller then starts from Telegram's unconfirmed backlog.
type OffsetStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, offset int64) error
}

// UpdateHandler processes one inbound update. Handlers must not panic; they
// own their error reporting.
type UpdateHandler func(ctx context.Context, upd Update)

// Poller drives the getUpdates long-poll loop and hands each update to Handle.
// Updates are confirmed (offset advanced) after handling, so delivery is
// at-least-once: a crash mid-batch replays updates on restart.
type Poller struct {
	Client  *Client
	Offsets OffsetStore
	Handle  UpdateHandler

	// PollTimeout is the server-side long-poll hold; defaults to 30s.
	PollTimeout time.Duration
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	timeout := int(p.PollTimeout.Seconds())
	if timeout <= 0 {
		timeout = 30
	}

	var offset int64
	if p.Offsets != nil {
		o, err := p.Offsets.Load(ctx)
		if err != nil {
			slog.Warn("poll offset load failed; starting from backlog", slog.Any("err", err))
		} else {
			offset = o
		}
	}

	slog.Info("update poller started", slog.Int64("offset", offset), slog.Int("timeout_s", timeout))
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := p.Client.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("getUpdates failed", slog.Any("err", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}
		for _, upd := range updates {
			p.Handle(ctx, upd)
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
		}
		if len(updates) > 0 && p.Offsets != nil {
			if err := p.Offsets.Save(ctx, offset); err != nil {
				slog.Warn("poll offset save failed", slog.Any("err", err))
			}
		}
	}
}
