package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/zayedali554/udaylive-bot/session"
	"github.com/zayedali554/udaylive-bot/supabase"
	"github.com/zayedali554/udaylive-bot/telemetry"
)

// continueFlow feeds one non-command input into the conversation's pending
// flow. Invalid inputs re-prompt and leave the flow in place; only a valid
// input (or a new command, handled in the dispatcher) advances or ends it.
func (d *Dispatcher) continueFlow(ctx context.Context, log *slog.Logger, chatID int64, conv string, flow session.Flow, input string) {
	if telemetry.FlowSteps != nil {
		telemetry.FlowSteps.WithLabelValues(string(flow.Step)).Inc()
	}
	input = strings.TrimSpace(input)

	switch flow.Step {
	case session.StepAwaitingEmail:
		if !strings.Contains(input, "@") {
			d.send(ctx, chatID, msgInvalidEmail, nil)
			return
		}
		flow.Step = session.StepAwaitingPassword
		flow.Email = input
		if err := d.Flows.Put(ctx, flow); err != nil {
			telemetry.CountCollaboratorFailure("flow_store")
			log.Error("flow save failed", slog.Any("err", err))
			d.send(ctx, chatID, msgTransient("login"), nil)
			return
		}
		d.send(ctx, chatID, msgEnterPassword, nil)

	case session.StepAwaitingPassword:
		if input == "" {
			d.send(ctx, chatID, msgEmptyPassword, nil)
			return
		}
		// The flow ends here whatever the verifier says; a failed login
		// restarts from /login, it does not re-prompt for the password.
		d.cancelFlow(ctx, log, conv)
		d.performLogin(ctx, log, chatID, conv, flow.Email, input)

	case session.StepAwaitingURL:
		if !validVideoURL(input) {
			d.send(ctx, chatID, msgInvalidURL, nil)
			return
		}
		d.cancelFlow(ctx, log, conv)
		// The admin session may have expired while the operator was typing.
		sess, err := d.Sessions.Get(ctx, conv)
		if err != nil {
			telemetry.CountCollaboratorFailure("session_store")
			log.Error("session lookup failed", slog.Any("err", err))
			d.send(ctx, chatID, msgSessionUnavailable, nil)
			return
		}
		if sess == nil {
			inc(telemetry.AuthFailures)
			d.send(ctx, chatID, msgAuthRequired, nil)
			return
		}
		d.performURLChange(ctx, log, chatID, conv, *sess, input)

	default:
		// Unknown persisted step, likely from an older build. Drop it so the
		// conversation is not wedged.
		log.Warn("dropping flow with unknown step", slog.String("step", string(flow.Step)))
		d.cancelFlow(ctx, log, conv)
		d.send(ctx, chatID, msgUnknown, nil)
	}
}

// handleLogin covers both forms: "/login email password" verifies in one shot,
// bare "/login" starts the interactive flow.
func (d *Dispatcher) handleLogin(ctx context.Context, log *slog.Logger, chatID int64, conv, rest string) {
	sess, err := d.Sessions.Get(ctx, conv)
	if err != nil {
		telemetry.CountCollaboratorFailure("session_store")
		log.Error("session lookup failed", slog.Any("err", err))
		d.send(ctx, chatID, msgSessionUnavailable, nil)
		return
	}
	if sess != nil {
		d.send(ctx, chatID, msgAlreadyLoggedIn, nil)
		return
	}

	if rest == "" {
		flow := session.Flow{ConversationID: conv, Step: session.StepAwaitingEmail}
		if err := d.Flows.Put(ctx, flow); err != nil {
			telemetry.CountCollaboratorFailure("flow_store")
			log.Error("flow save failed", slog.Any("err", err))
			d.send(ctx, chatID, msgTransient("login"), nil)
			return
		}
		d.send(ctx, chatID, msgEnterEmail, nil)
		return
	}

	// Single-shot form. The password is everything after the email token and
	// may contain internal whitespace.
	email, password, found := strings.Cut(rest, " ")
	password = strings.TrimSpace(password)
	if !found || password == "" {
		d.send(ctx, chatID, msgLoginUsage, nil)
		return
	}
	d.performLogin(ctx, log, chatID, conv, email, password)
}

// performLogin verifies credentials and establishes the admin session.
func (d *Dispatcher) performLogin(ctx context.Context, log *slog.Logger, chatID int64, conv, email, password string) {
	cred, err := d.Verifier.SignIn(ctx, email, password)
	if err != nil {
		var authErr *supabase.AuthError
		if errors.As(err, &authErr) {
			inc(telemetry.LoginsRejected)
			log.Info("login rejected", slog.String("email", email))
			d.send(ctx, chatID, msgLoginRejected(authErr.Reason), nil)
			return
		}
		telemetry.CountCollaboratorFailure("verifier")
		log.Error("sign-in call failed", slog.Any("err", err))
		d.send(ctx, chatID, msgTransient("login"), nil)
		return
	}

	err = d.Sessions.Put(ctx, session.Session{
		ConversationID: conv,
		Email:          cred.Email,
		AccessToken:    cred.AccessToken,
	})
	if err != nil {
		telemetry.CountCollaboratorFailure("session_store")
		log.Error("session save failed", slog.Any("err", err))
		d.send(ctx, chatID, msgTransient("login"), nil)
		return
	}

	inc(telemetry.LoginsSucceeded)
	log.Info("admin logged in", slog.String("email", cred.Email))
	d.send(ctx, chatID, msgLoginSuccess(cred.Email), adminMenu())
}

// performURLChange writes the new video source URL.
func (d *Dispatcher) performURLChange(ctx context.Context, log *slog.Logger, chatID int64, conv string, sess session.Session, url string) {
	if err := d.Platform.SetVideoURL(ctx, url, credential(sess)); err != nil {
		d.platformWriteFailed(ctx, log, chatID, conv, "change_url", err)
		return
	}
	log.Info("video url changed")
	d.send(ctx, chatID, msgURLUpdated(url), nil)
}

func validVideoURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
