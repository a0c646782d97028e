package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestInteractiveLoginFlow(t *testing.T) {
	d, resp, verifier, _ := newTestDispatcher()
	ctx := context.Background()

	d.HandleUpdate(ctx, textUpdate(1, 5, "/login"))
	if got := resp.lastText(t); got != msgEnterEmail {
		t.Fatalf("prompt = %q", got)
	}

	d.HandleUpdate(ctx, textUpdate(2, 5, "admin@example.com"))
	if got := resp.lastText(t); got != msgEnterPassword {
		t.Fatalf("prompt = %q", got)
	}

	d.HandleUpdate(ctx, textUpdate(3, 5, "hunter2"))
	if got := resp.lastText(t); !strings.Contains(got, "Login successful") {
		t.Fatalf("final reply = %q", got)
	}
	if verifier.calls != 1 {
		t.Errorf("verifier calls = %d", verifier.calls)
	}

	// Flow is finished: plain text is unrecognized again.
	d.HandleUpdate(ctx, textUpdate(4, 5, "hunter2"))
	if got := resp.lastText(t); got != msgUnknown {
		t.Errorf("post-flow reply = %q", got)
	}
}

func TestLoginFlowInvalidEmailRetries(t *testing.T) {
	d, resp, _, _ := newTestDispatcher()
	ctx := context.Background()

	d.HandleUpdate(ctx, textUpdate(1, 5, "/login"))
	d.HandleUpdate(ctx, textUpdate(2, 5, "notanemail"))
	if got := resp.lastText(t); got != msgInvalidEmail {
		t.Fatalf("reply = %q", got)
	}
	// The flow stays on the email step.
	d.HandleUpdate(ctx, textUpdate(3, 5, "admin@example.com"))
	if got := resp.lastText(t); got != msgEnterPassword {
		t.Errorf("reply = %q", got)
	}
}

func TestLoginFlowRejectedCredentials(t *testing.T) {
	d, resp, _, _ := newTestDispatcher()
	ctx := context.Background()

	d.HandleUpdate(ctx, textUpdate(1, 5, "/login"))
	d.HandleUpdate(ctx, textUpdate(2, 5, "admin@example.com"))
	d.HandleUpdate(ctx, textUpdate(3, 5, "wrong"))
	if got := resp.lastText(t); !strings.Contains(got, "Login failed") {
		t.Fatalf("reply = %q", got)
	}
	// Rejection ends the flow; the password is not re-prompted.
	d.HandleUpdate(ctx, textUpdate(4, 5, "wrong again"))
	if got := resp.lastText(t); got != msgUnknown {
		t.Errorf("post-rejection reply = %q", got)
	}
}

func TestLoginSingleShot(t *testing.T) {
	d, resp, verifier, _ := newTestDispatcher()
	verifier.password = "p4ss w0rd"
	d.HandleUpdate(context.Background(), textUpdate(1, 5, "/login admin@example.com p4ss w0rd"))
	if got := resp.lastText(t); !strings.Contains(got, "Login successful") {
		t.Fatalf("reply = %q", got)
	}
}

func TestLoginSingleShotMissingPassword(t *testing.T) {
	d, resp, verifier, _ := newTestDispatcher()
	d.HandleUpdate(context.Background(), textUpdate(1, 5, "/login admin@example.com"))
	if got := resp.lastText(t); got != msgLoginUsage {
		t.Fatalf("reply = %q", got)
	}
	if verifier.calls != 0 {
		t.Error("verifier called on malformed input")
	}
}

func TestLoginWhenAlreadyAuthenticated(t *testing.T) {
	d, resp, verifier, _ := newTestDispatcher()
	login(t, d, 5)
	d.HandleUpdate(context.Background(), textUpdate(2, 5, "/login"))
	if got := resp.lastText(t); got != msgAlreadyLoggedIn {
		t.Fatalf("reply = %q", got)
	}
	if verifier.calls != 1 {
		t.Errorf("verifier calls = %d", verifier.calls)
	}
}

func TestNewCommandCancelsPendingFlow(t *testing.T) {
	d, resp, verifier, _ := newTestDispatcher()
	ctx := context.Background()

	d.HandleUpdate(ctx, textUpdate(1, 5, "/login"))
	d.HandleUpdate(ctx, textUpdate(2, 5, "/status"))
	if got := resp.lastText(t); !strings.Contains(got, "Platform Status") {
		t.Fatalf("reply = %q", got)
	}
	// The cancelled flow must not swallow the next message.
	d.HandleUpdate(ctx, textUpdate(3, 5, "admin@example.com"))
	if got := resp.lastText(t); got != msgUnknown {
		t.Errorf("reply = %q", got)
	}
	if verifier.calls != 0 {
		t.Error("verifier called after cancelled flow")
	}
}

func TestFlowsAreIsolatedPerConversation(t *testing.T) {
	d, resp, _, _ := newTestDispatcher()
	ctx := context.Background()

	d.HandleUpdate(ctx, textUpdate(1, 5, "/login"))
	// A different conversation's text is not flow input.
	d.HandleUpdate(ctx, textUpdate(2, 6, "admin@example.com"))
	if got := resp.lastText(t); got != msgUnknown {
		t.Fatalf("cross-conversation reply = %q", got)
	}
	// Conversation 5's flow is still waiting for the email.
	d.HandleUpdate(ctx, textUpdate(3, 5, "admin@example.com"))
	if got := resp.lastText(t); got != msgEnterPassword {
		t.Errorf("reply = %q", got)
	}
}

func TestChangeURLFlow(t *testing.T) {
	d, resp, _, platform := newTestDispatcher()
	ctx := context.Background()
	login(t, d, 5)

	d.HandleUpdate(ctx, textUpdate(2, 5, "/change_url"))
	if got := resp.lastText(t); got != msgEnterURL {
		t.Fatalf("prompt = %q", got)
	}

	// Invalid URLs re-prompt without ending the flow.
	d.HandleUpdate(ctx, textUpdate(3, 5, "ftp://nope"))
	if got := resp.lastText(t); got != msgInvalidURL {
		t.Fatalf("reply = %q", got)
	}

	d.HandleUpdate(ctx, textUpdate(4, 5, "https://stream.example.com/live.m3u8"))
	if got := resp.lastText(t); !strings.Contains(got, "https://stream.example.com/live.m3u8") {
		t.Fatalf("reply = %q", got)
	}
	if len(platform.setURLCalls) != 1 {
		t.Errorf("setURL calls = %v", platform.setURLCalls)
	}
}

func TestChangeURLInline(t *testing.T) {
	d, resp, _, platform := newTestDispatcher()
	login(t, d, 5)
	d.HandleUpdate(context.Background(), textUpdate(2, 5, "/change_url https://cdn.example.com/a.m3u8"))
	if got := resp.lastText(t); !strings.Contains(got, "cdn.example.com") {
		t.Fatalf("reply = %q", got)
	}
	if len(platform.setURLCalls) != 1 || platform.setURLCalls[0] != "https://cdn.example.com/a.m3u8" {
		t.Errorf("setURL calls = %v", platform.setURLCalls)
	}
	if got := resp.lastText(t); got == msgEnterURL {
		t.Error("inline form should not prompt")
	}
}

func TestChangeURLFlowSessionExpiredMidFlow(t *testing.T) {
	d, resp, _, platform := newTestDispatcher()
	ctx := context.Background()
	login(t, d, 5)

	d.HandleUpdate(ctx, textUpdate(2, 5, "/change_url"))
	// Session disappears while the operator types.
	if err := d.Sessions.Delete(ctx, "5"); err != nil {
		t.Fatal(err)
	}
	d.HandleUpdate(ctx, textUpdate(3, 5, "https://stream.example.com/live.m3u8"))
	if got := resp.lastText(t); got != msgAuthRequired {
		t.Fatalf("reply = %q", got)
	}
	if len(platform.setURLCalls) != 0 {
		t.Error("URL written without a live session")
	}
}

func TestVerifierOutageReportedAsTransient(t *testing.T) {
	d, resp, verifier, _ := newTestDispatcher()
	verifier.err = errors.New("gotrue 503")
	d.HandleUpdate(context.Background(), textUpdate(1, 5, "/login admin@example.com hunter2"))
	if got := resp.lastText(t); !strings.Contains(got, "try again") {
		t.Fatalf("reply = %q", got)
	}
}
