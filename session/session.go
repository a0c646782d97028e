// Package session holds the bot's two pieces of per-conversation state: the
// authenticated admin session (sliding 24h TTL) and the pending multi-step
// conversation flow. Both are keyed by the opaque conversation identifier and
// live behind small store interfaces so the same dispatcher runs against an
// in-memory map (tests, single process), Redis (shared across webhook
// instances), or Postgres (durable).
package session

import (
	"context"
	"time"
)

// Session is proof that a conversation authenticated as a platform operator.
// AccessToken is the short-lived capability issued by the identity provider at
// login; it is the credential passed on every privileged platform write. The
// password itself is never stored.
type Session struct {
	ConversationID string    `json:"conversation_id"`
	Email          string    `json:"email"`
	AccessToken    string    `json:"access_token"`
	LastActivity   time.Time `json:"last_activity"`
}

// Step identifies which input a pending multi-step flow is waiting for.
type Step string

const (
	StepAwaitingEmail    Step = "awaiting_email"
	StepAwaitingPassword Step = "awaiting_password"
	StepAwaitingURL      Step = "awaiting_url"
)

// Flow is a pending multi-step interaction. A conversation has at most one;
// starting a new interactive command replaces any prior flow. Email holds the
// partial login input once the email step completes.
type Flow struct {
	ConversationID string    `json:"conversation_id"`
	Step           Step      `json:"step"`
	Email          string    `json:"email,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store keeps admin sessions. Implementations apply the sliding TTL on read:
// Get returns nil for absent or expired sessions and refreshes LastActivity
// for live ones. Delete of an absent session is not an error.
type Store interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, conversationID string) (*Session, error)
	Delete(ctx context.Context, conversationID string) error
	DeleteExpired(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// FlowStore keeps pending flows. Flows never expire on their own; they are
// deleted on completion or replaced when a new command starts.
type FlowStore interface {
	Put(ctx context.Context, f Flow) error
	Get(ctx context.Context, conversationID string) (*Flow, error)
	Delete(ctx context.Context, conversationID string) error
}
