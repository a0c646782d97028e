// Package supabase talks to the platform's Supabase project: GoTrue for admin
// credential verification and PostgREST for the platform state store (admin
// settings and the chat message log).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrUnauthorized indicates the platform store rejected the presented
// credential (expired or revoked access token). Callers should treat the
// session as stale and ask the operator to log in again.
var ErrUnauthorized = errors.New("supabase: unauthorized")

// AuthError means the identity provider declined an email/password pair.
// Reason is safe to show to the operator.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "supabase auth rejected: " + e.Reason
}

// Credential is the short-lived capability issued by GoTrue at login. It is
// passed as the bearer credential on every privileged platform-state write;
// the plaintext password is never retained.
type Credential struct {
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// Client is an HTTP client for one Supabase project.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient returns a client for the project at baseURL using the anon API key.
func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type signInResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		Email string `json:"email"`
	} `json:"user"`
}

type authErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// SignIn verifies an email/password pair against GoTrue's password grant.
// A declined pair returns *AuthError with the provider's reason; any other
// failure is a collaborator error.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase sign-in: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode == http.StatusOK {
		var res signInResponse
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return nil, fmt.Errorf("supabase sign-in: decode response: %w", err)
		}
		if res.AccessToken == "" {
			return nil, &AuthError{Reason: "authentication failed"}
		}
		cred := &Credential{Email: email, AccessToken: res.AccessToken}
		if res.User.Email != "" {
			cred.Email = res.User.Email
		}
		if res.ExpiresIn > 0 {
			cred.ExpiresAt = time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
		}
		return cred, nil
	}

	// 400/401/422 carry a declared rejection reason; anything else is a
	// provider fault.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusUnprocessableEntity {
		var res authErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&res)
		reason := res.ErrorDescription
		if reason == "" {
			reason = res.Msg
		}
		if reason == "" {
			reason = res.Message
		}
		if reason == "" {
			reason = res.Error
		}
		if reason == "" {
			reason = "invalid credentials"
		}
		return nil, &AuthError{Reason: reason}
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, fmt.Errorf("supabase sign-in failed: %s: %s", resp.Status, string(b))
}
