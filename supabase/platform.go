package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// Settings row ids in the admin table, mirroring the web frontend's schema.
const (
	settingVideoLive   = "videoLive"
	settingChatStatus  = "chatStatus"
	settingVideoSource = "videoSource"
)

// Stats summarizes platform usage derived from the message log.
type Stats struct {
	TotalMessages int
	UniqueUsers   int
}

type adminRow struct {
	ID      string `json:"id"`
	Enabled *bool  `json:"enabled,omitempty"`
	URL     string `json:"url,omitempty"`
}

// rest performs a PostgREST request. cred may be nil for anon reads; writes
// must pass the admin credential so row-level security authorizes them.
func (c *Client) rest(ctx context.Context, method, path string, body any, cred *Credential, prefer string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/v1"+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)
	token := c.anonKey
	if cred != nil && cred.AccessToken != "" {
		token = cred.AccessToken
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	return c.httpClient.Do(req)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

// restError converts a non-2xx PostgREST response into an error, mapping
// credential problems to ErrUnauthorized.
func restError(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s failed: %s: %s", op, resp.Status, string(b))
}

// getSetting fetches one admin settings row; nil means the row is unset.
func (c *Client) getSetting(ctx context.Context, id string) (*adminRow, error) {
	path := "/admin?id=eq." + id + "&select=id,enabled,url"
	resp, err := c.rest(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", id, err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, restError("get setting "+id, resp)
	}
	var rows []adminRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("get setting %s: decode: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// upsertSetting writes one admin settings row using the admin credential.
func (c *Client) upsertSetting(ctx context.Context, row adminRow, cred Credential) error {
	resp, err := c.rest(ctx, http.MethodPost, "/admin?on_conflict=id", []adminRow{row}, &cred,
		"resolution=merge-duplicates,return=minimal")
	if err != nil {
		return fmt.Errorf("set setting %s: %w", row.ID, err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return restError("set setting "+row.ID, resp)
	}
	return nil
}

// VideoEnabled reports whether video streaming is on; nil means unset.
func (c *Client) VideoEnabled(ctx context.Context) (*bool, error) {
	row, err := c.getSetting(ctx, settingVideoLive)
	if err != nil || row == nil {
		return nil, err
	}
	return row.Enabled, nil
}

// SetVideoEnabled writes the video streaming flag. The write is absolute, so
// duplicate deliveries converge to the same state.
func (c *Client) SetVideoEnabled(ctx context.Context, enabled bool, cred Credential) error {
	return c.upsertSetting(ctx, adminRow{ID: settingVideoLive, Enabled: &enabled}, cred)
}

// ChatEnabled reports whether the companion chat is on; nil means unset.
func (c *Client) ChatEnabled(ctx context.Context) (*bool, error) {
	row, err := c.getSetting(ctx, settingChatStatus)
	if err != nil || row == nil {
		return nil, err
	}
	return row.Enabled, nil
}

// SetChatEnabled writes the chat flag.
func (c *Client) SetChatEnabled(ctx context.Context, enabled bool, cred Credential) error {
	return c.upsertSetting(ctx, adminRow{ID: settingChatStatus, Enabled: &enabled}, cred)
}

// VideoURL returns the current video source URL, or empty when unset.
func (c *Client) VideoURL(ctx context.Context) (string, error) {
	row, err := c.getSetting(ctx, settingVideoSource)
	if err != nil || row == nil {
		return "", err
	}
	return row.URL, nil
}

// SetVideoURL writes the video source URL.
func (c *Client) SetVideoURL(ctx context.Context, url string, cred Credential) error {
	return c.upsertSetting(ctx, adminRow{ID: settingVideoSource, URL: url}, cred)
}

// ClearMessages purges the chat message log. Deleting an already-empty log
// succeeds, so replayed deliveries are harmless.
func (c *Client) ClearMessages(ctx context.Context, cred Credential) error {
	// PostgREST refuses unfiltered deletes; exclude an impossible UUID to match all rows.
	path := "/messages?id=neq.00000000-0000-0000-0000-000000000000"
	resp, err := c.rest(ctx, http.MethodDelete, path, nil, &cred, "return=minimal")
	if err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return restError("clear messages", resp)
	}
	return nil
}

// GetStats returns the total message count (exact, from Content-Range) and the
// number of distinct users over a bounded sample of recent messages.
func (c *Client) GetStats(ctx context.Context) (Stats, error) {
	resp, err := c.rest(ctx, http.MethodGet, "/messages?select=user_id&limit=1000", nil, nil, "count=exact")
	if err != nil {
		return Stats{}, fmt.Errorf("get stats: %w", err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return Stats{}, restError("get stats", resp)
	}

	var rows []struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return Stats{}, fmt.Errorf("get stats: decode: %w", err)
	}
	unique := map[string]struct{}{}
	for _, r := range rows {
		unique[r.UserID] = struct{}{}
	}

	stats := Stats{TotalMessages: len(rows), UniqueUsers: len(unique)}
	// Content-Range: "0-999/12345"; the part after the slash is the exact total.
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if i := strings.LastIndex(cr, "/"); i >= 0 && cr[i+1:] != "*" {
			if n, err := strconv.Atoi(cr[i+1:]); err == nil {
				stats.TotalMessages = n
			}
		}
	}
	return stats, nil
}
