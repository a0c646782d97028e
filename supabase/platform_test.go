package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetSettingUnsetReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	enabled, err := c.VideoEnabled(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if enabled != nil {
		t.Errorf("enabled = %v, want nil", *enabled)
	}
	url, err := c.VideoURL(context.Background())
	if err != nil || url != "" {
		t.Errorf("url = %q, %v", url, err)
	}
}

func TestVideoEnabledReadsRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "id=eq.videoLive") {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"id":"videoLive","enabled":false}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	enabled, err := c.VideoEnabled(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if enabled == nil || *enabled != false {
		t.Errorf("enabled = %v", enabled)
	}
}

func TestSetVideoEnabledUsesCredential(t *testing.T) {
	var gotAuth, gotPrefer string
	var gotRows []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&gotRows)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	cred := Credential{Email: "admin@example.com", AccessToken: "tok-xyz"}
	if err := c.SetVideoEnabled(context.Background(), true, cred); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-xyz" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.Contains(gotPrefer, "merge-duplicates") {
		t.Errorf("Prefer = %q", gotPrefer)
	}
	if len(gotRows) != 1 || gotRows[0]["id"] != "videoLive" || gotRows[0]["enabled"] != true {
		t.Errorf("rows = %v", gotRows)
	}
}

func TestWriteUnauthorizedMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	err := c.SetVideoURL(context.Background(), "https://x.example.com", Credential{AccessToken: "stale"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
}

func TestClearMessagesExcludesImpossibleID(t *testing.T) {
	var gotMethod, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	if err := c.ClearMessages(context.Background(), Credential{AccessToken: "tok"}); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q", gotMethod)
	}
	if !strings.Contains(gotQuery, "id=neq.00000000-0000-0000-0000-000000000000") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestGetStatsUsesContentRangeTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Prefer"), "count=exact") {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		w.Header().Set("Content-Range", "0-2/12345")
		_, _ = w.Write([]byte(`[{"user_id":"u1"},{"user_id":"u2"},{"user_id":"u1"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	stats, err := c.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalMessages != 12345 {
		t.Errorf("TotalMessages = %d", stats.TotalMessages)
	}
	if stats.UniqueUsers != 2 {
		t.Errorf("UniqueUsers = %d", stats.UniqueUsers)
	}
}

func TestGetStatsWithoutContentRangeFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"user_id":"u1"},{"user_id":"u2"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	stats, err := c.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalMessages != 2 || stats.UniqueUsers != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
