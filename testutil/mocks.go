// Package testutil provides httptest-backed mocks of the bot's external
// collaborators (Telegram Bot API, Supabase) and test database setup.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockTelegramServer mocks the Bot API. It records every sendMessage body so
// tests can assert on replies, and answers all methods with an ok envelope.
type MockTelegramServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu   sync.Mutex
	sent []map[string]any
}

// NewMockTelegramServer creates a mock Bot API server. Method names (e.g.
// "sendMessage") key the Handlers map; unhandled methods succeed with a true
// result so client code never trips over missing stubs.
func NewMockTelegramServer(t *testing.T) *MockTelegramServer {
	t.Helper()
	m := &MockTelegramServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Paths look like /bot<token>/<method>.
		method := r.URL.Path
		if i := strings.LastIndex(method, "/"); i >= 0 {
			method = method[i+1:]
		}
		if method == "sendMessage" {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test mock request
			m.mu.Lock()
			m.sent = append(m.sent, body)
			m.mu.Unlock()
		}
		if handler, ok := m.Handlers[method]; ok {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(m.Close)
	return m
}

// SentMessages returns the sendMessage payloads received so far.
func (m *MockTelegramServer) SentMessages() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTexts returns just the text field of every sendMessage payload.
func (m *MockTelegramServer) SentTexts() []string {
	var texts []string
	for _, msg := range m.SentMessages() {
		if s, ok := msg["text"].(string); ok {
			texts = append(texts, s)
		}
	}
	return texts
}

// MockUpdatesResponse adds a getUpdates handler returning the given raw updates.
func (m *MockTelegramServer) MockUpdatesResponse(updates []map[string]any) {
	m.Handlers["getUpdates"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{"ok": true, "result": updates}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockSupabaseServer mocks the Supabase project: GoTrue token grants and
// PostgREST tables.
type MockSupabaseServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockSupabaseServer creates a mock Supabase server keyed by URL path.
func NewMockSupabaseServer(t *testing.T) *MockSupabaseServer {
	t.Helper()
	m := &MockSupabaseServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockSignInSuccess makes the password grant succeed with the given token.
func (m *MockSupabaseServer) MockSignInSuccess(email, accessToken string) {
	m.Handlers["/auth/v1/token"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"access_token": accessToken,
			"expires_in":   3600,
			"user":         map[string]string{"email": email},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockSignInRejected makes the password grant fail with the given reason.
func (m *MockSupabaseServer) MockSignInRejected(reason string) {
	m.Handlers["/auth/v1/token"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": reason}) //nolint:errcheck // test mock response
	}
}

// MockAdminSettings serves the admin settings table with the given rows and
// accepts upserts.
func (m *MockSupabaseServer) MockAdminSettings(rows []map[string]any) {
	m.Handlers["/rest/v1/admin"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		// PostgREST-style id=eq.<value> filter.
		filtered := rows
		if q := r.URL.Query().Get("id"); strings.HasPrefix(q, "eq.") {
			want := strings.TrimPrefix(q, "eq.")
			filtered = nil
			for _, row := range rows {
				if row["id"] == want {
					filtered = append(filtered, row)
				}
			}
		}
		if filtered == nil {
			filtered = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(filtered) //nolint:errcheck // test mock response
	}
}

// MockMessages serves the messages table: GET returns the rows with an exact
// Content-Range total, DELETE succeeds.
func (m *MockSupabaseServer) MockMessages(userIDs []string, total int) {
	m.Handlers["/rest/v1/messages"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		rows := make([]map[string]string, 0, len(userIDs))
		for _, id := range userIDs {
			rows = append(rows, map[string]string{"user_id": id})
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Range", fmt.Sprintf("0-%d/%d", len(rows)-1, total))
		_ = json.NewEncoder(w).Encode(rows) //nolint:errcheck // test mock response
	}
}
