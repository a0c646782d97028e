package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignInSuccess(t *testing.T) {
	var gotAPIKey string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("grant_type = %q", r.URL.Query().Get("grant_type"))
		}
		gotAPIKey = r.Header.Get("apikey")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-xyz",
			"expires_in":   3600,
			"user":         map[string]string{"email": "admin@example.com"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	cred, err := c.SignIn(context.Background(), "admin@example.com", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if cred.AccessToken != "tok-xyz" || cred.Email != "admin@example.com" {
		t.Errorf("cred = %+v", cred)
	}
	if cred.ExpiresAt.IsZero() {
		t.Error("ExpiresAt not set")
	}
	if gotAPIKey != "anon-key" {
		t.Errorf("apikey = %q", gotAPIKey)
	}
	if gotBody["email"] != "admin@example.com" || gotBody["password"] != "hunter2" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSignInRejectedCarriesReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignIn(context.Background(), "admin@example.com", "wrong")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v", err)
	}
	if authErr.Reason != "Invalid login credentials" {
		t.Errorf("reason = %q", authErr.Reason)
	}
}

func TestSignInRejectedDefaultReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignIn(context.Background(), "a@b.c", "x")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v", err)
	}
	if authErr.Reason != "invalid credentials" {
		t.Errorf("reason = %q", authErr.Reason)
	}
}

func TestSignInProviderFaultIsNotAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignIn(context.Background(), "a@b.c", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Fatalf("provider fault misclassified as rejection: %v", err)
	}
}
