package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignInReturnsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("expected apikey header, got %q", got)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.c" {
			t.Errorf("credentials not forwarded: %v", body)
		}
		json.NewEncoder(w).Encode(Session{
			AccessToken: "tok-1",
			ExpiresIn:   3600,
			User:        User{ID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301", Email: "a@b.c"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	sess, err := c.SignIn(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.AccessToken != "tok-1" || sess.User.Email != "a@b.c" {
		t.Errorf("session decoded incorrectly: %+v", sess)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	_, err := c.SignIn(context.Background(), "a@b.c", "wrong")

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Status != http.StatusBadRequest || authErr.Message != "Invalid login credentials" {
		t.Errorf("provider error not surfaced: %+v", authErr)
	}
}

func TestUserFromTokenRejectsBadID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("token not forwarded, got %q", got)
		}
		w.Write([]byte(`{"id":"not-a-uuid","email":"a@b.c"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	if _, err := c.UserFromToken(context.Background(), "tok-1"); err == nil {
		t.Fatal("expected an error for a malformed user id")
	}
}

func TestUserFromToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"3f2504e0-4f89-41d3-9a0c-0305e82c3301","email":"a@b.c","user_metadata":{"name":"Alex"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	user, err := c.UserFromToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "Alex" || user.Email != "a@b.c" {
		t.Errorf("user decoded incorrectly: %+v", user)
	}
}
