package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscordNotify(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	if err := d.Notify(context.Background(), "Assignment uploaded: HW1 - CS101, due 2024-03-05"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got["content"] == "" {
		t.Error("webhook payload missing content field")
	}
}

func TestDiscordNotify_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	if err := d.Notify(context.Background(), "hi"); err == nil {
		t.Error("expected error for non-2xx webhook response")
	}
}

func TestDiscordNotify_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDiscord(srv.URL)
	if err := d.Notify(context.Background(), "hi"); err == nil {
		t.Error("expected error when the webhook is unreachable")
	}
}
