package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClose_SafeAfterUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 2 * time.Second, RetryCount: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	f.Close()
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("album html body"))
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 2 * time.Second, RetryCount: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != "album html body" {
		t.Errorf("Fetch() = %q, want %q", body, "album html body")
	}
}

func TestFetch_RetriesOn503ThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 2 * time.Second, RetryCount: 3, RetryBase: time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Fetch() = %q, want %q", body, "ok")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestFetch_NotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 2 * time.Second, RetryCount: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("Fetch() error = nil, want error for 404")
	}
}

func TestNew_InvalidProxyURL(t *testing.T) {
	_, err := New(Config{ProxyURL: "://bad"})
	if err == nil {
		t.Fatal("New() error = nil, want error for invalid proxy URL")
	}
}
