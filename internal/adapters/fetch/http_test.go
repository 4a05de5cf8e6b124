package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"doctalk/internal/domain/entities"
)

func TestHTTPFetcher_SendsBrowserUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(5 * time.Second)
	html, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") || !strings.Contains(gotUA, "Chrome/120") {
		t.Errorf("expected browser user agent, got %q", gotUA)
	}
	if !strings.Contains(html, "ok") {
		t.Errorf("unexpected body: %q", html)
	}
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewHTTPFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), server.URL)

	var fetchErr *entities.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", fetchErr.Status)
	}
}

func TestHTTPFetcher_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewHTTPFetcher(5 * time.Second)
	if _, err := f.Fetch(ctx, server.URL); err == nil {
		t.Error("expected error on cancelled context")
	}
}
