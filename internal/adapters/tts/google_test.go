package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGoogleAdapter_Synthesize(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte("mp3bytes"))
	}))
	defer server.Close()

	a := NewGoogleAdapter(server.URL, "en", time.Second)
	audio, err := a.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if string(audio) != "mp3bytes" {
		t.Errorf("unexpected audio: %q", audio)
	}
	if gotQuery != "hello world" {
		t.Errorf("unexpected query text: %q", gotQuery)
	}
}

func TestGoogleAdapter_LongTextIsSegmented(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if n := len(r.URL.Query().Get("q")); n > googleTTSMaxChars {
			t.Errorf("segment too long: %d chars", n)
		}
		w.Write([]byte("x"))
	}))
	defer server.Close()

	a := NewGoogleAdapter(server.URL, "en", time.Second)
	long := strings.Repeat("several words of answer text ", 30)
	audio, err := a.Synthesize(context.Background(), long)
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if calls < 2 {
		t.Errorf("expected multiple segments, got %d call(s)", calls)
	}
	if len(audio) != calls {
		t.Errorf("segments should be concatenated: %d bytes for %d calls", len(audio), calls)
	}
}

func TestGoogleAdapter_EndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := NewGoogleAdapter(server.URL, "en", time.Second)
	if _, err := a.Synthesize(context.Background(), "hello"); err == nil {
		t.Error("should error on non-200")
	}
}

func TestGoogleAdapter_EmptyText(t *testing.T) {
	a := NewGoogleAdapter("", "en", time.Second)
	if _, err := a.Synthesize(context.Background(), "   "); err == nil {
		t.Error("should reject empty text")
	}
}

func TestSplitSegments_ShortTextSinglePiece(t *testing.T) {
	got := splitSegments("short", 200)
	if len(got) != 1 || got[0] != "short" {
		t.Errorf("unexpected segments: %v", got)
	}
}
