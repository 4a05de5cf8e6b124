package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"doctalk/internal/domain/entities"
)

// Google's unofficial translate TTS endpoint caps the text per request, so
// longer answers are split on word boundaries and the mp3 segments are
// concatenated. mp3 frames are self-delimiting, which makes plain
// concatenation playable.
const googleTTSMaxChars = 200

// GoogleAdapter implements ports.SpeechSynthesizer against the Google
// Translate TTS endpoint. No API key required.
type GoogleAdapter struct {
	baseURL string
	lang    string
	client  *http.Client
}

// NewGoogleAdapter creates a Google Translate TTS adapter.
func NewGoogleAdapter(baseURL, lang string, timeout time.Duration) *GoogleAdapter {
	if baseURL == "" {
		baseURL = "https://translate.google.com/translate_tts"
	}
	if lang == "" {
		lang = "en"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoogleAdapter{
		baseURL: baseURL,
		lang:    lang,
		client:  &http.Client{Timeout: timeout},
	}
}

// Synthesize converts text to an mp3 byte stream.
func (a *GoogleAdapter) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", entities.ErrSynthesis)
	}

	var audio []byte
	for _, segment := range splitSegments(text, googleTTSMaxChars) {
		part, err := a.fetchSegment(ctx, segment)
		if err != nil {
			return nil, err
		}
		audio = append(audio, part...)
	}
	return audio, nil
}

func (a *GoogleAdapter) fetchSegment(ctx context.Context, segment string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", a.lang)
	q.Set("q", segment)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", entities.ErrSynthesis, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: endpoint returned status %d", entities.ErrSynthesis, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// splitSegments breaks text into runs of at most maxChars, preferring word
// boundaries.
func splitSegments(text string, maxChars int) []string {
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}
	words := strings.Fields(text)
	var segments []string
	var current strings.Builder
	for _, w := range words {
		if current.Len() > 0 && current.Len()+1+len(w) > maxChars {
			segments = append(segments, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}
