// Package ws implements the WebSocket session protocol: one connection per
// client, sequential event handling, session-scoped index lifetime.
package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"doctalk/internal/domain/entities"
	"doctalk/internal/domain/ports"
	"doctalk/internal/domain/usecases"
)

// User-facing protocol strings.
const (
	greetingMessage       = "WebSocket connected. Send a file or website."
	invalidFormatMessage  = "Invalid message format."
	missingFileMessage    = "Missing file or filename."
	imageRejectMessage    = "Image files are not supported."
	emptyFileMessage      = "Could not extract text from file."
	missingURLMessage     = "No URL provided."
	emptyWebsiteMessage   = "Website contains no extractable or meaningful content."
	websiteIndexedMessage = "Website content indexed. You may now ask questions."
	noContentYetMessage   = "Please upload a document or website first."
	missingQuestionMsg    = "No question provided."
	authPlaceholderMsg    = "Auth event received (placeholder)"
	synthesisFailedMsg    = "Failed to synthesize speech."
)

// envelope is the inbound tagged message form.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outbound is the structured text frame form.
type outbound struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// Timeouts bounds each class of outbound call made while handling an event.
// Embed applies to ingestion-time embedding; Generate bounds the full
// question pipeline (embed, retrieve, generate).
type Timeouts struct {
	Fetch    time.Duration
	Embed    time.Duration
	Generate time.Duration
	Speech   time.Duration
}

// Session owns one connection's state: the page metadata captured from the
// last website ingestion, and (through the indexer) membership in the
// session's index. Events are handled strictly in arrival order.
type Session struct {
	id        string
	conn      *websocket.Conn
	indexer   *usecases.Indexer
	answerer  *usecases.Answerer
	extractor ports.DocumentExtractor
	pages     ports.PageExtractor
	fetcher   ports.PageFetcher
	speech    ports.SpeechSynthesizer
	timeouts  Timeouts
	log       *zap.Logger

	meta *entities.PageMeta
}

// NewSession wraps an upgraded connection. speech may be nil to disable
// audio replies.
func NewSession(
	conn *websocket.Conn,
	indexer *usecases.Indexer,
	answerer *usecases.Answerer,
	extractor ports.DocumentExtractor,
	pages ports.PageExtractor,
	fetcher ports.PageFetcher,
	speech ports.SpeechSynthesizer,
	timeouts Timeouts,
	log *zap.Logger,
) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		conn:      conn,
		indexer:   indexer,
		answerer:  answerer,
		extractor: extractor,
		pages:     pages,
		fetcher:   fetcher,
		speech:    speech,
		timeouts:  timeouts,
		log:       log.With(zap.String("session", id)),
	}
}

// Run sends the greeting and processes inbound frames until the connection
// closes or ctx is cancelled. On exit the session's index is cleared
// unconditionally.
func (s *Session) Run(ctx context.Context) {
	defer s.cleanup()

	s.sendStatus(greetingMessage)

	for {
		if ctx.Err() != nil {
			return
		}
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("connection closed", zap.Error(err))
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil || env.Event == "" {
			s.sendError(invalidFormatMessage)
			continue
		}

		switch env.Event {
		case "upload":
			s.handleUpload(ctx, env.Data)
		case "website":
			s.handleWebsite(ctx, env.Data)
		case "question":
			s.handleQuestion(ctx, env.Data)
		case "auth":
			s.sendStatus(authPlaceholderMsg)
		default:
			s.sendError(fmt.Sprintf("Unknown event: %s", env.Event))
		}
	}
}

// cleanup clears the index after the connection is gone. It runs on a fresh
// context so cancellation of the session does not skip it.
func (s *Session) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.indexer.Clear(ctx); err != nil {
		s.log.Warn("clearing index on disconnect failed", zap.Error(err))
	}
	s.meta = nil
}

func (s *Session) handleUpload(ctx context.Context, data json.RawMessage) {
	var payload struct {
		File     string `json:"file"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(invalidFormatMessage)
		return
	}
	if payload.File == "" || payload.Filename == "" {
		s.sendError(missingFileMessage)
		return
	}

	// Images are rejected by declared type before any decoding.
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(payload.Filename))); strings.HasPrefix(mt, "image/") {
		s.sendError(imageRejectMessage)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(payload.File)
	if err != nil {
		s.sendError(invalidFormatMessage)
		return
	}

	text, err := s.extractor.Extract(ctx, raw, payload.Filename)
	if err != nil {
		s.log.Warn("extraction failed", zap.String("filename", payload.Filename), zap.Error(err))
		s.sendError(fmt.Sprintf("Failed to process %s: %s", payload.Filename, extractionCause(err)))
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.timeouts.Embed)
	defer cancel()
	count, err := s.indexer.Index(embedCtx, text)
	if err != nil {
		s.log.Warn("indexing failed", zap.String("filename", payload.Filename), zap.Error(err))
		s.sendError(fmt.Sprintf("Failed to process %s: indexing failed", payload.Filename))
		return
	}
	if count == 0 {
		s.sendError(emptyFileMessage)
		return
	}

	s.log.Info("file indexed", zap.String("filename", payload.Filename), zap.Int("chunks", count))
	s.sendStatus(fmt.Sprintf("%s indexed. You may now ask questions.", payload.Filename))
}

func (s *Session) handleWebsite(ctx context.Context, data json.RawMessage) {
	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(invalidFormatMessage)
		return
	}
	if strings.TrimSpace(payload.URL) == "" {
		s.sendError(missingURLMessage)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeouts.Fetch)
	rawHTML, err := s.fetcher.Fetch(fetchCtx, payload.URL)
	cancel()
	if err != nil {
		var fe *entities.FetchError
		if errors.As(err, &fe) {
			s.sendError(fmt.Sprintf("Failed to fetch website: %d", fe.Status))
		} else {
			s.sendError(fmt.Sprintf("Failed to fetch website: %s", err))
		}
		return
	}

	page, err := s.pages.ExtractPage(rawHTML)
	// Metadata is kept even when the guard rejects the page, so later
	// meta-questions can still use it.
	if page.Title != "" || page.Description != "" {
		s.meta = &entities.PageMeta{Title: page.Title, Description: page.Description}
	}
	if err != nil {
		if errors.Is(err, entities.ErrEmptyContent) {
			s.sendError(emptyWebsiteMessage)
		} else {
			s.sendError(fmt.Sprintf("Failed to fetch or process website: %s", err))
		}
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.timeouts.Embed)
	defer cancel()
	count, err := s.indexer.Index(embedCtx, page.Text)
	if err != nil {
		s.log.Warn("indexing website failed", zap.String("url", payload.URL), zap.Error(err))
		s.sendError("Failed to process website: indexing failed")
		return
	}

	s.log.Info("website indexed", zap.String("url", payload.URL), zap.Int("chunks", count))
	s.sendStatus(websiteIndexedMessage)
}

func (s *Session) handleQuestion(ctx context.Context, data json.RawMessage) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(invalidFormatMessage)
		return
	}
	question := strings.TrimSpace(payload.Text)
	if question == "" {
		s.sendError(missingQuestionMsg)
		return
	}

	empty, err := s.indexer.IsEmpty(ctx)
	if err != nil {
		s.log.Warn("index check failed", zap.Error(err))
		s.sendError(usecases.GenericFailureAnswer)
		return
	}
	if empty {
		s.sendError(noContentYetMessage)
		return
	}

	// The Generate timeout bounds the whole embed-retrieve-generate
	// pipeline; generation dominates the cost and the embedding call shares
	// its budget.
	genCtx, cancel := context.WithTimeout(ctx, s.timeouts.Generate)
	answer, err := s.answerer.Answer(genCtx, question, s.meta)
	cancel()
	if err != nil {
		s.log.Warn("answering failed", zap.String("question", question), zap.Error(err))
		s.sendError(usecases.GenericFailureAnswer)
		return
	}

	s.sendAnswer(answer.Text)

	if s.speech == nil {
		return
	}
	speechCtx, cancel := context.WithTimeout(ctx, s.timeouts.Speech)
	audio, err := s.speech.Synthesize(speechCtx, answer.Text)
	cancel()
	if err != nil {
		s.log.Warn("speech synthesis failed", zap.Error(err))
		s.sendError(synthesisFailedMsg)
		return
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		s.log.Warn("writing audio frame failed", zap.Error(err))
	}
}

func (s *Session) sendStatus(msg string) { s.sendFrame("status", msg) }
func (s *Session) sendError(msg string)  { s.sendFrame("error", msg) }
func (s *Session) sendAnswer(msg string) { s.sendFrame("answer", msg) }

func (s *Session) sendFrame(event, msg string) {
	if err := s.conn.WriteJSON(outbound{Event: event, Data: msg}); err != nil {
		s.log.Warn("writing frame failed", zap.String("event", event), zap.Error(err))
	}
}

// extractionCause flattens extraction failures into the short user-facing
// cause string.
func extractionCause(err error) string {
	if errors.Is(err, entities.ErrUnsupportedFormat) {
		return "unsupported file format"
	}
	if errors.Is(err, entities.ErrEmptyContent) {
		return "no extractable content"
	}
	return err.Error()
}
