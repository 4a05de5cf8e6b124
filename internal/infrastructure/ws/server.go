package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"doctalk/internal/domain/ports"
	"doctalk/internal/domain/usecases"
)

// Deps is everything a connection needs. NewStore is called once per
// connection; a shared-store deployment returns the same instance every
// time, the default returns a fresh isolated store.
type Deps struct {
	Embedder  ports.EmbeddingService
	Generator ports.Generator
	Speech    ports.SpeechSynthesizer
	Extractor ports.DocumentExtractor
	Pages     ports.PageExtractor
	Fetcher   ports.PageFetcher
	NewStore  func() ports.VectorStore

	SentencesPerChunk int
	OverlapSentences  int
	TopK              int
	Timeouts          Timeouts
}

// Server exposes the WebSocket chat endpoint and a health check.
type Server struct {
	echo *echo.Echo
	deps Deps
	addr string
	log  *zap.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewServer wires the routes. The server does not start listening until
// Start is called.
func NewServer(addr string, deps Deps, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, deps: deps, addr: addr, log: log}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/ws/chat", s.handleChat)

	return s
}

// Handler exposes the routing tree, mainly for tests that mount the server
// on an ephemeral listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	s.log.Info("server listening", zap.String("addr", s.addr))
	err := s.echo.Start(s.addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleChat upgrades the connection and runs the session loop to
// completion. Each connection gets its own indexer and answerer over the
// store NewStore hands out.
func (s *Server) handleChat(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	store := s.deps.NewStore()
	indexer := usecases.NewIndexer(s.deps.Embedder, store, s.deps.SentencesPerChunk, s.deps.OverlapSentences)
	answerer := usecases.NewAnswerer(s.deps.Embedder, store, s.deps.Generator, s.deps.TopK)

	session := NewSession(conn, indexer, answerer, s.deps.Extractor, s.deps.Pages, s.deps.Fetcher, s.deps.Speech, s.deps.Timeouts, s.log)
	session.Run(c.Request().Context())
	return nil
}
