package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"doctalk/internal/adapters/embedding"
	"doctalk/internal/adapters/extract"
	"doctalk/internal/adapters/fetch"
	"doctalk/internal/adapters/filewatcher"
	"doctalk/internal/adapters/llm"
	"doctalk/internal/adapters/tts"
	"doctalk/internal/adapters/vectordb"
	"doctalk/internal/config"
	"doctalk/internal/domain/ports"
	"doctalk/internal/domain/usecases"
	"doctalk/internal/infrastructure/preload"
	"doctalk/internal/infrastructure/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "doctalk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client *openai.Client
	if needsOpenAI(cfg) {
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
		client = openai.NewClient(key)
	}

	embedder, err := buildEmbedder(cfg, client)
	if err != nil {
		return err
	}
	generator, err := buildGenerator(cfg, client)
	if err != nil {
		return err
	}
	speech, err := buildSpeech(cfg, client)
	if err != nil {
		return err
	}
	newStore, shared, err := buildStoreFactory(cfg)
	if err != nil {
		return err
	}

	extractor := extract.NewFileExtractor()

	timeouts := ws.Timeouts{
		Fetch:    cfg.Timeouts.FetchTimeout(),
		Embed:    cfg.Timeouts.EmbedTimeout(),
		Generate: cfg.Timeouts.GenerateTimeout(),
		Speech:   cfg.Timeouts.SpeechTimeout(),
	}

	if cfg.WatchDir != "" {
		if !shared {
			logger.Warn("watch_dir requires a shared vector store, preloading disabled",
				zap.String("watch_dir", cfg.WatchDir))
		} else {
			watcher, err := filewatcher.NewFSNotifyWatcher(nil, logger)
			if err != nil {
				return fmt.Errorf("creating file watcher: %w", err)
			}
			defer watcher.Stop()

			indexer := usecases.NewIndexer(embedder, newStore(), cfg.Chunking.SentencesPerChunk, cfg.Chunking.OverlapSentences)
			pre := preload.NewPreloader(indexer, extractor, watcher, logger)
			go func() {
				if err := pre.Run(ctx, cfg.WatchDir); err != nil && ctx.Err() == nil {
					logger.Error("preloader stopped", zap.Error(err))
				}
			}()
		}
	}

	deps := ws.Deps{
		Embedder:  embedder,
		Generator: generator,
		Speech:    speech,
		Extractor: extractor,
		Pages:     extract.NewPageExtractor(),
		Fetcher:   fetch.NewHTTPFetcher(timeouts.Fetch),
		NewStore:  newStore,

		SentencesPerChunk: cfg.Chunking.SentencesPerChunk,
		OverlapSentences:  cfg.Chunking.OverlapSentences,
		TopK:              cfg.Retrieval.TopK,
		Timeouts:          timeouts,
	}

	server := ws.NewServer(cfg.Server.Address, deps, logger)
	return server.Start(ctx)
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func needsOpenAI(cfg *config.AppConfig) bool {
	return cfg.Embedder.Type == "openai" || cfg.Generator.Type == "openai" || cfg.Speech.Type == "openai"
}

func buildEmbedder(cfg *config.AppConfig, client *openai.Client) (ports.EmbeddingService, error) {
	switch cfg.Embedder.Type {
	case "openai":
		model := ""
		if cfg.Embedder.OpenAI != nil {
			model = cfg.Embedder.OpenAI.Model
		}
		return embedding.NewOpenAIAdapter(client, model), nil
	case "ollama":
		baseURL, model := "", ""
		if cfg.Embedder.Ollama != nil {
			baseURL = cfg.Embedder.Ollama.BaseURL
			model = cfg.Embedder.Ollama.Model
		}
		return embedding.NewOllamaAdapter(baseURL, model, cfg.Timeouts.EmbedTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

func buildGenerator(cfg *config.AppConfig, client *openai.Client) (ports.Generator, error) {
	switch cfg.Generator.Type {
	case "openai":
		model := ""
		if cfg.Generator.OpenAI != nil {
			model = cfg.Generator.OpenAI.Model
		}
		return llm.NewOpenAIAdapter(client, model, 0.2, 512), nil
	case "local":
		baseURL, path, model := "", "", ""
		if cfg.Generator.Local != nil {
			baseURL = cfg.Generator.Local.BaseURL
			path = cfg.Generator.Local.Path
			model = cfg.Generator.Local.Model
		}
		return llm.NewLocalAdapter(baseURL, path, model, cfg.Timeouts.GenerateTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Generator.Type)
	}
}

func buildSpeech(cfg *config.AppConfig, client *openai.Client) (ports.SpeechSynthesizer, error) {
	switch cfg.Speech.Type {
	case "none":
		return nil, nil
	case "openai":
		model, voice := "", ""
		if cfg.Speech.OpenAI != nil {
			model = cfg.Speech.OpenAI.Model
			voice = cfg.Speech.OpenAI.Voice
		}
		return tts.NewOpenAIAdapter(client, model, voice), nil
	case "google":
		lang := ""
		if cfg.Speech.Google != nil {
			lang = cfg.Speech.Google.Language
		}
		return tts.NewGoogleAdapter("", lang, cfg.Timeouts.SpeechTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown speech type %q", cfg.Speech.Type)
	}
}

// buildStoreFactory returns the per-connection store factory and whether the
// returned stores are one shared instance. SQLite is always shared: one
// database file cannot host isolated per-session corpora.
func buildStoreFactory(cfg *config.AppConfig) (func() ports.VectorStore, bool, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		if cfg.VectorStore.Shared {
			store := vectordb.NewInMemoryStore()
			return func() ports.VectorStore { return store }, true, nil
		}
		return func() ports.VectorStore { return vectordb.NewInMemoryStore() }, false, nil
	case "sqlite":
		path := ""
		if cfg.VectorStore.SQLite != nil {
			path = cfg.VectorStore.SQLite.Path
		}
		store, err := vectordb.NewSQLiteStore(path)
		if err != nil {
			return nil, false, fmt.Errorf("opening sqlite store: %w", err)
		}
		return func() ports.VectorStore { return store }, true, nil
	default:
		return nil, false, fmt.Errorf("unknown vector store type %q", cfg.VectorStore.Type)
	}
}
