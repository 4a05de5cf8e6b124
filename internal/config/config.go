// Package config loads the application configuration from YAML.
package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI embedder.
type OpenAIEmbedderConfig struct {
	Model string `yaml:"model"`
}

// OllamaEmbedderConfig holds configuration for a local Ollama embedder.
type OllamaEmbedderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Ollama *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
}

// OpenAIGeneratorConfig holds configuration for the OpenAI chat generator.
type OpenAIGeneratorConfig struct {
	Model string `yaml:"model"`
}

// LocalGeneratorConfig holds configuration for a local HTTP generator.
type LocalGeneratorConfig struct {
	BaseURL string `yaml:"base_url"`
	Path    string `yaml:"path"`
	Model   string `yaml:"model"`
}

// GeneratorConfig selects and configures the answer generator backend.
type GeneratorConfig struct {
	Type   string                 `yaml:"type"`
	OpenAI *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
	Local  *LocalGeneratorConfig  `yaml:"local,omitempty"`
}

// OpenAISpeechConfig holds configuration for the OpenAI speech backend.
type OpenAISpeechConfig struct {
	Model string `yaml:"model"`
	Voice string `yaml:"voice"`
}

// GoogleSpeechConfig holds configuration for the Google Translate speech
// backend.
type GoogleSpeechConfig struct {
	Language string `yaml:"language"`
}

// SpeechConfig selects and configures the speech synthesizer. Type "none"
// disables audio replies entirely.
type SpeechConfig struct {
	Type   string              `yaml:"type"`
	OpenAI *OpenAISpeechConfig `yaml:"openai,omitempty"`
	Google *GoogleSpeechConfig `yaml:"google,omitempty"`
}

// SQLiteStoreConfig holds the database path for the SQLite vector store.
type SQLiteStoreConfig struct {
	Path string `yaml:"path"`
}

// VectorStoreConfig selects and configures the vector store. With Shared set,
// every session reads and writes one process-wide store; the default gives
// each session its own isolated index.
type VectorStoreConfig struct {
	Type   string             `yaml:"type"`
	Shared bool               `yaml:"shared"`
	SQLite *SQLiteStoreConfig `yaml:"sqlite,omitempty"`
}

// ChunkingConfig configures sentence grouping during indexing.
type ChunkingConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	OverlapSentences  int `yaml:"overlap_sentences"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// TimeoutsConfig bounds the outbound calls made while serving a session.
// EmbedSecs applies to ingestion-time embedding; GenerateSecs bounds the
// whole question pipeline including the question embedding.
type TimeoutsConfig struct {
	FetchSecs    int `yaml:"fetch_secs"`
	EmbedSecs    int `yaml:"embed_secs"`
	GenerateSecs int `yaml:"generate_secs"`
	SpeechSecs   int `yaml:"speech_secs"`
}

// AppConfig is the root application configuration.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Speech      SpeechConfig      `yaml:"speech"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts"`
	WatchDir    string            `yaml:"watch_dir"`
}

// Load reads the config at path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// FetchTimeout returns the configured web fetch timeout.
func (t TimeoutsConfig) FetchTimeout() time.Duration {
	return time.Duration(t.FetchSecs) * time.Second
}

// EmbedTimeout returns the configured embedding call timeout.
func (t TimeoutsConfig) EmbedTimeout() time.Duration {
	return time.Duration(t.EmbedSecs) * time.Second
}

// GenerateTimeout returns the configured generation call timeout.
func (t TimeoutsConfig) GenerateTimeout() time.Duration {
	return time.Duration(t.GenerateSecs) * time.Second
}

// SpeechTimeout returns the configured speech synthesis timeout.
func (t TimeoutsConfig) SpeechTimeout() time.Duration {
	return time.Duration(t.SpeechSecs) * time.Second
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "openai"
	}
	if cfg.Speech.Type == "" {
		cfg.Speech.Type = "google"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Chunking.SentencesPerChunk == 0 {
		cfg.Chunking.SentencesPerChunk = 3
	}
	if cfg.Chunking.OverlapSentences == 0 {
		cfg.Chunking.OverlapSentences = 1
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Timeouts.FetchSecs == 0 {
		cfg.Timeouts.FetchSecs = 15
	}
	if cfg.Timeouts.EmbedSecs == 0 {
		cfg.Timeouts.EmbedSecs = 30
	}
	if cfg.Timeouts.GenerateSecs == 0 {
		cfg.Timeouts.GenerateSecs = 60
	}
	if cfg.Timeouts.SpeechSecs == 0 {
		cfg.Timeouts.SpeechSecs = 30
	}
}
