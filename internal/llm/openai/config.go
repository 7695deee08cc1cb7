package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/acaslabs/mcp-server/internal/artifact"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4-turbo"
	Temperature float32       // kept low for near-deterministic output
	MaxTokens   int           // output-length ceiling
	Timeout     time.Duration // http client timeout

	// Reference example directories for format conversion.
	ExampleISADir  string
	ExampleACASDir string
}

// Client talks to the chat/completions endpoint and persists generated
// artifacts through the store before returning.
type Client struct {
	cfg    Config
	http   *http.Client
	store  *artifact.Store
	logger *slog.Logger
}

func NewClient(cfg Config, store *artifact.Store, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		store:  store,
		logger: logger,
	}
}
