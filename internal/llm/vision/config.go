package vision

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the vision extraction backend. The endpoint speaks the
// OpenAI-compatible chat/completions protocol; any conforming server
// (hosted API or a local llama-server) works.
type Config struct {
	BaseURL     string        // e.g. http://127.0.0.1:8080/v1
	APIKey      string        // if empty, falls back to env LLM_API_KEY
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // per-request (document-level) timeout
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8080/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "meta-llama/Llama-3.2-11B-Vision-Instruct-Turbo"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}
