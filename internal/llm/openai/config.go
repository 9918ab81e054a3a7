package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/statuscert/internal/llm"
)

// Config for the OpenAI client. Nothing is read from the environment here;
// callers build it from common.LLMConfig.
type Config struct {
	APIKey          string
	BaseURL         string        // default https://api.openai.com/v1
	Model           string        // e.g., "gpt-4o-mini"
	Temperature     float32       // 0..2
	Timeout         time.Duration // per-attempt http client timeout
	MaxOutputTokens int
	MaxAttempts     int
	RetryBaseDelay  time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	retry  llm.RetryPolicy
	logger *slog.Logger
}

var _ llm.Extractor = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 8000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay < 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		retry:  llm.RetryPolicy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.RetryBaseDelay},
		logger: logger,
	}
}
