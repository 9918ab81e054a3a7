package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string        `yaml:"http_addr"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// OCRConfig holds text acquisition configuration
type OCRConfig struct {
	Pdftotext     string  `yaml:"pdftotext"`
	Pdftoppm      string  `yaml:"pdftoppm"`
	Pdfinfo       string  `yaml:"pdfinfo"`
	TesseractLang string  `yaml:"tesseract_lang"`
	MaxPages      int     `yaml:"max_pages"`
	Scale         float64 `yaml:"scale"`
	MinTextChars  int     `yaml:"min_text_chars"`
	MaxConcurrent int     `yaml:"max_concurrent"`
	HeicConverter string  `yaml:"heic_converter"`
}

// LLMConfig holds extraction service configuration
type LLMConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	Temperature     float32       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
}

// PipelineConfig holds report assembly configuration
type PipelineConfig struct {
	MaxDocumentChars  int `yaml:"max_document_chars"`
	IssuePageFallback int `yaml:"issue_page_fallback"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			MaxUploadMB:    25,
			RequestTimeout: 90 * time.Second,
		},
		OCR: OCRConfig{
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			Pdfinfo:       "pdfinfo",
			TesseractLang: "eng",
			MaxPages:      50,
			Scale:         2.0,
			MinTextChars:  100,
			MaxConcurrent: 2,
		},
		LLM: LLMConfig{
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			Temperature:     0.0,
			Timeout:         60 * time.Second,
			MaxOutputTokens: 8000,
			MaxAttempts:     3,
			RetryBaseDelay:  time.Second,
		},
		Pipeline: PipelineConfig{
			MaxDocumentChars:  120000,
			IssuePageFallback: 1,
		},
	}
}

// LoadConfig loads configuration: defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.MaxUploadMB = getEnvAsInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)
	c.Server.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)

	c.OCR.Pdftotext = getEnv("PDFTOTEXT_BIN", c.OCR.Pdftotext)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Pdfinfo = getEnv("PDFINFO_BIN", c.OCR.Pdfinfo)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.Scale = getEnvAsFloat("OCR_SCALE", c.OCR.Scale)
	c.OCR.MinTextChars = getEnvAsInt("MIN_TEXT_CHARS", c.OCR.MinTextChars)
	c.OCR.MaxConcurrent = getEnvAsInt("OCR_MAX_CONCURRENT", c.OCR.MaxConcurrent)
	c.OCR.HeicConverter = getEnv("OCR_HEIC_CONVERTER", c.OCR.HeicConverter)

	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Temperature = float32(getEnvAsFloat("OPENAI_TEMPERATURE", float64(c.LLM.Temperature)))
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxOutputTokens = getEnvAsInt("OPENAI_MAX_OUTPUT_TOKENS", c.LLM.MaxOutputTokens)
	c.LLM.MaxAttempts = getEnvAsInt("LLM_MAX_ATTEMPTS", c.LLM.MaxAttempts)
	c.LLM.RetryBaseDelay = getEnvAsDuration("LLM_RETRY_BASE_DELAY", c.LLM.RetryBaseDelay)

	c.Pipeline.MaxDocumentChars = getEnvAsInt("PIPELINE_MAX_DOCUMENT_CHARS", c.Pipeline.MaxDocumentChars)
	c.Pipeline.IssuePageFallback = getEnvAsInt("PIPELINE_ISSUE_PAGE_FALLBACK", c.Pipeline.IssuePageFallback)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.OCR.MaxPages <= 0 {
		return NewAppError(CodeConfig, "OCR_MAX_PAGES must be > 0", ErrInvalidInput)
	}
	if c.OCR.Scale <= 0 {
		return NewAppError(CodeConfig, "OCR_SCALE must be > 0", ErrInvalidInput)
	}
	switch c.OCR.HeicConverter {
	case "", "heif-convert", "magick", "sips":
	default:
		return NewAppError(CodeConfig, "OCR_HEIC_CONVERTER must be one of heif-convert, magick, sips", ErrInvalidInput)
	}
	if c.LLM.MaxAttempts <= 0 {
		return NewAppError(CodeConfig, "LLM_MAX_ATTEMPTS must be > 0", ErrInvalidInput)
	}
	if c.Pipeline.IssuePageFallback < 0 {
		return NewAppError(CodeConfig, "PIPELINE_ISSUE_PAGE_FALLBACK must be >= 0", ErrInvalidInput)
	}
	return nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *ServerConfig) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) * 1024 * 1024 }
