package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr  string
	AuthToken string // static bearer token for the dev authenticator
}

// StoreConfig holds job-store configuration
type StoreConfig struct {
	Driver string // "sqlite" | "postgres" | "memory"
	DSN    string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	DPI           int
	MaxPages      int
}

// LLMConfig holds AI-extraction configuration
type LLMConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float32
	Timeout      time.Duration
	MaxChunkLen  int // characters per chunk sent to the service
	ChunkOverlap int // characters of overlap between consecutive chunks
}

// PipelineConfig holds pipeline thresholds and scheduling knobs.
// The plausibility thresholds are heuristics; tune them, do not hardcode around them.
type PipelineConfig struct {
	MinCharsPerPage int // below this a PDF is treated as scanned
	MinTextLength   int // below this extracted text is low-confidence
	MaxUploadBytes  int64
	SpoolDir        string // where uploaded payloads wait for a worker
	Workers         int
	QueueSize       int
	JobTimeout      time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
			AuthToken: getEnv("AUTH_TOKEN", ""),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "sqlite"),
			DSN:    getEnv("STORE_DSN", "file:sof.db"),
		},
		OCR: OCRConfig{
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			BaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:       getEnv("LLM_API_KEY", ""),
			Model:        getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature:  getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			MaxChunkLen:  getEnvAsInt("LLM_MAX_CHUNK_LEN", 12000),
			ChunkOverlap: getEnvAsInt("LLM_CHUNK_OVERLAP", 500),
		},
		Pipeline: PipelineConfig{
			MinCharsPerPage: getEnvAsInt("MIN_CHARS_PER_PAGE", 50),
			MinTextLength:   getEnvAsInt("MIN_TEXT_LENGTH", 10),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
			SpoolDir:        getEnv("SPOOL_DIR", ""),
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:       getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			JobTimeout:      getEnvAsDuration("PIPELINE_JOB_TIMEOUT", 3*time.Minute),
		},
	}
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" && c.Store.Driver != "memory" {
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be sqlite, postgres, or memory", ErrInvalidInput)
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		return NewAppError("CONFIG_ERROR", "STORE_DSN is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
