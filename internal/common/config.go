package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Imaging  ImagingConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // sqlite file path; ":memory:" for ephemeral runs
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr  string
	UploadDir string
}

// ImagingConfig holds normalization-related configuration
type ImagingConfig struct {
	TargetSizeKB  int
	PdftoppmPath  string // empty disables PDF support
	TesseractPath string
	RasterDPI     int
}

// LLMConfig holds extraction-backend configuration
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// PipelineConfig holds orchestrator tunables
type PipelineConfig struct {
	TempDir        string
	MaxAttempts    int
	RetryDelay     time.Duration
	Workers        int
	QueueSize      int
	JobTimeout     time.Duration
	DocParallelism int // 1 = strictly sequential
}

// LoadEnv loads a .env file if present; missing files are not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "scorecard-verifier.db"),
		},
		Server: ServerConfig{
			HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		},
		Imaging: ImagingConfig{
			TargetSizeKB:  getEnvAsInt("COMPRESS_TARGET_KB", 100),
			PdftoppmPath:  getEnv("PDFTOPPM_PATH", ""),
			TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
			RasterDPI:     getEnvAsInt("RASTER_DPI", 200),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "http://127.0.0.1:8080/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "meta-llama/Llama-3.2-11B-Vision-Instruct-Turbo"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 256),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 5*time.Minute),
		},
		Pipeline: PipelineConfig{
			TempDir:        getEnv("TEMP_COMPRESS_DIR", os.TempDir()),
			MaxAttempts:    getEnvAsInt("EXTRACT_MAX_ATTEMPTS", 3),
			RetryDelay:     getEnvAsDuration("EXTRACT_RETRY_DELAY", time.Second),
			Workers:        getEnvAsInt("QUEUE_WORKERS", 2),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			JobTimeout:     getEnvAsDuration("JOB_TIMEOUT", 2*time.Hour),
			DocParallelism: getEnvAsInt("DOC_PARALLELISM", 1),
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
	if c.Database.Path == "" {
		return NewAppError("CONFIG_ERROR", "DB_PATH is required", ErrInvalidInput)
	}
	if c.LLM.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "LLM_BASE_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
