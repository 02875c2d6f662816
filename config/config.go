package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	appOnce   sync.Once
	appConfig *AppConfig
)

// AppConfig is the process-wide configuration, loaded once at startup
// and never mutated afterwards.
type AppConfig struct {
	ServerAddr       string        `yaml:"serverAddr"`
	APIKey           string        `yaml:"apiKey"`
	DeviceCapability string        `yaml:"deviceCapability"`
	MaxFileSize      int64         `yaml:"maxFileSize"`
	FetchTimeout     time.Duration `yaml:"fetchTimeout"`
	ConvertTimeout   time.Duration `yaml:"convertTimeout"`
	MaxPages         int           `yaml:"maxPages"`
	TempDir          string        `yaml:"tempDir"`

	RedisAddr   string `yaml:"redisAddr"`
	RedisDB     int    `yaml:"redisDB"`
	Concurrency int    `yaml:"concurrency"`

	StorageType string `yaml:"storageType"` // "minio" or "s3"

	DoclingEndpoint string   `yaml:"doclingEndpoint"`
	OllamaEndpoint  string   `yaml:"ollamaEndpoint"`
	OllamaModel     string   `yaml:"ollamaModel"`
	OCRLanguages    []string `yaml:"ocrLanguages"`
}

// GetAppConfig loads configuration from an optional config.yaml, .env
// and environment variables, in increasing precedence.
func GetAppConfig() *AppConfig {
	appOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}

		cfg := &AppConfig{
			ServerAddr:       ":8080",
			APIKey:           "admin",
			DeviceCapability: "high",
			MaxFileSize:      100 * 1024 * 1024, // 100MB
			FetchTimeout:     60 * time.Second,
			ConvertTimeout:   10 * time.Minute,
			TempDir:          os.TempDir(),
			RedisAddr:        "localhost:6379",
			Concurrency:      5,
			StorageType:      "minio",
			OllamaModel:      "llava",
			OCRLanguages:     []string{"eng"},
		}

		configFile := envString("CONFIG_FILE", "config.yaml")
		if data, err := os.ReadFile(configFile); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.Printf("Warning: failed to parse %s: %v", configFile, err)
			}
		}

		cfg.ServerAddr = envString("SERVER_ADDR", cfg.ServerAddr)
		cfg.APIKey = envString("API_KEY", cfg.APIKey)
		cfg.DeviceCapability = envString("DEVICE_CAPABILITY", cfg.DeviceCapability)
		cfg.MaxFileSize = envInt64("MAX_FILE_SIZE", cfg.MaxFileSize)
		cfg.FetchTimeout = envDuration("FETCH_TIMEOUT", cfg.FetchTimeout)
		cfg.ConvertTimeout = envDuration("CONVERT_TIMEOUT", cfg.ConvertTimeout)
		cfg.MaxPages = envInt("MAX_PAGES", cfg.MaxPages)
		cfg.TempDir = envString("TEMP_DIR", cfg.TempDir)
		cfg.RedisAddr = envString("REDIS_ADDR", cfg.RedisAddr)
		cfg.RedisDB = envInt("REDIS_DB", cfg.RedisDB)
		cfg.Concurrency = envInt("WORKER_CONCURRENCY", cfg.Concurrency)
		cfg.StorageType = envString("STORAGE_TYPE", cfg.StorageType)
		cfg.DoclingEndpoint = envString("DOCLING_ENDPOINT", cfg.DoclingEndpoint)
		cfg.OllamaEndpoint = envString("OLLAMA_ENDPOINT", cfg.OllamaEndpoint)
		cfg.OllamaModel = envString("OLLAMA_MODEL", cfg.OllamaModel)
		if langs := os.Getenv("OCR_LANGUAGES"); langs != "" {
			cfg.OCRLanguages = strings.Split(langs, ",")
		}

		appConfig = cfg
	})
	return appConfig
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("Warning: invalid value for %s: %q", key, v)
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Warning: invalid value for %s: %q", key, v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		log.Printf("Warning: invalid value for %s: %q", key, v)
	}
	return fallback
}
