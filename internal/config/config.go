package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Uploads   UploadConfig
	Chunker   ChunkerConfig
	Embedding EmbeddingConfig
	Chat      ChatConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimitRPS   int
	RateLimitBurst int
	CORSOrigins    []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type UploadConfig struct {
	Dir          string
	MaxFileBytes int64
}

type ChunkerConfig struct {
	TargetSize    int
	Overlap       int
	MinChunkChars int
	Strategy      string
}

type EmbeddingConfig struct {
	Provider   string // "openai" or "ollama"
	Model      string
	OpenAIKey  string
	OllamaURL  string
	Dimensions int
}

type ChatConfig struct {
	ContextTopK      int
	SearchTopK       int
	MaxWebResults    int
	LLMTimeout       time.Duration
	WebSearchTimeout time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	rateRPS, err := getEnvInt("RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	rateBurst, err := getEnvInt("RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxFileMB, err := getEnvInt("UPLOAD_MAX_FILE_MB", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_FILE_MB: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_TARGET_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_TARGET_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	chunkFloor, err := getEnvInt("CHUNK_MIN_CHARS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_MIN_CHARS: %w", err)
	}

	embedDims, err := getEnvInt("EMBEDDING_DIMENSIONS", 1536)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_DIMENSIONS: %w", err)
	}

	contextTopK, err := getEnvInt("CHAT_CONTEXT_TOP_K", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_CONTEXT_TOP_K: %w", err)
	}

	searchTopK, err := getEnvInt("SEARCH_TOP_K", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_TOP_K: %w", err)
	}

	llmTimeout, err := getEnvDuration("LLM_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}

	webTimeout, err := getEnvDuration("WEB_SEARCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEB_SEARCH_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			RateLimitRPS:   rateRPS,
			RateLimitBurst: rateBurst,
			CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Uploads: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxFileBytes: int64(maxFileMB) << 20,
		},
		Chunker: ChunkerConfig{
			TargetSize:    chunkSize,
			Overlap:       chunkOverlap,
			MinChunkChars: chunkFloor,
			Strategy:      getEnv("CHUNK_STRATEGY", "semantic"),
		},
		Embedding: EmbeddingConfig{
			Provider:   getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:      getEnv("EMBEDDING_MODEL", ""),
			OpenAIKey:  getEnv("OPENAI_API_KEY", ""),
			OllamaURL:  getEnv("OLLAMA_URL", "http://localhost:11434"),
			Dimensions: embedDims,
		},
		Chat: ChatConfig{
			ContextTopK:      contextTopK,
			SearchTopK:       searchTopK,
			MaxWebResults:    3,
			LLMTimeout:       llmTimeout,
			WebSearchTimeout: webTimeout,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
