// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey     string  `yaml:"openai_key"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	GeminiKey     string  `yaml:"gemini_key"`
	GeminiURL     string  `yaml:"gemini_url"`
	DefaultModel  string  `yaml:"default_model"`
	RatePerSecond float64 `yaml:"rate_per_second"` // extraction calls/sec, 0 = unlimited
	RateBurst     int     `yaml:"rate_burst"`
}

type SecurityConfig struct {
	// EncryptionKey enables at-rest encryption of cached documents when set.
	// Must be 16, 24, or 32 bytes.
	EncryptionKey string `yaml:"encryption_key"`
}

type ChunkingConfig struct {
	Encoding     string  `yaml:"encoding"`
	MaxTokens    int     `yaml:"max_tokens"`
	OverlapRatio float64 `yaml:"overlap_ratio"`
}

type DigestConfig struct {
	DocConcurrency   int            `yaml:"doc_concurrency"`   // parallel documents per job
	ChunkConcurrency int            `yaml:"chunk_concurrency"` // parallel chunks per document
	FilterRelevancy  bool           `yaml:"filter_relevancy"`
	MinRelevancy     string         `yaml:"min_relevancy"` // low|medium|high
	Chunking         ChunkingConfig `yaml:"chunking"`
}

type DocumentsConfig struct {
	Dir string `yaml:"dir"` // filesystem document source root
}

type JobsConfig struct {
	Backend      string        `yaml:"backend"` // postgres | file
	Dir          string        `yaml:"dir"`     // file backend root
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type WebConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Digest    DigestConfig    `yaml:"digest"`
	Documents DocumentsConfig `yaml:"documents"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Security  SecurityConfig  `yaml:"security"`
	Web       WebConfig       `yaml:"web"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Digest.DocConcurrency <= 0 {
		cfg.Digest.DocConcurrency = 4
	}
	if cfg.Digest.ChunkConcurrency <= 0 {
		cfg.Digest.ChunkConcurrency = 8
	}
	if cfg.Digest.MinRelevancy == "" {
		cfg.Digest.MinRelevancy = "medium"
	}
	if cfg.Digest.Chunking.Encoding == "" {
		cfg.Digest.Chunking.Encoding = "cl100k_base"
	}
	if cfg.Digest.Chunking.MaxTokens <= 0 {
		cfg.Digest.Chunking.MaxTokens = 20000
	}
	if cfg.Digest.Chunking.OverlapRatio == 0 {
		cfg.Digest.Chunking.OverlapRatio = 0.05
	}
	if cfg.Jobs.Backend == "" {
		cfg.Jobs.Backend = "postgres"
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.PollInterval <= 0 {
		cfg.Jobs.PollInterval = 500 * time.Millisecond
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Jobs.Backend == "postgres" && cfg.Database.URL == "" {
		return nil, errors.New("database.url is required for the postgres jobs backend")
	}
	if cfg.Jobs.Backend == "file" && cfg.Jobs.Dir == "" {
		return nil, errors.New("jobs.dir is required for the file jobs backend")
	}
	if cfg.Jobs.Backend == "file" && cfg.Documents.Dir == "" {
		return nil, errors.New("documents.dir is required for the file jobs backend")
	}
	if cfg.Jobs.Backend != "postgres" && cfg.Jobs.Backend != "file" {
		return nil, fmt.Errorf("unknown jobs.backend %q", cfg.Jobs.Backend)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
