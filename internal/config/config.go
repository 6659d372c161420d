package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"docmind/internal/chunker"
)

type Config struct {
	Server   ServerConfig `yaml:"server"`
	EmbedLLM LLMConfig    `yaml:"embedding"`
	InferLLM LLMConfig    `yaml:"inference"`
	RAG      RAGConfig    `yaml:"rag"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	CORSOrigins    string `yaml:"cors_origins"`
	MaxUploadBytes int    `yaml:"max_upload_bytes"`
}

type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai or ollama
	BaseURL   string `yaml:"base_url"`
	Key       string `yaml:"key"`
	KeyEnv    string `yaml:"key_env"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type RAGConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	TopK          int `yaml:"top_k"`
	HistoryWindow int `yaml:"history_window"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.EmbedLLM.resolveKey()
	cfg.InferLLM.resolveKey()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 * 1024 * 1024
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = chunker.DefaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 4
	}
	if c.RAG.HistoryWindow == 0 {
		c.RAG.HistoryWindow = 5
	}
	if c.InferLLM.MaxTokens == 0 {
		c.InferLLM.MaxTokens = 1024
	}
}

// resolveKey prefers the environment over keys committed in yaml.
func (l *LLMConfig) resolveKey() {
	if l.KeyEnv != "" {
		if v := os.Getenv(l.KeyEnv); v != "" {
			l.Key = v
		}
	}
}
