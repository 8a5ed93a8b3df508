package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: "9090"

llm:
  base_url: "http://localhost:8000/v1"
  chat_model: "gpt-4-turbo"
  embedding_model: "text-embedding-3-small"
  max_tokens: 1000
  temperature: 0.0
  timeout_seconds: 30
  rate_limit: 1.5

processor:
  chunk_size: 500
  chunk_overlap: 50

retrieval:
  top_k: 3

upload:
  max_file_size_mb: 5

log_level: "debug"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "http://localhost:8000/v1", config.LLM.BaseURL)
	assert.Equal(t, "gpt-4-turbo", config.LLM.ChatModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 50, config.Processor.ChunkOverlap)
	assert.Equal(t, 3, config.Retrieval.TopK)
	assert.Equal(t, int64(5<<20), config.MaxFileSize())
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadConfig_Defaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "gpt-4-turbo", config.LLM.ChatModel)
	assert.Equal(t, "text-embedding-3-small", config.LLM.EmbeddingModel)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 50, config.Processor.ChunkOverlap)
	assert.Equal(t, 5, config.Retrieval.TopK)
}

func TestConfigValidation(t *testing.T) {
	valid := &Config{}
	applyDefaults(valid)
	assert.Empty(t, valid.Validate())

	invalid := &Config{}
	applyDefaults(invalid)
	invalid.LLM.MaxTokens = 5000
	invalid.LLM.Temperature = 3.0
	invalid.Processor.ChunkOverlap = 600 // >= chunk_size
	invalid.Retrieval.TopK = -1

	errors := invalid.Validate()
	require.Len(t, errors, 4)
	assert.Contains(t, errors[0].Error(), "max_tokens")
	assert.Contains(t, errors[1].Error(), "temperature")
	assert.Contains(t, errors[2].Error(), "chunk_overlap")
	assert.Contains(t, errors[3].Error(), "top_k")
}

func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "env-key")
	os.Setenv("OPENAI_BASE_URL", "http://env-llm:8000/v1")
	os.Setenv("PORT", "7070")
	defer func() {
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("OPENAI_BASE_URL")
		os.Unsetenv("PORT")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "http://env-llm:8000/v1", config.LLM.BaseURL)
	assert.Equal(t, "7070", config.Server.Port)
}
