package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		ChatModel      string  `yaml:"chat_model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		TimeoutSecs    int     `yaml:"timeout_seconds"`
		RateLimit      float64 `yaml:"rate_limit"`
	} `yaml:"llm"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`

	Upload struct {
		MaxFileSizeMB int64 `yaml:"max_file_size_mb"`
	} `yaml:"upload"`

	LogLevel string `yaml:"log_level"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/policyqa/config.yaml"),
			"/etc/policyqa/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// ProviderTimeout returns the bounded timeout applied to every external
// provider call.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

// MaxFileSize returns the upload size limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.Upload.MaxFileSizeMB << 20
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = "gpt-4-turbo"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.TimeoutSecs == 0 {
		config.LLM.TimeoutSecs = 60
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 2.0
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 500
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 50
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}

	if config.Upload.MaxFileSizeMB == 0 {
		config.Upload.MaxFileSizeMB = 10
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
