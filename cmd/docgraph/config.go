package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/siherrmann/docgraph/helper"
	"gopkg.in/yaml.v3"
)

// Config is the file-based configuration of the docgraph binary. Database
// credentials can be overridden through environment variables so secrets
// stay out of the config file.
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Name     string `yaml:"name"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Schema   string `yaml:"schema"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	LLM struct {
		BaseURL        string `yaml:"base_url"`
		Token          string `yaml:"token"`
		ChatModel      string `yaml:"chat_model"`
		EmbeddingModel string `yaml:"embedding_model"`
	} `yaml:"llm"`

	Embedding struct {
		// local runs the ONNX sentence transformer instead of the API
		Local     bool   `yaml:"local"`
		Model     string `yaml:"model"`
		Dimension int    `yaml:"dimension"`
	} `yaml:"embedding"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Ingestion struct {
		GraphWritesPerSecond float64 `yaml:"graph_writes_per_second"`
		ChunkWindow          int     `yaml:"chunk_window"`
		ChunkOverlap         int     `yaml:"chunk_overlap"`
	} `yaml:"ingestion"`
}

// LoadConfig reads the YAML config and merges environment overrides. A
// missing .env file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.Schema = "public"
	config.Database.SSLMode = "disable"
	config.LLM.BaseURL = "http://localhost:11434/v1"
	config.Embedding.Dimension = 384
	config.Server.Addr = ":8080"
	config.Ingestion.GraphWritesPerSecond = 20
	config.Ingestion.ChunkWindow = 400
	config.Ingestion.ChunkOverlap = 50

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&config.Database.Host, "DOCGRAPH_DB_HOST")
	applyEnv(&config.Database.Port, "DOCGRAPH_DB_PORT")
	applyEnv(&config.Database.Name, "DOCGRAPH_DB_NAME")
	applyEnv(&config.Database.Username, "DOCGRAPH_DB_USER")
	applyEnv(&config.Database.Password, "DOCGRAPH_DB_PASSWORD")
	applyEnv(&config.LLM.BaseURL, "DOCGRAPH_LLM_BASE_URL")
	applyEnv(&config.LLM.Token, "DOCGRAPH_LLM_TOKEN")

	return config, nil
}

func applyEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// DatabaseConfiguration converts the config into connection parameters.
func (c *Config) DatabaseConfiguration() *helper.DatabaseConfiguration {
	return &helper.DatabaseConfiguration{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
		Username: c.Database.Username,
		Password: c.Database.Password,
		Schema:   c.Database.Schema,
		SSLMode:  c.Database.SSLMode,
	}
}
