package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port           int               `json:"port"`
	DBPath         string            `json:"db_path"`
	LogConfig      logger.LogConfig  `json:"log_config"`
	VectorStore    VectorStoreConfig `json:"vector_store"`
	AI             AIConfig          `json:"ai"`
	Indexer        IndexerConfig     `json:"indexer"`
	TaskTTLMinutes int               `json:"task_ttl_minutes"`
}

type VectorStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider string      `json:"provider"`
	Data     interface{} `json:"data"`
}

type IndexerConfig struct {
	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.Indexer.Workers <= 0 {
		cfg.Indexer.Workers = 2
	}
	if cfg.Indexer.QueueSize <= 0 {
		cfg.Indexer.QueueSize = 64
	}
	if cfg.TaskTTLMinutes <= 0 {
		cfg.TaskTTLMinutes = 60
	}
	return &cfg, nil
}
