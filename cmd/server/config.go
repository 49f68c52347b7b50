package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aiwuxian/resonance-wiki/internal/models"
	"github.com/aiwuxian/resonance-wiki/internal/services"
)

const (
	ConfigPath = "config.yml"

	envConfigPath = "WIKI_CONFIG"
	envLLMAPIKey  = "WIKI_LLM_API_KEY"
)

// DefaultConfig 默认配置
func DefaultConfig() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
			Mode: "release",
		},
		Database: models.DatabaseConfig{
			Path: "resonance.db",
		},
		LLM: models.LLMConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   800,
		},
		Simulator: models.SimulatorConfig{
			SessionTTL:  services.DefaultSessionTTL,
			MaxSessions: services.DefaultMaxSessions,
		},
		Log: models.LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig 读取配置文件，文件不存在时使用默认配置
func LoadConfig(path string) (*models.Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if key := os.Getenv(envLLMAPIKey); key != "" {
		config.LLM.APIKey = key
	}
	return config, nil
}

func configPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	return ConfigPath
}
