// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/thanhtoan105/accounting-erp-rag/ai"
	"github.com/thanhtoan105/accounting-erp-rag/pipeline"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const configMetadataKey = "config"

// fileConfig is the optional YAML config file. Its values sit between
// environment variables and flag defaults.
type fileConfig struct {
	DB        string          `yaml:"db"`
	Embedding embeddingConfig `yaml:"embedding"`
	Pipeline  pipelineConfig  `yaml:"pipeline"`
}

type embeddingConfig struct {
	Host       string `yaml:"host"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	APIType    string `yaml:"api_type"`
	APIVersion string `yaml:"api_version"`
	Dimensions int    `yaml:"dimensions"`
}

type pipelineConfig struct {
	ChunkSize        int           `yaml:"chunk_size"`
	ReportInterval   int           `yaml:"report_interval"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	AlertFailureRate float64       `yaml:"alert_failure_rate"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	config := &fileConfig{}
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, nil
}

// loadEnvFile loads a .env file. A missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setupConfig loads the .env file and the YAML config file and keeps the
// latter for the commands.
func setupConfig(c *cli.Context) error {
	if err := loadEnvFile(c.String("env-file"), c.IsSet("env-file")); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	config, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configMetadataKey] = config
	return nil
}

func configFrom(c *cli.Context) *fileConfig {
	if config, ok := c.App.Metadata[configMetadataKey].(*fileConfig); ok {
		return config
	}
	return &fileConfig{}
}

func stringValue(c *cli.Context, name, fromFile string) string {
	if !c.IsSet(name) && fromFile != "" {
		return fromFile
	}
	return c.String(name)
}

func intValue(c *cli.Context, name string, fromFile int) int {
	if !c.IsSet(name) && fromFile != 0 {
		return fromFile
	}
	return c.Int(name)
}

func durationValue(c *cli.Context, name string, fromFile time.Duration) time.Duration {
	if !c.IsSet(name) && fromFile != 0 {
		return fromFile
	}
	return c.Duration(name)
}

func dbPath(c *cli.Context) (string, error) {
	path := stringValue(c, "db", configFrom(c).DB)
	if path == "" {
		return "", fmt.Errorf("database path is required")
	}
	return path, nil
}

func aiConfig(c *cli.Context) (*ai.Config, error) {
	embedding := configFrom(c).Embedding
	config := ai.NewConfig(
		ai.WithEmbeddingHost(stringValue(c, "embedding-host", embedding.Host)),
		ai.WithEmbeddingModel(stringValue(c, "embedding-model", embedding.Model)),
		ai.WithDimensions(intValue(c, "embedding-dimensions", embedding.Dimensions)),
	)
	if key := stringValue(c, "embedding-api-key", embedding.APIKey); key != "" {
		config.APIKey = key
	}
	if apiType := stringValue(c, "embedding-api-type", embedding.APIType); apiType != "" {
		config.APIType = apiType
		config.APIVersion = stringValue(c, "embedding-api-version", embedding.APIVersion)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return config, nil
}

func pipelineConfigFrom(c *cli.Context, dimensions int) *pipeline.Config {
	fromFile := configFrom(c).Pipeline
	config := pipeline.DefaultConfig()
	config.ChunkSize = intValue(c, "chunk-size", fromFile.ChunkSize)
	config.ReportInterval = intValue(c, "report-interval", fromFile.ReportInterval)
	config.MaxRetries = intValue(c, "max-retries", fromFile.MaxRetries)
	config.RetryDelay = durationValue(c, "retry-delay", fromFile.RetryDelay)
	if fromFile.AlertFailureRate > 0 {
		config.AlertFailureRate = fromFile.AlertFailureRate
	}
	config.Dimensions = dimensions
	return config
}
