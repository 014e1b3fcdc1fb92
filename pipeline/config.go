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


package pipeline

import "time"

const (
	// MaxChunkSize is the embedding API's batch ceiling.
	MaxChunkSize = 100

	// DefaultReportInterval is how many processed documents pass between metric reports.
	DefaultReportInterval = 1000
)

// Config holds configuration for batch runs.
type Config struct {
	// ChunkSize is the number of documents embedded per call, capped at MaxChunkSize
	ChunkSize int

	// ReportInterval is how often to compute and record metrics (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for extraction and embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// TokensPerDocument is the assumed embedding cost of one document
	TokensPerDocument int

	// PricePerMillionTokens is the embedding price in USD
	PricePerMillionTokens float64

	// AlertFailureRate is the failure rate above which the alerter fires
	AlertFailureRate float64

	// Dimensions is the expected vector size; 0 accepts the first vector's size
	Dimensions int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:             MaxChunkSize,
		ReportInterval:        DefaultReportInterval,
		MaxRetries:            3,
		RetryDelay:            1 * time.Second,
		TokensPerDocument:     500,
		PricePerMillionTokens: 0.13,
		AlertFailureRate:      0.05,
	}
}

// normalize fills zero values with defaults and clamps the chunk size.
func (c *Config) normalize() {
	defaults := DefaultConfig()
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		c.ChunkSize = MaxChunkSize
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = defaults.ReportInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.TokensPerDocument <= 0 {
		c.TokensPerDocument = defaults.TokensPerDocument
	}
	if c.PricePerMillionTokens < 0 {
		c.PricePerMillionTokens = defaults.PricePerMillionTokens
	}
	if c.AlertFailureRate <= 0 {
		c.AlertFailureRate = defaults.AlertFailureRate
	}
	if c.Dimensions < 0 {
		c.Dimensions = 0
	}
}

// EstimatedCost returns the embedding cost in USD of processed documents.
func (c *Config) EstimatedCost(processed int) float64 {
	return float64(processed) * float64(c.TokensPerDocument) / 1_000_000 * c.PricePerMillionTokens
}
