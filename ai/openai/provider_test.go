package openai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhtoan105/accounting-erp-rag/ai"
)

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.DefaultConfig()
	cfg.EmbeddingModel = ""

	_, err := NewProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EmbeddingModel is required")
}

func TestNewProvider_LocalDefaults(t *testing.T) {
	cfg := ai.NewConfig(ai.WithAPIKey(""))
	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.Empty(t, cfg.APIKey)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"unauthorized", errors.New("API returned unexpected status code: 401: invalid api key"), true},
		{"unknown model", errors.New("API returned unexpected status code: 404"), true},
		{"rate limited", errors.New("API returned unexpected status code: 429"), false},
		{"request timeout", errors.New("API returned unexpected status code: 408"), false},
		{"server error", errors.New("API returned unexpected status code: 503"), false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.rejected, errors.Is(err, ai.ErrRequestRejected))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClientOptions(t *testing.T) {
	plain := ai.DefaultConfig()
	assert.Len(t, clientOptions(plain), 3)

	azure := ai.NewConfig(ai.WithAzure("2024-02-01"))
	assert.Len(t, clientOptions(azure), 5)
}
