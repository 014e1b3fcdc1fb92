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

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/ai"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// nonRetryable lists failures another attempt cannot fix.
var nonRetryable = []error{
	ai.ErrRequestRejected,
	storage.ErrInvalidQuery,
	storage.ErrSerializationFailed,
	core.ErrMalformedDocument,
	context.Canceled,
}

// permanentIf marks err Permanent when it matches nonRetryable.
func permanentIf(err error) error {
	for _, target := range nonRetryable {
		if errors.Is(err, target) {
			return Permanent(err)
		}
	}
	return err
}

// RetryingEmbedder retries transient embedding failures with exponential backoff.
type RetryingEmbedder struct {
	embedder    ai.Embedder
	maxAttempts int
	baseDelay   time.Duration
}

var _ ai.Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder wraps embedder.
func NewRetryingEmbedder(embedder ai.Embedder, maxAttempts int, baseDelay time.Duration) *RetryingEmbedder {
	return &RetryingEmbedder{
		embedder:    embedder,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

func (e *RetryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vector, err = e.embedder.EmbedText(ctx, text)
		return permanentIf(err)
	}, e.maxAttempts, e.baseDelay)
	return vector, err
}

func (e *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = e.embedder.EmbedTexts(ctx, texts)
		return permanentIf(err)
	}, e.maxAttempts, e.baseDelay)
	return vectors, err
}

// RetryingSource retries transient extraction failures with exponential backoff.
type RetryingSource struct {
	source      storage.DocumentSource
	maxAttempts int
	baseDelay   time.Duration
}

var _ storage.DocumentSource = (*RetryingSource)(nil)

// NewRetryingSource wraps source.
func NewRetryingSource(source storage.DocumentSource, maxAttempts int, baseDelay time.Duration) *RetryingSource {
	return &RetryingSource{
		source:      source,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

func (s *RetryingSource) Extract(ctx context.Context, tenantId uuid.UUID, docType core.DocumentType, since *time.Time) ([]core.ErpDocument, error) {
	var docs []core.ErpDocument
	err := RetryWithBackoff(ctx, func() error {
		var err error
		docs, err = s.source.Extract(ctx, tenantId, docType, since)
		return permanentIf(err)
	}, s.maxAttempts, s.baseDelay)
	return docs, err
}
