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


package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/ai"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// DefaultTopK is the number of candidates fetched when a caller asks for none.
const DefaultTopK = 10

// Result is the grounded context for one question.
type Result struct {
	Context    string
	TokensUsed int
	Matches    []*core.SimilarityMatch // every candidate, best first
	Included   []*core.VectorRecord    // candidates that made it into Context
	QueryLogId core.ID                 // zero when no query log is configured
}

// Retriever answers questions with grounded context from a tenant's
// embedded documents.
type Retriever struct {
	vectors   storage.VectorStore
	embedder  ai.Embedder
	queryLogs storage.QueryLogRepository
	packer    *Packer
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithPacker sets the context packer.
// Default is NewPacker().
func WithPacker(packer *Packer) Option {
	return func(r *Retriever) error {
		if packer != nil {
			r.packer = packer
		}
		return nil
	}
}

// WithQueryLog records every retrieval in queryLogs.
func WithQueryLog(queryLogs storage.QueryLogRepository) Option {
	return func(r *Retriever) error {
		r.queryLogs = queryLogs
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(vectors storage.VectorStore, provider ai.AIProvider, opts ...Option) (*Retriever, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		vectors:  vectors,
		embedder: provider.Embedder(),
		packer:   NewPacker(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")

	return r, nil
}

// Retrieve builds grounded context for question from up to k of the tenant's
// most similar documents.
func (r *Retriever) Retrieve(ctx context.Context, tenantId uuid.UUID, question string, k int) (*Result, error) {
	return r.RetrieveWithMonitor(ctx, tenantId, question, k, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, tenantId uuid.UUID, question string, k int, monitor Monitor) (*Result, error) {
	if tenantId == uuid.Nil {
		return nil, ErrTenantRequired
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if k <= 0 {
		k = DefaultTopK
	}

	started := time.Now()
	monitor.Start(tenantId, question)

	embedding, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		r.logger.Error("error generating embedding for question", "tenant_id", tenantId, "err", err)
		return nil, err
	}

	matches, err := r.vectors.SimilaritySearch(ctx, tenantId, embedding, k)
	if err != nil {
		r.logger.Error("error querying for similar records", "tenant_id", tenantId, "err", err)
		return nil, err
	}
	monitor.AfterSearch(matches)

	records := make([]*core.VectorRecord, len(matches))
	for i, match := range matches {
		records[i] = match.Record
	}
	packed := r.packer.Pack(records)
	monitor.AfterPack(packed)

	result := &Result{
		Context:    packed.Text,
		TokensUsed: packed.TokensUsed,
		Matches:    matches,
		Included:   packed.Included,
	}

	if r.queryLogs != nil {
		sourceIds := make([]uuid.UUID, len(packed.Included))
		for i, record := range packed.Included {
			sourceIds[i] = record.SourceId
		}
		entry, err := r.queryLogs.AppendQueryLog(ctx, &core.QueryLog{
			TenantId:   tenantId,
			Question:   question,
			SourceIds:  sourceIds,
			TokensUsed: packed.TokensUsed,
			LatencyMs:  time.Since(started).Milliseconds(),
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			r.logger.Warn("failed to record query log", "tenant_id", tenantId, "err", err)
		} else {
			result.QueryLogId = entry.Id
		}
	}

	r.logger.Debug("grounded context built",
		"tenant_id", tenantId,
		"candidates", len(matches),
		"included", len(packed.Included),
		"pruned", packed.Pruned,
		"tokens", packed.TokensUsed)
	monitor.Finish(result)

	return result, nil
}
