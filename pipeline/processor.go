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
	"fmt"
	"log/slog"

	"github.com/thanhtoan105/accounting-erp-rag/ai"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/render"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// Renderer renders one document to masked canonical text.
// *render.Renderer implements it.
type Renderer interface {
	Render(ctx context.Context, doc core.ErpDocument) (string, error)
}

// ChunkResult counts the outcome of one chunk.
type ChunkResult struct {
	Persisted int
	Failed    int
}

// ChunkProcessor renders, embeds and persists one chunk of documents.
type ChunkProcessor struct {
	renderer   Renderer
	embedder   ai.Embedder
	vectors    storage.VectorStore
	dimensions int
	logger     *slog.Logger
}

// NewChunkProcessor creates a new chunk processor.
// dimensions: expected vector size, or 0 to accept the first vector's size
func NewChunkProcessor(renderer Renderer, embedder ai.Embedder, vectors storage.VectorStore, dimensions int, logger *slog.Logger) *ChunkProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkProcessor{
		renderer:   renderer,
		embedder:   embedder,
		vectors:    vectors,
		dimensions: dimensions,
		logger:     logger,
	}
}

type renderedDocument struct {
	doc  core.ErpDocument
	text string
}

// Process handles one chunk.
//
// Documents that fail to render or persist are counted as failed and skipped.
// An embedding failure fails every rendered document of the chunk. The only
// errors returned are batch-fatal: a masking failure, or cancellation of ctx.
// Nothing is sent to the embedder unless every document of the chunk was
// rendered or skipped first.
func (cp *ChunkProcessor) Process(ctx context.Context, docs []core.ErpDocument) (ChunkResult, error) {
	var result ChunkResult
	if len(docs) == 0 {
		return result, nil
	}

	rendered := make([]renderedDocument, 0, len(docs))
	for _, doc := range docs {
		text, err := cp.renderer.Render(ctx, doc)
		if err != nil {
			if render.IsFatal(err) {
				return result, err
			}
			result.Failed++
			cp.logger.Warn("skipping document", "error", err)
			continue
		}
		rendered = append(rendered, renderedDocument{doc: doc, text: text})
	}

	if len(rendered) == 0 {
		return result, nil
	}

	texts := make([]string, len(rendered))
	for i, r := range rendered {
		texts[i] = r.text
	}

	embeddings, err := cp.embedder.EmbedTexts(ctx, texts)
	if err == nil {
		err = cp.check(embeddings, len(texts))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Failed += len(rendered)
		cp.logger.Error("chunk failed", "documents", len(rendered),
			"error", fmt.Errorf("%w: %w", core.ErrEmbeddingFailure, err))
		return result, nil
	}

	for i, r := range rendered {
		h := r.doc.Header()
		record := &core.VectorRecord{
			TenantId:    h.TenantId,
			SourceTable: r.doc.Type().SourceTable(),
			SourceId:    h.Id,
			Vector:      NormalizeVector(embeddings[i]),
			Metadata: core.VectorMetadata{
				DocumentType: r.doc.Type(),
				Module:       r.doc.Type().Module(),
				Status:       r.doc.Status(),
				FiscalPeriod: h.FiscalPeriod,
				ContentText:  r.text,
			},
		}
		if err := cp.vectors.Upsert(ctx, record); err != nil {
			result.Failed++
			cp.logger.Error("skipping document",
				"document_type", r.doc.Type(), "document_id", h.Id,
				"error", fmt.Errorf("%w: %w", core.ErrPersistenceFailure, err))
			continue
		}
		result.Persisted++
	}

	return result, nil
}

// check validates one embedding call's result against its input.
func (cp *ChunkProcessor) check(embeddings [][]float32, expected int) error {
	if len(embeddings) != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, expected, len(embeddings))
	}

	dimensions := cp.dimensions
	if dimensions == 0 {
		dimensions = len(embeddings[0])
	}
	for i, v := range embeddings {
		if len(v) == 0 || len(v) != dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dimensions)
		}
	}
	return nil
}
