package pipeline

import (
	"context"

	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// ChunkIterator splits a batch's documents into embedding chunks.
type ChunkIterator struct {
	size int
}

// NewChunkIterator creates a new chunk iterator.
// size: number of documents per chunk, capped at MaxChunkSize
func NewChunkIterator(size int) *ChunkIterator {
	if size <= 0 || size > MaxChunkSize {
		size = MaxChunkSize
	}

	return &ChunkIterator{
		size: size,
	}
}

// ForEach calls fn for each chunk of docs in order; last is true for the final chunk.
// Iteration stops on first error from fn.
// Context cancellation is checked before every chunk.
func (it *ChunkIterator) ForEach(ctx context.Context, docs []core.ErpDocument, fn func(chunk []core.ErpDocument, last bool) error) error {
	for i := 0; i < len(docs); i += it.size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+it.size, len(docs))
		if err := fn(docs[i:end], end == len(docs)); err != nil {
			return err
		}
	}

	return nil
}

// Count returns the number of chunks n documents split into.
func (it *ChunkIterator) Count(n int) int {
	return (n + it.size - 1) / it.size
}
