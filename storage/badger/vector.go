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


package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// VectorRepository implements storage.VectorStore for BadgerDB.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorStore = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) *VectorRepository {
	return &VectorRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *VectorRepository) Close() error {
	return nil
}

// Upsert writes a vector record. The ID is derived from the source identity
// so re-indexing replaces the earlier record.
func (r *VectorRepository) Upsert(ctx context.Context, record *core.VectorRecord) error {
	if record.TenantId == uuid.Nil || record.SourceId == uuid.Nil || record.SourceTable == "" {
		return fmt.Errorf("%w: vector record is missing its source identity", storage.ErrInvalidQuery)
	}
	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: vector record has no embedding", storage.ErrInvalidQuery)
	}

	record.Id = core.VectorRecordID(record.TenantId, record.SourceTable, record.SourceId)
	record.UpdatedAt = time.Now().UTC()

	return r.backend.UpdateWithRetry(func(tx *badger.Txn) error {
		return tx.Set(makeVectorRecordKey(record.TenantId, record.Id), storage.MarshalVectorRecord(record))
	})
}

// SimilaritySearch delegates to the backend.
func (r *VectorRepository) SimilaritySearch(ctx context.Context, tenantId uuid.UUID, vector []float32, k int) ([]*core.SimilarityMatch, error) {
	return r.backend.FindSimilar(ctx, tenantId, vector, k)
}

// GetVectorRecord retrieves a record by ID.
// Record keys are tenant-scoped, so this scans the vector keyspace.
func (r *VectorRepository) GetVectorRecord(ctx context.Context, id core.ID) (*core.VectorRecord, error) {
	var found *core.VectorRecord
	err := r.ForEachVectorRecord(ctx, func(record *core.VectorRecord) error {
		if record.Id == id {
			found = record
			return errStopIteration
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

// ForEachVectorRecord calls fn for every stored record.
func (r *VectorRepository) ForEachVectorRecord(ctx context.Context, fn func(*core.VectorRecord) error) error {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err == errStopIteration {
		return nil
	}
	return err
}
