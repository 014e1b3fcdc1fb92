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

// BatchRepository implements storage.BatchRepository for BadgerDB.
//
// Besides the primary record, each batch has a hash index entry used for
// idempotent creation and a tenant index entry ordered newest first.
type BatchRepository struct {
	backend *Backend
}

var _ storage.BatchRepository = (*BatchRepository)(nil)

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(backend *Backend) *BatchRepository {
	return &BatchRepository{
		backend: backend,
	}
}

// CreateOrGet inserts batch unless an active batch with the same hash exists.
//
// The hash index read and the insert happen in one serializable transaction.
// When two callers race on the same hash, the loser's commit conflicts and
// is retried, at which point it observes the winner's batch.
func (r *BatchRepository) CreateOrGet(ctx context.Context, batch *core.Batch) (*core.Batch, bool, error) {
	if batch.Hash == "" {
		return nil, false, fmt.Errorf("%w: batch hash is empty", storage.ErrInvalidQuery)
	}

	var (
		result  *core.Batch
		created bool
	)
	err := r.backend.UpdateWithRetry(func(tx *badger.Txn) error {
		result, created = nil, false

		hashKey := makeBatchHashKey(batch.Hash)
		item, err := tx.Get(hashKey)
		switch {
		case err == nil:
			var priorId uuid.UUID
			err = item.Value(func(val []byte) error {
				var err error
				priorId, err = storage.UnmarshalUUID(val)
				return err
			})
			if err != nil {
				return err
			}
			prior, err := readBatch(tx, makeBatchKey(priorId))
			if err != nil {
				return err
			}
			if prior != nil && prior.IsActive() {
				result = prior
				return nil
			}
		case err != badger.ErrKeyNotFound:
			return err
		}

		if err := tx.Set(makeBatchKey(batch.Id), storage.MarshalBatch(batch)); err != nil {
			return err
		}
		if err := tx.Set(hashKey, storage.MarshalUUID(batch.Id)); err != nil {
			return err
		}
		tenantKey := makeBatchTenantKey(batch.TenantId, batch.CreatedAt, batch.Id)
		if err := tx.Set(tenantKey, storage.MarshalUUID(batch.Id)); err != nil {
			return err
		}
		result, created = batch, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// SaveBatch overwrites the stored state of an existing batch.
func (r *BatchRepository) SaveBatch(ctx context.Context, batch *core.Batch) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBatchKey(batch.Id)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		batch.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalBatch(batch)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetBatch retrieves a batch by ID.
func (r *BatchRepository) GetBatch(ctx context.Context, id uuid.UUID) (*core.Batch, error) {
	var batch *core.Batch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		batch, err = readBatch(tx, makeBatchKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, storage.ErrNotFound
	}
	return batch, nil
}

// ListBatches returns the tenant's batches, newest first.
func (r *BatchRepository) ListBatches(ctx context.Context, tenantId uuid.UUID) ([]*core.Batch, error) {
	var batches []*core.Batch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeBatchTenantPartialKey(tenantId)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id uuid.UUID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalUUID(val)
				return err
			})
			if err != nil {
				return err
			}

			batch, err := readBatch(tx, makeBatchKey(id))
			if err != nil {
				return err
			}
			if batch != nil {
				batches = append(batches, batch)
			}
		}
		return nil
	}, false)
	return batches, err
}

// readBatch reads a batch from a transaction.
// Returns nil, nil if the key doesn't exist.
func readBatch(tx *badger.Txn, key []byte) (*core.Batch, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var batch *core.Batch
	err = item.Value(func(val []byte) error {
		var err error
		batch, err = storage.UnmarshalBatch(val)
		return err
	})
	return batch, err
}
