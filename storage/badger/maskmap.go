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

// MaskMappingRepository implements storage.MaskMappingRepository for BadgerDB.
type MaskMappingRepository struct {
	backend *Backend
}

var _ storage.MaskMappingRepository = (*MaskMappingRepository)(nil)

// NewMaskMappingRepository creates a new MaskMappingRepository.
func NewMaskMappingRepository(backend *Backend) *MaskMappingRepository {
	return &MaskMappingRepository{
		backend: backend,
	}
}

// UpsertMaskMapping writes the mapping under its natural key, replacing any earlier row.
func (r *MaskMappingRepository) UpsertMaskMapping(ctx context.Context, mapping *core.MaskMapping) error {
	if mapping.SourceTable == "" || mapping.SourceId == uuid.Nil || mapping.Field == "" {
		return fmt.Errorf("%w: mask mapping is missing its natural key", storage.ErrInvalidQuery)
	}

	mapping.UpdatedAt = time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMaskMappingKey(mapping.SourceTable, mapping.SourceId, mapping.Field)
		if err := tx.Set(key, storage.MarshalMaskMapping(mapping)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetMaskMapping returns one mapping, or nil, nil.
func (r *MaskMappingRepository) GetMaskMapping(ctx context.Context, sourceTable string, sourceId uuid.UUID, field string) (*core.MaskMapping, error) {
	var mapping *core.MaskMapping
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeMaskMappingKey(sourceTable, sourceId, field))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			mapping, err = storage.UnmarshalMaskMapping(val)
			return err
		})
	}, false)
	return mapping, err
}

// ListMaskMappings returns the mappings of one source row in field order.
func (r *MaskMappingRepository) ListMaskMappings(ctx context.Context, sourceTable string, sourceId uuid.UUID) ([]*core.MaskMapping, error) {
	var mappings []*core.MaskMapping
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMaskMappingPartialKey(sourceTable, sourceId)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				mapping, err := storage.UnmarshalMaskMapping(val)
				if err != nil {
					return err
				}
				mappings = append(mappings, mapping)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return mappings, err
}
