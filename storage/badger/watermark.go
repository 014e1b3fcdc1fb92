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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// WatermarkRepository implements storage.WatermarkRepository for BadgerDB.
type WatermarkRepository struct {
	backend *Backend
}

var _ storage.WatermarkRepository = (*WatermarkRepository)(nil)

// NewWatermarkRepository creates a new WatermarkRepository.
func NewWatermarkRepository(backend *Backend) *WatermarkRepository {
	return &WatermarkRepository{
		backend: backend,
	}
}

// SaveWatermark persists the indexing watermark of a tenant.
func (r *WatermarkRepository) SaveWatermark(ctx context.Context, watermark *core.Watermark) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		watermark.UpdatedAt = time.Now().UTC()
		key := makeWatermarkKey(watermark.TenantId)
		if err := tx.Set(key, storage.MarshalWatermark(watermark)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadWatermark retrieves the watermark of a tenant.
// Returns nil, nil if no watermark exists.
func (r *WatermarkRepository) LoadWatermark(ctx context.Context, tenantId uuid.UUID) (*core.Watermark, error) {
	var watermark *core.Watermark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeWatermarkKey(tenantId))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			watermark, unmarshalErr = storage.UnmarshalWatermark(val)
			return unmarshalErr
		})
	}, false)

	return watermark, err
}
