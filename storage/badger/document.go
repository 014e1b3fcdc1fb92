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
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
// It stands in for the ERP source tables.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is owned by the caller.
func (r *DocumentRepository) Close() error {
	return nil
}

// PutDocuments inserts or replaces documents in one transaction. An invalid
// document rejects the whole call.
func (r *DocumentRepository) PutDocuments(ctx context.Context, docs ...core.ErpDocument) error {
	return r.backend.UpdateWithRetry(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}
			value, err := storage.MarshalDocument(doc)
			if err != nil {
				return err
			}
			h := doc.Header()
			if err := tx.Set(makeDocumentKey(h.TenantId, doc.Type(), h.Id), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Extract returns the tenant's live documents of one type, newest first.
func (r *DocumentRepository) Extract(ctx context.Context, tenantId uuid.UUID, docType core.DocumentType, since *time.Time) ([]core.ErpDocument, error) {
	if docType.SourceTable() == "" {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownDocumentType, docType)
	}

	var docs []core.ErpDocument
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentPartialKey(tenantId, docType)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc core.ErpDocument
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}

			h := doc.Header()
			if h.IsDeleted() {
				continue
			}
			if since != nil && !h.UpdatedAt.After(*since) {
				continue
			}
			docs = append(docs, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(docs, func(a, b core.ErpDocument) int {
		return b.Header().UpdatedAt.Compare(a.Header().UpdatedAt)
	})
	return docs, nil
}
