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


// Package storage provides the storage abstraction layer for erprag.
//
// This package defines the repository interfaces the pipeline, masking and
// retrieval packages depend on, plus the mus-go binary codecs used by the
// BadgerDB implementation in storage/badger.
//
// # Architecture
//
//   - DocumentSource / DocumentRepository: ERP documents by tenant and type
//   - VectorStore: embedded, masked documents and tenant-scoped similarity search
//   - SecretStore: versioned salts
//   - BatchRepository: batch state with atomic idempotent creation
//   - MaskMappingRepository: masking audit rows
//   - QueryLogRepository: retrieval audit log
//   - WatermarkRepository: incremental indexing windows
//
// # Usage
//
//	stores, err := badger.NewMemoryStores()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// # Absent records
//
// Lookups that identify a record by primary key (GetBatch, GetVectorRecord)
// return ErrNotFound. Lookups of optional state (GetSecret, LoadWatermark,
// GetMaskMapping) return nil, nil.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
