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

// Stores bundles every repository over one backend.
type Stores struct {
	Backend    *Backend
	Documents  *DocumentRepository
	Vectors    *VectorRepository
	Secrets    *SecretRepository
	Batches    *BatchRepository
	Mappings   *MaskMappingRepository
	QueryLogs  *QueryLogRepository
	Watermarks *WatermarkRepository
}

// NewStores creates all repositories over an open backend.
// The caller keeps ownership of the backend.
func NewStores(backend *Backend) (*Stores, error) {
	queryLogs, err := NewQueryLogRepository(backend)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Backend:    backend,
		Documents:  NewDocumentRepository(backend),
		Vectors:    NewVectorRepository(backend),
		Secrets:    NewSecretRepository(backend),
		Batches:    NewBatchRepository(backend),
		Mappings:   NewMaskMappingRepository(backend),
		QueryLogs:  queryLogs,
		Watermarks: NewWatermarkRepository(backend),
	}, nil
}

// NewMemoryStores creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryStores() (*Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	stores, err := NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return stores, nil
}

// Close releases the repositories and closes the backend.
func (s *Stores) Close() error {
	if err := s.QueryLogs.Close(); err != nil {
		s.Backend.Close()
		return err
	}
	return s.Backend.Close()
}
