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

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrDocumentSourceRequired is returned when a document source is not provided.
	ErrDocumentSourceRequired = errors.New("document source required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrBatchRepositoryRequired is returned when a batch repository is not provided.
	ErrBatchRepositoryRequired = errors.New("batch repository required")

	// ErrRendererRequired is returned when a document renderer is not provided.
	ErrRendererRequired = errors.New("document renderer required")

	// ErrTenantRequired is returned when a batch request has no tenant.
	ErrTenantRequired = errors.New("tenant id required")

	// ErrCountMismatch indicates the embedder returned a different number of vectors than texts.
	ErrCountMismatch = errors.New("embedding count mismatch")

	// ErrDimensionMismatch indicates vectors of different dimensionality in one chunk.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrOrchestratorRequired is returned when a service is built without an orchestrator.
	ErrOrchestratorRequired = errors.New("orchestrator required")

	// ErrServiceClosed is returned when submitting to a released service.
	ErrServiceClosed = errors.New("batch service closed")
)
