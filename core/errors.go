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


package core

import "errors"

// Pipeline failure kinds. Callers classify errors with errors.Is.
var (
	// ErrExtractionFailure indicates the document source could not be read.
	// Fatal to the whole batch.
	ErrExtractionFailure = errors.New("extraction failure")

	// ErrMaskingFailure indicates a PII field could not be masked because no
	// salt could be obtained. Fatal to the whole batch.
	ErrMaskingFailure = errors.New("masking failure")

	// ErrRenderingFailure indicates a document could not be rendered to text.
	// Only the document is skipped.
	ErrRenderingFailure = errors.New("rendering failure")

	// ErrEmbeddingFailure indicates the embedding generator failed or returned
	// an unusable result. Only the chunk is skipped.
	ErrEmbeddingFailure = errors.New("embedding generation failure")

	// ErrPersistenceFailure indicates a vector record could not be written.
	// Only the document is skipped.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// Domain validation errors
var (
	// ErrInvalidTransition indicates a batch state change that the state machine forbids.
	ErrInvalidTransition = errors.New("invalid batch state transition")

	// ErrMalformedDocument indicates a document is missing required fields.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrInvalidFiscalPeriod indicates a fiscal period not in YYYY-MM form.
	ErrInvalidFiscalPeriod = errors.New("invalid fiscal period")

	// ErrInvalidBatchType indicates an unknown batch type.
	ErrInvalidBatchType = errors.New("invalid batch type")

	// ErrUnknownDocumentType indicates an unknown document type tag.
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrUnknownSourceTable indicates a table name that maps to no document type.
	ErrUnknownSourceTable = errors.New("unknown source table")
)
