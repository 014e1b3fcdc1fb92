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

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BatchType is the kind of indexing run.
type BatchType string

const (
	BatchTypeFull        BatchType = "full"
	BatchTypeIncremental BatchType = "incremental"
	BatchTypeManual      BatchType = "manual"
)

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchStatusQueued   BatchStatus = "queued"
	BatchStatusRunning  BatchStatus = "running"
	BatchStatusFailed   BatchStatus = "failed"
	BatchStatusComplete BatchStatus = "complete"
)

// IsTerminal reports whether no further transitions are allowed.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusFailed || s == BatchStatusComplete
}

// BatchMetrics is the metadata blob recorded while a batch runs.
type BatchMetrics struct {
	ElapsedMs           int64
	ThroughputPerMinute float64
	ETAMs               int64
	EstimatedCostUSD    float64
	FailureRate         float64
	AlertRaised         bool
}

// Batch is one run of the embedding pipeline over a tenant's documents.
//
// A batch is created Queued and moves through the transitions
// Queued -> Running -> {Complete | Failed}. Fail is also legal from Queued.
// Terminal batches are immutable.
type Batch struct {
	Id                 uuid.UUID
	TenantId           uuid.UUID
	Type               BatchType
	Status             BatchStatus
	TriggeredBy        string
	Hash               string
	TotalDocuments     int
	ProcessedDocuments int
	FailedDocuments    int
	StartedAt          time.Time
	CompletedAt        time.Time
	ErrorMessage       string
	Metrics            BatchMetrics
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewBatch creates a queued batch with a fresh identity.
func NewBatch(tenantId uuid.UUID, batchType BatchType, triggeredBy, hash string) *Batch {
	now := time.Now().UTC()
	return &Batch{
		Id:          uuid.New(),
		TenantId:    tenantId,
		Type:        batchType,
		Status:      BatchStatusQueued,
		TriggeredBy: triggeredBy,
		Hash:        hash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive reports whether the batch is queued or running.
func (b *Batch) IsActive() bool {
	return b.Status == BatchStatusQueued || b.Status == BatchStatusRunning
}

// IsTerminal reports whether the batch is failed or complete.
func (b *Batch) IsTerminal() bool {
	return b.Status.IsTerminal()
}

// Start records the document total and moves a queued batch to running.
func (b *Batch) Start(total int) error {
	if b.Status != BatchStatusQueued {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, b.Status)
	}
	if total < 0 {
		return fmt.Errorf("%w: negative total %d", ErrInvalidTransition, total)
	}
	now := time.Now().UTC()
	b.Status = BatchStatusRunning
	b.TotalDocuments = total
	b.StartedAt = now
	b.UpdatedAt = now
	return nil
}

// Complete moves a running batch to complete.
func (b *Batch) Complete() error {
	if b.Status != BatchStatusRunning {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, b.Status)
	}
	now := time.Now().UTC()
	b.Status = BatchStatusComplete
	b.CompletedAt = now
	b.UpdatedAt = now
	return nil
}

// Fail moves a non-terminal batch to failed, recording reason.
func (b *Batch) Fail(reason string) error {
	if b.IsTerminal() {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, b.Status)
	}
	now := time.Now().UTC()
	b.Status = BatchStatusFailed
	b.ErrorMessage = reason
	b.CompletedAt = now
	b.UpdatedAt = now
	return nil
}

// FailureRate is failed / total, or 0 for an empty batch.
func (b *Batch) FailureRate() float64 {
	if b.TotalDocuments == 0 {
		return 0
	}
	return float64(b.FailedDocuments) / float64(b.TotalDocuments)
}

// BatchHash derives the idempotency hash of a batch trigger. Fields are
// joined with "|" so no field can run into the next.
// Table order does not matter; a nil since hashes as the empty string.
func BatchHash(tenantId uuid.UUID, batchType BatchType, tables []string, since *time.Time) string {
	sorted := slices.Clone(tables)
	slices.Sort(sorted)

	var sinceText string
	if since != nil {
		sinceText = since.UTC().Format(time.RFC3339Nano)
	}

	fields := []string{tenantId.String(), string(batchType), strings.Join(sorted, ","), sinceText}
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}
