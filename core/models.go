package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a compact identifier for persisted records.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// VectorRecordID derives the storage ID of a vector record from its source identity.
// Re-indexing the same source document always yields the same ID, which makes
// vector writes upserts.
func VectorRecordID(tenantId uuid.UUID, sourceTable string, sourceId uuid.UUID) ID {
	return IDFromContent(tenantId.String() + "|" + sourceTable + "|" + sourceId.String())
}

// MaskMapping records how one PII field of one source row was masked.
// The natural key is (SourceTable, SourceId, Field).
type MaskMapping struct {
	SourceTable string
	SourceId    uuid.UUID
	Field       string
	MaskedValue string
	Hash        string // full hex SHA-256 of the original value and salt
	SaltVersion int
	UpdatedAt   time.Time
}

// Secret is a versioned named secret held by the secret store.
type Secret struct {
	Name      string
	Value     string
	Version   int
	CreatedAt time.Time
}

// Salt is the secret material mixed into masking hashes.
type Salt struct {
	Name    string
	Value   string
	Version int
	Global  bool // true when the tenant had no salt of its own
}

// VectorMetadata is the metadata document stored next to an embedding.
// ContentText holds the masked rendering and is the only copy of document
// text available at query time.
type VectorMetadata struct {
	DocumentType DocumentType
	Module       Module
	Status       string
	FiscalPeriod string
	ContentText  string
}

// VectorRecord is an embedded, masked document in the vector store.
type VectorRecord struct {
	Id          ID
	TenantId    uuid.UUID
	SourceTable string
	SourceId    uuid.UUID
	Vector      []float32
	Metadata    VectorMetadata
	UpdatedAt   time.Time
}

// SimilarityMatch is a vector record returned by similarity search.
type SimilarityMatch struct {
	Record *VectorRecord
	Score  float32
}

// QueryLog records one retrieval request for audit and leakage scanning.
type QueryLog struct {
	Id         ID
	TenantId   uuid.UUID
	Question   string
	SourceIds  []uuid.UUID // documents included in the grounded context
	TokensUsed int
	LatencyMs  int64
	CreatedAt  time.Time
}

// Watermark marks the start time of the last completed batch for a tenant.
// Incremental batches without an explicit window start from it.
type Watermark struct {
	TenantId  uuid.UUID
	Since     time.Time
	BatchId   uuid.UUID
	UpdatedAt time.Time
}
