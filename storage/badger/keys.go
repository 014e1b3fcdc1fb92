package badger

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "erpdoc"
	vectorRecordPrefix = "vecrec"
	secretPrefix       = "secret"
	secretLatestPrefix = "secretl"
	batchPrefix        = "batch"
	batchHashPrefix    = "batchh"
	batchTenantPrefix  = "batcht"
	maskMappingPrefix  = "maskmap"
	queryLogPrefix     = "qlog"
	queryLogIDSeq      = "qlogseq"
	watermarkPrefix    = "wmark"
)

// makeDocumentPartialKey generates a prefix for one tenant's documents of one type.
// Format: prefix:tenant:type:
func makeDocumentPartialKey(tenantId uuid.UUID, docType core.DocumentType) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", documentPrefix, tenantId, docType))
}

// makeDocumentKey generates a key for a document.
// Format: prefix:tenant:type:id
func makeDocumentKey(tenantId uuid.UUID, docType core.DocumentType, id uuid.UUID) []byte {
	return append(makeDocumentPartialKey(tenantId, docType), id[:]...)
}

// makeVectorRecordPartialKey generates a prefix for one tenant's vector records.
// Format: prefix:tenant:
func makeVectorRecordPartialKey(tenantId uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorRecordPrefix, tenantId))
}

// makeVectorRecordKey generates a key for a vector record.
// Format: prefix:tenant:id
func makeVectorRecordKey(tenantId uuid.UUID, id core.ID) []byte {
	buf := makeVectorRecordPartialKey(tenantId)
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeSecretKey generates a key for one version of a secret.
// Format: prefix:name:version
func makeSecretKey(name string, version int) []byte {
	buf := []byte(fmt.Sprintf("%s:%s:", secretPrefix, name))
	return binary.BigEndian.AppendUint64(buf, uint64(version))
}

// makeSecretLatestKey generates the pointer key holding a secret's latest version.
func makeSecretLatestKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", secretLatestPrefix, name))
}

// makeBatchKey generates a key for a batch by ID.
func makeBatchKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s:%s", batchPrefix, id))
}

// makeBatchHashKey generates the idempotency index key for a batch hash.
func makeBatchHashKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", batchHashPrefix, hash))
}

// makeBatchTenantPartialKey generates a prefix for a tenant's batch index.
func makeBatchTenantPartialKey(tenantId uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s:%s:", batchTenantPrefix, tenantId))
}

// makeBatchTenantKey generates a composite key for the tenant batch index.
// Format: prefix:tenant:invertedCreatedAt:id
// The timestamp is inverted so forward iteration yields newest first.
func makeBatchTenantKey(tenantId uuid.UUID, createdAt time.Time, id uuid.UUID) []byte {
	buf := makeBatchTenantPartialKey(tenantId)
	// Write in BigEndian order so lexicographic sort works correctly
	buf = binary.BigEndian.AppendUint64(buf, math.MaxUint64-uint64(createdAt.UnixMicro()))
	return append(buf, id[:]...)
}

// makeMaskMappingPartialKey generates a prefix for all mappings of a source row.
// Format: prefix:table:sourceId:
func makeMaskMappingPartialKey(sourceTable string, sourceId uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", maskMappingPrefix, sourceTable, sourceId))
}

// makeMaskMappingKey generates the natural key of a mask mapping.
// Format: prefix:table:sourceId:field
func makeMaskMappingKey(sourceTable string, sourceId uuid.UUID, field string) []byte {
	return append(makeMaskMappingPartialKey(sourceTable, sourceId), field...)
}

// makeQueryLogKey generates a key for a query log entry.
func makeQueryLogKey(id core.ID) []byte {
	buf := []byte(queryLogPrefix + ":")
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeWatermarkKey generates a key for a tenant's indexing watermark.
func makeWatermarkKey(tenantId uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s:%s", watermarkPrefix, tenantId))
}
