package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// Repository is the lifecycle shared by the document and vector stores.
// Implementations must be safe for concurrent use. Each write method commits
// atomically on its own.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// DocumentSource is the read-only view of the ERP source tables.
type DocumentSource interface {
	// Extract returns the tenant's non-deleted documents of one type, sorted by
	// UpdatedAt descending. When since is non-nil only documents updated
	// strictly after it are returned.
	Extract(ctx context.Context, tenantId uuid.UUID, docType core.DocumentType, since *time.Time) ([]core.ErpDocument, error)
}

// DocumentRepository stores ERP documents and serves them as a DocumentSource.
type DocumentRepository interface {
	Repository
	DocumentSource

	// PutDocuments inserts or replaces documents keyed by tenant, type and id.
	PutDocuments(ctx context.Context, docs ...core.ErpDocument) error
}

// VectorStore persists embedded documents and answers similarity queries.
type VectorStore interface {
	Repository

	// Upsert writes a vector record keyed by its source identity.
	// Re-indexing the same source document replaces the previous record.
	Upsert(ctx context.Context, record *core.VectorRecord) error

	// SimilaritySearch returns up to k of the tenant's records ranked by
	// dot-product similarity with vector, highest first.
	SimilaritySearch(ctx context.Context, tenantId uuid.UUID, vector []float32, k int) ([]*core.SimilarityMatch, error)

	// GetVectorRecord retrieves a record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetVectorRecord(ctx context.Context, id core.ID) (*core.VectorRecord, error)

	// ForEachVectorRecord calls fn for every stored record until fn returns an error.
	ForEachVectorRecord(ctx context.Context, fn func(*core.VectorRecord) error) error
}

// SecretStore holds versioned named secrets.
type SecretStore interface {
	// GetSecret returns the latest version of a secret.
	// Returns nil, nil if the secret doesn't exist.
	GetSecret(ctx context.Context, name string) (*core.Secret, error)

	// GetSecretVersion returns one version of a secret.
	// Returns nil, nil if that version doesn't exist.
	GetSecretVersion(ctx context.Context, name string, version int) (*core.Secret, error)

	// PutSecret stores value as the next version of name and returns it.
	PutSecret(ctx context.Context, name, value string) (*core.Secret, error)
}

// BatchRepository persists embedding batches.
type BatchRepository interface {
	// CreateOrGet atomically inserts batch unless a queued or running batch
	// with the same hash exists, in which case that batch is returned and
	// created is false.
	CreateOrGet(ctx context.Context, batch *core.Batch) (existing *core.Batch, created bool, err error)

	// SaveBatch overwrites the stored state of a batch.
	SaveBatch(ctx context.Context, batch *core.Batch) error

	// GetBatch retrieves a batch by ID.
	// Returns ErrNotFound if the batch doesn't exist.
	GetBatch(ctx context.Context, id uuid.UUID) (*core.Batch, error)

	// ListBatches returns the tenant's batches, newest first.
	ListBatches(ctx context.Context, tenantId uuid.UUID) ([]*core.Batch, error)
}

// MaskMappingRepository stores masking audit mappings.
type MaskMappingRepository interface {
	// UpsertMaskMapping inserts or replaces the mapping for
	// (SourceTable, SourceId, Field).
	UpsertMaskMapping(ctx context.Context, mapping *core.MaskMapping) error

	// GetMaskMapping returns one mapping or nil, nil if none exists.
	GetMaskMapping(ctx context.Context, sourceTable string, sourceId uuid.UUID, field string) (*core.MaskMapping, error)

	// ListMaskMappings returns every mapping recorded for a source row, ordered by field.
	ListMaskMappings(ctx context.Context, sourceTable string, sourceId uuid.UUID) ([]*core.MaskMapping, error)
}

// QueryLogRepository records retrieval requests.
type QueryLogRepository interface {
	// AppendQueryLog assigns a sequential ID and stores the entry.
	AppendQueryLog(ctx context.Context, entry *core.QueryLog) (*core.QueryLog, error)

	// ForEachQueryLog calls fn for every entry in ID order until fn returns an error.
	ForEachQueryLog(ctx context.Context, fn func(*core.QueryLog) error) error
}

// WatermarkRepository stores the last completed batch window per tenant.
type WatermarkRepository interface {
	SaveWatermark(ctx context.Context, watermark *core.Watermark) error

	// LoadWatermark returns nil, nil if the tenant has no watermark.
	LoadWatermark(ctx context.Context, tenantId uuid.UUID) (*core.Watermark, error)
}
