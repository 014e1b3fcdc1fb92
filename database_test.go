package erprag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhtoan105/accounting-erp-rag/ai/mock"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/pipeline"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.Documents())
		assert.NotNil(t, db.Vectors())
		assert.NotNil(t, db.Secrets())
		assert.NotNil(t, db.Batches())
		assert.NotNil(t, db.MaskMappings())
		assert.NotNil(t, db.QueryLogs())
		assert.NotNil(t, db.Watermarks())
		assert.NotNil(t, db.Salts())
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	provider := mock.NewMockProvider()
	db, err := NewDatabase("", InMemory(), WithAIProvider(provider))
	require.NoError(t, err)

	err = db.Close()
	assert.NoError(t, err)
	assert.True(t, provider.(*mock.MockProvider).Closed())
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create masking engine", func(t *testing.T) {
		engine, err := db.NewMaskingEngine()
		require.NoError(t, err)
		require.NotNil(t, engine)
	})

	t.Run("can create orchestrator", func(t *testing.T) {
		orchestrator, err := db.NewOrchestrator()
		require.NoError(t, err)
		require.NotNil(t, orchestrator)
	})

	t.Run("can create batch service", func(t *testing.T) {
		service, err := db.NewBatchService(nil, pipeline.WithPoolSize(2))
		require.NoError(t, err)
		require.NotNil(t, service)
		service.Release()
	})

	t.Run("can create retriever", func(t *testing.T) {
		retriever, err := db.NewRetriever()
		require.NoError(t, err)
		require.NotNil(t, retriever)
	})

	t.Run("can create scanner", func(t *testing.T) {
		scanner, err := db.NewScanner()
		require.NoError(t, err)
		require.NotNil(t, scanner)
	})
}

func TestDatabase_EndToEnd(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	db, err := NewDatabase("", InMemory(), WithAIProvider(mock.NewMockProviderWithEmbedder(embedder)))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	tenant := uuid.New()
	_, err = db.Salts().Rotate(ctx, tenant, "end-to-end-salt")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	var docs []core.ErpDocument
	for i := range 3 {
		docs = append(docs, &core.Invoice{
			DocumentHeader: core.DocumentHeader{
				TenantId:     tenant,
				Id:           uuid.New(),
				FiscalPeriod: "2025-03",
				UpdatedAt:    base.Add(time.Duration(i) * time.Hour),
			},
			Number:       fmt.Sprintf("INV-%04d", i+1),
			CustomerName: "Công ty TNHH Minh Phát",
			IssueDate:    base,
			TotalAmount:  int64(2500000 * (i + 1)),
			State:        "PAID",
		})
	}
	require.NoError(t, db.Documents().PutDocuments(ctx, docs...))

	orchestrator, err := db.NewOrchestrator()
	require.NoError(t, err)
	outcome, err := orchestrator.RunBatch(ctx, pipeline.Request{TenantId: tenant, Type: core.BatchTypeFull, TriggeredBy: "test"})
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusComplete, outcome.Status)

	for _, text := range embedder.Texts() {
		assert.NotContains(t, text, "Minh Phát")
	}

	retriever, err := db.NewRetriever()
	require.NoError(t, err)
	result, err := retriever.Retrieve(ctx, tenant, "unpaid invoices in March", 2)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)
	assert.Len(t, result.Included, 2)
	assert.NotZero(t, result.QueryLogId)

	scanner, err := db.NewScanner()
	require.NoError(t, err)
	for _, r := range scanner.ScanAll(ctx) {
		require.NoError(t, r.Err)
		assert.False(t, r.HasViolations(), "%s: %v", r.Source, r.Violations)
	}
}
