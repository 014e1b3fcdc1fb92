package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhtoan105/accounting-erp-rag/ai/mock"
	"github.com/thanhtoan105/accounting-erp-rag/core"
)

func TestNewService_RequiresOrchestrator(t *testing.T) {
	_, err := NewService(nil)
	assert.ErrorIs(t, err, ErrOrchestratorRequired)
}

func TestService_RunsTenantsConcurrently(t *testing.T) {
	orchestrator, env, cleanup := setupTestOrchestrator(t)
	defer cleanup()
	ctx := context.Background()

	service, err := NewService(orchestrator, WithPoolSize(2))
	require.NoError(t, err)
	defer service.Release()

	tenants := []uuid.UUID{env.tenant, uuid.New(), uuid.New()}
	var ids []uuid.UUID
	for i, tenant := range tenants {
		env.put(t, testInvoices(tenant, 10*(i+1))...)
		outcome, err := service.Submit(ctx, Request{TenantId: tenant, Type: core.BatchTypeFull, TriggeredBy: "scheduler"})
		require.NoError(t, err)
		assert.False(t, outcome.Duplicate)
		ids = append(ids, outcome.BatchId)
	}

	service.Wait()
	assert.Zero(t, service.Running())

	for i, id := range ids {
		batch, err := orchestrator.Batch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.BatchStatusComplete, batch.Status)
		assert.Equal(t, 10*(i+1), batch.ProcessedDocuments)
	}
	assert.Len(t, env.vectors(t), 60)
}

func TestService_DeduplicatesActiveBatch(t *testing.T) {
	orchestrator, env, cleanup := setupTestOrchestrator(t)
	defer cleanup()
	ctx := context.Background()

	env.put(t, testInvoices(env.tenant, 5)...)

	release := make(chan struct{})
	env.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		<-release
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.GenerateDeterministicVector(text, mock.DefaultDimensions)
		}
		return vectors, nil
	}

	service, err := NewService(orchestrator, WithPoolSize(1))
	require.NoError(t, err)
	defer service.Release()

	req := env.request(core.BatchTypeFull)
	first, err := service.Submit(ctx, req)
	require.NoError(t, err)
	second, err := service.Submit(ctx, req)
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.BatchId, second.BatchId)

	close(release)
	service.Wait()

	batch, err := orchestrator.Batch(ctx, first.BatchId)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusComplete, batch.Status)
}

func TestService_RunSurvivesCallerCancel(t *testing.T) {
	orchestrator, env, cleanup := setupTestOrchestrator(t)
	defer cleanup()

	env.put(t, testInvoices(env.tenant, 5)...)

	service, err := NewService(orchestrator)
	require.NoError(t, err)
	defer service.Release()

	ctx, cancel := context.WithCancel(context.Background())
	outcome, err := service.Submit(ctx, env.request(core.BatchTypeFull))
	require.NoError(t, err)
	cancel()
	service.Wait()

	batch, err := orchestrator.Batch(context.Background(), outcome.BatchId)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusComplete, batch.Status)
}

func TestService_SubmitAfterRelease(t *testing.T) {
	orchestrator, env, cleanup := setupTestOrchestrator(t)
	defer cleanup()

	service, err := NewService(orchestrator)
	require.NoError(t, err)
	service.Release()

	_, err = service.Submit(context.Background(), env.request(core.BatchTypeFull))
	assert.ErrorIs(t, err, ErrServiceClosed)
}
