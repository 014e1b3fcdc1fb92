package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhtoan105/accounting-erp-rag/core"
)

func TestChunkIterator_ForEach(t *testing.T) {
	docs := testInvoices(uuid.New(), 250)
	iterator := NewChunkIterator(100)

	var sizes []int
	var lasts []bool
	err := iterator.ForEach(context.Background(), docs, func(chunk []core.ErpDocument, last bool) error {
		sizes = append(sizes, len(chunk))
		lasts = append(lasts, last)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 50}, sizes)
	assert.Equal(t, []bool{false, false, true}, lasts)
	assert.Equal(t, 3, iterator.Count(250))
	assert.Equal(t, 0, iterator.Count(0))
}

func TestChunkIterator_SizeIsClamped(t *testing.T) {
	tests := []struct {
		size     int
		expected int
	}{
		{0, MaxChunkSize},
		{-5, MaxChunkSize},
		{500, MaxChunkSize},
		{7, 7},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NewChunkIterator(tt.size).size)
	}
}

func TestChunkIterator_StopsOnError(t *testing.T) {
	docs := testInvoices(uuid.New(), 30)
	stop := errors.New("stop")

	calls := 0
	err := NewChunkIterator(10).ForEach(context.Background(), docs, func([]core.ErpDocument, bool) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestChunkIterator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := NewChunkIterator(10).ForEach(ctx, testInvoices(uuid.New(), 5), func([]core.ErpDocument, bool) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
