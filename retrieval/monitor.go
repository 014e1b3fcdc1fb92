package retrieval

import (
	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// Monitor provides hooks to observe a retrieval.
type Monitor interface {
	Start(tenantId uuid.UUID, question string)
	AfterSearch(matches []*core.SimilarityMatch)
	AfterPack(packed Packed)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ uuid.UUID, _ string)           {}
func (n *noopMonitor) AfterSearch(_ []*core.SimilarityMatch) {}
func (n *noopMonitor) AfterPack(_ Packed)                    {}
func (n *noopMonitor) Finish(_ *Result)                      {}
