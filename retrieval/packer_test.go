package retrieval

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// docWithTokens returns a record whose text estimates to exactly tokens.
func docWithTokens(tokens int) *core.VectorRecord {
	return docWithText(strings.Repeat("a", tokens*4))
}

func docWithText(text string) *core.VectorRecord {
	return &core.VectorRecord{
		SourceId: uuid.New(),
		Metadata: core.VectorMetadata{ContentText: text},
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("Hóa đơn "), "counts characters, not bytes")
}

func TestPack_StrictPrefix(t *testing.T) {
	first := docWithTokens(7000)
	packed := NewPacker().Pack([]*core.VectorRecord{first, docWithTokens(1500), docWithTokens(1500)})

	assert.Equal(t, []*core.VectorRecord{first}, packed.Included)
	assert.Equal(t, 7000, packed.TokensUsed)
	assert.Equal(t, first.Metadata.ContentText, packed.Text)
	assert.NotContains(t, packed.Text, DefaultSeparator)
	assert.Equal(t, 2, packed.Pruned)
}

func TestPack_JoinsWithOneSeparator(t *testing.T) {
	a := docWithText(strings.Repeat("x", 400))
	b := docWithText(strings.Repeat("y", 400))
	packed := NewPacker().Pack([]*core.VectorRecord{a, b})

	assert.Len(t, packed.Included, 2)
	assert.Equal(t, 200, packed.TokensUsed)
	assert.Equal(t, 1, strings.Count(packed.Text, DefaultSeparator))
	assert.Equal(t, a.Metadata.ContentText+DefaultSeparator+b.Metadata.ContentText, packed.Text)
	assert.Zero(t, packed.Pruned)
}

func TestPack_SmallerLaterDocumentNotConsidered(t *testing.T) {
	packer := &Packer{Budget: 100, Separator: " | "}
	packed := packer.Pack([]*core.VectorRecord{docWithTokens(60), docWithTokens(50), docWithTokens(10)})

	assert.Len(t, packed.Included, 1)
	assert.Equal(t, 60, packed.TokensUsed)
	assert.Equal(t, 2, packed.Pruned)
}

func TestPack_SkipsEmptyText(t *testing.T) {
	a := docWithText("first document")
	b := docWithText("second document")
	packed := NewPacker().Pack([]*core.VectorRecord{docWithText(""), a, nil, docWithText(""), b})

	assert.Equal(t, []*core.VectorRecord{a, b}, packed.Included)
	assert.Equal(t, "first document"+DefaultSeparator+"second document", packed.Text)
	assert.Equal(t, 3, packed.Skipped)
}

func TestPack_Edges(t *testing.T) {
	tests := []struct {
		name     string
		budget   int
		records  []*core.VectorRecord
		included int
		tokens   int
	}{
		{"empty input", 8000, nil, 0, 0},
		{"exactly the budget", 8000, []*core.VectorRecord{docWithTokens(8000)}, 1, 8000},
		{"first over budget", 8000, []*core.VectorRecord{docWithTokens(8001), docWithTokens(1)}, 0, 0},
		{"zero budget uses default", 0, []*core.VectorRecord{docWithTokens(8000)}, 1, 8000},
		{"short texts cost nothing", 1, []*core.VectorRecord{docWithText("ab"), docWithText("cd"), docWithText("ef")}, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := (&Packer{Budget: tt.budget, Separator: DefaultSeparator}).Pack(tt.records)
			assert.Len(t, packed.Included, tt.included)
			assert.Equal(t, tt.tokens, packed.TokensUsed)
		})
	}
}
