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


package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/thanhtoan105/accounting-erp-rag/core"
)

const (
	// DefaultBudget is the token budget of a grounded context.
	DefaultBudget = 8000

	// DefaultSeparator goes between consecutive documents of a context.
	DefaultSeparator = "\n\n---\n\n"
)

// EstimateTokens approximates the token count of text as a quarter of its
// character count.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// Packed is a grounded context built from ranked records.
type Packed struct {
	Text       string
	TokensUsed int
	Included   []*core.VectorRecord
	Skipped    int // records without text
	Pruned     int // records dropped at and after the first one over budget
}

// Packer fits ranked records into a token budget.
type Packer struct {
	Budget    int
	Separator string
}

// NewPacker returns a packer with the default budget and separator.
func NewPacker() *Packer {
	return &Packer{Budget: DefaultBudget, Separator: DefaultSeparator}
}

// Pack walks records in rank order and includes each one while the running
// token total stays within the budget. The first record that would exceed it
// ends packing; later records are never considered, however small. Records
// without text are skipped without consuming budget. Separator tokens are not
// counted.
func (p *Packer) Pack(records []*core.VectorRecord) Packed {
	budget := p.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	var packed Packed
	var b strings.Builder
	for i, record := range records {
		if record == nil || record.Metadata.ContentText == "" {
			packed.Skipped++
			continue
		}

		text := record.Metadata.ContentText
		tokens := EstimateTokens(text)
		if packed.TokensUsed+tokens > budget {
			packed.Pruned = len(records) - i
			break
		}

		if len(packed.Included) > 0 {
			b.WriteString(p.Separator)
		}
		b.WriteString(text)
		packed.TokensUsed += tokens
		packed.Included = append(packed.Included, record)
	}

	packed.Text = b.String()
	return packed
}
