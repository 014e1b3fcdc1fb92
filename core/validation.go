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
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ValidateDocument validates an ErpDocument according to domain rules.
//
// Validation rules:
//   - Tenant and document ids must be set
//   - Fiscal period, when present, must be YYYY-MM
//   - Document type must be known
//
// NOT validated (checked by the renderer):
//   - Soft-delete marker
//   - Type-specific required fields such as the document number
func ValidateDocument(doc ErpDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrMalformedDocument)
	}

	h := doc.Header()
	if h.TenantId == uuid.Nil {
		return fmt.Errorf("%w: tenant id is empty", ErrMalformedDocument)
	}
	if h.Id == uuid.Nil {
		return fmt.Errorf("%w: document id is empty", ErrMalformedDocument)
	}

	if h.FiscalPeriod != "" {
		if err := ValidateFiscalPeriod(h.FiscalPeriod); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
	}

	if doc.Type().SourceTable() == "" {
		return fmt.Errorf("%w: %w: %q", ErrMalformedDocument, ErrUnknownDocumentType, doc.Type())
	}

	return nil
}

// ValidateFiscalPeriod checks that period has the form YYYY-MM with month 01-12.
func ValidateFiscalPeriod(period string) error {
	year, month, ok := strings.Cut(period, "-")
	if !ok || len(year) != 4 || len(month) != 2 {
		return fmt.Errorf("%w: %q", ErrInvalidFiscalPeriod, period)
	}
	if _, err := strconv.Atoi(year); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFiscalPeriod, period)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return fmt.Errorf("%w: %q", ErrInvalidFiscalPeriod, period)
	}
	return nil
}

// ParseBatchType parses a batch type name.
func ParseBatchType(s string) (BatchType, error) {
	switch t := BatchType(strings.ToLower(strings.TrimSpace(s))); t {
	case BatchTypeFull, BatchTypeIncremental, BatchTypeManual:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBatchType, s)
}
