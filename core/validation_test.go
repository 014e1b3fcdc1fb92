package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateFiscalPeriod(t *testing.T) {
	tests := []struct {
		period  string
		wantErr bool
	}{
		{"2025-01", false},
		{"2025-12", false},
		{"2025-00", true},
		{"2025-13", true},
		{"2025-1", true},
		{"25-01", true},
		{"2025/01", true},
		{"abcd-01", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			err := ValidateFiscalPeriod(tt.period)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFiscalPeriod)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseBatchType(t *testing.T) {
	for _, s := range []string{"full", "INCREMENTAL", " manual "} {
		_, err := ParseBatchType(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseBatchType("nightly")
	assert.ErrorIs(t, err, ErrInvalidBatchType)
}

func TestValidateDocument(t *testing.T) {
	valid := &Invoice{DocumentHeader: testHeader(), Number: "INV-1"}
	assert.NoError(t, ValidateDocument(valid))

	assert.ErrorIs(t, ValidateDocument(nil), ErrMalformedDocument)

	noTenant := &Invoice{DocumentHeader: testHeader()}
	noTenant.TenantId = uuid.Nil
	assert.ErrorIs(t, ValidateDocument(noTenant), ErrMalformedDocument)

	noID := &Invoice{DocumentHeader: testHeader()}
	noID.Id = uuid.Nil
	assert.ErrorIs(t, ValidateDocument(noID), ErrMalformedDocument)

	badPeriod := &Invoice{DocumentHeader: testHeader()}
	badPeriod.FiscalPeriod = "2025-13"
	err := ValidateDocument(badPeriod)
	assert.ErrorIs(t, err, ErrMalformedDocument)
	assert.ErrorIs(t, err, ErrInvalidFiscalPeriod)

	master := &Customer{DocumentHeader: testHeader()}
	master.FiscalPeriod = ""
	assert.NoError(t, ValidateDocument(master))
}
