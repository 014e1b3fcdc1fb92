package scanner

import (
	"context"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage/badger"
	"golang.org/x/text/unicode/norm"
)

func setupTestScanner(t *testing.T, opts ...Option) (*Scanner, *badger.Stores, func()) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)

	scanner, err := NewScanner(stores.Vectors, stores.QueryLogs, opts...)
	require.NoError(t, err)

	return scanner, stores, func() { stores.Close() }
}

func putRecord(t *testing.T, stores *badger.Stores, tenant uuid.UUID, text string) *core.VectorRecord {
	t.Helper()
	record := &core.VectorRecord{
		TenantId:    tenant,
		SourceTable: "customers",
		SourceId:    uuid.New(),
		Vector:      []float32{1, 0, 0},
		Metadata:    core.VectorMetadata{ContentText: text},
	}
	require.NoError(t, stores.Vectors.Upsert(context.Background(), record))
	return record
}

func categories(violations []Violation) []Category {
	var out []Category
	for _, v := range violations {
		out = append(out, v.Category)
	}
	return out
}

func TestNewScanner(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = NewScanner(nil, stores.QueryLogs)
	assert.Equal(t, ErrVectorStoreRequired, err)

	_, err = NewScanner(stores.Vectors, nil)
	assert.Equal(t, ErrQueryLogRequired, err)

	scanner, err := NewScanner(stores.Vectors, stores.QueryLogs, WithLogger(nil), WithPoolSize(0))
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, scanner.limit)
	assert.Equal(t, 1, scanner.poolSize)
}

func TestScanText(t *testing.T) {
	scanner, _, cleanup := setupTestScanner(t)
	defer cleanup()

	tests := []struct {
		name     string
		text     string
		expected []Category
	}{
		{"leaked email", "Liên hệ: ketoan@abc.vn", []Category{CategoryEmail}},
		{"leaked tax id", "MST 0123456789-001", []Category{CategoryTaxID}},
		{"leaked international phone", "Gọi +84912345678", []Category{CategoryPhone}},
		{"mobile number is also ten digits", "SĐT 0901234567", []Category{CategoryTaxID, CategoryPhone}},
		{"spaced phone", "Hotline 0912 345 678", []Category{CategoryPhone}},
		{"dotted international phone", "Gọi +84 912.345.678", []Category{CategoryPhone}},
		{"leaked street address", "Giao hàng: Số 12 Lê Lợi, Phường Bến Nghé, Quận 1", []Category{CategoryAddress}},
		{"masked address", "Ghi chú: Giao hàng: City_Unknown | Status: paid", nil},
		{
			"fully masked customer",
			"customer KH001: Customer_1a2b3 | Tax Code: TAX_*****5678 | Address: City_TPHCM | Phone: Phone_ab12c | Email: keto_1a2b3@abc.vn | Status: ACTIVE",
			nil,
		},
		{"email placeholder", "Email: masked@unknown.com", nil},
		{"amount and date", "invoice INV-0001: Amount: 15000000 VND | Date: 2025-03-15", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := scanner.ScanText("r1", tt.text)
			assert.Equal(t, tt.expected, categories(violations))
			for _, v := range violations {
				assert.Equal(t, "r1", v.RecordId)
				assert.NotEmpty(t, v.Description)
			}
		})
	}
}

func TestScanText_Offsets(t *testing.T) {
	scanner, _, cleanup := setupTestScanner(t)
	defer cleanup()

	text := "Email: keto_1a2b3@abc.vn, sales@abc.vn"
	violations := scanner.ScanText("r1", text)
	require.Len(t, violations, 1)
	assert.Equal(t, len("Email: keto_1a2b3@abc.vn, "), violations[0].Offset)
}

func TestScanText_NamesAreOptIn(t *testing.T) {
	scanner, _, cleanup := setupTestScanner(t)
	defer cleanup()

	assert.Empty(t, scanner.ScanText("r1", "Người liên hệ: Trần Thị Bình"))

	withNames, err := NewScanner(scanner.vectors, scanner.queryLogs, WithNames(true))
	require.NoError(t, err)
	decomposed := norm.NFD.String("Người liên hệ: Trần Thị Bình")
	assert.Equal(t, []Category{CategoryName}, categories(withNames.ScanText("r1", decomposed)))
	assert.Equal(t, []Category{CategoryName}, categories(withNames.ScanText("r1", "Khách hàng Nguyễn Văn An đã thanh toán")))
	assert.Empty(t, withNames.ScanText("r1", "Khách hàng đã thanh toán"))
}

func TestScanVectorRecords(t *testing.T) {
	scanner, stores, cleanup := setupTestScanner(t, WithPoolSize(2))
	defer cleanup()
	ctx := context.Background()

	tenant, other := uuid.New(), uuid.New()
	putRecord(t, stores, tenant, "customer KH001: Customer_1a2b3 | Email: keto_1a2b3@abc.vn")
	leakedEmail := putRecord(t, stores, tenant, "vendor NCC01: Vendor_9f8e7 | Email: sales@ncc.vn")
	leakedPhone := putRecord(t, stores, other, "customer KH002: Customer_5d4c3 | Phone: +84912345678")
	putRecord(t, stores, other, "")

	result := scanner.ScanVectorRecords(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, SourceVectorRecords, result.Source)
	assert.Equal(t, 4, result.Scanned)
	require.True(t, result.HasViolations())
	require.Len(t, result.Violations, 2)

	byRecord := map[string]Violation{}
	for _, v := range result.Violations {
		assert.Equal(t, SourceVectorRecords, v.Source)
		byRecord[v.RecordId] = v
	}

	email := byRecord["customers/"+leakedEmail.SourceId.String()]
	assert.Equal(t, CategoryEmail, email.Category)
	assert.Equal(t, tenant, email.TenantId)

	phone := byRecord["customers/"+leakedPhone.SourceId.String()]
	assert.Equal(t, CategoryPhone, phone.Category)
	assert.Equal(t, other, phone.TenantId)

	assert.Less(t, result.Violations[0].RecordId, result.Violations[1].RecordId)
}

func TestScanVectorRecords_Limit(t *testing.T) {
	scanner, stores, cleanup := setupTestScanner(t, WithLimit(2))
	defer cleanup()

	tenant := uuid.New()
	for range 5 {
		putRecord(t, stores, tenant, "leak 0123456789")
	}

	result := scanner.ScanVectorRecords(context.Background())
	assert.NoError(t, result.Err)
	assert.Equal(t, 2, result.Scanned)
	assert.Len(t, result.Violations, 2)
}

func TestScanVectorRecords_Canceled(t *testing.T) {
	scanner, stores, cleanup := setupTestScanner(t)
	defer cleanup()

	putRecord(t, stores, uuid.New(), "clean")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := scanner.ScanVectorRecords(ctx)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestScanQueryLogs(t *testing.T) {
	scanner, stores, cleanup := setupTestScanner(t)
	defer cleanup()
	ctx := context.Background()

	tenant := uuid.New()
	leaked, err := stores.QueryLogs.AppendQueryLog(ctx, &core.QueryLog{
		TenantId: tenant,
		Question: "Công nợ của khách hàng có MST 0312345678?",
	})
	require.NoError(t, err)
	_, err = stores.QueryLogs.AppendQueryLog(ctx, &core.QueryLog{
		TenantId: tenant,
		Question: "Doanh thu tháng 3 là bao nhiêu?",
	})
	require.NoError(t, err)

	result := scanner.ScanQueryLogs(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Scanned)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, strconv.FormatUint(uint64(leaked.Id), 10), result.Violations[0].RecordId)
	assert.Equal(t, CategoryTaxID, result.Violations[0].Category)
	assert.Equal(t, SourceQueryLogs, result.Violations[0].Source)
}

func TestScanAll(t *testing.T) {
	scanner, _, cleanup := setupTestScanner(t)
	defer cleanup()

	results := scanner.ScanAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, SourceVectorRecords, results[0].Source)
	assert.Equal(t, SourceQueryLogs, results[1].Source)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Zero(t, r.Scanned)
		assert.False(t, r.HasViolations())
	}
}
