package masking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
	"github.com/thanhtoan105/accounting-erp-rag/storage/badger"
)

const testGlobalSalt = "global-test-salt"

func sha(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// setupTestEngine returns an engine over in-memory stores with a global salt.
func setupTestEngine(t *testing.T) (*Engine, *badger.Stores, func()) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)

	_, err = stores.Secrets.PutSecret(context.Background(), GlobalSaltName, testGlobalSalt)
	require.NoError(t, err)

	salts, err := NewSaltProvider(stores.Secrets)
	require.NoError(t, err)
	engine, err := NewEngine(salts, stores.Mappings)
	require.NoError(t, err)

	return engine, stores, func() { stores.Close() }
}

func testTarget() Target {
	return Target{TenantId: uuid.New(), SourceTable: "customers", SourceId: uuid.New()}
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	_, err := NewEngine(nil, nil)
	assert.ErrorIs(t, err, ErrSaltProviderRequired)

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()
	salts, err := NewSaltProvider(stores.Secrets)
	require.NoError(t, err)

	_, err = NewEngine(salts, nil)
	assert.ErrorIs(t, err, ErrMappingRepositoryRequired)
}

func TestMaskCustomerName(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()
	target := testTarget()

	masked, err := engine.MaskCustomerName(ctx, "  Công ty TNHH ABC  ", target)
	require.NoError(t, err)
	assert.Equal(t, "Customer_"+sha("Công ty TNHH ABC"+testGlobalSalt)[:5], masked)

	again, err := engine.MaskCustomerName(ctx, "Công ty TNHH ABC", target)
	require.NoError(t, err)
	assert.Equal(t, masked, again)

	vendor, err := engine.MaskVendorName(ctx, "Công ty TNHH ABC", target)
	require.NoError(t, err)
	assert.Equal(t, "Vendor_"+masked[len("Customer_"):], vendor)
}

func TestMaskTaxID(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		input    string
		expected string
	}{
		{"0123456789-001", "TAX_*****9001"},
		{"0312345678", "TAX_*****5678"},
		{"MST: 12 34", "TAX_*****1234"},
		{"123", "TAX_****"},
		{"", "TAX_****"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			masked, err := engine.MaskTaxID(ctx, tt.input, testTarget())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, masked)
		})
	}
}

func TestMaskEmail(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	masked, err := engine.MaskEmail(ctx, "user@Example.COM", testTarget())
	require.NoError(t, err)
	assert.Equal(t, "user_"+sha("user"+testGlobalSalt)[:5]+"@example.com", masked)

	masked, err = engine.MaskEmail(ctx, " Nguyen.Van.A@congty.vn ", testTarget())
	require.NoError(t, err)
	assert.Equal(t, "Nguy_"+sha("nguyen.van.a"+testGlobalSalt)[:5]+"@congty.vn", masked)

	masked, err = engine.MaskEmail(ctx, "ab@x.vn", testTarget())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(masked, "ab_"))

	for _, malformed := range []string{"not-an-email", "a@b@c.com", "@example.com", "user@", "", "   "} {
		masked, err := engine.MaskEmail(ctx, malformed, testTarget())
		require.NoError(t, err)
		assert.Equal(t, EmailPlaceholder, masked, "input %q", malformed)
	}
}

func TestMaskPhone(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	masked, err := engine.MaskPhone(ctx, "+84 (90) 123-4567", testTarget())
	require.NoError(t, err)
	assert.Equal(t, "Phone_"+sha("+84901234567"+testGlobalSalt)[:5], masked)

	spaced, err := engine.MaskPhone(ctx, "+84901234567", testTarget())
	require.NoError(t, err)
	assert.Equal(t, masked, spaced)

	for _, blank := range []string{"", "  ", "n/a"} {
		masked, err := engine.MaskPhone(ctx, blank, testTarget())
		require.NoError(t, err)
		assert.Equal(t, PhonePlaceholder, masked)
	}
}

func TestMaskAddress(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		input    string
		expected string
	}{
		{"123 Lê Lợi, Quận 1, TP.HCM", "City_TPHCM"},
		{"45 Nguyễn Huệ, Hồ Chí Minh", "City_TPHCM"},
		{"12 Trần Hưng Đạo, hà nội", "City_Hà Nội"},
		{"Somewhere else", "City_Unknown"},
		{"", "City_Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			masked, err := engine.MaskAddress(ctx, tt.input, testTarget())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, masked)
		})
	}
}

func TestMask_RecordsMapping(t *testing.T) {
	engine, stores, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()
	target := testTarget()

	masked, err := engine.MaskEmail(ctx, "User@Example.com", target)
	require.NoError(t, err)

	mapping, err := stores.Mappings.GetMaskMapping(ctx, target.SourceTable, target.SourceId, "email")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, masked, mapping.MaskedValue)
	assert.Equal(t, sha("user@example.com"+testGlobalSalt), mapping.Hash)
	assert.Equal(t, 1, mapping.SaltVersion)

	// Same key again replaces the row
	_, err = engine.MaskEmail(ctx, "other@example.com", target)
	require.NoError(t, err)
	mappings, err := stores.Mappings.ListMaskMappings(ctx, target.SourceTable, target.SourceId)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, sha("other@example.com"+testGlobalSalt), mappings[0].Hash)
}

func TestMask_PlaceholderWritesNoMapping(t *testing.T) {
	engine, stores, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()
	target := testTarget()

	masked, err := engine.MaskCustomerName(ctx, "", target)
	require.NoError(t, err)
	assert.Equal(t, CustomerPlaceholder, masked)

	mappings, err := stores.Mappings.ListMaskMappings(ctx, target.SourceTable, target.SourceId)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestMask_NoSaltIsMaskingFailure(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	salts, err := NewSaltProvider(stores.Secrets)
	require.NoError(t, err)
	engine, err := NewEngine(salts, stores.Mappings)
	require.NoError(t, err)

	_, err = engine.MaskCustomerName(context.Background(), "ABC", testTarget())
	assert.ErrorIs(t, err, core.ErrMaskingFailure)
	assert.ErrorIs(t, err, ErrSaltUnavailable)

	// Placeholders still work without a salt
	masked, err := engine.MaskCustomerName(context.Background(), "", testTarget())
	require.NoError(t, err)
	assert.Equal(t, CustomerPlaceholder, masked)
}

func TestMask_TenantSaltOverridesGlobal(t *testing.T) {
	engine, stores, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	target := testTarget()
	_, err := stores.Secrets.PutSecret(ctx, TenantSaltName(target.TenantId), "tenant-salt")
	require.NoError(t, err)

	masked, err := engine.MaskPhone(ctx, "0901234567", target)
	require.NoError(t, err)
	assert.Equal(t, "Phone_"+sha("0901234567tenant-salt")[:5], masked)

	other, err := engine.MaskPhone(ctx, "0901234567", testTarget())
	require.NoError(t, err)
	assert.Equal(t, "Phone_"+sha("0901234567"+testGlobalSalt)[:5], other)
}

type failingMappings struct {
	storage.MaskMappingRepository
}

func (failingMappings) UpsertMaskMapping(context.Context, *core.MaskMapping) error {
	return errors.New("disk full")
}

func TestMask_MappingFailureDoesNotFailMask(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()
	_, err = stores.Secrets.PutSecret(context.Background(), GlobalSaltName, testGlobalSalt)
	require.NoError(t, err)

	salts, err := NewSaltProvider(stores.Secrets)
	require.NoError(t, err)
	engine, err := NewEngine(salts, failingMappings{})
	require.NoError(t, err)

	masked, err := engine.MaskCustomerName(context.Background(), "ABC", testTarget())
	require.NoError(t, err)
	assert.Equal(t, "Customer_"+sha("ABC"+testGlobalSalt)[:5], masked)
}

func TestMask_UnknownKind(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()

	_, err := engine.Mask(context.Background(), Kind("passport"), testTarget(), "passport", "B1234567")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMask_ConcurrentCallsAreDeterministic(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	const workers = 16
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			masked, err := engine.MaskVendorName(ctx, "Nhà cung cấp XYZ", testTarget())
			assert.NoError(t, err)
			results[i] = masked
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestVerify(t *testing.T) {
	engine, stores, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()
	target := testTarget()

	_, err := engine.MaskTaxID(ctx, "0123456789-001", target)
	require.NoError(t, err)
	mapping, err := stores.Mappings.GetMaskMapping(ctx, target.SourceTable, target.SourceId, "tax_code")
	require.NoError(t, err)
	require.NotNil(t, mapping)

	ok, err := engine.Verify(ctx, target.TenantId, KindTaxID, mapping, "0123456789001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.Verify(ctx, target.TenantId, KindTaxID, mapping, "0123456789-002")
	require.NoError(t, err)
	assert.False(t, ok)

	// Still verifiable after the global salt rotates
	_, err = engine.salts.Rotate(ctx, uuid.Nil, "rotated")
	require.NoError(t, err)
	ok, err = engine.Verify(ctx, target.TenantId, KindTaxID, mapping, "0123456789001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_MissingVersion(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()

	mapping := &core.MaskMapping{Hash: "x", SaltVersion: 9}
	_, err := engine.Verify(context.Background(), uuid.New(), KindEmail, mapping, "a@b.vn")
	assert.ErrorIs(t, err, ErrSaltVersionNotFound)
}

func TestForDocument(t *testing.T) {
	engine, stores, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	customer := &core.Customer{
		DocumentHeader: core.DocumentHeader{TenantId: uuid.New(), Id: uuid.New()},
		Party: core.Party{
			Code:    "KH001",
			Name:    "Công ty TNHH ABC",
			TaxCode: "0312345678",
			Address: "123 Lê Lợi, TP.HCM",
			Phone:   "0901234567",
			Email:   "ketoan@abc.vn",
			Active:  true,
		},
	}

	text, err := customer.Render(engine.ForDocument(ctx, customer))
	require.NoError(t, err)
	assert.NotContains(t, text, "Công ty TNHH ABC")
	assert.NotContains(t, text, "0312345678")
	assert.NotContains(t, text, "0901234567")
	assert.NotContains(t, text, "ketoan@abc.vn")
	assert.Contains(t, text, "TAX_*****5678")
	assert.Contains(t, text, "City_TPHCM")
	assert.Contains(t, text, "@abc.vn")

	mappings, err := stores.Mappings.ListMaskMappings(ctx, "customers", customer.Id)
	require.NoError(t, err)
	fields := make([]string, 0, len(mappings))
	for _, m := range mappings {
		fields = append(fields, m.Field)
	}
	assert.ElementsMatch(t, []string{"name", "tax_code", "address", "phone", "email"}, fields)
}
