package masking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhtoan105/accounting-erp-rag/storage/badger"
)

func TestMaskFreeText(t *testing.T) {
	engine, stores, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()
	target := testTarget()

	text := "Liên hệ ketoan@abc.vn hoặc 0901234567, MST 0123456789-001. Email phụ: sales@abc.vn"
	masked, err := engine.MaskFreeText(ctx, target, "notes", text)
	require.NoError(t, err)

	assert.NotContains(t, masked, "ketoan@abc.vn")
	assert.NotContains(t, masked, "sales@abc.vn")
	assert.NotContains(t, masked, "0901234567")
	assert.Contains(t, masked, "Liên hệ keto_")
	assert.Contains(t, masked, "TAX_*****9001.")
	assert.Contains(t, masked, "Email phụ: sale_")

	for _, field := range []string{"notes:email:0", "notes:email:1", "notes:phone:0", "notes:tax_id:0"} {
		mapping, err := stores.Mappings.GetMaskMapping(ctx, target.SourceTable, target.SourceId, field)
		require.NoError(t, err)
		assert.NotNil(t, mapping, field)
	}
}

func TestMaskFreeText_Deterministic(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()

	text := "Gọi +84912345678 để xác nhận"
	a, err := engine.MaskFreeText(ctx, testTarget(), "description", text)
	require.NoError(t, err)
	b, err := engine.MaskFreeText(ctx, testTarget(), "description", text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "Gọi Phone_")
}

func TestMaskFreeText_SeparatedPhones(t *testing.T) {
	engine, _, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()
	target := testTarget()

	plain, err := engine.MaskPhone(ctx, "0912345678", target)
	require.NoError(t, err)

	for _, phone := range []string{"0912 345 678", "0912.345.678", "0912-345-678"} {
		t.Run(phone, func(t *testing.T) {
			masked, err := engine.MaskFreeText(ctx, target, "description", "Gọi "+phone+" để xác nhận")
			require.NoError(t, err)
			assert.Equal(t, "Gọi "+plain+" để xác nhận", masked)
		})
	}

	masked, err := engine.MaskFreeText(ctx, target, "description", "Hotline +84 912 345 678")
	require.NoError(t, err)
	assert.NotContains(t, masked, "345")
	assert.Contains(t, masked, "Hotline Phone_")
}

func TestMaskFreeText_Addresses(t *testing.T) {
	engine, stores, cleanup := setupTestEngine(t)
	defer cleanup()
	ctx := context.Background()
	target := testTarget()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"ward and district", "Giao hàng: Số 12 Lê Lợi, Phường Bến Nghé, Quận 1", "Giao hàng: City_" + UnknownCity},
		{"with province", "Giao hàng: số 45 Nguyễn Huệ, quận 1, TP.HCM", "Giao hàng: City_TPHCM"},
		{"stops at separator", "Kho: Số 3 Trần Phú, huyện Đông Anh, Hà Nội | Đã nhận", "Kho: City_Hà Nội | Đã nhận"},
		{"invoice number is not an address", "Số 12 hóa đơn đã thanh toán", "Số 12 hóa đơn đã thanh toán"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked, err := engine.MaskFreeText(ctx, target, "notes", tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, masked)
		})
	}

	mapping, err := stores.Mappings.GetMaskMapping(ctx, target.SourceTable, target.SourceId, "notes:address:0")
	require.NoError(t, err)
	assert.NotNil(t, mapping)
}

func TestMaskFreeText_NoPIINeedsNoSalt(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	salts, err := NewSaltProvider(stores.Secrets)
	require.NoError(t, err)
	engine, err := NewEngine(salts, stores.Mappings)
	require.NoError(t, err)

	text := "Thanh toán tiền hàng tháng 3"
	masked, err := engine.MaskFreeText(context.Background(), testTarget(), "description", text)
	require.NoError(t, err)
	assert.Equal(t, text, masked)

	_, err = engine.MaskFreeText(context.Background(), testTarget(), "description", "Gọi 0901234567")
	assert.Error(t, err)
}

func TestFindSpans_Overlaps(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		kinds []Kind
	}{
		{"phone beats ten digit tax id", "0901234567", []Kind{KindPhone}},
		{"longer tax id beats phone", "0312345678-001", []Kind{KindTaxID}},
		{"tax id not a phone", "0123456789", []Kind{KindTaxID}},
		{"email swallows digits", "0901234567@mail.vn", []Kind{KindEmail}},
		{"separate matches", "a@b.vn 0123456789", []Kind{KindEmail, KindTaxID}},
		{"spaced phone", "0912 345 678", []Kind{KindPhone}},
		{"international phone with dots", "+84 912.345.678", []Kind{KindPhone}},
		{"address swallows its phone", "Số 7 Hai Bà Trưng, Quận 3, 0912345678", []Kind{KindAddress}},
		{"nothing", "Invoice paid in full", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var kinds []Kind
			for _, s := range findSpans(tt.text) {
				kinds = append(kinds, s.kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}
