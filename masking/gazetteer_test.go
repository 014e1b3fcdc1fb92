package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestDefaultGazetteer_Size(t *testing.T) {
	assert.Len(t, provinces, 63)
}

func TestGazetteer_Find(t *testing.T) {
	g := DefaultGazetteer()

	tests := []struct {
		name     string
		address  string
		expected string
		found    bool
	}{
		{"abbreviation", "Lầu 5, 12 Nguyễn Du, Q.1, TP.HCM", "TPHCM", true},
		{"compact abbreviation", "tphcm", "TPHCM", true},
		{"full name", "Thành phố Hồ Chí Minh", "TPHCM", true},
		{"unaccented", "District 3, Ho Chi Minh City", "TPHCM", true},
		{"old name", "Quận 1, Sài Gòn", "TPHCM", true},
		{"capital", "Số 1 Tràng Tiền, Hoàn Kiếm, Hà Nội", "Hà Nội", true},
		{"capital unaccented", "Hanoi, Vietnam", "Hà Nội", true},
		{"upper case", "ĐÀ NẴNG", "Đà Nẵng", true},
		{"province", "KCN Sóng Thần, Bình Dương", "Bình Dương", true},
		{"old tone placement", "Nha Trang, Khánh Hoà", "Khánh Hòa", true},
		{"earliest wins", "Chi nhánh Đồng Nai, trụ sở Hà Nội", "Đồng Nai", true},
		{"partial word", "Hanoian street", "", false},
		{"none", "123 Main Street", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city, found := g.Find(tt.address)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, city)
		})
	}
}

func TestGazetteer_DecomposedInput(t *testing.T) {
	g := DefaultGazetteer()
	decomposed := norm.NFD.String("Cần Thơ")

	city, found := g.Find("Ninh Kiều, " + decomposed)
	assert.True(t, found)
	assert.Equal(t, "Cần Thơ", city)
}

func TestGazetteer_City(t *testing.T) {
	g := NewGazetteer(map[string][]string{"Kon Tum": nil})

	assert.Equal(t, "Kon Tum", g.City("Kon Tum"))
	assert.Equal(t, UnknownCity, g.City("Hà Nội"))
}
