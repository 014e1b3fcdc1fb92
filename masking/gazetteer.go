package masking

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// UnknownCity is reported for addresses that name no known province or city.
const UnknownCity = "Unknown"

// provinces maps each canonical province or city spelling to the extra
// spellings that should resolve to it. The canonical spelling always matches
// itself.
var provinces = map[string][]string{
	"TPHCM":          {"TP.HCM", "TP HCM", "TP. HCM", "HCMC", "Hồ Chí Minh", "Ho Chi Minh", "Sài Gòn", "Saigon"},
	"Hà Nội":         {"Hanoi", "Ha Noi"},
	"Đà Nẵng":        {"Da Nang"},
	"Hải Phòng":      {"Hai Phong"},
	"Cần Thơ":        {"Can Tho"},
	"An Giang":       nil,
	"Bà Rịa":         {"Vũng Tàu", "Bà Rịa - Vũng Tàu", "Bà Rịa-Vũng Tàu"},
	"Bắc Giang":      nil,
	"Bắc Kạn":        nil,
	"Bạc Liêu":       nil,
	"Bắc Ninh":       nil,
	"Bến Tre":        nil,
	"Bình Định":      nil,
	"Bình Dương":     nil,
	"Bình Phước":     nil,
	"Bình Thuận":     nil,
	"Cà Mau":         nil,
	"Cao Bằng":       nil,
	"Đắk Lắk":        nil,
	"Đắk Nông":       nil,
	"Điện Biên":      nil,
	"Đồng Nai":       nil,
	"Đồng Tháp":      nil,
	"Gia Lai":        nil,
	"Hà Giang":       nil,
	"Hà Nam":         nil,
	"Hà Tĩnh":        nil,
	"Hải Dương":      nil,
	"Hậu Giang":      nil,
	"Hòa Bình":       {"Hoà Bình"},
	"Hưng Yên":       nil,
	"Khánh Hòa":      {"Khánh Hoà"},
	"Kiên Giang":     nil,
	"Kon Tum":        nil,
	"Lai Châu":       nil,
	"Lâm Đồng":       nil,
	"Lạng Sơn":       nil,
	"Lào Cai":        nil,
	"Long An":        nil,
	"Nam Định":       nil,
	"Nghệ An":        nil,
	"Ninh Bình":      nil,
	"Ninh Thuận":     nil,
	"Phú Thọ":        nil,
	"Phú Yên":        nil,
	"Quảng Bình":     nil,
	"Quảng Nam":      nil,
	"Quảng Ngãi":     nil,
	"Quảng Ninh":     nil,
	"Quảng Trị":      nil,
	"Sóc Trăng":      nil,
	"Sơn La":         nil,
	"Tây Ninh":       nil,
	"Thái Bình":      nil,
	"Thái Nguyên":    nil,
	"Thanh Hóa":      {"Thanh Hoá"},
	"Thừa Thiên Huế": {"Huế"},
	"Tiền Giang":     nil,
	"Trà Vinh":       nil,
	"Tuyên Quang":    nil,
	"Vĩnh Long":      nil,
	"Vĩnh Phúc":      nil,
	"Yên Bái":        nil,
}

type spelling struct {
	folded    string // NFC, lower case
	canonical string
}

// Gazetteer resolves Vietnamese province and city names found in free-form
// addresses to one canonical spelling.
type Gazetteer struct {
	spellings []spelling
}

// NewGazetteer builds a gazetteer from canonical names and their synonyms.
func NewGazetteer(names map[string][]string) *Gazetteer {
	g := &Gazetteer{}
	for canonical, synonyms := range names {
		for _, s := range append([]string{canonical}, synonyms...) {
			g.spellings = append(g.spellings, spelling{folded: fold(s), canonical: canonical})
		}
	}
	// Longest first so that equal match positions prefer the longer spelling
	sort.Slice(g.spellings, func(i, j int) bool {
		if len(g.spellings[i].folded) != len(g.spellings[j].folded) {
			return len(g.spellings[i].folded) > len(g.spellings[j].folded)
		}
		return g.spellings[i].folded < g.spellings[j].folded
	})
	return g
}

// DefaultGazetteer returns the gazetteer of Vietnam's 63 provinces and
// centrally governed cities.
func DefaultGazetteer() *Gazetteer {
	return NewGazetteer(provinces)
}

// Find returns the canonical name of the earliest province or city mentioned
// in address. Matching is case-insensitive, ignores Unicode composition
// differences, and only accepts whole words.
func (g *Gazetteer) Find(address string) (string, bool) {
	text := fold(address)
	best, bestAt := "", -1
	for _, s := range g.spellings {
		at := indexWord(text, s.folded)
		if at < 0 {
			continue
		}
		if bestAt < 0 || at < bestAt {
			best, bestAt = s.canonical, at
		}
	}
	return best, bestAt >= 0
}

// City returns the canonical name found in address or UnknownCity.
func (g *Gazetteer) City(address string) string {
	if city, ok := g.Find(address); ok {
		return city
	}
	return UnknownCity
}

func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// indexWord returns the first index of word in text that is not part of a
// longer word, or -1.
func indexWord(text, word string) int {
	offset := 0
	for {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(word)
		if isBoundary(text, start, end) {
			return start
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func isBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
