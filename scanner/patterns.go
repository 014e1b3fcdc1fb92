package scanner

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category classifies a detected PII pattern.
type Category string

const (
	CategoryTaxID   Category = "TAX_ID"
	CategoryEmail   Category = "EMAIL"
	CategoryPhone   Category = "PHONE"
	CategoryAddress Category = "ADDRESS"
	CategoryName    Category = "NAME"
)

const (
	upperVietnamese = `A-ZÀÁẢÃẠĂẮẰẲẴẶÂẤẦẨẪẬĐÈÉẺẼẸÊẾỀỂỄỆÌÍỈĨỊÒÓỎÕỌÔỐỒỔỖỘƠỚỜỞỠỢÙÚỦŨỤƯỨỪỬỮỰỲÝỶỸỴ`
	lowerVietnamese = `a-zàáảãạăắằẳẵặâấầẩẫậđèéẻẽẹêếềểễệìíỉĩịòóỏõọôốồổỗộơớờởỡợùúủũụưứừửữựỳýỷỹỵ`
	nameWord        = `[` + upperVietnamese + `][` + lowerVietnamese + `]+`
)

var (
	taxIDPattern   = regexp.MustCompile(`\b[0-9]{10}(?:-[0-9]{3})?\b`)
	emailPattern   = regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9][A-Za-z0-9.-]*[A-Za-z0-9]\.[A-Za-z]{2,}`)
	phonePattern   = regexp.MustCompile(`(?:\+84|0)[ .-]?(?:9(?:[ .-]?[0-9]){8}|[2-8](?:[ .-]?[0-9]){8,9})`)
	addressPattern = regexp.MustCompile(`(?i)số\s+\d+[^,|\n]*,\s*(?:phường|quận|huyện|thành phố|tỉnh)[^|\n]*`)

	// Group 1 is the name; the outer groups stand in for Unicode word boundaries.
	namePattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(` + nameWord + `(?: ` + nameWord + `){1,3})(?:$|[^\p{L}\p{N}_])`)

	// maskedEmail matches the tokens the masking engine writes for emails.
	maskedEmail = regexp.MustCompile(`^[^@]{0,4}_[0-9a-f]{5}@`)
)

const maskedEmailPlaceholder = "masked@unknown.com"

// detector finds the first unmasked occurrence of one category in a text.
type detector struct {
	category    Category
	description string
	re          *regexp.Regexp
	group       int                     // submatch holding the value
	allow       func(match string) bool // matches that are not violations
}

func defaultDetectors(names bool) []detector {
	detectors := []detector{
		{
			category:    CategoryTaxID,
			description: "Vietnamese tax ID pattern (10 or 13 digits)",
			re:          taxIDPattern,
		},
		{
			category:    CategoryEmail,
			description: "email address pattern",
			re:          emailPattern,
			allow:       isMaskedEmail,
		},
		{
			category:    CategoryPhone,
			description: "Vietnamese phone number pattern",
			re:          phonePattern,
		},
		{
			category:    CategoryAddress,
			description: "Vietnamese street address pattern",
			re:          addressPattern,
		},
	}
	if names {
		detectors = append(detectors, detector{
			category:    CategoryName,
			description: "potential Vietnamese personal name",
			re:          namePattern,
			group:       1,
		})
	}
	return detectors
}

// find returns the byte offset of the first reportable match, or -1.
func (d detector) find(text string) int {
	for _, loc := range d.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2*d.group], loc[2*d.group+1]
		if start < 0 {
			continue
		}
		if d.allow != nil && d.allow(text[start:end]) {
			continue
		}
		return start
	}
	return -1
}

func isMaskedEmail(match string) bool {
	return strings.EqualFold(match, maskedEmailPlaceholder) || maskedEmail.MatchString(match)
}

// normalize composes decomposed diacritics so name matching sees one rune per
// letter.
func normalize(text string) string {
	return norm.NFC.String(text)
}
