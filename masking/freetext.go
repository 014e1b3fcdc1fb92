package masking

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	freeTextEmail = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9](?:[A-Za-z0-9.-]*[A-Za-z0-9])?\.[A-Za-z]{2,}`)
	freeTextTaxID = regexp.MustCompile(`\b[0-9]{10}(?:-[0-9]{3})?\b`)

	// Digit groups may be split by one space, dot or dash: 0912 345 678.
	freeTextPhone = regexp.MustCompile(`(?:\+84|0)[ .-]?(?:9(?:[ .-]?[0-9]){8}|[2-8](?:[ .-]?[0-9]){8,9})`)

	// A street address runs from "Số <n>" through a ward, district or province
	// clause to the end of the field.
	freeTextAddress = regexp.MustCompile(`(?i)số\s+\d+[^,|\n]*,\s*(?:phường|quận|huyện|thành phố|tỉnh)[^|\n]*`)
)

// freeTextDetectors are listed in priority order for matches that start at the
// same offset with the same length. A phone wins over a tax ID because its
// token reveals nothing, while a tax ID token keeps four digits.
var freeTextDetectors = []struct {
	kind    Kind
	pattern *regexp.Regexp
}{
	{KindEmail, freeTextEmail},
	{KindPhone, freeTextPhone},
	{KindTaxID, freeTextTaxID},
	{KindAddress, freeTextAddress},
}

type span struct {
	start, end int
	kind       Kind
	priority   int
}

// MaskFreeText masks emails, phone numbers, tax IDs and street addresses
// embedded in text.
// Each occurrence is masked like the standalone field and recorded under
// "<field>:<kind>:<n>", where n counts occurrences of that kind.
// Text without embedded PII is returned unchanged and needs no salt.
func (e *Engine) MaskFreeText(ctx context.Context, target Target, field, text string) (string, error) {
	if isSpaceOnly(text) {
		return text, nil
	}
	text = norm.NFC.String(text)

	spans := findSpans(text)
	if len(spans) == 0 {
		return text, nil
	}

	counts := make(map[Kind]int)
	var b strings.Builder
	last := 0
	for _, s := range spans {
		n := counts[s.kind]
		counts[s.kind]++

		masked, err := e.Mask(ctx, s.kind, target, fmt.Sprintf("%s:%s:%d", field, s.kind, n), text[s.start:s.end])
		if err != nil {
			return "", err
		}
		b.WriteString(text[last:s.start])
		b.WriteString(masked)
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// findSpans returns non-overlapping PII matches ordered by position.
// Overlaps resolve to the earliest match, then the longest, then detector priority.
func findSpans(text string) []span {
	var all []span
	for priority, d := range freeTextDetectors {
		for _, loc := range d.pattern.FindAllStringIndex(text, -1) {
			end := loc[0] + len(strings.TrimRightFunc(text[loc[0]:loc[1]], unicode.IsSpace))
			all = append(all, span{start: loc[0], end: end, kind: d.kind, priority: priority})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if a.end-a.start != b.end-b.start {
			return a.end-a.start > b.end-b.start
		}
		return a.priority < b.priority
	})

	var spans []span
	end := 0
	for _, s := range all {
		if s.start < end {
			continue
		}
		spans = append(spans, s)
		end = s.end
	}
	return spans
}
