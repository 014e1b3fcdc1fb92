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


package masking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Kind identifies a category of PII with its own masking rule.
type Kind string

const (
	KindCustomerName Kind = "customer_name"
	KindVendorName   Kind = "vendor_name"
	KindTaxID        Kind = "tax_id"
	KindEmail        Kind = "email"
	KindPhone        Kind = "phone"
	KindAddress      Kind = "address"
)

// Placeholder tokens. They carry no information about the original value and
// are produced without a salt.
const (
	CustomerPlaceholder = "Customer_00000"
	VendorPlaceholder   = "Vendor_00000"
	TaxIDPlaceholder    = "TAX_****"
	EmailPlaceholder    = "masked@unknown.com"
	PhonePlaceholder    = "Phone_00000"
	AddressPlaceholder  = "City_" + UnknownCity
)

const shortHashLen = 5

// DefaultField returns the mapping field name recorded for a kind when the
// caller doesn't name one.
func (k Kind) DefaultField() string {
	switch k {
	case KindCustomerName, KindVendorName:
		return "name"
	case KindTaxID:
		return "tax_code"
	default:
		return string(k)
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindCustomerName, KindVendorName, KindTaxID, KindEmail, KindPhone, KindAddress:
		return true
	}
	return false
}

// placeholder returns the token for values that mask without a salt: blank
// names, phones and addresses, malformed emails and tax IDs too short to keep
// a tail.
func placeholder(kind Kind, value string) (string, bool) {
	switch kind {
	case KindCustomerName:
		if strings.TrimSpace(value) == "" {
			return CustomerPlaceholder, true
		}
	case KindVendorName:
		if strings.TrimSpace(value) == "" {
			return VendorPlaceholder, true
		}
	case KindTaxID:
		if len(digitsOnly(value)) < 4 {
			return TaxIDPlaceholder, true
		}
	case KindEmail:
		if _, _, ok := splitEmail(value); !ok {
			return EmailPlaceholder, true
		}
	case KindPhone:
		if digitsOnly(value) == "" {
			return PhonePlaceholder, true
		}
	case KindAddress:
		if strings.TrimSpace(value) == "" {
			return AddressPlaceholder, true
		}
	}
	return "", false
}

// apply masks a value that has no placeholder. It returns the token and the
// full hash recorded in the mask mapping.
func apply(kind Kind, value, salt string, g *Gazetteer) (masked, hash string) {
	hash = digest(hashInput(kind, value), salt)
	switch kind {
	case KindCustomerName:
		return "Customer_" + hash[:shortHashLen], hash
	case KindVendorName:
		return "Vendor_" + hash[:shortHashLen], hash
	case KindTaxID:
		digits := digitsOnly(value)
		return "TAX_*****" + digits[len(digits)-4:], hash
	case KindEmail:
		local, domain, _ := splitEmail(value)
		short := digest(strings.ToLower(local), salt)[:shortHashLen]
		return firstRunes(local, 4) + "_" + short + "@" + domain, hash
	case KindPhone:
		return "Phone_" + hash[:shortHashLen], hash
	case KindAddress:
		return "City_" + g.City(value), hash
	}
	return "", ""
}

// hashInput normalizes a value into the string hashed for its mapping.
func hashInput(kind Kind, value string) string {
	switch kind {
	case KindTaxID:
		return digitsOnly(value)
	case KindEmail:
		return strings.ToLower(strings.TrimSpace(value))
	case KindPhone:
		return cleanPhone(value)
	default:
		return strings.TrimSpace(value)
	}
}

func digest(input, salt string) string {
	sum := sha256.Sum256([]byte(input + salt))
	return hex.EncodeToString(sum[:])
}

// splitEmail splits an address on its single @ into a trimmed local part and
// a trimmed, lower-cased domain.
func splitEmail(value string) (local, domain string, ok bool) {
	email := strings.TrimSpace(value)
	if strings.Count(email, "@") != 1 {
		return "", "", false
	}
	at := strings.IndexByte(email, '@')
	local = strings.TrimSpace(email[:at])
	domain = strings.ToLower(strings.TrimSpace(email[at+1:]))
	if local == "" || domain == "" {
		return "", "", false
	}
	return local, domain, true
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cleanPhone keeps digits and a leading plus sign.
func cleanPhone(value string) string {
	trimmed := strings.TrimSpace(value)
	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// isSpaceOnly reports whether s is empty or all white space.
func isSpaceOnly(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
