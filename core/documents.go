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
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentType tags the variant of an ErpDocument.
type DocumentType string

const (
	DocumentTypeInvoice         DocumentType = "invoice"
	DocumentTypeBill            DocumentType = "bill"
	DocumentTypeJournalEntry    DocumentType = "journal_entry"
	DocumentTypeCustomer        DocumentType = "customer"
	DocumentTypeVendor          DocumentType = "vendor"
	DocumentTypePayment         DocumentType = "payment"
	DocumentTypeBankTransaction DocumentType = "bank_transaction"
)

// Module is the accounting module a document belongs to.
type Module string

const (
	ModuleAR       Module = "ar"
	ModuleAP       Module = "ap"
	ModuleGL       Module = "gl"
	ModuleCashBank Module = "cash_bank"
)

// AllDocumentTypes lists every document type in extraction order.
var AllDocumentTypes = []DocumentType{
	DocumentTypeInvoice,
	DocumentTypeBill,
	DocumentTypeJournalEntry,
	DocumentTypeCustomer,
	DocumentTypeVendor,
	DocumentTypePayment,
	DocumentTypeBankTransaction,
}

var documentTables = map[DocumentType]string{
	DocumentTypeInvoice:         "invoices",
	DocumentTypeBill:            "bills",
	DocumentTypeJournalEntry:    "journal_entries",
	DocumentTypeCustomer:        "customers",
	DocumentTypeVendor:          "vendors",
	DocumentTypePayment:         "payments",
	DocumentTypeBankTransaction: "cash_transactions",
}

var documentModules = map[DocumentType]Module{
	DocumentTypeInvoice:         ModuleAR,
	DocumentTypeBill:            ModuleAP,
	DocumentTypeJournalEntry:    ModuleGL,
	DocumentTypeCustomer:        ModuleAR,
	DocumentTypeVendor:          ModuleAP,
	DocumentTypePayment:         ModuleAR,
	DocumentTypeBankTransaction: ModuleCashBank,
}

// SourceTable returns the ERP table the document type is extracted from.
func (t DocumentType) SourceTable() string {
	return documentTables[t]
}

// Module returns the accounting module of the document type.
func (t DocumentType) Module() Module {
	return documentModules[t]
}

// ParseDocumentType parses a document type tag.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := documentTables[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, s)
	}
	return t, nil
}

// TypeForTable maps an ERP source table name to its document type.
func TypeForTable(table string) (DocumentType, error) {
	name := strings.ToLower(strings.TrimSpace(table))
	for t, tbl := range documentTables {
		if tbl == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSourceTable, table)
}

// FieldMasker masks individual PII fields while a document is rendered.
// The field argument names the mapping row that records the masking.
type FieldMasker interface {
	CustomerName(field, value string) (string, error)
	VendorName(field, value string) (string, error)
	TaxID(field, value string) (string, error)
	Email(field, value string) (string, error)
	Phone(field, value string) (string, error)
	Address(field, value string) (string, error)
	// FreeText masks PII embedded in descriptions, notes and references.
	FreeText(field, value string) (string, error)
}

// ErpDocument is a read-only projection of one ERP source row.
// Documents are built fresh by every extraction and never mutated.
type ErpDocument interface {
	Header() *DocumentHeader
	Type() DocumentType
	Status() string
	Date() time.Time
	// Render writes the canonical text of the document, passing every PII
	// field through m.
	Render(m FieldMasker) (string, error)
}

// DocumentHeader carries the identity and lifecycle fields shared by all variants.
type DocumentHeader struct {
	TenantId     uuid.UUID
	Id           uuid.UUID
	FiscalPeriod string // YYYY-MM, empty for master data
	DeletedAt    *time.Time
	UpdatedAt    time.Time
}

// Header returns the header itself so embedding variants satisfy ErpDocument.
func (h *DocumentHeader) Header() *DocumentHeader {
	return h
}

// IsDeleted reports whether the row carries a soft-delete marker.
func (h *DocumentHeader) IsDeleted() bool {
	return h.DeletedAt != nil
}

// RawText renders a document without masking.
// Only for tests and audits; never send the result to an external service.
func RawText(doc ErpDocument) (string, error) {
	return doc.Render(plainText{})
}

type plainText struct{}

func (plainText) CustomerName(_, v string) (string, error) { return v, nil }
func (plainText) VendorName(_, v string) (string, error)   { return v, nil }
func (plainText) TaxID(_, v string) (string, error)        { return v, nil }
func (plainText) Email(_, v string) (string, error)        { return v, nil }
func (plainText) Phone(_, v string) (string, error)        { return v, nil }
func (plainText) Address(_, v string) (string, error)      { return v, nil }
func (plainText) FreeText(_, v string) (string, error)     { return v, nil }

// template accumulates canonical text and the first masking error.
type template struct {
	b   strings.Builder
	err error
}

func (t *template) printf(format string, args ...any) {
	fmt.Fprintf(&t.b, format, args...)
}

func (t *template) mask(fn func(field, value string) (string, error), field, value string) string {
	if t.err != nil {
		return ""
	}
	masked, err := fn(field, value)
	if err != nil {
		t.err = fmt.Errorf("field %s: %w", field, err)
		return ""
	}
	return masked
}

func (t *template) result() (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return t.b.String(), nil
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return "unknown"
	}
	return d.Format(time.DateOnly)
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

func requireNumber(t DocumentType, number string) error {
	if !present(number) {
		return fmt.Errorf("%w: %s number is empty", ErrMalformedDocument, t)
	}
	return nil
}

// Invoice is an accounts-receivable invoice.
type Invoice struct {
	DocumentHeader
	Number       string
	CustomerName string
	IssueDate    time.Time
	DueDate      time.Time
	TotalAmount  int64 // VND
	PaidAmount   int64 // VND
	State        string
	Description  string // aggregated from invoice lines
	Notes        string
}

func (d *Invoice) Type() DocumentType { return DocumentTypeInvoice }
func (d *Invoice) Status() string     { return d.State }
func (d *Invoice) Date() time.Time    { return d.IssueDate }

func (d *Invoice) Render(m FieldMasker) (string, error) {
	if err := requireNumber(d.Type(), d.Number); err != nil {
		return "", err
	}
	var t template
	t.printf("invoice %s: ", d.Number)
	if present(d.Description) {
		t.printf("%s | ", t.mask(m.FreeText, "description", d.Description))
	}
	t.printf("Amount: %d VND | Date: %s", d.TotalAmount, formatDate(d.IssueDate))
	if present(d.State) {
		t.printf(" | Status: %s", d.State)
	}
	if present(d.CustomerName) {
		t.printf(" | Customer: %s", t.mask(m.CustomerName, "customer_name", d.CustomerName))
	}
	if present(d.Notes) {
		t.printf(" | Notes: %s", t.mask(m.FreeText, "notes", d.Notes))
	}
	return t.result()
}

// Bill is an accounts-payable vendor bill.
type Bill struct {
	DocumentHeader
	Number      string
	VendorName  string
	IssueDate   time.Time
	DueDate     time.Time
	TotalAmount int64 // VND
	PaidAmount  int64 // VND
	State       string
	Description string // aggregated from bill lines
	Notes       string
}

func (d *Bill) Type() DocumentType { return DocumentTypeBill }
func (d *Bill) Status() string     { return d.State }
func (d *Bill) Date() time.Time    { return d.IssueDate }

func (d *Bill) Render(m FieldMasker) (string, error) {
	if err := requireNumber(d.Type(), d.Number); err != nil {
		return "", err
	}
	var t template
	t.printf("bill %s: ", d.Number)
	if present(d.Description) {
		t.printf("%s | ", t.mask(m.FreeText, "description", d.Description))
	}
	t.printf("Amount: %d VND | Date: %s", d.TotalAmount, formatDate(d.IssueDate))
	if present(d.State) {
		t.printf(" | Status: %s", d.State)
	}
	if present(d.VendorName) {
		t.printf(" | Vendor: %s", t.mask(m.VendorName, "vendor_name", d.VendorName))
	}
	if present(d.Notes) {
		t.printf(" | Notes: %s", t.mask(m.FreeText, "notes", d.Notes))
	}
	return t.result()
}

// JournalEntry is a general-ledger journal entry.
type JournalEntry struct {
	DocumentHeader
	Number       string
	EntryDate    time.Time
	EntryType    string
	Description  string
	ReferenceNo  string
	State        string
	TotalDebit   int64 // VND
	TotalCredit  int64 // VND
	AccountCodes string // aggregated from entry lines
}

func (d *JournalEntry) Type() DocumentType { return DocumentTypeJournalEntry }
func (d *JournalEntry) Status() string     { return d.State }
func (d *JournalEntry) Date() time.Time    { return d.EntryDate }

func (d *JournalEntry) Render(m FieldMasker) (string, error) {
	if err := requireNumber(d.Type(), d.Number); err != nil {
		return "", err
	}
	var t template
	t.printf("journal_entry %s: ", d.Number)
	if present(d.Description) {
		t.printf("%s | ", t.mask(m.FreeText, "description", d.Description))
	}
	if d.TotalDebit != 0 || d.TotalCredit != 0 {
		t.printf("Debit: %d VND, Credit: %d VND | ", d.TotalDebit, d.TotalCredit)
	}
	t.printf("Date: %s", formatDate(d.EntryDate))
	if present(d.State) {
		t.printf(" | Status: %s", d.State)
	}
	if present(d.AccountCodes) {
		t.printf(" | Accounts: %s", d.AccountCodes)
	}
	if present(d.ReferenceNo) {
		t.printf(" | Ref: %s", t.mask(m.FreeText, "reference_no", d.ReferenceNo))
	}
	return t.result()
}

// Party holds the master-data fields shared by customers and vendors.
type Party struct {
	Code          string
	Name          string
	TaxCode       string
	Address       string
	Phone         string
	Email         string
	ContactPerson string
	Active        bool
}

func (p *Party) status() string {
	if p.Active {
		return "ACTIVE"
	}
	return "INACTIVE"
}

// renderContacts writes the masked contact block shared by customers and vendors.
func (p *Party) renderContacts(t *template, m FieldMasker, person func(field, value string) (string, error)) {
	if present(p.TaxCode) {
		t.printf(" | Tax Code: %s", t.mask(m.TaxID, "tax_code", p.TaxCode))
	}
	if present(p.Address) {
		t.printf(" | Address: %s", t.mask(m.Address, "address", p.Address))
	}
	if present(p.Phone) {
		t.printf(" | Phone: %s", t.mask(m.Phone, "phone", p.Phone))
	}
	if present(p.Email) {
		t.printf(" | Email: %s", t.mask(m.Email, "email", p.Email))
	}
	if present(p.ContactPerson) {
		t.printf(" | Contact: %s", t.mask(person, "contact_person", p.ContactPerson))
	}
}

// Customer is an accounts-receivable customer master record.
type Customer struct {
	DocumentHeader
	Party
	CreditLimit int64 // VND
}

func (d *Customer) Type() DocumentType { return DocumentTypeCustomer }
func (d *Customer) Status() string     { return d.status() }
func (d *Customer) Date() time.Time    { return d.UpdatedAt }

func (d *Customer) Render(m FieldMasker) (string, error) {
	if !present(d.Code) {
		return "", fmt.Errorf("%w: customer code is empty", ErrMalformedDocument)
	}
	var t template
	t.printf("customer %s: %s", d.Code, t.mask(m.CustomerName, "name", d.Name))
	d.renderContacts(&t, m, m.CustomerName)
	if d.CreditLimit > 0 {
		t.printf(" | Credit Limit: %d VND", d.CreditLimit)
	}
	t.printf(" | Status: %s", d.Status())
	return t.result()
}

// Vendor is an accounts-payable vendor master record.
type Vendor struct {
	DocumentHeader
	Party
	NameEn       string
	PaymentTerms int // days
}

func (d *Vendor) Type() DocumentType { return DocumentTypeVendor }
func (d *Vendor) Status() string     { return d.status() }
func (d *Vendor) Date() time.Time    { return d.UpdatedAt }

func (d *Vendor) Render(m FieldMasker) (string, error) {
	if !present(d.Code) {
		return "", fmt.Errorf("%w: vendor code is empty", ErrMalformedDocument)
	}
	var t template
	t.printf("vendor %s: %s", d.Code, t.mask(m.VendorName, "name", d.Name))
	if present(d.NameEn) {
		t.printf(" (%s)", t.mask(m.VendorName, "name_en", d.NameEn))
	}
	d.renderContacts(&t, m, m.VendorName)
	if d.PaymentTerms > 0 {
		t.printf(" | Payment Terms: %d days", d.PaymentTerms)
	}
	t.printf(" | Status: %s", d.Status())
	return t.result()
}

// Payment is a customer receipt. Payments are always posted.
type Payment struct {
	DocumentHeader
	Number        string
	CustomerName  string
	PaymentDate   time.Time
	Amount        int64 // VND
	PaymentMethod string
	ReferenceNo   string
	Notes         string
}

func (d *Payment) Type() DocumentType { return DocumentTypePayment }
func (d *Payment) Status() string     { return "POSTED" }
func (d *Payment) Date() time.Time    { return d.PaymentDate }

func (d *Payment) Render(m FieldMasker) (string, error) {
	if err := requireNumber(d.Type(), d.Number); err != nil {
		return "", err
	}
	var t template
	t.printf("payment %s: Amount: %d VND | Date: %s", d.Number, d.Amount, formatDate(d.PaymentDate))
	if present(d.PaymentMethod) {
		t.printf(" | Method: %s", d.PaymentMethod)
	}
	if present(d.CustomerName) {
		t.printf(" | Customer: %s", t.mask(m.CustomerName, "customer_name", d.CustomerName))
	}
	if present(d.ReferenceNo) {
		t.printf(" | Ref: %s", t.mask(m.FreeText, "reference_no", d.ReferenceNo))
	}
	if present(d.Notes) {
		t.printf(" | Notes: %s", t.mask(m.FreeText, "notes", d.Notes))
	}
	return t.result()
}

// BankTransaction is a cash or bank movement. Bank transactions are always posted.
type BankTransaction struct {
	DocumentHeader
	Number          string
	BankAccountName string
	TransactionDate time.Time
	TransactionType string
	Amount          int64 // VND
	Description     string
	ReferenceNo     string
}

func (d *BankTransaction) Type() DocumentType { return DocumentTypeBankTransaction }
func (d *BankTransaction) Status() string     { return "POSTED" }
func (d *BankTransaction) Date() time.Time    { return d.TransactionDate }

func (d *BankTransaction) Render(m FieldMasker) (string, error) {
	if err := requireNumber(d.Type(), d.Number); err != nil {
		return "", err
	}
	var t template
	t.printf("bank_transaction %s: ", d.Number)
	if present(d.Description) {
		t.printf("%s | ", t.mask(m.FreeText, "description", d.Description))
	}
	t.printf("Amount: %d VND | Date: %s", d.Amount, formatDate(d.TransactionDate))
	if present(d.TransactionType) {
		t.printf(" | Type: %s", d.TransactionType)
	}
	if present(d.BankAccountName) {
		t.printf(" | Account: %s", t.mask(m.FreeText, "bank_account_name", d.BankAccountName))
	}
	if present(d.ReferenceNo) {
		t.printf(" | Ref: %s", t.mask(m.FreeText, "reference_no", d.ReferenceNo))
	}
	return t.result()
}

var (
	_ ErpDocument = (*Invoice)(nil)
	_ ErpDocument = (*Bill)(nil)
	_ ErpDocument = (*JournalEntry)(nil)
	_ ErpDocument = (*Customer)(nil)
	_ ErpDocument = (*Vendor)(nil)
	_ ErpDocument = (*Payment)(nil)
	_ ErpDocument = (*BankTransaction)(nil)
)
