package storage

import (
	"fmt"

	"github.com/thanhtoan105/accounting-erp-rag/core"
)

func headerFields(c fieldCodec, h *core.DocumentHeader) {
	c.UUID(&h.TenantId)
	c.UUID(&h.Id)
	c.String(&h.FiscalPeriod)
	c.TimePtr(&h.DeletedAt)
	c.Time(&h.UpdatedAt)
}

func partyFields(c fieldCodec, p *core.Party) {
	c.String(&p.Code)
	c.String(&p.Name)
	c.String(&p.TaxCode)
	c.String(&p.Address)
	c.String(&p.Phone)
	c.String(&p.Email)
	c.String(&p.ContactPerson)
	c.Bool(&p.Active)
}

// documentFields visits the variant-specific fields of a document.
func documentFields(c fieldCodec, doc core.ErpDocument) {
	headerFields(c, doc.Header())
	switch d := doc.(type) {
	case *core.Invoice:
		c.String(&d.Number)
		c.String(&d.CustomerName)
		c.Time(&d.IssueDate)
		c.Time(&d.DueDate)
		c.Int64(&d.TotalAmount)
		c.Int64(&d.PaidAmount)
		c.String(&d.State)
		c.String(&d.Description)
		c.String(&d.Notes)
	case *core.Bill:
		c.String(&d.Number)
		c.String(&d.VendorName)
		c.Time(&d.IssueDate)
		c.Time(&d.DueDate)
		c.Int64(&d.TotalAmount)
		c.Int64(&d.PaidAmount)
		c.String(&d.State)
		c.String(&d.Description)
		c.String(&d.Notes)
	case *core.JournalEntry:
		c.String(&d.Number)
		c.Time(&d.EntryDate)
		c.String(&d.EntryType)
		c.String(&d.Description)
		c.String(&d.ReferenceNo)
		c.String(&d.State)
		c.Int64(&d.TotalDebit)
		c.Int64(&d.TotalCredit)
		c.String(&d.AccountCodes)
	case *core.Customer:
		partyFields(c, &d.Party)
		c.Int64(&d.CreditLimit)
	case *core.Vendor:
		partyFields(c, &d.Party)
		c.String(&d.NameEn)
		c.Int(&d.PaymentTerms)
	case *core.Payment:
		c.String(&d.Number)
		c.String(&d.CustomerName)
		c.Time(&d.PaymentDate)
		c.Int64(&d.Amount)
		c.String(&d.PaymentMethod)
		c.String(&d.ReferenceNo)
		c.String(&d.Notes)
	case *core.BankTransaction:
		c.String(&d.Number)
		c.String(&d.BankAccountName)
		c.Time(&d.TransactionDate)
		c.String(&d.TransactionType)
		c.Int64(&d.Amount)
		c.String(&d.Description)
		c.String(&d.ReferenceNo)
	}
}

// NewDocument returns an empty document of the given type.
func NewDocument(docType core.DocumentType) (core.ErpDocument, error) {
	switch docType {
	case core.DocumentTypeInvoice:
		return &core.Invoice{}, nil
	case core.DocumentTypeBill:
		return &core.Bill{}, nil
	case core.DocumentTypeJournalEntry:
		return &core.JournalEntry{}, nil
	case core.DocumentTypeCustomer:
		return &core.Customer{}, nil
	case core.DocumentTypeVendor:
		return &core.Vendor{}, nil
	case core.DocumentTypePayment:
		return &core.Payment{}, nil
	case core.DocumentTypeBankTransaction:
		return &core.BankTransaction{}, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownDocumentType, docType)
}

// MarshalDocument serializes a document, prefixed with its type tag.
func MarshalDocument(doc core.ErpDocument) ([]byte, error) {
	// reject types documentFields would silently encode as header-only
	if _, err := NewDocument(doc.Type()); err != nil {
		return nil, err
	}
	tag := string(doc.Type())
	return marshal(func(c fieldCodec) {
		c.String(&tag)
		documentFields(c, doc)
	}), nil
}

// UnmarshalDocument deserializes a document written by MarshalDocument.
func UnmarshalDocument(data []byte) (core.ErpDocument, error) {
	r := reader{bs: data}
	var tag string
	r.String(&tag)
	if r.err != nil {
		return nil, r.err
	}
	doc, err := NewDocument(core.DocumentType(tag))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	documentFields(&r, doc)
	if r.err != nil {
		return nil, r.err
	}
	return doc, nil
}
