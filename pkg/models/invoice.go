package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// InvoiceType selects the ZATCA transaction profile.
type InvoiceType string

const (
	InvoiceTypeStandard   InvoiceType = "standard"   // B2B tax invoice
	InvoiceTypeSimplified InvoiceType = "simplified" // B2C simplified tax invoice
)

// DocumentKind distinguishes invoices from credit and debit notes.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "invoice"
	KindCreditNote DocumentKind = "credit_note"
	KindDebitNote  DocumentKind = "debit_note"
)

// DefaultCurrency is used when a snapshot carries no currency code.
const DefaultCurrency = "SAR"

type Invoice struct {
	// Identity
	Number           string       `json:"number"`                      // Business-unique per tenant
	UUID             string       `json:"uuid,omitempty"`              // Assigned once, never regenerated
	Kind             DocumentKind `json:"kind,omitempty"`              // Defaults to invoice
	Type             InvoiceType  `json:"type"`                        // standard or simplified
	BillingReference string       `json:"billing_reference,omitempty"` // Original invoice number for credit/debit notes

	// Parties
	Seller Seller `json:"seller"`
	Buyer  Buyer  `json:"buyer"`

	// Amounts (exactly 2 fractional digits at the serialization boundary)
	Subtotal    decimal.Decimal `json:"subtotal"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency,omitempty"` // ISO 4217

	// IssueDate is an ISO 8601 timestamp, kept verbatim for the QR payload.
	IssueDate string `json:"issue_date"`

	Items []LineItem `json:"items"`
}

type Seller struct {
	LegalName string  `json:"legal_name"`
	VATNumber string  `json:"vat_number"`
	CRNumber  string  `json:"cr_number,omitempty"` // Commercial registration
	Address   Address `json:"address"`
}

type Buyer struct {
	Name          string   `json:"name"`
	VATNumber     string   `json:"vat_number,omitempty"`
	Address       *Address `json:"address,omitempty"`
	VATRegistered bool     `json:"vat_registered"`
}

type Address struct {
	Street         string `json:"street,omitempty"`
	BuildingNumber string `json:"building_number,omitempty"`
	District       string `json:"district,omitempty"`
	City           string `json:"city,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	Country        string `json:"country,omitempty"` // ISO 3166-1 alpha-2
}

// LineItem is one invoice line. NetAmount = Quantity × UnitPrice,
// VATAmount = NetAmount × VATRate, TotalAmount = NetAmount + VATAmount.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	VATRate     decimal.Decimal `json:"vat_rate"` // Fraction, e.g. 0.15
	VATAmount   decimal.Decimal `json:"vat_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// CurrencyCode returns the invoice currency, falling back to DefaultCurrency.
func (inv *Invoice) CurrencyCode() string {
	if inv.Currency == "" {
		return DefaultCurrency
	}
	return inv.Currency
}

// EffectiveKind returns the kind, treating an empty value as a plain invoice.
func (inv *Invoice) EffectiveKind() DocumentKind {
	if inv.Kind == "" {
		return KindInvoice
	}
	return inv.Kind
}

// IsNote reports whether the document is a credit or debit note.
func (inv *Invoice) IsNote() bool {
	k := inv.EffectiveKind()
	return k == KindCreditNote || k == KindDebitNote
}

// HasVATNumber reports whether the buyer carries a non-empty VAT number.
func (b *Buyer) HasVATNumber() bool {
	return b.VATNumber != ""
}

// TotalsMismatch describes one violated arithmetic invariant.
type TotalsMismatch struct {
	Field    string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

// CheckTotals compares line arithmetic and invoice-level sums at 2 decimal
// places and returns every mismatch found. It does not modify the invoice.
func (inv *Invoice) CheckTotals() []TotalsMismatch {
	var mismatches []TotalsMismatch
	check := func(field string, expected, actual decimal.Decimal) {
		if !expected.Round(2).Equal(actual.Round(2)) {
			mismatches = append(mismatches, TotalsMismatch{Field: field, Expected: expected, Actual: actual})
		}
	}

	netSum := decimal.Zero
	vatSum := decimal.Zero
	for i, item := range inv.Items {
		prefix := "items[" + strconv.Itoa(i) + "]."
		check(prefix+"net_amount", item.Quantity.Mul(item.UnitPrice), item.NetAmount)
		check(prefix+"vat_amount", item.NetAmount.Mul(item.VATRate), item.VATAmount)
		check(prefix+"total_amount", item.NetAmount.Add(item.VATAmount), item.TotalAmount)
		netSum = netSum.Add(item.NetAmount)
		vatSum = vatSum.Add(item.VATAmount)
	}

	check("subtotal", netSum, inv.Subtotal)
	check("vat_amount", vatSum, inv.VATAmount)
	check("total_amount", inv.Subtotal.Add(inv.VATAmount), inv.TotalAmount)
	return mismatches
}
