// Package zatca implements the Saudi e-invoicing compliance codec.
//
// It produces the three artefacts a posted invoice carries:
//   - the Phase-1 QR payload (TLV records, Base64 encoded)
//   - the Phase-2 UBL 2.1 XML document
//   - the Base64 SHA-256 hash of that document, fed forward as the next
//     invoice's previous hash (PIH)
//
// The codec holds no state between calls. Invoice counter (ICV) and previous
// hash assignment must be serialized per tenant by the caller; see the ledger
// package.
//
// Known simplifications:
//   - the hash is computed over the serialized string, without XML
//     canonicalization
//   - no XAdES signature or UBL extension block is emitted
package zatca

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"einvoice/internal/logger"
	"einvoice/pkg/models"
)

const (
	profileReporting = "reporting:1.0"

	typeCodeInvoice    = "388"
	typeCodeCreditNote = "381"
	typeCodeDebitNote  = "383"

	subtypeStandard   = "0100000"
	subtypeSimplified = "0200000"

	defaultIssueTime = "00:00:00"
	defaultUnitCode  = "PCE"
	vatSchemeID      = "VAT"
)

// TaxCategoryMode decides how the TaxCategory nodes are derived.
type TaxCategoryMode string

const (
	// TaxCategoryFixed asserts one standard-rated category regardless of the
	// line rates.
	TaxCategoryFixed TaxCategoryMode = "fixed"

	// TaxCategoryPerRate emits one tax subtotal per distinct line VAT rate.
	TaxCategoryPerRate TaxCategoryMode = "per_rate"
)

// Options configures a Builder.
type Options struct {
	// StandardRate is the VAT percentage asserted in fixed mode (15 = 15%).
	StandardRate decimal.Decimal

	// TaxCategoryMode selects fixed or per-rate tax categories.
	TaxCategoryMode TaxCategoryMode

	// Strict rejects invoices whose totals do not add up, and in fixed mode
	// invoices with a line rate other than StandardRate.
	Strict bool

	// DefaultCurrency applies when an invoice has no currency code.
	DefaultCurrency string
}

// DefaultOptions returns the options matching the reference output.
func DefaultOptions() Options {
	return Options{
		StandardRate:    decimal.NewFromInt(15),
		TaxCategoryMode: TaxCategoryFixed,
		DefaultCurrency: models.DefaultCurrency,
	}
}

// Document is the result of building an invoice.
type Document struct {
	XML          string
	Hash         string
	UUID         string
	UUIDAssigned bool // true when the UUID was generated by this call
	ICV          int64
	PreviousHash string
}

// Builder renders invoice snapshots into UBL 2.1 documents.
type Builder struct {
	opts Options
	log  zerolog.Logger
}

// NewBuilder creates a Builder, filling unset options with defaults.
func NewBuilder(opts Options) *Builder {
	def := DefaultOptions()
	if opts.StandardRate.IsZero() {
		opts.StandardRate = def.StandardRate
	}
	if opts.TaxCategoryMode == "" {
		opts.TaxCategoryMode = def.TaxCategoryMode
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = def.DefaultCurrency
	}
	return &Builder{
		opts: opts,
		log:  logger.WithComponent("zatca"),
	}
}

// Options returns the effective options.
func (b *Builder) Options() Options {
	return b.opts
}

// BuildInvoiceXML builds an invoice with default options.
func BuildInvoiceXML(inv *models.Invoice, icv int64, previousHash string) (*Document, error) {
	return NewBuilder(DefaultOptions()).BuildInvoiceXML(inv, icv, previousHash)
}

// BuildInvoiceXML renders inv as a UBL 2.1 Invoice carrying icv and
// previousHash, and hashes the result.
//
// If inv has no UUID one is generated and written back to inv; the caller must
// persist it together with the returned hash, since the UUID is part of the
// hashed document.
func (b *Builder) BuildInvoiceXML(inv *models.Invoice, icv int64, previousHash string) (*Document, error) {
	const op = "BuildInvoiceXML"

	if err := b.validate(inv, icv, previousHash); err != nil {
		return nil, wrapCodecError(op, err, "invoice "+inv.Number)
	}

	id, assigned := EnsureUUID(inv)
	if assigned {
		b.log.Debug().
			Str("invoice_number", inv.Number).
			Str("uuid", id).
			Msg("Assigned invoice UUID")
	}

	doc := b.document(inv, icv, previousHash)
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, NewCodecError(op, err, "xml marshal failed")
	}
	serialized := xml.Header + string(out)

	hash, err := HashXML(serialized)
	if err != nil {
		return nil, err
	}

	b.log.Debug().
		Str("invoice_number", inv.Number).
		Int64("icv", icv).
		Str("hash", hash).
		Int("bytes", len(serialized)).
		Msg("Built invoice XML")

	return &Document{
		XML:          serialized,
		Hash:         hash,
		UUID:         id,
		UUIDAssigned: assigned,
		ICV:          icv,
		PreviousHash: previousHash,
	}, nil
}

func (b *Builder) document(inv *models.Invoice, icv int64, previousHash string) *ublInvoice {
	currency := inv.Currency
	if currency == "" {
		currency = b.opts.DefaultCurrency
	}
	amount := func(d decimal.Decimal) ublAmount {
		return ublAmount{Value: FormatAmount(d), CurrencyID: currency}
	}

	issueDate, issueTime := SplitIssueTimestamp(inv.IssueDate)

	doc := &ublInvoice{
		Xmlns:                nsInvoice,
		Cac:                  nsCac,
		Cbc:                  nsCbc,
		Ext:                  nsExt,
		ProfileID:            profileReporting,
		ID:                   inv.Number,
		UUID:                 inv.UUID,
		IssueDate:            issueDate,
		IssueTime:            issueTime,
		InvoiceTypeCode:      ublTypeCode{Value: typeCode(inv.EffectiveKind()), Name: subtypeName(inv.Type)},
		DocumentCurrencyCode: currency,
		TaxCurrencyCode:      currency,
		AdditionalDocumentReference: []ublDocumentReference{
			{ID: "ICV", UUID: formatICV(icv)},
			{
				ID: "PIH",
				Attachment: &ublAttachment{
					EmbeddedDocumentBinaryObject: ublBinaryObject{Value: previousHash, MimeCode: "text/plain"},
				},
			},
		},
		SupplierParty: ublPartyWrapper{Party: supplierParty(&inv.Seller)},
		CustomerParty: ublPartyWrapper{Party: customerParty(&inv.Buyer)},
		LegalMonetaryTotal: ublMonetaryTotal{
			LineExtensionAmount: amount(inv.Subtotal),
			TaxExclusiveAmount:  amount(inv.Subtotal),
			TaxInclusiveAmount:  amount(inv.TotalAmount),
			PayableAmount:       amount(inv.TotalAmount),
		},
	}

	if inv.IsNote() {
		doc.BillingReference = &ublBillingReference{ID: inv.BillingReference}
	}

	doc.TaxTotals = []ublTaxTotal{
		{TaxAmount: amount(inv.VATAmount), TaxSubtotals: b.taxSubtotals(inv, amount)},
		{TaxAmount: amount(inv.VATAmount)},
	}

	for i, item := range inv.Items {
		total := amount(item.TotalAmount)
		doc.InvoiceLines = append(doc.InvoiceLines, ublInvoiceLine{
			ID:                  strconv.Itoa(i + 1),
			InvoicedQuantity:    ublQuantity{Value: FormatQuantity(item.Quantity), UnitCode: defaultUnitCode},
			LineExtensionAmount: amount(item.NetAmount),
			TaxTotal: ublTaxTotal{
				TaxAmount:      amount(item.VATAmount),
				RoundingAmount: &total,
			},
			Item: ublItem{
				Name:                  item.Description,
				ClassifiedTaxCategory: b.lineCategory(item),
			},
			Price: ublPrice{PriceAmount: amount(item.UnitPrice)},
		})
	}

	return doc
}

func (b *Builder) taxSubtotals(inv *models.Invoice, amount func(decimal.Decimal) ublAmount) []ublTaxSubtotal {
	if b.opts.TaxCategoryMode != TaxCategoryPerRate {
		return []ublTaxSubtotal{{
			TaxableAmount: amount(inv.Subtotal),
			TaxAmount:     amount(inv.VATAmount),
			TaxCategory:   taxCategory(b.opts.StandardRate),
		}}
	}

	type group struct {
		percent decimal.Decimal
		net     decimal.Decimal
		vat     decimal.Decimal
	}
	var groups []*group
	for _, item := range inv.Items {
		percent := rateToPercent(item.VATRate)
		var g *group
		for _, existing := range groups {
			if existing.percent.Equal(percent) {
				g = existing
				break
			}
		}
		if g == nil {
			g = &group{percent: percent}
			groups = append(groups, g)
		}
		g.net = g.net.Add(item.NetAmount)
		g.vat = g.vat.Add(item.VATAmount)
	}

	subtotals := make([]ublTaxSubtotal, 0, len(groups))
	for _, g := range groups {
		subtotals = append(subtotals, ublTaxSubtotal{
			TaxableAmount: amount(g.net),
			TaxAmount:     amount(g.vat),
			TaxCategory:   taxCategory(g.percent),
		})
	}
	return subtotals
}

func (b *Builder) lineCategory(item models.LineItem) ublTaxCategory {
	if b.opts.TaxCategoryMode == TaxCategoryPerRate {
		return taxCategory(rateToPercent(item.VATRate))
	}
	return taxCategory(b.opts.StandardRate)
}

// taxCategory returns S (standard) for positive rates and Z (zero rated) otherwise.
func taxCategory(percent decimal.Decimal) ublTaxCategory {
	id := "S"
	if !percent.IsPositive() {
		id = "Z"
	}
	return ublTaxCategory{
		ID:        id,
		Percent:   FormatPercent(percent),
		TaxScheme: ublTaxScheme{ID: vatSchemeID},
	}
}

func supplierParty(s *models.Seller) ublParty {
	p := ublParty{
		PostalAddress: postalAddress(&s.Address),
		PartyTaxScheme: &ublPartyTaxScheme{
			CompanyID: s.VATNumber,
			TaxScheme: ublTaxScheme{ID: vatSchemeID},
		},
		RegistrationName: s.LegalName,
	}
	if s.CRNumber != "" {
		p.PartyIdentification = &ublPartyIdentification{ID: ublSchemeID{Value: s.CRNumber, SchemeID: "CRN"}}
	}
	return p
}

func customerParty(buyer *models.Buyer) ublParty {
	p := ublParty{RegistrationName: buyer.Name}
	if buyer.Address != nil {
		p.PostalAddress = postalAddress(buyer.Address)
	}
	if buyer.HasVATNumber() {
		p.PartyTaxScheme = &ublPartyTaxScheme{
			CompanyID: buyer.VATNumber,
			TaxScheme: ublTaxScheme{ID: vatSchemeID},
		}
	}
	return p
}

func postalAddress(a *models.Address) *ublPostalAddress {
	addr := &ublPostalAddress{
		StreetName:          a.Street,
		BuildingNumber:      a.BuildingNumber,
		CitySubdivisionName: a.District,
		CityName:            a.City,
		PostalZone:          a.PostalCode,
	}
	if a.Country != "" {
		addr.Country = &ublCountry{IdentificationCode: a.Country}
	}
	return addr
}

func typeCode(kind models.DocumentKind) string {
	switch kind {
	case models.KindCreditNote:
		return typeCodeCreditNote
	case models.KindDebitNote:
		return typeCodeDebitNote
	default:
		return typeCodeInvoice
	}
}

func subtypeName(t models.InvoiceType) string {
	if t == models.InvoiceTypeSimplified {
		return subtypeSimplified
	}
	return subtypeStandard
}

func formatICV(icv int64) string {
	return strconv.FormatInt(icv, 10)
}

var issueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// SplitIssueTimestamp splits an ISO 8601 timestamp into its date and
// time-of-day parts, keeping the offset it was written in. A time that cannot
// be parsed becomes 00:00:00.
func SplitIssueTimestamp(ts string) (date, clock string) {
	ts = strings.TrimSpace(ts)
	for _, layout := range issueLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format(time.DateOnly), t.Format(time.TimeOnly)
		}
	}

	date = ts
	if i := strings.IndexAny(ts, "T "); i >= 0 {
		date = ts[:i]
	}
	return date, defaultIssueTime
}
