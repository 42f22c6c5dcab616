package zatca_test

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"einvoice/internal/zatca"
	"einvoice/pkg/models"
)

func build(t *testing.T, inv *models.Invoice) *zatca.Document {
	t.Helper()
	doc, err := zatca.BuildInvoiceXML(inv, 1, "SEED")
	require.NoError(t, err)
	return doc
}

// wellFormed tokenizes the whole document.
func wellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
	}
}

func TestBuildInvoiceXMLEndToEnd(t *testing.T) {
	doc := build(t, sampleInvoice())
	wellFormed(t, doc.XML)

	assert.True(t, strings.HasPrefix(doc.XML, `<?xml version="1.0" encoding="UTF-8"?>`))
	for _, want := range []string{
		`<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"`,
		`xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"`,
		`xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"`,
		`xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"`,
		`<cbc:ProfileID>reporting:1.0</cbc:ProfileID>`,
		`<cbc:ID>INV-0001</cbc:ID>`,
		`<cbc:UUID>8e6000cf-1a98-4174-b3e7-b5d5954bc10d</cbc:UUID>`,
		`<cbc:IssueDate>2024-01-15</cbc:IssueDate>`,
		`<cbc:IssueTime>10:30:00</cbc:IssueTime>`,
		`<cbc:InvoiceTypeCode name="0100000">388</cbc:InvoiceTypeCode>`,
		`<cbc:DocumentCurrencyCode>SAR</cbc:DocumentCurrencyCode>`,
		`<cbc:TaxCurrencyCode>SAR</cbc:TaxCurrencyCode>`,
		`<cbc:ID>ICV</cbc:ID>`,
		`<cbc:UUID>1</cbc:UUID>`,
		`<cbc:ID>PIH</cbc:ID>`,
		`<cbc:EmbeddedDocumentBinaryObject mimeCode="text/plain">SEED</cbc:EmbeddedDocumentBinaryObject>`,
		`<cbc:ID schemeID="CRN">1010010000</cbc:ID>`,
		`<cbc:CompanyID>300000000000003</cbc:CompanyID>`,
		`<cbc:RegistrationName>Acme Factory</cbc:RegistrationName>`,
		`<cbc:RegistrationName>Cash Customer</cbc:RegistrationName>`,
		`<cbc:TaxableAmount currencyID="SAR">100.00</cbc:TaxableAmount>`,
		`<cbc:TaxAmount currencyID="SAR">15.00</cbc:TaxAmount>`,
		`<cbc:LineExtensionAmount currencyID="SAR">100.00</cbc:LineExtensionAmount>`,
		`<cbc:TaxExclusiveAmount currencyID="SAR">100.00</cbc:TaxExclusiveAmount>`,
		`<cbc:TaxInclusiveAmount currencyID="SAR">115.00</cbc:TaxInclusiveAmount>`,
		`<cbc:PayableAmount currencyID="SAR">115.00</cbc:PayableAmount>`,
		`<cbc:InvoicedQuantity unitCode="PCE">2</cbc:InvoicedQuantity>`,
		`<cbc:RoundingAmount currencyID="SAR">115.00</cbc:RoundingAmount>`,
		`<cbc:Name>Item A</cbc:Name>`,
		`<cbc:PriceAmount currencyID="SAR">50.00</cbc:PriceAmount>`,
		`<cbc:Percent>15.00</cbc:Percent>`,
	} {
		assert.Contains(t, doc.XML, want)
	}

	assert.Equal(t, 1, strings.Count(doc.XML, "<cac:InvoiceLine>"))
	assert.Equal(t, 3, strings.Count(doc.XML, "<cac:TaxTotal>"), "two document tax totals plus one line tax total")
	assert.NotContains(t, doc.XML, "<cac:BillingReference>")

	hash, err := zatca.HashXML(doc.XML)
	require.NoError(t, err)
	assert.Equal(t, hash, doc.Hash)
	assert.Equal(t, int64(1), doc.ICV)
	assert.Equal(t, "SEED", doc.PreviousHash)
}

func TestBuildInvoiceXMLIsDeterministic(t *testing.T) {
	first := build(t, sampleInvoice())
	second := build(t, sampleInvoice())

	assert.Equal(t, first.XML, second.XML)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestBuildInvoiceXMLHashChangesWithTotal(t *testing.T) {
	original := build(t, sampleInvoice())

	inv := sampleInvoice()
	inv.TotalAmount = dec("116.00")
	altered := build(t, inv)

	assert.Contains(t, altered.XML, `<cbc:PayableAmount currencyID="SAR">116.00</cbc:PayableAmount>`)
	assert.NotEqual(t, original.Hash, altered.Hash)
}

func TestBuildInvoiceXMLHashDependsOnChainInputs(t *testing.T) {
	base, err := zatca.BuildInvoiceXML(sampleInvoice(), 1, "SEED")
	require.NoError(t, err)
	otherICV, err := zatca.BuildInvoiceXML(sampleInvoice(), 2, "SEED")
	require.NoError(t, err)
	otherPIH, err := zatca.BuildInvoiceXML(sampleInvoice(), 1, "OTHER")
	require.NoError(t, err)

	assert.NotEqual(t, base.Hash, otherICV.Hash)
	assert.NotEqual(t, base.Hash, otherPIH.Hash)
}

func TestBuildInvoiceXMLAssignsUUIDOnce(t *testing.T) {
	inv := sampleInvoice()
	inv.UUID = ""

	first := build(t, inv)
	assert.True(t, first.UUIDAssigned)
	assert.NotEmpty(t, first.UUID)
	assert.Equal(t, first.UUID, inv.UUID, "UUID is written back for the caller to persist")

	second := build(t, inv)
	assert.False(t, second.UUIDAssigned)
	assert.Equal(t, first.UUID, second.UUID)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestBuildInvoiceXMLKeepsExistingUUID(t *testing.T) {
	inv := sampleInvoice()
	doc := build(t, inv)

	assert.False(t, doc.UUIDAssigned)
	assert.Equal(t, "8e6000cf-1a98-4174-b3e7-b5d5954bc10d", doc.UUID)
}

func TestBuildInvoiceXMLBuyerTaxScheme(t *testing.T) {
	withoutVAT := build(t, sampleInvoice())
	assert.Equal(t, 1, strings.Count(withoutVAT.XML, "<cac:PartyTaxScheme>"), "supplier only")

	inv := sampleInvoice()
	inv.Buyer = models.Buyer{
		Name:          "Gulf Traders",
		VATNumber:     "311111111111113",
		VATRegistered: true,
		Address:       &models.Address{City: "Jeddah", Country: "SA"},
	}
	withVAT := build(t, inv)

	assert.Equal(t, 2, strings.Count(withVAT.XML, "<cac:PartyTaxScheme>"))
	assert.Contains(t, withVAT.XML, "<cbc:CompanyID>311111111111113</cbc:CompanyID>")
	assert.Contains(t, withVAT.XML, "<cbc:CityName>Jeddah</cbc:CityName>")
}

func TestBuildInvoiceXMLTypeCodes(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Invoice)
		want    string
		wantRef bool
	}{
		{
			name:   "standard invoice",
			mutate: func(inv *models.Invoice) {},
			want:   `<cbc:InvoiceTypeCode name="0100000">388</cbc:InvoiceTypeCode>`,
		},
		{
			name:   "empty type defaults to standard",
			mutate: func(inv *models.Invoice) { inv.Type = "" },
			want:   `<cbc:InvoiceTypeCode name="0100000">388</cbc:InvoiceTypeCode>`,
		},
		{
			name:   "simplified invoice",
			mutate: func(inv *models.Invoice) { inv.Type = models.InvoiceTypeSimplified },
			want:   `<cbc:InvoiceTypeCode name="0200000">388</cbc:InvoiceTypeCode>`,
		},
		{
			name: "credit note",
			mutate: func(inv *models.Invoice) {
				inv.Kind = models.KindCreditNote
				inv.BillingReference = "INV-0000"
			},
			want:    `<cbc:InvoiceTypeCode name="0100000">381</cbc:InvoiceTypeCode>`,
			wantRef: true,
		},
		{
			name: "simplified debit note",
			mutate: func(inv *models.Invoice) {
				inv.Type = models.InvoiceTypeSimplified
				inv.Kind = models.KindDebitNote
				inv.BillingReference = "INV-0000"
			},
			want:    `<cbc:InvoiceTypeCode name="0200000">383</cbc:InvoiceTypeCode>`,
			wantRef: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := sampleInvoice()
			tt.mutate(inv)
			doc := build(t, inv)

			assert.Contains(t, doc.XML, tt.want)
			assert.Contains(t, doc.XML, `<cbc:ProfileID>reporting:1.0</cbc:ProfileID>`)
			if tt.wantRef {
				assert.Contains(t, doc.XML, "<cac:BillingReference>")
				assert.Contains(t, doc.XML, "<cbc:ID>INV-0000</cbc:ID>")
			} else {
				assert.NotContains(t, doc.XML, "<cac:BillingReference>")
			}
		})
	}
}

func TestBuildInvoiceXMLEscapesText(t *testing.T) {
	inv := sampleInvoice()
	inv.Seller.LegalName = `Al & Sons <Trading> "Co"`
	inv.Items[0].Description = "Bolts < 5mm & nuts"

	doc := build(t, inv)
	wellFormed(t, doc.XML)

	assert.Contains(t, doc.XML, "Al &amp; Sons &lt;Trading&gt; &#34;Co&#34;")
	assert.Contains(t, doc.XML, "Bolts &lt; 5mm &amp; nuts")
	assert.NotContains(t, doc.XML, "<Trading>")
}

func TestBuildInvoiceXMLDefaultsCurrency(t *testing.T) {
	inv := sampleInvoice()
	inv.Currency = ""

	doc := build(t, inv)
	assert.Contains(t, doc.XML, `<cbc:DocumentCurrencyCode>SAR</cbc:DocumentCurrencyCode>`)
}

func TestBuildInvoiceXMLDefaultsUnparsableTime(t *testing.T) {
	inv := sampleInvoice()
	inv.IssueDate = "2024-01-15T25:99"

	doc := build(t, inv)
	assert.Contains(t, doc.XML, "<cbc:IssueDate>2024-01-15</cbc:IssueDate>")
	assert.Contains(t, doc.XML, "<cbc:IssueTime>00:00:00</cbc:IssueTime>")
}

func TestSplitIssueTimestamp(t *testing.T) {
	tests := []struct {
		in       string
		wantDate string
		wantTime string
	}{
		{"2024-01-15T10:30:00Z", "2024-01-15", "10:30:00"},
		{"2024-01-15T10:30:00.123Z", "2024-01-15", "10:30:00"},
		{"2024-01-15T10:30:00+03:00", "2024-01-15", "10:30:00"},
		{"2024-01-15T10:30:00", "2024-01-15", "10:30:00"},
		{"2024-01-15T10:30", "2024-01-15", "10:30:00"},
		{"2024-01-15 08:05:09", "2024-01-15", "08:05:09"},
		{"2024-01-15", "2024-01-15", "00:00:00"},
		{"2024-01-15Tgarbage", "2024-01-15", "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			date, clock := zatca.SplitIssueTimestamp(tt.in)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantTime, clock)
		})
	}
}

func TestBuildInvoiceXMLValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.Invoice)
		icv       int64
		pih       string
		wantField string
		wantErr   error
	}{
		{"missing seller VAT", func(inv *models.Invoice) { inv.Seller.VATNumber = "" }, 1, "SEED", "seller.vat_number", zatca.ErrMissingRequiredField},
		{"missing seller name", func(inv *models.Invoice) { inv.Seller.LegalName = "" }, 1, "SEED", "seller.legal_name", zatca.ErrMissingRequiredField},
		{"missing number", func(inv *models.Invoice) { inv.Number = "" }, 1, "SEED", "number", zatca.ErrMissingRequiredField},
		{"missing issue date", func(inv *models.Invoice) { inv.IssueDate = "" }, 1, "SEED", "issue_date", zatca.ErrMissingRequiredField},
		{"standard without buyer", func(inv *models.Invoice) { inv.Buyer.Name = "" }, 1, "SEED", "buyer.name", zatca.ErrMissingRequiredField},
		{"note without reference", func(inv *models.Invoice) { inv.Kind = models.KindCreditNote }, 1, "SEED", "billing_reference", zatca.ErrMissingRequiredField},
		{"unknown type", func(inv *models.Invoice) { inv.Type = "proforma" }, 1, "SEED", "type", zatca.ErrInvalidField},
		{"no items", func(inv *models.Invoice) { inv.Items = nil }, 1, "SEED", "items", zatca.ErrMissingRequiredField},
		{"zero counter", func(inv *models.Invoice) {}, 0, "SEED", "icv", zatca.ErrInvalidCounter},
		{"empty previous hash", func(inv *models.Invoice) {}, 1, "", "previous_hash", zatca.ErrMissingRequiredField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := sampleInvoice()
			inv.UUID = ""
			tt.mutate(inv)

			doc, err := zatca.BuildInvoiceXML(inv, tt.icv, tt.pih)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.wantErr)

			var vErr *zatca.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.Empty(t, inv.UUID, "no UUID is assigned to a rejected invoice")
		})
	}
}

func TestSimplifiedInvoiceWithoutBuyerName(t *testing.T) {
	inv := sampleInvoice()
	inv.Type = models.InvoiceTypeSimplified
	inv.Buyer = models.Buyer{}

	doc := build(t, inv)
	assert.Contains(t, doc.XML, "<cac:AccountingCustomerParty>")
}

func mixedRateInvoice() *models.Invoice {
	inv := sampleInvoice()
	inv.Items = append(inv.Items, models.LineItem{
		Description: "Export service",
		Quantity:    dec("1"),
		UnitPrice:   dec("40"),
		NetAmount:   dec("40"),
		VATRate:     dec("0"),
		VATAmount:   dec("0"),
		TotalAmount: dec("40"),
	})
	inv.Subtotal = dec("140")
	inv.TotalAmount = dec("155")
	return inv
}

func TestFixedTaxCategoryWithMixedRates(t *testing.T) {
	lenient, err := zatca.NewBuilder(zatca.DefaultOptions()).BuildInvoiceXML(mixedRateInvoice(), 1, "SEED")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(lenient.XML, "<cac:TaxSubtotal>"))
	assert.NotContains(t, lenient.XML, "<cbc:ID>Z</cbc:ID>")

	opts := zatca.DefaultOptions()
	opts.Strict = true
	_, err = zatca.NewBuilder(opts).BuildInvoiceXML(mixedRateInvoice(), 1, "SEED")
	assert.ErrorIs(t, err, zatca.ErrMixedVATRates)
}

func TestPerRateTaxCategories(t *testing.T) {
	opts := zatca.DefaultOptions()
	opts.TaxCategoryMode = zatca.TaxCategoryPerRate
	opts.Strict = true

	doc, err := zatca.NewBuilder(opts).BuildInvoiceXML(mixedRateInvoice(), 1, "SEED")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(doc.XML, "<cac:TaxSubtotal>"))
	assert.Contains(t, doc.XML, `<cbc:TaxableAmount currencyID="SAR">40.00</cbc:TaxableAmount>`)
	assert.Contains(t, doc.XML, "<cbc:ID>Z</cbc:ID>")
	assert.Contains(t, doc.XML, "<cbc:Percent>0.00</cbc:Percent>")
}

func TestStrictModeRejectsInconsistentTotals(t *testing.T) {
	opts := zatca.DefaultOptions()
	opts.Strict = true

	inv := sampleInvoice()
	inv.TotalAmount = dec("116.00")

	_, err := zatca.NewBuilder(opts).BuildInvoiceXML(inv, 1, "SEED")
	require.Error(t, err)
	assert.ErrorIs(t, err, zatca.ErrTotalsMismatch)

	var vErr *zatca.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "total_amount", vErr.Field)
}

func TestNewBuilderFillsDefaults(t *testing.T) {
	b := zatca.NewBuilder(zatca.Options{})
	opts := b.Options()

	assert.True(t, opts.StandardRate.Equal(dec("15")))
	assert.Equal(t, zatca.TaxCategoryFixed, opts.TaxCategoryMode)
	assert.Equal(t, "SAR", opts.DefaultCurrency)
}
