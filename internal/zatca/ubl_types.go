package zatca

import "encoding/xml"

const (
	nsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	nsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
)

type ublInvoice struct {
	XMLName                     xml.Name               `xml:"Invoice"`
	Xmlns                       string                 `xml:"xmlns,attr"`
	Cac                         string                 `xml:"xmlns:cac,attr"`
	Cbc                         string                 `xml:"xmlns:cbc,attr"`
	Ext                         string                 `xml:"xmlns:ext,attr"`
	ProfileID                   string                 `xml:"cbc:ProfileID"`
	ID                          string                 `xml:"cbc:ID"`
	UUID                        string                 `xml:"cbc:UUID"`
	IssueDate                   string                 `xml:"cbc:IssueDate"`
	IssueTime                   string                 `xml:"cbc:IssueTime"`
	InvoiceTypeCode             ublTypeCode            `xml:"cbc:InvoiceTypeCode"`
	DocumentCurrencyCode        string                 `xml:"cbc:DocumentCurrencyCode"`
	TaxCurrencyCode             string                 `xml:"cbc:TaxCurrencyCode"`
	BillingReference            *ublBillingReference   `xml:"cac:BillingReference,omitempty"`
	AdditionalDocumentReference []ublDocumentReference `xml:"cac:AdditionalDocumentReference"`
	SupplierParty               ublPartyWrapper        `xml:"cac:AccountingSupplierParty"`
	CustomerParty               ublPartyWrapper        `xml:"cac:AccountingCustomerParty"`
	TaxTotals                   []ublTaxTotal          `xml:"cac:TaxTotal"`
	LegalMonetaryTotal          ublMonetaryTotal       `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines                []ublInvoiceLine       `xml:"cac:InvoiceLine"`
}

type ublTypeCode struct {
	Value string `xml:",chardata"`
	Name  string `xml:"name,attr"`
}

type ublBillingReference struct {
	ID string `xml:"cac:InvoiceDocumentReference>cbc:ID"`
}

type ublDocumentReference struct {
	ID         string         `xml:"cbc:ID"`
	UUID       string         `xml:"cbc:UUID,omitempty"`
	Attachment *ublAttachment `xml:"cac:Attachment,omitempty"`
}

type ublAttachment struct {
	EmbeddedDocumentBinaryObject ublBinaryObject `xml:"cbc:EmbeddedDocumentBinaryObject"`
}

type ublBinaryObject struct {
	Value    string `xml:",chardata"`
	MimeCode string `xml:"mimeCode,attr"`
}

type ublPartyWrapper struct {
	Party ublParty `xml:"cac:Party"`
}

type ublParty struct {
	PartyIdentification *ublPartyIdentification `xml:"cac:PartyIdentification,omitempty"`
	PostalAddress       *ublPostalAddress       `xml:"cac:PostalAddress,omitempty"`
	PartyTaxScheme      *ublPartyTaxScheme      `xml:"cac:PartyTaxScheme,omitempty"`
	RegistrationName    string                  `xml:"cac:PartyLegalEntity>cbc:RegistrationName"`
}

type ublPartyIdentification struct {
	ID ublSchemeID `xml:"cbc:ID"`
}

type ublSchemeID struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr"`
}

type ublPostalAddress struct {
	StreetName          string      `xml:"cbc:StreetName,omitempty"`
	BuildingNumber      string      `xml:"cbc:BuildingNumber,omitempty"`
	CitySubdivisionName string      `xml:"cbc:CitySubdivisionName,omitempty"`
	CityName            string      `xml:"cbc:CityName,omitempty"`
	PostalZone          string      `xml:"cbc:PostalZone,omitempty"`
	Country             *ublCountry `xml:"cac:Country,omitempty"`
}

type ublCountry struct {
	IdentificationCode string `xml:"cbc:IdentificationCode"`
}

type ublPartyTaxScheme struct {
	CompanyID string       `xml:"cbc:CompanyID"`
	TaxScheme ublTaxScheme `xml:"cac:TaxScheme"`
}

type ublTaxScheme struct {
	ID string `xml:"cbc:ID"`
}

type ublAmount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

type ublTaxTotal struct {
	TaxAmount      ublAmount        `xml:"cbc:TaxAmount"`
	RoundingAmount *ublAmount       `xml:"cbc:RoundingAmount,omitempty"`
	TaxSubtotals   []ublTaxSubtotal `xml:"cac:TaxSubtotal"`
}

type ublTaxSubtotal struct {
	TaxableAmount ublAmount      `xml:"cbc:TaxableAmount"`
	TaxAmount     ublAmount      `xml:"cbc:TaxAmount"`
	TaxCategory   ublTaxCategory `xml:"cac:TaxCategory"`
}

type ublTaxCategory struct {
	ID        string       `xml:"cbc:ID"`
	Percent   string       `xml:"cbc:Percent"`
	TaxScheme ublTaxScheme `xml:"cac:TaxScheme"`
}

type ublMonetaryTotal struct {
	LineExtensionAmount ublAmount `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount  ublAmount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount  ublAmount `xml:"cbc:TaxInclusiveAmount"`
	PayableAmount       ublAmount `xml:"cbc:PayableAmount"`
}

type ublQuantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type ublInvoiceLine struct {
	ID                  string      `xml:"cbc:ID"`
	InvoicedQuantity    ublQuantity `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount ublAmount   `xml:"cbc:LineExtensionAmount"`
	TaxTotal            ublTaxTotal `xml:"cac:TaxTotal"`
	Item                ublItem     `xml:"cac:Item"`
	Price               ublPrice    `xml:"cac:Price"`
}

type ublItem struct {
	Name                  string         `xml:"cbc:Name"`
	ClassifiedTaxCategory ublTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type ublPrice struct {
	PriceAmount ublAmount `xml:"cbc:PriceAmount"`
}
