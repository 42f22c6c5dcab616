package zatca

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"einvoice/pkg/models"
)

// Phase-1 QR tags. Order is positional and significant.
const (
	TagSellerName byte = 1
	TagVATNumber  byte = 2
	TagTimestamp  byte = 3
	TagTotal      byte = 4
	TagVATTotal   byte = 5
)

const maxTLVValueLength = 255

// TLVField is a single tag/value record of the QR payload.
type TLVField struct {
	Tag   byte   `json:"tag"`
	Value string `json:"value"`
}

// QRFields returns the five Phase-1 fields of an invoice in tag order.
func QRFields(inv *models.Invoice) []TLVField {
	return []TLVField{
		{Tag: TagSellerName, Value: inv.Seller.LegalName},
		{Tag: TagVATNumber, Value: inv.Seller.VATNumber},
		{Tag: TagTimestamp, Value: inv.IssueDate},
		{Tag: TagTotal, Value: FormatAmount(inv.TotalAmount)},
		{Tag: TagVATTotal, Value: FormatAmount(inv.VATAmount)},
	}
}

// GenerateQR builds the Base64 TLV payload printed as the invoice QR code.
// The output is deterministic for a given invoice.
func GenerateQR(inv *models.Invoice) (string, error) {
	const op = "GenerateQR"

	payload, err := EncodeTLV(QRFields(inv))
	if err != nil {
		return "", wrapCodecError(op, err, "invoice "+inv.Number)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// EncodeTLV concatenates fields as tag byte, length byte, UTF-8 value bytes.
func EncodeTLV(fields []TLVField) ([]byte, error) {
	var buf bytes.Buffer
	for _, f := range fields {
		value := []byte(f.Value)
		if len(value) > maxTLVValueLength {
			return nil, &EncodingError{Tag: f.Tag, Length: len(value)}
		}
		buf.WriteByte(f.Tag)
		buf.WriteByte(byte(len(value)))
		buf.Write(value)
	}
	return buf.Bytes(), nil
}

// DecodeTLV splits a TLV byte sequence back into its records.
func DecodeTLV(data []byte) ([]TLVField, error) {
	var fields []TLVField
	for i := 0; i < len(data); {
		if i+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedTLV, i)
		}
		tag, length := data[i], int(data[i+1])
		i += 2
		if i+length > len(data) {
			return nil, fmt.Errorf("%w: tag %d declares %d bytes, %d remain", ErrMalformedTLV, tag, length, len(data)-i)
		}
		fields = append(fields, TLVField{Tag: tag, Value: string(data[i : i+length])})
		i += length
	}
	return fields, nil
}

// DecodeQR reverses GenerateQR.
func DecodeQR(payload string) ([]TLVField, error) {
	const op = "DecodeQR"

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, NewCodecError(op, fmt.Errorf("%w: %v", ErrMalformedTLV, err), "invalid base64")
	}
	fields, err := DecodeTLV(data)
	if err != nil {
		return nil, NewCodecError(op, err, "")
	}
	return fields, nil
}
