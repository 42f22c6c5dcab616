package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"einvoice/internal/logger"
	"einvoice/internal/zatca"
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Encode or decode Phase-1 QR payloads",
	Long: `Encode the Phase-1 QR payload of an invoice, or decode a scanned payload.

The payload carries five TLV records in fixed order: seller name, seller VAT
number, issue timestamp, invoice total and VAT total. Each value is limited to
255 UTF-8 bytes.`,
}

var qrEncodeCmd = &cobra.Command{
	Use:   "encode [invoice.json]",
	Short: "Print the Base64 QR payload of an invoice snapshot",
	Example: `  # Print the QR payload
  einvoice qr encode invoice.json`,
	Args: cobra.ExactArgs(1),
	RunE: runQREncode,
}

var qrDecodeCmd = &cobra.Command{
	Use:   "decode [payload]",
	Short: "Decode a Base64 QR payload into its TLV fields",
	Example: `  einvoice qr decode AQxBY21lIEZhY3Rvcnk...`,
	Args:    cobra.ExactArgs(1),
	RunE:    runQRDecode,
}

func init() {
	rootCmd.AddCommand(qrCmd)
	qrCmd.AddCommand(qrEncodeCmd, qrDecodeCmd)
}

func runQREncode(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("qr")

	inv, err := loadInvoice(args[0], log)
	if err != nil {
		return err
	}

	payload, err := zatca.GenerateQR(inv)
	if err != nil {
		log.Error().Err(err).Str("invoice_number", inv.Number).Msg("QR encoding failed")
		return describeCodecError(err)
	}

	log.Info().
		Str("invoice_number", inv.Number).
		Int("length", len(payload)).
		Msg("QR payload generated")

	fmt.Fprintln(cmd.OutOrStdout(), payload)
	return nil
}

// decodedField is the JSON form of a decoded TLV record.
type decodedField struct {
	Tag   byte   `json:"tag"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

var qrTagNames = map[byte]string{
	zatca.TagSellerName: "seller_name",
	zatca.TagVATNumber:  "vat_number",
	zatca.TagTimestamp:  "timestamp",
	zatca.TagTotal:      "total",
	zatca.TagVATTotal:   "vat_total",
}

func runQRDecode(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("qr")

	fields, err := zatca.DecodeQR(args[0])
	if err != nil {
		log.Error().Err(err).Msg("QR decoding failed")
		return describeCodecError(err)
	}

	out := make([]decodedField, 0, len(fields))
	for _, f := range fields {
		name, ok := qrTagNames[f.Tag]
		if !ok {
			name = "unknown"
		}
		out = append(out, decodedField{Tag: f.Tag, Name: name, Value: f.Value})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
