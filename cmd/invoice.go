package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"einvoice/internal/logger"
	"einvoice/internal/zatca"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice [invoice.json]",
	Short: "Build the UBL 2.1 XML and invoice hash of an invoice snapshot",
	Long: `Build the ZATCA Phase-2 UBL 2.1 XML document for an invoice snapshot and
compute its invoice hash (Base64 of the SHA-256 digest of the XML).

The document embeds the invoice counter value (ICV) and the hash of the
previous invoice (PIH). For the first invoice of a chain leave --pih unset to
use the configured seed hash.

The snapshot is a JSON file with the finalized invoice: seller, buyer, line
items and the precomputed totals. Totals are never recomputed. A snapshot
without a uuid gets one assigned, and it is written back to the file so the
document and its hash stay stable across runs.

Configuration (environment):
  ZATCA_SEED_HASH          - PIH of the first invoice in a chain
  ZATCA_STANDARD_VAT_RATE  - Standard VAT percentage (default 15)
  ZATCA_TAX_CATEGORY_MODE  - fixed or per_rate
  ZATCA_STRICT             - Reject inconsistent totals and mixed rates`,
	Example: `  # Print the XML of the first invoice in a chain
  einvoice invoice invoice.json --icv 1

  # Chain to a previous invoice and save the XML
  einvoice invoice invoice.json --icv 2 --pih "<previous hash>" -o invoice.xml

  # Print the XML, hash and metadata as JSON
  einvoice invoice invoice.json --icv 1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoice,
}

// InvoiceOutput represents the JSON output of the invoice command.
type InvoiceOutput struct {
	XML      string             `json:"xml"`
	Hash     string             `json:"hash"`
	QR       string             `json:"qr"`
	UUID     string             `json:"uuid"`
	Metadata ProcessingMetadata `json:"metadata"`
}

// ProcessingMetadata contains information about the build.
type ProcessingMetadata struct {
	SourceFile     string    `json:"source_file"`
	InvoiceNumber  string    `json:"invoice_number"`
	ICV            int64     `json:"icv"`
	PreviousHash   string    `json:"previous_hash"`
	UUIDAssigned   bool      `json:"uuid_assigned"`
	ProcessedAt    time.Time `json:"processed_at"`
	ProcessingTime string    `json:"processing_time"`
}

var (
	invoiceICV    int64
	invoicePIH    string
	invoiceOutput string
	invoiceJSON   bool
)

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.Flags().Int64Var(&invoiceICV, "icv", 1, "Invoice counter value (>= 1)")
	invoiceCmd.Flags().StringVar(&invoicePIH, "pih", "", "Previous invoice hash (defaults to the configured seed hash)")
	invoiceCmd.Flags().StringVarP(&invoiceOutput, "output", "o", "", "Output file path (default: stdout)")
	invoiceCmd.Flags().BoolVar(&invoiceJSON, "json", false, "Print XML, hash, QR payload and metadata as JSON")
}

func runInvoice(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")
	start := time.Now()
	path := args[0]

	pih := invoicePIH
	if pih == "" {
		pih = cfg.SeedHash
	}

	log.Info().
		Str("file", path).
		Int64("icv", invoiceICV).
		Msg("Building invoice XML")

	inv, err := loadInvoice(path, log)
	if err != nil {
		return err
	}

	builder := zatca.NewBuilder(cfg.GetBuilderOptions())
	doc, err := builder.BuildInvoiceXML(inv, invoiceICV, pih)
	if err != nil {
		log.Error().
			Err(err).
			Str("invoice_number", inv.Number).
			Msg("Invoice XML build failed")
		return describeCodecError(err)
	}

	if doc.UUIDAssigned {
		if err := persistUUID(path, doc.UUID, log); err != nil {
			return err
		}
	}

	if !invoiceJSON {
		return writeOutput(cmd.OutOrStdout(), []byte(doc.XML), invoiceOutput, log)
	}

	qr, err := zatca.GenerateQR(inv)
	if err != nil {
		return describeCodecError(err)
	}

	output := InvoiceOutput{
		XML:  doc.XML,
		Hash: doc.Hash,
		QR:   qr,
		UUID: doc.UUID,
		Metadata: ProcessingMetadata{
			SourceFile:     path,
			InvoiceNumber:  inv.Number,
			ICV:            doc.ICV,
			PreviousHash:   doc.PreviousHash,
			UUIDAssigned:   doc.UUIDAssigned,
			ProcessedAt:    start,
			ProcessingTime: time.Since(start).String(),
		},
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), data, invoiceOutput, log)
}
