package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"einvoice/internal/config"
	"einvoice/internal/logger"
)

var version = "1.0.0"

// cfg is loaded once in main before Execute.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "einvoice",
	Short: "ZATCA e-invoicing codec - QR payloads, UBL XML and hash chains",
	Long: `einvoice produces the compliance artefacts of Saudi (ZATCA) e-invoices
from finalized invoice snapshots:

  - the Phase-1 QR payload (TLV records, Base64 encoded)
  - the Phase-2 UBL 2.1 XML document
  - the invoice hash, chained through the previous invoice hash (PIH)

Invoice snapshots are read from JSON files. Signing and submission to the
ZATCA clearance/reporting API are not performed.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the root command with the loaded configuration.
func Execute(c *config.Config) {
	log := logger.WithComponent("cmd")
	cfg = c

	if err := rootCmd.Execute(); err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
