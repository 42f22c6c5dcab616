package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"einvoice/internal/ledger"
	"einvoice/internal/logger"
	"einvoice/internal/zatca"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Post invoices to a per-tenant hash chain and verify it",
	Long: `Maintain a per-tenant chain of compliance records in the ledger database
(LEDGER_DSN, a SQLite file).

Posting assigns the next invoice counter value, links the invoice to the hash
of the previous record and stores the resulting XML and hash. Verification
recomputes every hash and checks the links back to the seed.`,
}

var chainPostCmd = &cobra.Command{
	Use:   "post [invoice.json...]",
	Short: "Append invoices to a tenant's chain in the given order",
	Example: `  einvoice chain post inv-1.json inv-2.json --tenant acme`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runChainPost,
}

var chainVerifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Verify a tenant's stored hash chain",
	Example: `  einvoice chain verify --tenant acme`,
	Args:    cobra.NoArgs,
	RunE:    runChainVerify,
}

var chainTenant string

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.AddCommand(chainPostCmd, chainVerifyCmd)

	chainCmd.PersistentFlags().StringVar(&chainTenant, "tenant", "", "Tenant identifier (required)")
	_ = chainCmd.MarkPersistentFlagRequired("tenant")
}

// PostedRecord is the JSON summary of a posted invoice.
type PostedRecord struct {
	File          string `json:"file"`
	InvoiceNumber string `json:"invoice_number"`
	ICV           int64  `json:"icv"`
	UUID          string `json:"uuid"`
	Hash          string `json:"hash"`
	PreviousHash  string `json:"previous_hash"`
}

func openLedger() (*ledger.Ledger, *ledger.GormStore, error) {
	store, err := ledger.OpenSQLite(cfg.LedgerDSN)
	if err != nil {
		return nil, nil, err
	}
	builder := zatca.NewBuilder(cfg.GetBuilderOptions())
	return ledger.New(store, builder, cfg.SeedHash), store, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runChainPost(cmd *cobra.Command, args []string) error {
	log := logger.WithTenant("chain", chainTenant)

	ctx, cancel := signalContext()
	defer cancel()

	l, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	posted := make([]PostedRecord, 0, len(args))
	for _, path := range args {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("posted", len(posted)).Msg("Posting interrupted")
			return err
		}

		inv, err := loadInvoice(path, log)
		if err != nil {
			return err
		}

		assigned := inv.UUID == ""
		rec, err := l.Post(ctx, chainTenant, inv)
		if err != nil {
			log.Error().
				Err(err).
				Str("file", path).
				Int("posted", len(posted)).
				Msg("Failed to post invoice")
			return describeCodecError(err)
		}

		if assigned {
			if err := persistUUID(path, rec.UUID, log); err != nil {
				return err
			}
		}

		posted = append(posted, PostedRecord{
			File:          path,
			InvoiceNumber: rec.InvoiceNumber,
			ICV:           rec.ICV,
			UUID:          rec.UUID,
			Hash:          rec.Hash,
			PreviousHash:  rec.PreviousHash,
		})
	}

	data, err := json.MarshalIndent(posted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runChainVerify(cmd *cobra.Command, args []string) error {
	log := logger.WithTenant("chain", chainTenant)

	ctx, cancel := signalContext()
	defer cancel()

	l, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := l.Verify(ctx, chainTenant)
	if err != nil {
		log.Error().Err(err).Msg("Chain verification failed")
		return describeCodecError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "chain OK: %d record(s) verified for tenant %s\n", n, chainTenant)
	return nil
}
