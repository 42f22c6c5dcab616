// Package ledger serializes invoice posting per tenant so that invoice counter
// values and previous-invoice hashes form an unbroken chain.
//
// The zatca codec is stateless and trusts the counter and previous hash it is
// given; building two invoices of the same tenant concurrently without this
// coordination point yields a chain that cannot be verified.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"einvoice/internal/logger"
	"einvoice/internal/zatca"
	"einvoice/pkg/models"
)

// Ledger assigns ICV and PIH atomically per tenant and persists the result.
type Ledger struct {
	store   Store
	builder *zatca.Builder
	seed    string
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Ledger. An empty seed falls back to zatca.DefaultSeedHash.
func New(store Store, builder *zatca.Builder, seed string) *Ledger {
	if seed == "" {
		seed = zatca.DefaultSeedHash
	}
	return &Ledger{
		store:   store,
		builder: builder,
		seed:    seed,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Seed returns the previous hash used for a tenant's first invoice.
func (l *Ledger) Seed() string {
	return l.seed
}

func (l *Ledger) tenantLock(tenantID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[tenantID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tenantID] = m
	}
	return m
}

// Post builds and stores the next invoice of a tenant's chain. The invoice
// UUID is assigned on inv if it was empty and is persisted with the record.
func (l *Ledger) Post(ctx context.Context, tenantID string, inv *models.Invoice) (*Record, error) {
	log := logger.WithTenant("ledger", tenantID)

	if tenantID == "" {
		return nil, fmt.Errorf("post invoice %s: tenant ID is required", inv.Number)
	}

	lock := l.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	icv := int64(1)
	previousHash := l.seed
	last, err := l.store.Last(ctx, tenantID)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info().Msg("Starting new invoice chain from seed hash")
	case err != nil:
		return nil, fmt.Errorf("post invoice %s: %w", inv.Number, err)
	default:
		icv = last.ICV + 1
		previousHash = last.Hash
	}

	doc, err := l.builder.BuildInvoiceXML(inv, icv, previousHash)
	if err != nil {
		log.Error().
			Err(err).
			Str("invoice_number", inv.Number).
			Int64("icv", icv).
			Msg("Failed to build invoice document")
		return nil, err
	}

	rec := &Record{
		TenantID:      tenantID,
		ICV:           doc.ICV,
		InvoiceNumber: inv.Number,
		UUID:          doc.UUID,
		PreviousHash:  doc.PreviousHash,
		Hash:          doc.Hash,
		XML:           doc.XML,
		CreatedAt:     l.now().UTC(),
	}
	if err := l.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("post invoice %s: %w", inv.Number, err)
	}

	log.Info().
		Str("invoice_number", inv.Number).
		Str("uuid", rec.UUID).
		Int64("icv", rec.ICV).
		Str("hash", rec.Hash).
		Msg("Invoice posted to hash chain")

	return rec, nil
}

// Verify recomputes and checks a tenant's full chain.
func (l *Ledger) Verify(ctx context.Context, tenantID string) (int, error) {
	log := logger.WithTenant("ledger", tenantID)

	records, err := l.store.List(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("verify chain: %w", err)
	}

	entries := make([]zatca.ChainEntry, len(records))
	for i, r := range records {
		entries[i] = zatca.ChainEntry{
			ICV:          r.ICV,
			PreviousHash: r.PreviousHash,
			Hash:         r.Hash,
			XML:          r.XML,
		}
	}
	if len(entries) > 0 && entries[0].ICV != 1 {
		return 0, &zatca.ChainBreakError{ICV: entries[0].ICV, Reason: "chain does not start at ICV 1"}
	}

	if err := zatca.VerifyChain(l.seed, entries); err != nil {
		log.Warn().Err(err).Int("records", len(entries)).Msg("Hash chain verification failed")
		return 0, err
	}

	log.Info().Int("records", len(entries)).Msg("Hash chain verified")
	return len(entries), nil
}
