package zatca

import (
	"strconv"

	"github.com/google/uuid"

	"einvoice/pkg/models"
)

// EnsureUUID returns the invoice UUID, generating and storing one on inv when
// it is empty. The second result reports whether a new UUID was assigned.
func EnsureUUID(inv *models.Invoice) (string, bool) {
	if inv.UUID != "" {
		return inv.UUID, false
	}
	inv.UUID = uuid.NewString()
	return inv.UUID, true
}

// validate rejects snapshots that would otherwise render empty nodes.
func (b *Builder) validate(inv *models.Invoice, icv int64, previousHash string) error {
	if icv < 1 {
		return NewValidationError("icv", icv, "must be 1 or greater", ErrInvalidCounter)
	}
	if previousHash == "" {
		return NewValidationError("previous_hash", previousHash, "is required (use the seed hash for the first invoice)", ErrMissingRequiredField)
	}

	required := []struct {
		field string
		value string
	}{
		{"number", inv.Number},
		{"seller.legal_name", inv.Seller.LegalName},
		{"seller.vat_number", inv.Seller.VATNumber},
		{"issue_date", inv.IssueDate},
	}
	for _, r := range required {
		if r.value == "" {
			return NewValidationError(r.field, r.value, "is required", ErrMissingRequiredField)
		}
	}

	switch inv.Type {
	case models.InvoiceTypeStandard, models.InvoiceTypeSimplified:
	case "":
		// treated as standard
	default:
		return NewValidationError("type", inv.Type, "must be standard or simplified", ErrInvalidField)
	}
	if inv.Type != models.InvoiceTypeSimplified && inv.Buyer.Name == "" {
		return NewValidationError("buyer.name", inv.Buyer.Name, "is required for standard invoices", ErrMissingRequiredField)
	}

	switch inv.EffectiveKind() {
	case models.KindInvoice:
	case models.KindCreditNote, models.KindDebitNote:
		if inv.BillingReference == "" {
			return NewValidationError("billing_reference", inv.BillingReference, "is required for credit and debit notes", ErrMissingRequiredField)
		}
	default:
		return NewValidationError("kind", inv.Kind, "must be invoice, credit_note or debit_note", ErrInvalidField)
	}

	if len(inv.Items) == 0 {
		return NewValidationError("items", 0, "at least one line item is required", ErrMissingRequiredField)
	}

	return b.checkRates(inv)
}

// checkRates compares line rates with the fixed standard category. Totals are
// only checked in strict mode.
func (b *Builder) checkRates(inv *models.Invoice) error {
	if b.opts.Strict {
		if mismatches := inv.CheckTotals(); len(mismatches) > 0 {
			m := mismatches[0]
			return NewValidationError(m.Field, m.Actual.String(), "expected "+m.Expected.String(), ErrTotalsMismatch)
		}
	}

	if b.opts.TaxCategoryMode == TaxCategoryPerRate {
		return nil
	}
	for i, item := range inv.Items {
		percent := rateToPercent(item.VATRate)
		if percent.Equal(b.opts.StandardRate) {
			continue
		}
		if b.opts.Strict {
			return NewValidationError("items["+strconv.Itoa(i)+"].vat_rate", item.VATRate.String(),
				"differs from the standard rate "+FormatPercent(b.opts.StandardRate)+"%", ErrMixedVATRates)
		}
		b.log.Warn().
			Str("invoice_number", inv.Number).
			Int("line", i+1).
			Str("vat_rate", item.VATRate.String()).
			Str("standard_rate", FormatPercent(b.opts.StandardRate)).
			Msg("Line VAT rate differs from the fixed tax category")
	}
	return nil
}
