package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"einvoice/internal/ledger"
	"einvoice/internal/zatca"
	"einvoice/pkg/models"
)

// maxInvoiceFileBytes bounds the size of an invoice snapshot file.
const maxInvoiceFileBytes = 5 << 20

// loadInvoice reads an invoice snapshot from a JSON file.
func loadInvoice(path string, log zerolog.Logger) (*models.Invoice, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("invoice file not found: %s", path)
		}
		return nil, fmt.Errorf("error accessing invoice file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() > maxInvoiceFileBytes {
		return nil, fmt.Errorf("invoice file too large (%d bytes), maximum is %d bytes", info.Size(), maxInvoiceFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice file: %w", err)
	}

	var inv models.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		log.Error().Err(err).Str("file", path).Msg("Invoice file is not valid JSON")
		return nil, fmt.Errorf("invalid invoice JSON in %s: %w", path, err)
	}

	log.Debug().
		Str("file", path).
		Str("invoice_number", inv.Number).
		Int("items", len(inv.Items)).
		Msg("Loaded invoice snapshot")

	return &inv, nil
}

// persistUUID writes a freshly assigned UUID back into the snapshot file so
// later runs hash the same document. Other keys are kept as they are.
func persistUUID(path, id string, log zerolog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error accessing invoice file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read invoice file: %w", err)
	}

	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("invalid invoice JSON in %s: %w", path, err)
	}
	encoded, err := json.Marshal(id)
	if err != nil {
		return err
	}
	snapshot["uuid"] = encoded

	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode invoice snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to store assigned UUID in %s: %w", path, err)
	}

	log.Warn().
		Str("file", path).
		Str("uuid", id).
		Msg("Invoice had no UUID; assigned one and wrote it back to the snapshot")
	return nil
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, data []byte, path string, log zerolog.Logger) error {
	if path == "" {
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("output_file", path).Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", path).Int("bytes", len(data)).Msg("Output written to file")
	return nil
}

// describeCodecError turns codec failures into user-facing messages.
func describeCodecError(err error) error {
	var vErr *zatca.ValidationError
	var encErr *zatca.EncodingError
	var breakErr *zatca.ChainBreakError

	switch {
	case errors.As(err, &vErr):
		return fmt.Errorf("invoice is incomplete or inconsistent: field %s %s", vErr.Field, vErr.Message)
	case errors.As(err, &encErr):
		return fmt.Errorf("QR field %d is %d bytes long; TLV values are limited to 255 bytes", encErr.Tag, encErr.Length)
	case errors.As(err, &breakErr):
		return fmt.Errorf("hash chain verification failed at ICV %d: %s", breakErr.ICV, breakErr.Reason)
	case errors.Is(err, ledger.ErrConflict):
		return fmt.Errorf("invoice was already posted or the chain moved on: %w", err)
	case errors.Is(err, zatca.ErrMalformedTLV):
		return fmt.Errorf("QR payload could not be decoded: %w", err)
	case errors.Is(err, zatca.ErrCryptoUnavailable):
		return fmt.Errorf("SHA-256 is unavailable in this build: %w", err)
	default:
		return err
	}
}
