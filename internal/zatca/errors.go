package zatca

import (
	"errors"
	"fmt"
)

// Common codec errors
var (
	// ErrMissingRequiredField is returned when a field the document cannot be
	// built without is empty.
	ErrMissingRequiredField = errors.New("missing required invoice field")

	// ErrInvalidField is returned when a field holds a value outside its domain.
	ErrInvalidField = errors.New("invalid invoice field")

	// ErrFieldTooLong is returned when a QR value does not fit the single-byte
	// TLV length field.
	ErrFieldTooLong = errors.New("TLV value exceeds 255 bytes")

	// ErrMalformedTLV is returned when a QR payload cannot be decoded back into
	// tag/length/value records.
	ErrMalformedTLV = errors.New("malformed TLV payload")

	// ErrCryptoUnavailable is returned when the SHA-256 digest is not available
	// in this binary. There is no fallback digest.
	ErrCryptoUnavailable = errors.New("SHA-256 digest unavailable")

	// ErrInvalidCounter is returned for an invoice counter value below 1.
	ErrInvalidCounter = errors.New("invoice counter value must be positive")

	// ErrChainBroken is returned when a stored hash chain fails verification.
	ErrChainBroken = errors.New("invoice hash chain broken")

	// ErrMixedVATRates is returned in strict mode when a line VAT rate differs
	// from the standard rate asserted by the fixed tax category.
	ErrMixedVATRates = errors.New("line VAT rate differs from standard tax category")

	// ErrTotalsMismatch is returned in strict mode when line arithmetic or
	// invoice-level sums do not add up.
	ErrTotalsMismatch = errors.New("invoice totals do not add up")
)

// CodecError wraps errors with the codec operation that failed.
type CodecError struct {
	// Op is the operation that failed (e.g., "GenerateQR", "HashXML").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *CodecError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("zatca: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("zatca: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CodecError) Unwrap() error {
	return e.Err
}

// NewCodecError creates a new CodecError.
func NewCodecError(op string, err error, details string) *CodecError {
	return &CodecError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// wrapCodecError wraps err as a CodecError unless it already is one.
func wrapCodecError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var codecErr *CodecError
	if errors.As(err, &codecErr) {
		return err
	}

	return NewCodecError(op, err, details)
}

// ValidationError represents an invoice field that failed validation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap returns the sentinel the validation failure belongs to.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// EncodingError reports a QR field that cannot be TLV-encoded.
type EncodingError struct {
	Tag    byte
	Length int
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("TLV tag %d: value is %d bytes, maximum is %d", e.Tag, e.Length, maxTLVValueLength)
}

// Unwrap returns ErrFieldTooLong.
func (e *EncodingError) Unwrap() error {
	return ErrFieldTooLong
}

// ChainBreakError identifies the first record at which a hash chain fails.
type ChainBreakError struct {
	ICV    int64
	Reason string
}

// Error implements the error interface.
func (e *ChainBreakError) Error() string {
	return fmt.Sprintf("hash chain broken at ICV %d: %s", e.ICV, e.Reason)
}

// Unwrap returns ErrChainBroken.
func (e *ChainBreakError) Unwrap() error {
	return ErrChainBroken
}
