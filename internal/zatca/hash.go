package zatca

import (
	"crypto"
	_ "crypto/sha256"
	"encoding/base64"
	"fmt"
)

// DefaultSeedHash is the previous-invoice hash used for the first invoice of a
// tenant: Base64 of the hex SHA-256 digest of "0".
const DefaultSeedHash = "NWZlY2ViNjZmZmM4NmYzOGQ5NTI3ODZjNmQ2OTZjNzljMmRiYzIzOWRkNGU5MWI0NjcyOWQ3M2EyN2ZiNTdlOQ=="

// HashXML returns the Base64 SHA-256 digest of the exact serialized document.
// No canonicalization is applied.
func HashXML(xml string) (string, error) {
	return hashWith(crypto.SHA256, xml)
}

func hashWith(h crypto.Hash, xml string) (string, error) {
	const op = "HashXML"

	if !h.Available() {
		return "", NewCodecError(op, ErrCryptoUnavailable, fmt.Sprintf("hash function %v not linked", h))
	}
	d := h.New()
	d.Write([]byte(xml))
	return base64.StdEncoding.EncodeToString(d.Sum(nil)), nil
}
