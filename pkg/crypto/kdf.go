package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA256Into fills out with HKDF-SHA256 (RFC 5869) output, so keys can be
// derived straight into a fixed-size array. salt and info may be nil.
// This implements Crypto_KDF() from Matter Specification Section 3.8.
//
// HKDF-SHA256 yields at most 255*SHA256LenBytes bytes; longer outputs fail.
func HKDFSHA256Into(out, inputKey, salt, info []byte) error {
	reader := hkdf.New(sha256.New, inputKey, salt, info)
	_, err := io.ReadFull(reader, out)
	return err
}
