// Package crypto provides the cryptographic primitives used by the Check-In
// protocol: AES-128-CCM, HMAC-SHA256 and HKDF-SHA256 as defined in Matter
// Specification Chapter 3.
//
// The primitives work on raw key bytes. Application code does not call them
// directly; it goes through the key handles of package keystore.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// SHA256LenBytes is the SHA-256 output length in bytes (CRYPTO_HASH_LEN_BYTES).
const SHA256LenBytes = 32

// AppendHMACSHA256 appends the HMAC-SHA256 of message to dst and returns the
// extended slice. dst may be a zero-length slice of a caller-owned array so
// the MAC lands in scratch the caller can wipe.
// This implements Crypto_HMAC() from Matter Specification Section 3.4.
func AppendHMACSHA256(dst, key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(dst)
}
