// Package checkin encodes and decodes the payload of the ICD Check-In message
// (Matter Specification Section 4.20).
//
// An Intermittently Connected Device sends a Check-In message to tell a
// registered client that it is reachable. The payload carries the device's
// check-in counter and optional application data, encrypted and
// authenticated with AES-128-CCM under a key shared with the client:
//
//	Nonce (13) || Ciphertext (4 + len(ApplicationData)) || MIC (16)
//
// The plaintext is Counter (uint32, little-endian) || ApplicationData. There is
// no length field: the application data length follows from the payload
// length. The nonce is the first 13 bytes of HMAC-SHA256(hmacKey, Counter),
// so it never repeats for distinct counters and does not reveal the counter.
//
// The functions in this package keep no state. Keys are borrowed for the
// duration of a call through the AEADKey and PRFKey capabilities, normally
// implemented by keystore.AES128KeyHandle and keystore.HMAC128KeyHandle.
package checkin

import (
	"errors"

	"github.com/backkem/matter-checkin/pkg/crypto"
)

// Wire layout constants.
const (
	// NonceSize is the length of the nonce prefix (CRYPTO_AEAD_NONCE_LENGTH_BYTES).
	NonceSize = crypto.AESCCMNonceSize

	// TagSize is the length of the trailing MIC (CRYPTO_AEAD_MIC_LENGTH_BYTES).
	TagSize = crypto.AESCCMTagSize

	// CounterSize is the length of the encrypted counter field.
	CounterSize = 4

	// MinPayloadSize is the size of a payload without application data.
	MinPayloadSize = NonceSize + CounterSize + TagSize
)

// Errors
var (
	// ErrBufferTooSmall is returned when an output buffer cannot hold the
	// result. Nothing is written to the buffer.
	ErrBufferTooSmall = errors.New("checkin: buffer too small")

	// ErrMalformedPayload is returned for payloads shorter than MinPayloadSize.
	ErrMalformedPayload = errors.New("checkin: malformed payload")

	// ErrAuthenticationFailure is returned when the payload does not
	// authenticate under the given key, whether it was tampered with or
	// sealed under another key.
	ErrAuthenticationFailure = errors.New("checkin: message authentication failed")

	// ErrMalformedAppData is returned when application data is too short
	// for the field being decoded from it.
	ErrMalformedAppData = errors.New("checkin: malformed application data")
)

// AEADKey is an AES-128-CCM key capability with the buffer semantics of
// crypto.AESCCM: Seal appends ciphertext||tag to dst, Open appends the
// plaintext to dst only if the tag verifies.
type AEADKey interface {
	Seal(dst, nonce, plaintext, aad []byte) ([]byte, error)
	Open(dst, nonce, ciphertext, aad []byte) ([]byte, error)
}

// PRFKey is a keyed pseudorandom function capability. PRF appends at least
// NonceSize bytes of output to dst.
type PRFKey interface {
	PRF(dst, message []byte) ([]byte, error)
}
