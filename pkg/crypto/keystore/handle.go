package keystore

import "github.com/backkem/matter-checkin/pkg/crypto"

// KeyHandle is implemented by AES128KeyHandle and HMAC128KeyHandle.
type KeyHandle interface {
	keyID() KeyID
	owner() *Keystore
}

// AES128KeyHandle refers to an AES-128-CCM key held by a Keystore.
// The zero value is invalid. Handles are plain values and may be copied and
// shared between goroutines.
type AES128KeyHandle struct {
	id KeyID
	ks *Keystore
}

// ID returns the key identifier within its keystore.
func (h AES128KeyHandle) ID() KeyID { return h.id }

// IsValid reports whether the key still exists.
func (h AES128KeyHandle) IsValid() bool {
	return h.ks != nil && h.ks.contains(h.id, kindAES128)
}

// Seal appends the AES-CCM encryption of plaintext plus tag to dst.
// See crypto.AESCCM.Seal for the buffer rules.
func (h AES128KeyHandle) Seal(dst, nonce, plaintext, aad []byte) ([]byte, error) {
	if h.ks == nil {
		return nil, ErrInvalidKeyHandle
	}

	var out []byte
	err := h.ks.use(h.id, kindAES128, func(e *entry) error {
		var err error
		out, err = e.aead.Seal(dst, nonce, plaintext, aad)
		return err
	})
	return out, err
}

// Open authenticates and decrypts ciphertext (including its tag) and appends
// the plaintext to dst.
func (h AES128KeyHandle) Open(dst, nonce, ciphertext, aad []byte) ([]byte, error) {
	if h.ks == nil {
		return nil, ErrInvalidKeyHandle
	}

	var out []byte
	err := h.ks.use(h.id, kindAES128, func(e *entry) error {
		var err error
		out, err = e.aead.Open(dst, nonce, ciphertext, aad)
		return err
	})
	return out, err
}

func (h AES128KeyHandle) keyID() KeyID     { return h.id }
func (h AES128KeyHandle) owner() *Keystore { return h.ks }

// HMAC128KeyHandle refers to an HMAC-SHA256 key held by a Keystore.
// The zero value is invalid.
type HMAC128KeyHandle struct {
	id KeyID
	ks *Keystore
}

// ID returns the key identifier within its keystore.
func (h HMAC128KeyHandle) ID() KeyID { return h.id }

// IsValid reports whether the key still exists.
func (h HMAC128KeyHandle) IsValid() bool {
	return h.ks != nil && h.ks.contains(h.id, kindHMAC128)
}

// PRF appends HMAC-SHA256(key, message) (crypto.SHA256LenBytes bytes) to dst.
func (h HMAC128KeyHandle) PRF(dst, message []byte) ([]byte, error) {
	if h.ks == nil {
		return nil, ErrInvalidKeyHandle
	}

	var out []byte
	err := h.ks.use(h.id, kindHMAC128, func(e *entry) error {
		out = crypto.AppendHMACSHA256(dst, e.material[:], message)
		return nil
	})
	return out, err
}

func (h HMAC128KeyHandle) keyID() KeyID     { return h.id }
func (h HMAC128KeyHandle) owner() *Keystore { return h.ks }
