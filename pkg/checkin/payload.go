package checkin

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/backkem/matter-checkin/pkg/crypto/keystore"
)

// PayloadSize returns the size of a Check-In payload carrying appDataLen
// bytes of application data.
func PayloadSize(appDataLen int) int {
	return MinPayloadSize + appDataLen
}

// AppDataSize returns how many bytes of application data payload carries.
// It does not authenticate the payload.
func AppDataSize(payload []byte) (int, error) {
	if len(payload) < MinPayloadSize {
		return 0, ErrMalformedPayload
	}
	return len(payload) - MinPayloadSize, nil
}

// GeneratePayload seals counter and appData into out and returns
// out[:PayloadSize(len(appData))].
//
// If out is shorter than PayloadSize(len(appData)) it fails with
// ErrBufferTooSmall before any key is used. Errors from the keys, such as
// keystore.ErrInvalidKeyHandle, are returned unchanged. out is only written
// on success.
func GeneratePayload(aesKey AEADKey, hmacKey PRFKey, counter uint32, appData, out []byte) ([]byte, error) {
	size := PayloadSize(len(appData))
	if len(out) < size {
		return nil, ErrBufferTooSmall
	}

	// Plaintext with spare capacity for the tag, sealed in place.
	plainLen := CounterSize + len(appData)
	scratch := make([]byte, plainLen, plainLen+TagSize)
	defer clear(scratch[:cap(scratch)])

	binary.LittleEndian.PutUint32(scratch, counter)
	copy(scratch[CounterSize:], appData)

	nonce, err := DeriveNonce(hmacKey, counter)
	if err != nil {
		return nil, err
	}

	sealed, err := aesKey.Seal(scratch[:0], nonce[:], scratch, nil)
	if err != nil {
		return nil, err
	}
	if len(sealed) != plainLen+TagSize {
		return nil, fmt.Errorf("checkin: sealed %d bytes, want %d", len(sealed), plainLen+TagSize)
	}

	n := copy(out, nonce[:])
	copy(out[n:], sealed)
	return out[:size], nil
}

// ParsePayload authenticates and decrypts payload, copies the application
// data into appData and returns the counter and appData[:n].
//
// Once the payload opens, the nonce is derived again from the recovered
// counter with hmacKey and must equal the one on the wire.
//
// Payloads shorter than MinPayloadSize fail with ErrMalformedPayload before
// any key is used. A payload that does not authenticate, or whose nonce does
// not match its counter, fails with ErrAuthenticationFailure;
// keystore.ErrInvalidKeyHandle is returned unchanged. If appData cannot hold
// the recovered data the call fails with ErrBufferTooSmall. appData is only
// written on success.
func ParsePayload(aesKey AEADKey, hmacKey PRFKey, payload, appData []byte) (uint32, []byte, error) {
	if len(payload) < MinPayloadSize {
		return 0, nil, ErrMalformedPayload
	}

	nonce := payload[:NonceSize]
	sealed := payload[NonceSize:]

	scratch := make([]byte, 0, len(sealed)-TagSize)
	plaintext, err := aesKey.Open(scratch, nonce, sealed, nil)
	if err != nil {
		if errors.Is(err, keystore.ErrInvalidKeyHandle) {
			return 0, nil, err
		}
		return 0, nil, ErrAuthenticationFailure
	}
	defer clear(plaintext)

	if len(plaintext) < CounterSize {
		return 0, nil, ErrMalformedPayload
	}

	counter := binary.LittleEndian.Uint32(plaintext)
	expected, err := DeriveNonce(hmacKey, counter)
	if err != nil {
		return 0, nil, err
	}
	if subtle.ConstantTimeCompare(expected[:], nonce) != 1 {
		return 0, nil, ErrAuthenticationFailure
	}

	data := plaintext[CounterSize:]
	if len(appData) < len(data) {
		return 0, nil, ErrBufferTooSmall
	}

	n := copy(appData, data)
	return counter, appData[:n], nil
}
