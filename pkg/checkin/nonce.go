package checkin

import (
	"encoding/binary"
	"fmt"

	"github.com/backkem/matter-checkin/pkg/crypto"
)

// DeriveNonce returns the Check-In nonce for counter:
//
//	Nonce = Crypto_HMAC(hmacKey, Counter)[0..NonceSize)
//
// with Counter encoded as 4 bytes little-endian. The result depends only on
// the key and the counter.
func DeriveNonce(hmacKey PRFKey, counter uint32) ([NonceSize]byte, error) {
	var nonce [NonceSize]byte

	var counterBytes [CounterSize]byte
	binary.LittleEndian.PutUint32(counterBytes[:], counter)

	var scratch [crypto.SHA256LenBytes]byte
	defer clear(scratch[:])

	mac, err := hmacKey.PRF(scratch[:0], counterBytes[:])
	if err != nil {
		return nonce, err
	}
	if len(mac) < NonceSize {
		return nonce, fmt.Errorf("checkin: PRF output %d bytes, need %d", len(mac), NonceSize)
	}

	copy(nonce[:], mac)
	return nonce, nil
}
