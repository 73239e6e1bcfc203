// AES-CCM implementation for Matter protocol.
// This implements AES-128-CCM as defined in NIST 800-38C and RFC 3610.
// Matter Specification Section 3.6 requires AES-CCM with:
//   - Key length: 128 bits (16 bytes)
//   - MIC/Tag length: 128 bits (16 bytes)
//   - Nonce length: 13 bytes
//   - q = 2 (length field size)

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

// AES-CCM constants from Matter Specification Section 3.6.
const (
	// AESCCMKeySize is the AES-128 key size in bytes (CRYPTO_SYMMETRIC_KEY_LENGTH_BYTES).
	AESCCMKeySize = 16

	// AESCCMTagSize is the authentication tag size in bytes (CRYPTO_AEAD_MIC_LENGTH_BYTES).
	AESCCMTagSize = 16

	// AESCCMNonceSize is the nonce size in bytes (CRYPTO_AEAD_NONCE_LENGTH_BYTES).
	AESCCMNonceSize = 13

	aesBlockSize = 16
)

// Errors
var (
	ErrAESCCMInvalidKeySize     = errors.New("aesccm: invalid key size, must be 16 bytes")
	ErrAESCCMInvalidNonceSize   = errors.New("aesccm: invalid nonce size")
	ErrAESCCMInvalidTagSize     = errors.New("aesccm: invalid tag size, must be 4, 6, 8, 10, 12, 14, or 16")
	ErrAESCCMPlaintextTooLong   = errors.New("aesccm: plaintext too long")
	ErrAESCCMCiphertextTooShort = errors.New("aesccm: ciphertext too short")
	ErrAESCCMAuthFailed         = errors.New("aesccm: message authentication failed")
)

// AESCCM is an AES-128-CCM cipher bound to one key.
// It holds no mutable state and is safe for concurrent use.
type AESCCM struct {
	block   cipher.Block
	tagSize int // M
	lenSize int // L = 15 - nonceSize
}

// NewAESCCM creates an AES-128-CCM cipher with the Matter parameters
// (13-byte nonce, 16-byte tag).
func NewAESCCM(key []byte) (*AESCCM, error) {
	return NewAESCCMWithParams(key, AESCCMNonceSize, AESCCMTagSize)
}

// NewAESCCMWithParams creates an AES-128-CCM cipher with explicit nonce and
// tag sizes. Only used to check the implementation against RFC 3610 vectors.
//
// Parameters:
//   - key: 16-byte AES-128 key
//   - nonceSize: nonce length in bytes (7-13 per NIST 800-38C)
//   - tagSize: authentication tag length in bytes (4, 6, 8, 10, 12, 14, or 16)
func NewAESCCMWithParams(key []byte, nonceSize, tagSize int) (*AESCCM, error) {
	if len(key) != AESCCMKeySize {
		return nil, ErrAESCCMInvalidKeySize
	}

	lenSize := 15 - nonceSize
	if lenSize < 2 || lenSize > 8 {
		return nil, ErrAESCCMInvalidNonceSize
	}

	if tagSize < 4 || tagSize > 16 || tagSize%2 != 0 {
		return nil, ErrAESCCMInvalidTagSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &AESCCM{
		block:   block,
		tagSize: tagSize,
		lenSize: lenSize,
	}, nil
}

// NonceSize returns the required nonce size for this cipher.
func (c *AESCCM) NonceSize() int {
	return 15 - c.lenSize
}

// Overhead returns the number of bytes Seal adds to the plaintext.
func (c *AESCCM) Overhead() int {
	return c.tagSize
}

// Seal encrypts and authenticates plaintext, appends ciphertext || tag to dst
// and returns the updated slice.
// This implements Crypto_AEAD_GenerateEncrypt from Matter Specification Section 3.6.1.
//
// To encrypt in place pass plaintext[:0] as dst; the plaintext's backing
// array must then have room for Overhead() more bytes to avoid a copy.
// Any other overlap between dst and plaintext is not supported.
func (c *AESCCM) Seal(dst, nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != c.NonceSize() {
		return nil, ErrAESCCMInvalidNonceSize
	}
	if uint64(len(plaintext)) > c.maxLength() {
		return nil, ErrAESCCMPlaintextTooLong
	}

	// The MAC runs over the plaintext, so compute it before an in-place
	// encryption overwrites it.
	tag := c.computeTag(nonce, plaintext, aad)

	ret, out := sliceForAppend(dst, len(plaintext)+c.tagSize)
	c.ctrXOR(nonce, out[:len(plaintext)], plaintext)

	var s0 [aesBlockSize]byte
	c.generateS0(nonce, &s0)
	subtle.XORBytes(out[len(plaintext):], tag, s0[:c.tagSize])

	return ret, nil
}

// Open authenticates and decrypts ciphertext || tag, appends the plaintext to
// dst and returns the updated slice.
// This implements Crypto_AEAD_DecryptVerify from Matter Specification Section 3.6.2.
//
// The tag is compared in constant time. On failure nothing usable is
// returned and the bytes written to dst's spare capacity are zeroed.
// ciphertext[:0] may be passed as dst to decrypt in place.
func (c *AESCCM) Open(dst, nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != c.NonceSize() {
		return nil, ErrAESCCMInvalidNonceSize
	}
	if len(ciphertext) < c.tagSize {
		return nil, ErrAESCCMCiphertextTooShort
	}

	dataLen := len(ciphertext) - c.tagSize
	if uint64(dataLen) > c.maxLength() {
		return nil, ErrAESCCMPlaintextTooLong
	}

	var s0 [aesBlockSize]byte
	c.generateS0(nonce, &s0)
	var receivedTag [aesBlockSize]byte
	subtle.XORBytes(receivedTag[:c.tagSize], ciphertext[dataLen:], s0[:c.tagSize])

	ret, out := sliceForAppend(dst, dataLen)
	c.ctrXOR(nonce, out, ciphertext[:dataLen])

	expectedTag := c.computeTag(nonce, out, aad)
	if subtle.ConstantTimeCompare(receivedTag[:c.tagSize], expectedTag) != 1 {
		clear(out)
		return nil, ErrAESCCMAuthFailed
	}

	return ret, nil
}

// maxLength is the largest message the L-byte length field can encode.
func (c *AESCCM) maxLength() uint64 {
	if c.lenSize >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(c.lenSize)) - 1
}

// computeTag computes the CBC-MAC authentication tag.
// This follows NIST 800-38C Section 6.1 and RFC 3610 Section 2.2.
func (c *AESCCM) computeTag(nonce, plaintext, aad []byte) []byte {
	// B_0 flags = Reserved(1) || Adata(1) || M'(3) || L'(3)
	var b0 [aesBlockSize]byte
	flags := byte(0)
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	flags |= byte((c.tagSize-2)/2) << 3
	flags |= byte(c.lenSize - 1)

	b0[0] = flags
	nonceSize := c.NonceSize()
	copy(b0[1:1+nonceSize], nonce)
	c.putLength(b0[1+nonceSize:], len(plaintext))

	mac := make([]byte, aesBlockSize)
	c.block.Encrypt(mac, b0[:])

	if len(aad) > 0 {
		// l(a) < 2^16 - 2^8: 2 bytes
		// l(a) < 2^32:       0xFFFE || 4 bytes
		// otherwise:         0xFFFF || 8 bytes
		var aadBlock [aesBlockSize]byte
		aadLen := uint64(len(aad))
		var headerLen int

		switch {
		case aadLen < (1<<16)-(1<<8):
			binary.BigEndian.PutUint16(aadBlock[0:2], uint16(aadLen))
			headerLen = 2
		case aadLen < (1 << 32):
			aadBlock[0] = 0xFF
			aadBlock[1] = 0xFE
			binary.BigEndian.PutUint32(aadBlock[2:6], uint32(aadLen))
			headerLen = 6
		default:
			aadBlock[0] = 0xFF
			aadBlock[1] = 0xFF
			binary.BigEndian.PutUint64(aadBlock[2:10], aadLen)
			headerLen = 10
		}

		n := copy(aadBlock[headerLen:], aad)
		subtle.XORBytes(mac, mac, aadBlock[:])
		c.block.Encrypt(mac, mac)
		c.cbcMAC(mac, aad[n:])
	}

	c.cbcMAC(mac, plaintext)

	return mac[:c.tagSize]
}

// cbcMAC folds data into mac block by block, zero-padding the last block.
func (c *AESCCM) cbcMAC(mac, data []byte) {
	for len(data) > 0 {
		var block [aesBlockSize]byte
		n := copy(block[:], data)
		data = data[n:]

		subtle.XORBytes(mac, mac, block[:])
		c.block.Encrypt(mac, mac)
	}
}

// generateS0 computes S_0 = E(K, A_0), the keystream block that masks the tag.
func (c *AESCCM) generateS0(nonce []byte, s0 *[aesBlockSize]byte) {
	var a0 [aesBlockSize]byte
	a0[0] = byte(c.lenSize - 1)
	copy(a0[1:1+c.NonceSize()], nonce)
	c.block.Encrypt(s0[:], a0[:])
}

// ctrXOR encrypts/decrypts src into dst in CTR mode starting from counter 1
// (NIST 800-38C Appendix A.3). dst and src may overlap exactly.
func (c *AESCCM) ctrXOR(nonce []byte, dst, src []byte) {
	var ctr [aesBlockSize]byte
	ctr[0] = byte(c.lenSize - 1)
	copy(ctr[1:1+c.NonceSize()], nonce)
	ctr[aesBlockSize-1] = 1

	var keystream [aesBlockSize]byte
	for i := 0; i < len(src); i += aesBlockSize {
		c.block.Encrypt(keystream[:], ctr[:])

		end := min(i+aesBlockSize, len(src))
		subtle.XORBytes(dst[i:end], src[i:end], keystream[:end-i])

		incrementCounter(ctr[aesBlockSize-c.lenSize:])
	}
}

// putLength encodes length big-endian into the last lenSize bytes of dst.
func (c *AESCCM) putLength(dst []byte, length int) {
	for i := c.lenSize - 1; i >= 0; i-- {
		dst[i] = byte(length)
		length >>= 8
	}
}

// incrementCounter increments a big-endian counter.
func incrementCounter(ctr []byte) {
	for i := len(ctr) - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			break
		}
	}
}

// sliceForAppend extends in by n bytes, reusing its capacity when possible.
// head is the whole extended slice, tail the n new bytes.
func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}
