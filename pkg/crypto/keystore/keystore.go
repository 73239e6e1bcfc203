// Package keystore owns symmetric key material and hands out opaque handles
// to it.
//
// Callers import raw 128-bit material once and from then on only hold an
// AES128KeyHandle or HMAC128KeyHandle. A handle is an identifier into the
// table of the Keystore that created it and exposes the capability of its
// key kind (AEAD seal/open or keyed PRF) without ever exposing the bytes.
// This mirrors the session keystore of the Matter SDK, where the material
// may live in a secure element instead of process memory.
package keystore

import (
	"errors"
	"sync"

	"github.com/backkem/matter-checkin/pkg/crypto"
	"github.com/pion/logging"
)

// Symmetric128BitsKey is raw 128-bit symmetric key material.
type Symmetric128BitsKey [crypto.AESCCMKeySize]byte

// KeyID identifies a key within one Keystore. Zero is never assigned.
type KeyID uint32

// Errors
var (
	// ErrInvalidKeyHandle is returned when a handle is zero, was destroyed,
	// belongs to another keystore or is used as the wrong key kind.
	ErrInvalidKeyHandle = errors.New("keystore: invalid key handle")

	ErrNilKeyMaterial = errors.New("keystore: nil key material")
)

type keyKind uint8

const (
	kindAES128 keyKind = iota + 1
	kindHMAC128
)

func (k keyKind) String() string {
	switch k {
	case kindAES128:
		return "AES-128"
	case kindHMAC128:
		return "HMAC-128"
	default:
		return "unknown"
	}
}

type entry struct {
	kind     keyKind
	material Symmetric128BitsKey
	aead     *crypto.AESCCM // kindAES128 only
}

// Config configures a Keystore.
type Config struct {
	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Keystore is an in-memory key table. It is safe for concurrent use; key
// operations run under a read lock so DestroyKey never races with a seal or
// PRF in progress on the same key.
type Keystore struct {
	mu     sync.RWMutex
	keys   map[KeyID]*entry
	nextID KeyID
	log    logging.LeveledLogger
}

// New creates an empty keystore.
func New(config Config) *Keystore {
	ks := &Keystore{
		keys: make(map[KeyID]*entry),
	}
	if config.LoggerFactory != nil {
		ks.log = config.LoggerFactory.NewLogger("keystore")
	}
	return ks
}

// CreateAES128Key imports material as an AES-128-CCM key.
// The material is copied; the caller may wipe its buffer afterwards.
func (ks *Keystore) CreateAES128Key(material *Symmetric128BitsKey) (AES128KeyHandle, error) {
	if material == nil {
		return AES128KeyHandle{}, ErrNilKeyMaterial
	}

	aead, err := crypto.NewAESCCM(material[:])
	if err != nil {
		return AES128KeyHandle{}, err
	}

	id := ks.insert(&entry{kind: kindAES128, material: *material, aead: aead})
	return AES128KeyHandle{id: id, ks: ks}, nil
}

// CreateHMAC128Key imports material as an HMAC-SHA256 key.
// The material is copied; the caller may wipe its buffer afterwards.
func (ks *Keystore) CreateHMAC128Key(material *Symmetric128BitsKey) (HMAC128KeyHandle, error) {
	if material == nil {
		return HMAC128KeyHandle{}, ErrNilKeyMaterial
	}

	id := ks.insert(&entry{kind: kindHMAC128, material: *material})
	return HMAC128KeyHandle{id: id, ks: ks}, nil
}

// DeriveKey derives an AES-128 key from secret with HKDF-SHA256 and imports
// it. The derived bytes never leave the keystore.
func (ks *Keystore) DeriveKey(secret, salt, info []byte) (AES128KeyHandle, error) {
	var material Symmetric128BitsKey
	defer clear(material[:])

	if err := crypto.HKDFSHA256Into(material[:], secret, salt, info); err != nil {
		return AES128KeyHandle{}, err
	}

	h, err := ks.CreateAES128Key(&material)
	if err != nil {
		return AES128KeyHandle{}, err
	}
	if ks.log != nil {
		ks.log.Tracef("derived key %d from %d-byte secret", h.id, len(secret))
	}
	return h, nil
}

// DestroyKey removes the key behind h and wipes its material.
// Destroying an invalid or already destroyed handle is a no-op.
func (ks *Keystore) DestroyKey(h KeyHandle) {
	if h == nil || h.owner() != ks {
		return
	}
	id := h.keyID()

	ks.mu.Lock()
	e, ok := ks.keys[id]
	if ok {
		delete(ks.keys, id)
		clear(e.material[:])
		e.aead = nil
	}
	ks.mu.Unlock()

	if ok && ks.log != nil {
		ks.log.Debugf("destroyed %s key %d", e.kind, id)
	}
}

// Len returns the number of live keys.
func (ks *Keystore) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}

func (ks *Keystore) insert(e *entry) KeyID {
	ks.mu.Lock()
	for {
		ks.nextID++
		if ks.nextID == 0 {
			continue
		}
		if _, used := ks.keys[ks.nextID]; !used {
			break
		}
	}
	id := ks.nextID
	ks.keys[id] = e
	ks.mu.Unlock()

	if ks.log != nil {
		ks.log.Debugf("created %s key %d", e.kind, id)
	}
	return id
}

// use runs fn with the entry for id while holding the read lock.
func (ks *Keystore) use(id KeyID, kind keyKind, fn func(e *entry) error) error {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	e, ok := ks.keys[id]
	if !ok || e.kind != kind {
		return ErrInvalidKeyHandle
	}
	return fn(e)
}

func (ks *Keystore) contains(id KeyID, kind keyKind) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	e, ok := ks.keys[id]
	return ok && e.kind == kind
}
