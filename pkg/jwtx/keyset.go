package jwtx

import (
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

type keyEntry struct {
	alg string
	key any // ed25519.PublicKey or []byte
}

// KeySet maps kid to verification key. Safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]keyEntry
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]keyEntry)}
}

// AddSigner registers the key that verifies tokens from s.
func (k *KeySet) AddSigner(s Signer) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.KID() == "" {
		return errors.New("jwtx: signer has empty kid")
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[s.KID()] = keyEntry{alg: s.Alg(), key: s.verificationKey()}
	return nil
}

// Get returns the algorithm and verification key for kid.
func (k *KeySet) Get(kid string) (string, any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.keys[kid]
	if !ok {
		return "", nil, ErrNoKey
	}
	return e.alg, e.key, nil
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}
