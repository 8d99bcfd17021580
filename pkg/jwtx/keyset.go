package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aussiebroadwan/projectacl/pkg/cryptox"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds Ed25519 verification keys by kid.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]ed25519.PublicKey
}

func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]ed25519.PublicKey)}
}

// LoadKeySetFile reads a PEM public key from path and registers it as kid.
func LoadKeySetFile(path, kid string) (*KeySet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwtx: read key file: %w", err)
	}
	pub, err := cryptox.ParseEd25519PublicKeyPEM(b)
	if err != nil {
		return nil, err
	}

	ks := NewKeySet()
	ks.Add(kid, pub)
	return ks, nil
}

func (k *KeySet) Add(kid string, pub ed25519.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[kid] = pub
}

func (k *KeySet) Get(kid string) (ed25519.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pub, ok := k.pub[kid]; ok {
		return pub, nil
	}
	return nil, ErrNoKey
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}
