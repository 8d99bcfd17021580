package jwtx

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNoUsableKeys is returned when a JWKS holds no Ed25519 signing key.
var ErrNoUsableKeys = errors.New("jwtx: jwks has no usable Ed25519 keys")

// maxJWKSBytes bounds the JWKS document read from the issuer.
const maxJWKSBytes = 1 << 20

// JWK is a public key in JSON Web Key format (RFC 7517). Only the OKP
// fields are modelled since tokens are verified with Ed25519.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewEd25519JWK builds the signing JWK for an Ed25519 public key.
func NewEd25519JWK(kid string, pub ed25519.PublicKey) JWK {
	return JWK{
		Kty: "OKP",
		Use: "sig",
		Alg: "EdDSA",
		Kid: kid,
		Crv: "Ed25519",
		X:   base64.RawURLEncoding.EncodeToString(pub),
	}
}

// Ed25519 decodes the key. Keys of another type or curve, and keys
// published for encryption, are rejected.
func (j JWK) Ed25519() (ed25519.PublicKey, error) {
	if j.Kty != "OKP" || j.Crv != "Ed25519" {
		return nil, fmt.Errorf("jwtx: unsupported key %s/%s", j.Kty, j.Crv)
	}
	if j.Use != "" && j.Use != "sig" {
		return nil, fmt.Errorf("jwtx: key use %q is not sig", j.Use)
	}
	xb, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode x: %w", err)
	}
	if len(xb) != ed25519.PublicKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 public key size")
	}
	return ed25519.PublicKey(xb), nil
}

// ReplaceFromJWKS swaps the key set for the Ed25519 keys in set and returns
// how many were loaded. Unusable entries are skipped. When nothing usable
// remains the current keys are kept and ErrNoUsableKeys is returned, so a
// bad publish never locks every caller out.
func (k *KeySet) ReplaceFromJWKS(set JWKS) (int, error) {
	next := make(map[string]ed25519.PublicKey, len(set.Keys))
	for _, j := range set.Keys {
		if j.Kid == "" {
			continue
		}
		pub, err := j.Ed25519()
		if err != nil {
			continue
		}
		next[j.Kid] = pub
	}
	if len(next) == 0 {
		return 0, ErrNoUsableKeys
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = next
	return len(next), nil
}

// FetchJWKS downloads the key set published at url.
func FetchJWKS(ctx context.Context, client *http.Client, url string) (JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return JWKS{}, fmt.Errorf("jwtx: build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return JWKS{}, fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JWKS{}, fmt.Errorf("jwtx: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&set); err != nil {
		return JWKS{}, fmt.Errorf("jwtx: decode jwks: %w", err)
	}
	return set, nil
}

// RefreshFromURL fetches the JWKS at url and replaces the key set with it.
func (k *KeySet) RefreshFromURL(ctx context.Context, client *http.Client, url string) (int, error) {
	set, err := FetchJWKS(ctx, client, url)
	if err != nil {
		return 0, err
	}
	return k.ReplaceFromJWKS(set)
}
