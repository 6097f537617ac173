// Package keystore keeps the EC key pair tokens are encrypted for.
package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-jose/go-jose/v4"
)

// DefaultPath is where the private key lives unless configured otherwise.
const DefaultPath = "private_key.json"

// ErrKeyFile marks a key file that exists but cannot be used.
var ErrKeyFile = errors.New("unusable key file")

// KeyFileError reports what went wrong with a key file.
type KeyFileError struct {
	Path string
	Err  error
}

func (e *KeyFileError) Error() string {
	return fmt.Sprintf("key file %s: %v", e.Path, e.Err)
}

func (e *KeyFileError) Unwrap() error { return e.Err }

func (e *KeyFileError) Is(target error) bool { return target == ErrKeyFile }

// Provider hands out the private key used for issuing tokens.
type Provider interface {
	LoadOrGenerate() (*jose.JSONWebKey, error)
}

// Generate creates a fresh P-256 key pair.
func Generate() (*jose.JSONWebKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate P-256 key")
	}
	return &jose.JSONWebKey{Key: priv}, nil
}

// Public derives the public half of a private key.
func Public(key *jose.JSONWebKey) jose.JSONWebKey {
	return key.Public()
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint, base64url encoded.
func Thumbprint(key *jose.JSONWebKey) (string, error) {
	tp, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", errors.Wrap(err, "key thumbprint")
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// validate accepts only private P-256 keys.
func validate(key *jose.JSONWebKey) error {
	if !key.Valid() {
		return errors.New("invalid JWK")
	}
	if key.IsPublic() {
		return errors.New("JWK holds no private key material")
	}
	priv, ok := key.Key.(*ecdsa.PrivateKey)
	if !ok {
		return errors.Errorf("expected an EC key, got %T", key.Key)
	}
	if priv.Curve != elliptic.P256() {
		return errors.Errorf("expected curve P-256, got %s", priv.Curve.Params().Name)
	}
	return nil
}
