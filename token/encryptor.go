// Package token builds encrypted JWTs in the compact JWE serialization.
package token

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-jose/go-jose/v4"

	"token-gen/payload"
)

// Fixed algorithms. ECDH-ES+A256KW wraps a fresh content key for the
// recipient, A256CBC-HS512 encrypts and authenticates the claims.
const (
	KeyAlgorithm      = jose.ECDH_ES_A256KW
	ContentEncryption = jose.A256CBC_HS512
)

// ErrEncoding marks failures to encrypt or serialize a token.
var ErrEncoding = errors.New("token encoding failed")

type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// Encryptor encrypts claims for a single recipient public key.
type Encryptor struct {
	enc jose.Encrypter
}

func NewEncryptor(pub jose.JSONWebKey) (*Encryptor, error) {
	if !pub.IsPublic() {
		return nil, &EncodingError{Op: "new encryptor", Err: errors.New("recipient key must be a public key")}
	}

	enc, err := jose.NewEncrypter(ContentEncryption, jose.Recipient{Algorithm: KeyAlgorithm, Key: &pub}, nil)
	if err != nil {
		return nil, &EncodingError{Op: "new encryptor", Err: err}
	}
	return &Encryptor{enc: enc}, nil
}

// Encrypt returns the five-part compact serialization of a JWE whose
// plaintext is exactly the JSON of p. No signature is applied.
func (e *Encryptor) Encrypt(p *payload.Payload) (string, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", &EncodingError{Op: "encode claims", Err: err}
	}

	obj, err := e.enc.Encrypt(plaintext)
	if err != nil {
		return "", &EncodingError{Op: "encrypt claims", Err: err}
	}

	s, err := obj.CompactSerialize()
	if err != nil {
		return "", &EncodingError{Op: "serialize token", Err: err}
	}
	return s, nil
}
