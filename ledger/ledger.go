// Package ledger records which tokens were issued, without keeping the
// tokens themselves.
package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/blake2b"

	"token-gen/payload"
)

// ErrLedger marks failures to open or write the ledger.
var ErrLedger = errors.New("ledger unavailable")

type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrLedger }

// Issue is one issued token.
type Issue struct {
	ID            string
	KeyThumbprint string
	Subject       string
	ExpiresAt     *time.Time
	ClaimNames    []string
	TokenHash     string
	IssuedAt      time.Time
}

// NewIssue describes a token issued for p. Subject and ExpiresAt are filled
// from the registered "sub" and "exp" claims when they have the right type;
// an "exp" outside the 64-bit range is left out.
func NewIssue(keyThumbprint, token string, p *payload.Payload) Issue {
	claims := p.Claims()

	is := Issue{
		KeyThumbprint: keyThumbprint,
		ClaimNames:    p.Keys(),
		TokenHash:     Fingerprint(token),
	}
	sort.Strings(is.ClaimNames)

	if sub, err := claims.GetSubject(); err == nil {
		is.Subject = sub
	}
	if v, ok := p.Get("exp"); ok && v.Kind() == payload.KindInteger {
		if _, fits := v.Int64(); !fits {
			return is
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		is.ExpiresAt = &t
	}
	return is
}

// Fingerprint is the hex BLAKE2b-256 digest of a serialized token.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type Ledger interface {
	Record(ctx context.Context, is Issue) (Issue, error)
	List(ctx context.Context) ([]Issue, error)
	CountByKey(ctx context.Context, keyThumbprint string) (int, error)
	Close() error
}
