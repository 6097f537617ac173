// Package payload turns command line arguments of the form key=value into
// the claims of a token.
package payload

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrArgumentFormat is returned for arguments that cannot become a claim.
var ErrArgumentFormat = errors.New("malformed argument")

// Payload is an insertion-ordered set of claims.
type Payload struct {
	keys   []string
	values map[string]Value
}

func New() *Payload {
	return &Payload{values: map[string]Value{}}
}

// Parse builds a payload from key=value arguments. Each argument is split on
// its first '='. Values made only of ASCII digits, optionally preceded by a
// single '-', become integers of any size; everything else is kept as a
// string. A key given twice keeps its first position and takes the last
// value. Arguments that are not valid UTF-8 are rejected, since JSON cannot
// carry them unchanged.
func Parse(args []string) (*Payload, error) {
	p := New()
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, errors.Wrapf(ErrArgumentFormat, "argument %q has no '=' separator", arg)
		}
		if !utf8.ValidString(arg) {
			return nil, errors.Wrapf(ErrArgumentFormat, "argument %q is not valid UTF-8", arg)
		}
		p.Set(key, ParseValue(raw))
	}
	return p, nil
}

func (p *Payload) Set(key string, v Value) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

func (p *Payload) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the claim names in insertion order.
func (p *Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Payload) Len() int {
	return len(p.keys)
}

// MarshalJSON encodes the payload as a JSON object, keeping insertion order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := p.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Claims returns the payload as a jwt.MapClaims. Integers are stored as
// json.Number so the registered numeric date getters accept them.
func (p *Payload) Claims() jwt.MapClaims {
	claims := make(jwt.MapClaims, len(p.keys))
	for _, k := range p.keys {
		v := p.values[k]
		if v.Kind() == KindInteger {
			claims[k] = v.Number()
			continue
		}
		claims[k] = v.Str()
	}
	return claims
}
