package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind tells which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	default:
		return "unknown"
	}
}

// Value is a single claim value: either a string or an integer of any size.
// Integers are kept as canonical decimal text.
type Value struct {
	kind Kind
	str  string
	num  string
}

func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

func IntegerValue(n int64) Value {
	return Value{kind: KindInteger, num: strconv.FormatInt(n, 10)}
}

// ParseValue applies the integer coercion rule to a single raw value: only
// ASCII digits, optionally preceded by a single '-', make an integer.
func ParseValue(raw string) Value {
	if !isInteger(raw) {
		return StringValue(raw)
	}
	return Value{kind: KindInteger, num: canonicalInteger(raw)}
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// canonicalInteger drops leading zeros and the sign of zero.
func canonicalInteger(s string) string {
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimLeft(strings.TrimPrefix(s, "-"), "0")
	if digits == "" {
		return "0"
	}
	if neg {
		return "-" + digits
	}
	return digits
}

func (v Value) Kind() Kind {
	return v.kind
}

// Str returns the string variant. It is empty for integers.
func (v Value) Str() string {
	return v.str
}

// Number returns the integer variant as decimal text. It is empty for strings.
func (v Value) Number() json.Number {
	return json.Number(v.num)
}

// Int64 returns the integer variant when it fits in 64 bits.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	n, err := strconv.ParseInt(v.num, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Interface returns the value as a plain Go value (string or json.Number).
func (v Value) Interface() any {
	if v.kind == KindInteger {
		return v.Number()
	}
	return v.str
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInteger {
		return []byte(v.num), nil
	}
	return json.Marshal(v.str)
}
