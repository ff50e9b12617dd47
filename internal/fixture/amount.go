package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal literal exactly as written in the case file.
type Amount struct {
	text string
}

// ParseAmount validates s as a decimal literal.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty decimal")
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return Amount{}, fmt.Errorf("invalid decimal %q", s)
	}
	return Amount{text: s}, nil
}

// MustAmount is ParseAmount for literals known to be valid.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the literal text.
func (a Amount) String() string { return a.text }

// IsZero reports whether the amount was never set.
func (a Amount) IsZero() bool { return a.text == "" }

// Decimal returns the exact value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.RequireFromString(a.text)
}

// UnmarshalJSON accepts a JSON number or a JSON string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decimal must be a number or string: %s", data)
	}
	parsed, err := ParseAmount(n.String())
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON always emits a JSON string; the reference engine only decodes
// decimals from strings.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.text)
}
