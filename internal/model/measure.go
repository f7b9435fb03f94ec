package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Measure is an optional numeric reading (weight, brix, pressure...).
// It is persisted as a JSON number, or null when nothing was entered.
type Measure struct {
	Value decimal.Decimal
	Valid bool
}

// Bounds on accepted readings. The exponent limit keeps the canonical text
// short however the input was written (1e9999999 expands to ten million digits).
const (
	maxMeasureInput    = 40
	maxMeasureExponent = 20
)

// ParseMeasure converts form input to a Measure.
// Blank input yields an empty (null) measure; anything else must be a decimal
// of reasonable size.
func ParseMeasure(s string) (Measure, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Measure{}, nil
	}
	if len(s) > maxMeasureInput {
		return Measure{}, fmt.Errorf("%d characters: %w", len(s), ErrNotNumeric)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Measure{}, fmt.Errorf("%q: %w", s, ErrNotNumeric)
	}
	if exp := d.Exponent(); exp > maxMeasureExponent || exp < -maxMeasureExponent {
		return Measure{}, fmt.Errorf("%q out of range: %w", s, ErrNotNumeric)
	}
	return Measure{Value: d, Valid: true}, nil
}

// MustMeasure is ParseMeasure for literals known to be valid
func MustMeasure(s string) Measure {
	m, err := ParseMeasure(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the canonical decimal text, or "" when empty
func (m Measure) String() string {
	if !m.Valid {
		return ""
	}
	return m.Value.String()
}

// Equal compares by numeric value
func (m Measure) Equal(o Measure) bool {
	if m.Valid != o.Valid {
		return false
	}
	return !m.Valid || m.Value.Equal(o.Value)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(m.Value.String()), nil
}

// UnmarshalJSON accepts numbers, numeric strings (older documents stored form text),
// empty strings and null.
func (m *Measure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Measure{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseMeasure(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	parsed, err := ParseMeasure(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
