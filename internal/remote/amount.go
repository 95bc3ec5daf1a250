package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money, quantity or percentage field. The remote API sends
// these as JSON numbers, quoted numbers, empty strings or null; all of them
// decode. An empty Amount means the field carried no value.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding amount: %w", err)
		}
		*a = Amount(strings.TrimSpace(s))
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*a = Amount(b)
	default:
		return fmt.Errorf("decoding amount: unexpected JSON %s", b)
	}
	return nil
}

// String returns the raw textual value.
func (a Amount) String() string { return string(a) }

// Decimal parses the amount. Empty and unparseable values are zero.
func (a Amount) Decimal() decimal.Decimal {
	if a == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(a))
	if err != nil {
		return decimal.Zero
	}
	return d
}
