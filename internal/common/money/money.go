package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	NAD Currency = "NAD"
	ZAR Currency = "ZAR"
	USD Currency = "USD"
)

// ErrInvalidAmount is returned when an amount string does not satisfy the
// wire format (digits, a dot, exactly two fractional digits).
var ErrInvalidAmount = errors.New("invalid amount")

// wireFormat is the amount format mandated on the wire: no sign, no
// thousands separators, exactly two fractional digits.
var wireFormat = regexp.MustCompile(`^\d+\.\d{2}$`)

// Amount is a fixed-point monetary amount. All routing arithmetic goes
// through decimal.Decimal so repeated conversions never accumulate binary
// floating point drift.
type Amount struct {
	value decimal.Decimal
}

// Parse parses an amount in strict wire format.
func Parse(s string) (Amount, error) {
	if !wireFormat.MatchString(s) {
		return Amount{}, fmt.Errorf("%w: %q must match \\d+.\\d{2}", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{value: d}, nil
}

// ParseLoose parses any decimal string and normalises it to two fractional
// digits. Used for values read back from storage, where the driver may
// return a different scale than was written.
func ParseLoose(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{value: d.Round(2)}, nil
}

// MustParse parses an amount in strict wire format, panicking on failure.
// Intended for constants in tests and defaults.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// Cmp compares two amounts: -1 if a < b, 0 if equal, 1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.value.Cmp(b.value)
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{value: a.value.Add(b.value)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{value: a.value.Sub(b.value)}
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// String renders the amount in wire format, always with two fractional
// digits.
func (a Amount) String() string {
	return a.value.StringFixed(2)
}

// MarshalJSON implements json.Marshaler. Amounts are JSON strings on the
// wire, never numbers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLoose(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
