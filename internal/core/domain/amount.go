package domain

import (
	"fmt"
	"math/big"
)

// Amount is an unsigned arbitrary-precision quantity of the native currency,
// expressed in indivisible units. The zero value is a valid zero amount.
//
// On the wire amounts are decimal strings, never JSON numbers, so values
// above 2^53 survive any JSON round-trip.
type Amount struct {
	big.Int
}

func NewAmount(v uint64) Amount {
	var a Amount
	a.SetUint64(v)
	return a
}

// AmountFromString parses a base-10 unsigned amount.
func AmountFromString(s string) (Amount, error) {
	var a Amount
	if len(s) == 0 {
		return a, fmt.Errorf("empty amount")
	}
	if _, ok := a.SetString(s, 10); !ok {
		return Amount{}, fmt.Errorf("malformed amount %q", s)
	}
	if a.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount %q", s)
	}
	return a, nil
}

// CheckedSub returns a-b, or ok=false if b exceeds a.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	if a.Cmp(&b.Int) < 0 {
		return Amount{}, false
	}
	var out Amount
	out.Int.Sub(&a.Int, &b.Int)
	return out, true
}

func (a Amount) Equal(b Amount) bool {
	return a.Cmp(&b.Int) == 0
}

func (a Amount) LessThan(b Amount) bool {
	return a.Cmp(&b.Int) < 0
}

func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("amount must be a decimal string, got %s", string(data))
	}
	parsed, err := AmountFromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
