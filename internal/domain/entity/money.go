package entity

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// BaseUnitsPerUnit is the number of base units in one monetary unit.
const BaseUnitsPerUnit = 1_000_000_000_000_000_000

// Money is an unsigned amount of base units.
type Money struct {
	v uint256.Int
}

// NewMoney returns an amount of base units.
func NewMoney(base uint64) Money {
	var m Money
	m.v.SetUint64(base)
	return m
}

// Units returns n whole units.
func Units(n uint64) Money {
	return NewMoney(n).MulDiv(BaseUnitsPerUnit, 1)
}

// ParseMoney parses a decimal amount of base units.
func ParseMoney(s string) (Money, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: invalid amount %q", ErrInvalidArgument, s)
	}
	return Money{v: *v}, nil
}

func (m Money) Add(o Money) Money {
	var r Money
	r.v.Add(&m.v, &o.v)
	return r
}

// Sub returns m-o, or zero when o exceeds m.
func (m Money) Sub(o Money) Money {
	var r Money
	if m.v.Lt(&o.v) {
		return r
	}
	r.v.Sub(&m.v, &o.v)
	return r
}

// MulDiv returns m*num/den with truncation.
func (m Money) MulDiv(num, den uint64) Money {
	var r Money
	r.v.Mul(&m.v, uint256.NewInt(num))
	r.v.Div(&r.v, uint256.NewInt(den))
	return r
}

func (m Money) Cmp(o Money) int { return m.v.Cmp(&o.v) }

func (m Money) IsZero() bool { return m.v.IsZero() }

func (m Money) String() string { return m.v.Dec() }

// Float64 approximates the amount in whole units, for metrics only.
func (m Money) Float64() float64 {
	f, _ := strconv.ParseFloat(m.v.Dec(), 64)
	return f / BaseUnitsPerUnit
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.v.Dec())
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: amount must be a decimal string", ErrInvalidArgument)
		}
		s = n.String()
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
