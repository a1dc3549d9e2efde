// Package asset implements the fixed-point token quantity used by the ledger and the region fee.
//
// An Asset is an integer number of base units plus a Symbol carrying the code and the number of
// decimal places, so "1.0000 SEEDS" is Amount 10000 with precision 4. Arithmetic only combines
// assets of the same symbol and never rounds; results outside ±MaxAmount fail with core.ErrOverflow.
package asset

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/canopy-network/regionledger/pkg/core"
)

// MaxAmount is the largest magnitude an Asset may hold (2^62 - 1 base units).
const MaxAmount int64 = 1<<62 - 1

// MaxPrecision is the largest supported number of decimal places.
const MaxPrecision uint8 = 18

// Symbol identifies a token: an upper-case code of 1 to 7 letters and its precision.
type Symbol struct {
	Code      string `json:"code"`
	Precision uint8  `json:"precision"`
}

// NewSymbol returns a validated symbol.
func NewSymbol(code string, precision uint8) (Symbol, error) {
	s := Symbol{Code: code, Precision: precision}
	if err := s.Validate(); err != nil {
		return Symbol{}, err
	}
	return s, nil
}

// Validate checks the code characters and the precision bound.
func (s Symbol) Validate() error {
	if len(s.Code) == 0 || len(s.Code) > 7 {
		return fmt.Errorf("%w: symbol code %q must have 1 to 7 characters", core.ErrInvalidInput, s.Code)
	}
	for _, r := range s.Code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: symbol code %q must be upper-case letters", core.ErrInvalidInput, s.Code)
		}
	}
	if s.Precision > MaxPrecision {
		return fmt.Errorf("%w: precision %d exceeds %d", core.ErrInvalidInput, s.Precision, MaxPrecision)
	}
	return nil
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// Asset is a signed quantity of base units of Symbol.
type Asset struct {
	Amount int64
	Symbol Symbol
}

// New returns amount base units of sym. It does not validate; see Asset.Validate.
func New(amount int64, sym Symbol) Asset {
	return Asset{Amount: amount, Symbol: sym}
}

// Zero returns the zero quantity of sym.
func Zero(sym Symbol) Asset {
	return Asset{Symbol: sym}
}

// Parse reads the "<amount> <CODE>" form, e.g. "10.0000 SEEDS".
// The number of decimals written fixes the precision, as in the on-chain asset format.
func Parse(s string) (Asset, error) {
	num, code, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || strings.Contains(code, " ") {
		return Asset{}, fmt.Errorf("%w: asset %q must be \"<amount> <CODE>\"", core.ErrInvalidInput, s)
	}
	if strings.ContainsAny(num, "eE+") {
		return Asset{}, fmt.Errorf("%w: asset amount %q must be plain decimal", core.ErrInvalidInput, num)
	}

	var precision int
	if _, frac, hasDot := strings.Cut(num, "."); hasDot {
		if frac == "" {
			return Asset{}, fmt.Errorf("%w: asset amount %q has an empty fraction", core.ErrInvalidInput, num)
		}
		precision = len(frac)
	}
	if precision > int(MaxPrecision) {
		return Asset{}, fmt.Errorf("%w: precision %d exceeds %d", core.ErrInvalidInput, precision, MaxPrecision)
	}

	sym, err := NewSymbol(code, uint8(precision))
	if err != nil {
		return Asset{}, err
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: asset amount %q: %v", core.ErrInvalidInput, num, err)
	}
	scaled := d.Shift(int32(precision))
	if !scaled.IsInteger() {
		return Asset{}, fmt.Errorf("%w: asset amount %q", core.ErrInvalidInput, num)
	}
	units := scaled.BigInt()
	if !units.IsInt64() {
		return Asset{}, fmt.Errorf("%w: asset amount %q", core.ErrOverflow, num)
	}

	a := Asset{Amount: units.Int64(), Symbol: sym}
	if err := a.Validate(); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Asset {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Validate checks the symbol and that the amount is within ±MaxAmount.
func (a Asset) Validate() error {
	if err := a.Symbol.Validate(); err != nil {
		return err
	}
	if a.Amount > MaxAmount || a.Amount < -MaxAmount {
		return fmt.Errorf("%w: amount %d out of range", core.ErrOverflow, a.Amount)
	}
	return nil
}

func (a Asset) IsZero() bool     { return a.Amount == 0 }
func (a Asset) IsPositive() bool { return a.Amount > 0 }
func (a Asset) IsNegative() bool { return a.Amount < 0 }

// SameSymbol reports whether a and b can be combined.
func (a Asset) SameSymbol(b Asset) bool { return a.Symbol == b.Symbol }

// Add returns a + b.
func (a Asset) Add(b Asset) (Asset, error) {
	if !a.SameSymbol(b) {
		return Asset{}, mismatch(a, b)
	}
	// both operands are within ±(2^62-1), so the int64 sum cannot wrap
	out := Asset{Amount: a.Amount + b.Amount, Symbol: a.Symbol}
	if err := out.Validate(); err != nil {
		return Asset{}, err
	}
	return out, nil
}

// Sub returns a - b.
func (a Asset) Sub(b Asset) (Asset, error) {
	if !a.SameSymbol(b) {
		return Asset{}, mismatch(a, b)
	}
	out := Asset{Amount: a.Amount - b.Amount, Symbol: a.Symbol}
	if err := out.Validate(); err != nil {
		return Asset{}, err
	}
	return out, nil
}

// Cmp returns -1, 0 or +1 comparing a with b.
func (a Asset) Cmp(b Asset) (int, error) {
	if !a.SameSymbol(b) {
		return 0, mismatch(a, b)
	}
	switch {
	case a.Amount < b.Amount:
		return -1, nil
	case a.Amount > b.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Decimal returns the quantity as an exact decimal number.
func (a Asset) Decimal() decimal.Decimal {
	return decimal.New(a.Amount, -int32(a.Symbol.Precision))
}

func (a Asset) String() string {
	return a.Decimal().StringFixed(int32(a.Symbol.Precision)) + " " + a.Symbol.Code
}

// MarshalText encodes the asset in its "<amount> <CODE>" form.
func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (a *Asset) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func mismatch(a, b Asset) error {
	return fmt.Errorf("%w: symbol mismatch %s vs %s", core.ErrInvalidAmount, a.Symbol, b.Symbol)
}
