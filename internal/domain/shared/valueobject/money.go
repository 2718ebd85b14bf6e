package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217, lower-cased as Stripe reports it)
type Currency string

const (
	USD Currency = "usd" // US Dollar (default)
	EUR Currency = "eur" // Euro
	GBP Currency = "gbp" // British Pound
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// Money is a value object representing a monetary amount in integer
// minor currency units (cents). All commission arithmetic happens in
// minor units; floating point never touches an amount.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   int64
	currency Currency
}

// NewMoney creates a new Money from an amount in minor units
func NewMoney(amount int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: Currency(strings.ToLower(string(currency))),
	}, nil
}

// MustMoney creates Money and panics on an empty currency.
// Intended for constants and tests.
func MustMoney(amount int64, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: 0, currency: currency}
}

// Amount returns the amount in minor units
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount == 0
}

// IsPositive returns true if the amount is strictly positive
func (m Money) IsPositive() bool {
	return m.amount > 0
}

// IsNegative returns true if the amount is strictly negative
func (m Money) IsNegative() bool {
	return m.amount < 0
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: -m.amount, currency: m.currency}
}

// ApplyRate multiplies the amount by a fractional rate and rounds the
// result to a whole number of minor units.
//
// Rounding rule: half away from zero ("round half up" for positive
// amounts). decimal.Round implements exactly that, so for a gross
// amount G and rate R the commission is round(G x R) with 0.5 minor
// units going up. The same rule applies at every call site; ledger
// totals depend on it.
func (m Money) ApplyRate(rate decimal.Decimal) Money {
	rounded := decimal.NewFromInt(m.amount).Mul(rate).Round(0)
	return Money{amount: rounded.IntPart(), currency: m.currency}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64    `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount,
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64    `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.amount = v.Amount
	m.currency = v.Currency
	return nil
}
