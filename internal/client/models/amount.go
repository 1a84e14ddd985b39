package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidAmount is returned when an amount string cannot be parsed as a
// non-negative decimal.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a non-negative monetary magnitude stored in cents. The backend
// serializes amounts as decimal strings ("350.00"), but numeric JSON values
// are accepted as well.
type Amount int64

// ParseAmount converts a decimal string to an Amount with half-up rounding
// on the third decimal place. Both dot and comma separators are accepted.
// Signs are rejected: the magnitude is always non-negative and the direction
// of money flow is carried by the transaction type.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}

	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	return Amount(iv*100 + fracCents), nil
}

// String renders the amount as a decimal with two fractional digits.
func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", int64(a)/100, int64(a)%100)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := ParseAmount(value)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case json.Number:
		parsed, err := ParseAmount(value.String())
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	default:
		return ErrInvalidAmount
	}
}
