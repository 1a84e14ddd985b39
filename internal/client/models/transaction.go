// Package models contains the client-side data model for the expense
// tracker: transactions, drafts, filters, and summary totals.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type classifies a transaction as money coming in or going out.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Valid reports whether t is one of the two supported transaction types.
func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Categories is the suggested category set. The backend accepts arbitrary
// strings, so this list is advisory, not exhaustive.
var Categories = []string{
	"food",
	"transport",
	"bills",
	"entertainment",
	"shopping",
	"health",
	"education",
	"salary",
	"other",
}

// DateLayout is the wire format for transaction dates (calendar date, no
// time component).
const DateLayout = "2006-01-02"

// Date is a calendar date marshalled as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// ParseDate parses a date in the wire format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Transaction is a single income or expense record as the backend returns
// it. ID is server-assigned and immutable; the amount is a non-negative
// magnitude whose sign is implied by Type.
type Transaction struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Amount      Amount    `json:"amount"`
	Category    string    `json:"category"`
	Type        Type      `json:"type"`
	Date        Date      `json:"date"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Draft is a transaction the server has not assigned an id to yet. Amount
// and Date are kept as raw user input until Validate normalizes them.
type Draft struct {
	Description string
	Amount      string
	Category    string
	Type        Type
	Date        string
}

// Validate checks the draft fields and returns the normalized record body
// to submit, or a *ValidationError naming the first offending field.
func (d Draft) Validate() (Transaction, error) {
	if strings.TrimSpace(d.Description) == "" {
		return Transaction{}, &ValidationError{Field: "description", Reason: "must not be empty"}
	}

	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return Transaction{}, &ValidationError{Field: "amount", Reason: err.Error()}
	}

	if !d.Type.Valid() {
		return Transaction{}, &ValidationError{Field: "type", Reason: "must be income or expense"}
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = "other"
	}

	date, err := ParseDate(strings.TrimSpace(d.Date))
	if err != nil {
		return Transaction{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	return Transaction{
		Description: strings.TrimSpace(d.Description),
		Amount:      amount,
		Category:    category,
		Type:        d.Type,
		Date:        date,
	}, nil
}

// ValidationError reports a rejected transaction field, either from local
// draft validation or from a backend 400 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}
