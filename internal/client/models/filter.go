package models

import "strings"

// Filter narrows the transaction list. Zero-valued fields mean "no
// constraint" and must be omitted from query strings entirely, never sent
// as empty parameters.
type Filter struct {
	Type      Type
	Category  string
	StartDate string
	EndDate   string
	Search    string
}

// IsZero reports whether no constraint is set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Matches reports whether a transaction satisfies every set constraint.
// Used to decide if an optimistically created item belongs on the currently
// visible filtered view.
func (f Filter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.StartDate != "" {
		start, err := ParseDate(f.StartDate)
		if err != nil || t.Date.Before(start.Time) {
			return false
		}
	}
	if f.EndDate != "" {
		end, err := ParseDate(f.EndDate)
		if err != nil || t.Date.After(end.Time) {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
