package models

// Totals aggregates income and expense magnitudes over a set of
// transactions. Balance is income minus expense and may be negative.
type Totals struct {
	Income  Amount `json:"total_income"`
	Expense Amount `json:"total_expense"`
	Balance int64  `json:"-"`
	Count   int    `json:"count"`
}

// ComputeTotals aggregates the given transactions locally. The backend's
// summary endpoint computes the same figures server-side over the full
// filtered set; this helper covers the currently visible page.
func ComputeTotals(items []Transaction) Totals {
	t := Totals{Count: len(items)}
	for _, item := range items {
		switch item.Type {
		case TypeIncome:
			t.Income += item.Amount
		case TypeExpense:
			t.Expense += item.Amount
		}
	}
	t.Balance = int64(t.Income) - int64(t.Expense)
	return t
}
