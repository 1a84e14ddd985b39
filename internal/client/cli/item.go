package cli

import (
	"fmt"

	"github.com/vpetrenko/tracklet/internal/client/models"
)

// formatItem renders a single transaction row for the list views.
func formatItem(t models.Transaction) string {
	sign := "+"
	if t.Type == models.TypeExpense {
		sign = "-"
	}
	return fmt.Sprintf("#%-5d %s  %-7s %-13s %s%-10s %s",
		t.ID, t.Date, t.Type, t.Category, sign, t.Amount, t.Description)
}
