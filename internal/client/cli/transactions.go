package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vpetrenko/tracklet/internal/client/models"
	"github.com/vpetrenko/tracklet/internal/filex"
)

// List refreshes and renders the current page.
func (a *App) List(ctx context.Context) error {
	if err := a.controller.Refresh(ctx); err != nil {
		return err
	}
	a.printItems()
	return nil
}

// Page jumps to the given page and renders it.
func (a *App) Page(ctx context.Context, arg string) error {
	page, err := strconv.Atoi(arg)
	if err != nil || page < 1 {
		return fmt.Errorf("usage: page <n>")
	}
	if err := a.controller.SetPage(ctx, page); err != nil {
		return err
	}
	a.printItems()
	return nil
}

// More advances to the next page, if there is one.
func (a *App) More(ctx context.Context) error {
	if a.controller.Page() >= a.controller.TotalPages() {
		fmt.Println("Already on the last page.")
		return nil
	}
	return a.Page(ctx, strconv.Itoa(a.controller.Page()+1))
}

// Filter prompts for each constraint (empty input leaves it unset) and
// reloads. Setting any filter moves the view back to page 1.
func (a *App) Filter(ctx context.Context) error {
	typ, err := getSimpleText(a.reader, "Type (income/expense, empty for all)", os.Stdout)
	if err != nil {
		return err
	}
	category, err := getSimpleText(a.reader, "Category (empty for all)", os.Stdout)
	if err != nil {
		return err
	}
	start, err := getSimpleText(a.reader, "Start date YYYY-MM-DD (empty for none)", os.Stdout)
	if err != nil {
		return err
	}
	end, err := getSimpleText(a.reader, "End date YYYY-MM-DD (empty for none)", os.Stdout)
	if err != nil {
		return err
	}
	search, err := getSimpleText(a.reader, "Search (empty for none)", os.Stdout)
	if err != nil {
		return err
	}

	f := models.Filter{
		Type:      models.Type(typ),
		Category:  category,
		StartDate: start,
		EndDate:   end,
		Search:    search,
	}
	if f.Type != "" && !f.Type.Valid() {
		return fmt.Errorf("type must be income or expense")
	}

	if err := a.controller.SetFilter(ctx, f); err != nil {
		return err
	}
	a.printItems()
	return nil
}

// ClearFilter drops all constraints and reloads.
func (a *App) ClearFilter(ctx context.Context) error {
	if err := a.controller.SetFilter(ctx, models.Filter{}); err != nil {
		return err
	}
	a.printItems()
	return nil
}

// Add prompts for a new transaction and submits it. The submission token
// makes each interactive form single-flight.
func (a *App) Add(ctx context.Context) error {
	description, err := getSimpleText(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := getSimpleText(a.reader, "Amount", os.Stdout)
	if err != nil {
		return err
	}
	category, err := getSimpleText(a.reader, fmt.Sprintf("Category %v", models.Categories), os.Stdout)
	if err != nil {
		return err
	}
	typ, err := getSimpleText(a.reader, "Type (income/expense)", os.Stdout)
	if err != nil {
		return err
	}
	date, err := getSimpleText(a.reader, "Date YYYY-MM-DD", os.Stdout)
	if err != nil {
		return err
	}

	draft := models.Draft{
		Description: description,
		Amount:      amount,
		Category:    category,
		Type:        models.Type(typ),
		Date:        date,
	}

	created, err := a.controller.Create(ctx, a.controller.NewSubmission(), draft)
	if err != nil {
		return err
	}
	fmt.Printf("Created #%d: %s\n", created.ID, formatItem(created))
	return nil
}

// Edit re-prompts every field of an existing transaction, defaulting to
// the current values, and submits the full record (the backend replaces
// wholesale on update).
func (a *App) Edit(ctx context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("usage: edit <id>")
	}

	var current *models.Transaction
	for _, item := range a.controller.Items() {
		if item.ID == id {
			current = &item
			break
		}
	}
	if current == nil {
		return fmt.Errorf("transaction %d is not on the current page", id)
	}

	description, err := GetOptionalText(a.reader, "Description", current.Description, os.Stdout)
	if err != nil {
		return err
	}
	amount, err := GetOptionalText(a.reader, "Amount", current.Amount.String(), os.Stdout)
	if err != nil {
		return err
	}
	category, err := GetOptionalText(a.reader, "Category", current.Category, os.Stdout)
	if err != nil {
		return err
	}
	typ, err := GetOptionalText(a.reader, "Type", string(current.Type), os.Stdout)
	if err != nil {
		return err
	}
	date, err := GetOptionalText(a.reader, "Date", current.Date.String(), os.Stdout)
	if err != nil {
		return err
	}

	draft := models.Draft{
		Description: description,
		Amount:      amount,
		Category:    category,
		Type:        models.Type(typ),
		Date:        date,
	}
	record, err := draft.Validate()
	if err != nil {
		return err
	}

	if err := a.controller.Update(ctx, id, record); err != nil {
		return err
	}
	fmt.Println("Updated.")
	return nil
}

// Delete removes a transaction. Deleting something another session already
// removed is not an error.
func (a *App) Delete(ctx context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("usage: del <id>")
	}
	if err := a.controller.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

// Totals shows income, expense, and balance for the active filter set,
// computed server-side over the full filtered set.
func (a *App) Totals(ctx context.Context) error {
	totals, err := a.controller.Overview(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Income:  %s\nExpense: %s\nBalance: %s\nCount:   %d\n",
		totals.Income, totals.Expense, formatBalance(totals.Balance), totals.Count)
	return nil
}

// formatBalance renders a signed cent value as a decimal. Balances can go
// negative, unlike individual amounts.
func formatBalance(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Export downloads the filtered set as CSV into the export directory.
func (a *App) Export(ctx context.Context) error {
	data, err := a.controller.Export(ctx)
	if err != nil {
		return err
	}

	dir, err := filex.EnsureSubDir(a.config.ExportDir)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("transactions-%s.csv", time.Now().Format("20060102-150405"))
	path, err := filex.WriteExport(dir, name, data)
	if err != nil {
		return err
	}
	fmt.Println("Saved", path)
	return nil
}

func (a *App) printItems() {
	items := a.controller.Items()
	if len(items) == 0 {
		fmt.Println("No transactions found.")
		return
	}
	for _, item := range items {
		fmt.Println(formatItem(item))
	}
	fmt.Printf("Page %d of %d\n", a.controller.Page(), a.controller.TotalPages())
}
