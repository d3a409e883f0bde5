package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ganhos/internal/cli"
	"ganhos/internal/core"
)

type expenseFlags struct {
	value         string
	category      string
	date          string
	description   string
	paymentMethod string
}

func (f *expenseFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.value, "value", "", "amount, e.g. 12,30")
	fs.StringVar(&f.category, "category", "", "one of "+categoryList())
	fs.StringVar(&f.date, "date", "", "expense date YYYY-MM-DD (default: today)")
	fs.StringVar(&f.description, "description", "", "free text, up to 200 characters")
	fs.StringVar(&f.paymentMethod, "payment-method", "", "how it was paid")
}

func (f *expenseFlags) apply(fs *pflag.FlagSet, in core.ExpenseInput) (core.ExpenseInput, error) {
	if fs.Changed("value") {
		v, err := parseMoneyFlag("value", f.value)
		if err != nil {
			return in, err
		}
		in.Value = v
	}
	if fs.Changed("category") {
		c, err := core.ParseExpenseCategory(f.category)
		if err != nil {
			return in, fmt.Errorf("invalid --category %q: want one of %s", f.category, categoryList())
		}
		in.Category = c
	}
	if fs.Changed("description") {
		in.Description = f.description
	}
	if fs.Changed("payment-method") {
		in.PaymentMethod = f.paymentMethod
	}
	if fs.Changed("date") || in.Date.IsZero() {
		d, err := parseDateFlag("date", f.date)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	return in, nil
}

func categoryList() string {
	cats := core.ExpenseCategories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"e"},
		Short:   "List and edit expenses",
	}
	cmd.AddCommand(expensesListCmd(), expensesSummaryCmd(), expensesAddCmd(), expensesUpdateCmd(), expensesDeleteCmd())
	return cmd
}

func expensesListCmd() *cobra.Command {
	var anchor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the expenses of a billing period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := loadWindow(ctx, app.Expenses, anchor); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				view := app.Expenses.View()
				fmt.Fprintln(out, cli.FormatTitle("Expenses "+view.Window.Label()))
				if len(view.Filtered) == 0 {
					fmt.Fprintln(out, cli.SubtitleStyle.Render("No expenses in this period."))
					return nil
				}
				rows := make([][]string, 0, len(view.Filtered))
				for _, e := range view.Filtered {
					rows = append(rows, []string{e.ID, e.Date.ISO(), string(e.Category), e.Description, e.Value.String()})
				}
				if err := writeTable(out, []string{"ID", "Date", "Category", "Description", "Value"}, rows); err != nil {
					return err
				}
				writeTotals(out, view.Window, view.Total, view.Categories())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "any date inside the period to show (default: today)")
	return cmd
}

func expensesSummaryCmd() *cobra.Command {
	var anchor string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the server-side category totals of a billing period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := loadWindow(ctx, app.Expenses, anchor); err != nil {
					return err
				}
				sum := app.Expenses.Summary()
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle("Expense summary "+app.Expenses.RangeLabel()))
				names := make([]string, 0, len(sum.Summary))
				for name := range sum.Summary {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name, sum.Summary[name].String()})
				}
				if err := writeTable(out, []string{"Category", "Amount"}, rows); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s %s\n", cli.BoldStyle.Render("Total:"), sum.Total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "any date inside the period to show (default: today)")
	return cmd
}

func expensesAddCmd() *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.apply(cmd.Flags(), core.ExpenseInput{})
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := app.Expenses.Create(ctx, in); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Expense added: "+in.Value.String()))
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	return cmd
}

// Expenses are loaded per period, so editing one outside the current period
// needs --anchor pointing at its date.
func expensesUpdateCmd() *cobra.Command {
	var (
		f      expenseFlags
		anchor string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an expense; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := loadWindow(ctx, app.Expenses, anchor); err != nil {
					return err
				}
				cur, ok := app.Expenses.Get(id)
				if !ok {
					return fmt.Errorf("expense %s not found in %s", id, app.Expenses.RangeLabel())
				}
				in, err := f.apply(cmd.Flags(), cur.Input())
				if err != nil {
					return err
				}
				if err := app.Expenses.Update(ctx, id, in); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Expense "+id+" updated"))
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().StringVar(&anchor, "anchor", "", "any date inside the expense's period (default: today)")
	return cmd
}

func expensesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				app.Expenses.Reload(ctx)
				if err := app.Expenses.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Expense "+args[0]+" deleted"))
				return nil
			})
		},
	}
}
