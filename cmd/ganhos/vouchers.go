package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ganhos/internal/cli"
	"ganhos/internal/core"
)

type voucherFlags struct {
	taxNumber   string
	requestCode string
	date        string
	value       string
	start       string
	destination string
}

func (f *voucherFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.taxNumber, "tax-number", "", "tax number of the receipt")
	fs.StringVar(&f.requestCode, "request-code", "", "request code; its first three characters are the category")
	fs.StringVar(&f.date, "date", "", "voucher date YYYY-MM-DD (default: today)")
	fs.StringVar(&f.value, "value", "", "amount, e.g. 42,50")
	fs.StringVar(&f.start, "start", "", "trip start")
	fs.StringVar(&f.destination, "destination", "", "trip destination")
}

// apply overlays the flags the user set on in.
func (f *voucherFlags) apply(fs *pflag.FlagSet, in core.VoucherInput) (core.VoucherInput, error) {
	if fs.Changed("tax-number") {
		in.TaxNumber = f.taxNumber
	}
	if fs.Changed("request-code") {
		in.RequestCode = f.requestCode
	}
	if fs.Changed("start") {
		in.Start = f.start
	}
	if fs.Changed("destination") {
		in.Destination = f.destination
	}
	if fs.Changed("value") {
		v, err := parseMoneyFlag("value", f.value)
		if err != nil {
			return in, err
		}
		in.Value = v
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

func vouchersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vouchers",
		Aliases: []string{"v"},
		Short:   "List and edit vouchers",
	}
	cmd.AddCommand(vouchersListCmd(), vouchersAddCmd(), vouchersUpdateCmd(), vouchersDeleteCmd())
	return cmd
}

func vouchersListCmd() *cobra.Command {
	var anchor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the vouchers of a billing period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := loadWindow(ctx, app.Vouchers, anchor); err != nil {
					return err
				}
				return printVouchers(cmd, app)
			})
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "any date inside the period to show (default: today)")
	return cmd
}

func printVouchers(cmd *cobra.Command, app *cli.App) error {
	out := cmd.OutOrStdout()
	view := app.Vouchers.View()
	fmt.Fprintln(out, cli.FormatTitle("Vouchers "+view.Window.Label()))
	if len(view.Filtered) == 0 {
		fmt.Fprintln(out, cli.SubtitleStyle.Render("No vouchers in this period."))
		return nil
	}
	if err := writeVoucherTable(out, view.Filtered); err != nil {
		return err
	}
	writeTotals(out, view.Window, view.Total, view.Categories())
	return nil
}

func vouchersAddCmd() *cobra.Command {
	var f voucherFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a voucher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.apply(cmd.Flags(), core.VoucherInput{})
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := app.Vouchers.Create(ctx, in); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Voucher added: "+in.Value.String()))
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func vouchersUpdateCmd() *cobra.Command {
	var f voucherFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a voucher; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				app.Vouchers.Reload(ctx)
				cur, ok := app.Vouchers.Get(id)
				if !ok {
					return fmt.Errorf("voucher %s not found", id)
				}
				in, err := f.apply(cmd.Flags(), cur.Input())
				if err != nil {
					return err
				}
				if err := app.Vouchers.Update(ctx, id, in); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Voucher "+id+" updated"))
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func vouchersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a voucher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				app.Vouchers.Reload(ctx)
				if err := app.Vouchers.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Voucher "+args[0]+" deleted"))
				return nil
			})
		},
	}
}
