package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ganhos/internal/cli"
	"ganhos/internal/remote"
)

// passwordFrom prefers the flag and falls back to GANHOS_PASSWORD so the
// secret can stay out of shell history.
func passwordFrom(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("GANHOS_PASSWORD"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("password required: pass --password or set GANHOS_PASSWORD")
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				sess, err := app.Auth.Login(ctx, email, pw)
				if err != nil {
					if msg := app.Auth.ErrMessage(); msg != "" {
						return errors.New(msg)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Welcome, "+sess.User.FirstName))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default: GANHOS_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := app.Auth.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Signed out"))
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *cli.App) error {
				sess, err := app.Auth.Require()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", cli.BoldStyle.Render(sess.User.Name), sess.User.Email)
				return nil
			})
		},
	}
}

func registerCmd() *cobra.Command {
	var req remote.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFrom(req.Password)
			if err != nil {
				return err
			}
			req.Password = pw
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = pw
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				msg, err := app.Auth.Register(ctx, req)
				if err != nil {
					return err
				}
				if msg == "" {
					msg = "Account created"
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.CPF, "cpf", "", "CPF number")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (default: GANHOS_PASSWORD)")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "password confirmation (default: same as password)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
