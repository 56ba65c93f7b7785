package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/resume-client/guard"
	"github.com/jrsteele09/resume-client/users"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var (
		creds         users.Credentials
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in and store the session",
		Annotations: route(guard.RouteLogin),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd, creds.Password, passwordStdin)
			if err != nil {
				return err
			}
			creds.Password = password
			return c.app.Session.Login(cmd.Context(), creds)
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var (
		reg           users.Registration
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account and sign in",
		Annotations: route(guard.RouteRegister),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd, reg.Password, passwordStdin)
			if err != nil {
				return err
			}
			reg.Password = password
			if !cmd.Flags().Changed("confirm-password") {
				reg.ConfirmPassword = password
			}
			return c.app.Session.Register(cmd.Context(), reg)
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (8+ characters, an upper-case letter and a digit)")
	cmd.Flags().StringVar(&reg.ConfirmPassword, "confirm-password", "", "Password confirmation (defaults to --password)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			c.app.Session.Logout()
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			state := c.app.Session.State()

			fmt.Fprintf(out, "Status:   %s\n", state.Status())
			if !state.IsAuthenticated {
				return
			}
			fmt.Fprintf(out, "User:     %s <%s>\n", state.User.DisplayName(), state.User.Email)
			if state.User.IsPremium {
				fmt.Fprintln(out, "Credits:  unlimited (premium)")
			} else {
				fmt.Fprintf(out, "Credits:  %d\n", state.User.CreditsRemaining)
			}
			if exp, ok := c.app.Session.AccessTokenExpiry(); ok {
				fmt.Fprintf(out, "Token:    expires %s (in %s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
			}
		},
	}
}
