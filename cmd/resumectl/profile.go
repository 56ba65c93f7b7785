package main

import (
	"fmt"
	"io"

	"github.com/jrsteele09/resume-client/guard"
	"github.com/jrsteele09/resume-client/users"
	"github.com/spf13/cobra"
)

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "get",
		Short:       "Show your profile",
		Annotations: route(guard.RouteProfile),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.app.Profile.Get(cmd.Context())
			if err != nil {
				return c.expired(err)
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	})

	var fullName, phone, location, website, linkedIn, gitHub, summary string
	update := &cobra.Command{
		Use:         "update",
		Short:       "Change profile fields; only the flags given are sent",
		Annotations: route(guard.RouteProfile),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd users.ProfileUpdate
			for flag, field := range map[string]struct {
				dst **string
				val *string
			}{
				"name":     {&upd.FullName, &fullName},
				"phone":    {&upd.Phone, &phone},
				"location": {&upd.Location, &location},
				"website":  {&upd.Website, &website},
				"linkedin": {&upd.LinkedIn, &linkedIn},
				"github":   {&upd.GitHub, &gitHub},
				"summary":  {&upd.Summary, &summary},
			} {
				if cmd.Flags().Changed(flag) {
					*field.dst = field.val
				}
			}
			if upd == (users.ProfileUpdate{}) {
				return fmt.Errorf("nothing to update, pass at least one field flag")
			}

			u, err := c.app.Profile.Update(cmd.Context(), upd)
			if err != nil {
				return c.expired(err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "✓ Profile updated")
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
	update.Flags().StringVar(&fullName, "name", "", "Full name")
	update.Flags().StringVar(&phone, "phone", "", "Phone number")
	update.Flags().StringVar(&location, "location", "", "Location")
	update.Flags().StringVar(&website, "website", "", "Website URL")
	update.Flags().StringVar(&linkedIn, "linkedin", "", "LinkedIn URL")
	update.Flags().StringVar(&gitHub, "github", "", "GitHub URL")
	update.Flags().StringVar(&summary, "summary", "", "Professional summary")
	cmd.AddCommand(update)

	return cmd
}

func printUser(w io.Writer, u *users.User) {
	fmt.Fprintf(w, "Name:      %s\n", u.DisplayName())
	fmt.Fprintf(w, "Email:     %s\n", u.Email)
	for _, field := range []struct{ label, value string }{
		{"Phone", u.Phone},
		{"Location", u.Location},
		{"Website", u.Website},
		{"LinkedIn", u.LinkedIn},
		{"GitHub", u.GitHub},
		{"Summary", u.Summary},
	} {
		if field.value != "" {
			fmt.Fprintf(w, "%-10s %s\n", field.label+":", field.value)
		}
	}
	if u.IsPremium {
		fmt.Fprintln(w, "Plan:      premium")
	} else {
		fmt.Fprintf(w, "Credits:   %d\n", u.CreditsRemaining)
	}
}
