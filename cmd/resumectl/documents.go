package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/resume-client/documents"
	"github.com/jrsteele09/resume-client/guard"
	"github.com/spf13/cobra"
)

type generateFunc func(*documents.Service, context.Context, documents.Request) (*documents.Result, error)

func (c *cli) documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Generate résumés and cover letters, list past documents",
	}

	cmd.AddCommand(
		c.generateCmd("resume", "Generate a résumé tailored to a job", guard.RouteGenerateResume, (*documents.Service).GenerateResume),
		c.generateCmd("cover-letter", "Generate a cover letter for a job", guard.RouteGenerateCoverLetter, (*documents.Service).GenerateCoverLetter),
		c.listDocumentsCmd(),
	)
	return cmd
}

func (c *cli) generateCmd(use, short, r string, generate generateFunc) *cobra.Command {
	var req documents.Request

	cmd := &cobra.Command{
		Use:         use,
		Short:       short,
		Annotations: route(r),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := generate(c.app.Documents, cmd.Context(), req)
			if err != nil {
				return c.expired(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Document: %s (%s)\n", res.ID, res.Status)
			if res.Document != nil && res.Document.Title != "" {
				fmt.Fprintf(out, "Title:    %s\n", res.Document.Title)
			}
			if u := c.app.Session.State().User; u != nil && !u.IsPremium {
				fmt.Fprintf(out, "Credits:  %d left\n", u.CreditsRemaining)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.JobDescription, "job-description", "", "Job description to tailor the document to")
	cmd.Flags().StringVar(&req.JobTitle, "job-title", "", "Job title")
	cmd.Flags().StringVar(&req.CompanyName, "company", "", "Company name")
	cmd.Flags().StringVar(&req.TemplateID, "template", documents.DefaultTemplate, "Template ID")
	cmd.Flags().StringVar(&req.Tone, "tone", "", "professional, casual or creative")
	cmd.Flags().StringVar(&req.Length, "length", "", "short, medium or long")
	_ = cmd.MarkFlagRequired("job-description")
	return cmd
}

func (c *cli) listDocumentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "List generated documents, newest first",
		Annotations: route(guard.RouteHistory),
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := c.app.Documents.List(cmd.Context())
			if err != nil {
				return c.expired(err)
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tCREATED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Type, d.Title, d.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}
