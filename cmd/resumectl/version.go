package main

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/resume-client/internal/config"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{annotationSkipSetup: ""},
		Args:        cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			appName := config.NewWithFile(nil).GetAppName()
			banner := figure.NewFigure(appName, "cybermedium", true)
			fmt.Fprintln(cmd.OutOrStdout(), banner.String())
			fmt.Fprintf(cmd.OutOrStdout(), "resumectl version %s\n", version)
		},
	}
}
