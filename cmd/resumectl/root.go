package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jrsteele09/resume-client/guard"
	"github.com/jrsteele09/resume-client/internal/app"
	"github.com/jrsteele09/resume-client/internal/config"
	"github.com/jrsteele09/resume-client/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	annotationRoute     = "route"
	annotationSkipSetup = "skip-setup"
)

// cli holds what the persistent pre-run builds for the command that runs.
type cli struct {
	baseURL   string
	storePath string
	debug     bool

	app        *app.App
	redirected string
}

// flagConfig lets command line flags win over environment and file values.
type flagConfig struct {
	config.Config
	baseURL   string
	storePath string
}

func (f flagConfig) GetBaseURL() string {
	if f.baseURL != "" {
		return strings.TrimRight(f.baseURL, "/")
	}
	return f.Config.GetBaseURL()
}

func (f flagConfig) GetStorePath() string {
	if f.storePath != "" {
		return f.storePath
	}
	return f.Config.GetStorePath()
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "resumectl",
		Short:         "Résumé builder client",
		Long:          "resumectl signs in to the résumé builder API and drives profile editing and document generation from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, skip := cmd.Annotations[annotationSkipSetup]; skip {
				return nil
			}
			return c.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&c.baseURL, "base-url", "", "API base URL (overrides RESUME_API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&c.storePath, "store", "", "Session store file (overrides RESUME_STORE_PATH)")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.statusCmd(),
		c.profileCmd(),
		c.documentsCmd(),
		versionCmd(),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	base, err := config.New()
	if err != nil {
		return err
	}
	cfg := flagConfig{Config: base, baseURL: c.baseURL, storePath: c.storePath}

	setupLogging(cmd.ErrOrStderr(), cfg.GetLogLevel(), c.debug)

	a, err := app.New(cfg, cfg, app.WithNavigator(func(route string) {
		c.redirected = route
	}))
	if err != nil {
		return err
	}
	a.Bus.Subscribe(printNotification(cmd.ErrOrStderr()))
	c.app = a

	if err := a.Session.CheckSession(cmd.Context()); err != nil {
		log.Debug().Err(err).Msg("stored session rejected")
	}
	return c.checkRoute(cmd)
}

// checkRoute runs the route guard for commands that declare a route.
func (c *cli) checkRoute(cmd *cobra.Command) error {
	route, ok := cmd.Annotations[annotationRoute]
	if !ok {
		return nil
	}

	decision := guard.Check(c.app.Session, route)
	if decision.Allow {
		return nil
	}
	if decision.Redirect == guard.RouteLogin {
		return fmt.Errorf("not logged in, run `resumectl login` first")
	}
	return fmt.Errorf("already logged in as %s, run `resumectl logout` first", c.app.Session.State().User.DisplayName())
}

// expired reports whether the last call ended in a forced logout and turns it
// into the message the user needs.
func (c *cli) expired(err error) error {
	if c.redirected == guard.RouteLogin {
		return fmt.Errorf("session expired, run `resumectl login` again")
	}
	return err
}

func setupLogging(w io.Writer, level string, debug bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}

func printNotification(w io.Writer) notify.Handler {
	return func(n notify.Notification) {
		mark := "-"
		switch n.Level {
		case notify.LevelSuccess:
			mark = "✓"
		case notify.LevelError:
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, n.Message)
	}
}

func route(r string) map[string]string {
	return map[string]string{annotationRoute: r}
}

// readSecret returns flagValue, or the first line of stdin when fromStdin is set.
func readSecret(cmd *cobra.Command, flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		return flagValue, nil
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimRight(line, "\r"), nil
}
