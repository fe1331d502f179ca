package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/docent/internal/app"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	prefsPath   string
	userID      string
	pollSeconds int
}

func (g *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		UserID:     g.userID,
		PollEvery:  g.pollSeconds,
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docent: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "docent",
		Short:         "Museum visit companion for the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "override config path (optional)")
	pf.StringVar(&flags.prefsPath, "prefs", "", "override preferences path (optional)")
	pf.StringVar(&flags.userID, "user", "", "visitor ID (overrides config and DOCENT_USER_ID)")
	pf.IntVar(&flags.pollSeconds, "poll", 0, "catalogue refresh interval in seconds (optional)")

	root.AddCommand(syncCmd(flags))
	root.AddCommand(queueCmd(flags))
	root.AddCommand(logoutCmd(flags))
	root.AddCommand(devserverCmd())
	return root
}
