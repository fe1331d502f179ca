package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/five82/docent/internal/app"
	"github.com/five82/docent/internal/devserver"
)

func openEnv(cmd *cobra.Command, flags *globalFlags) (*app.Env, error) {
	opts := flags.options()
	opts.LogToStderr = true
	return app.Open(cmd.Context(), opts)
}

func syncCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay operations saved while offline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			report, err := env.Session.Sync(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sent %d, applied %d, rejected %d, requeued %d\n",
				report.Sent, report.Applied, len(report.Rejected), report.Requeued)
			for _, r := range report.Rejected {
				fmt.Fprintf(out, "  rejected %s %s: %s\n", r.Operation.Kind, r.Operation.Payload.ExhibitID, r.Reason)
			}
			return nil
		},
	}
}

func queueCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List operations waiting to be synced",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			ops := env.Session.Queue.PeekAll()
			if len(ops) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending operations.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tEXHIBIT\tRATING\tQUEUED")
			for _, op := range ops {
				rating := "-"
				if op.Payload.Rating > 0 {
					rating = fmt.Sprint(op.Payload.Rating)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", op.ID, op.Kind, op.Payload.ExhibitID, rating,
					op.LocalTimestamp.Local().Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the local cache and any unsynced operations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			pending := env.Session.Queue.Outstanding()
			env.Session.Logout()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s; discarded %d unsynced operations.\n", env.Config.UserID, pending)
			return nil
		},
	}
}

func devserverCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory museum API for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(os.Stderr, "", log.LstdFlags)
			srv := devserver.New(devserver.Options{Logger: logger})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	return cmd
}
