package main

import (
    "github.com/spf13/cobra"

    "github.com/iliyamo/table-reservation/internal/config"
)

func newRootCmd() *cobra.Command {
    root := &cobra.Command{
        Use:           "tablebook",
        Short:         "Restaurant table holds, reservations and walk-in queue",
        SilenceUsage:  true,
        SilenceErrors: true,
        PersistentPreRun: func(cmd *cobra.Command, args []string) {
            // .env is optional; real environment variables win.
            config.LoadDotEnv()
        },
    }

    root.AddCommand(newServeCmd())
    root.AddCommand(newMigrateCmd())
    root.AddCommand(newSweepCmd())
    root.AddCommand(newStaffCmd())
    return root
}
