package main

import (
    "context"
    "fmt"

    "github.com/spf13/cobra"

    "github.com/iliyamo/table-reservation/internal/worker"
)

// newSweepCmd runs each background task once, for cron-driven deployments
// that do not run workers inside serve.
func newSweepCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "sweep",
        Short: "Expire holds and READY walk-ins and send due reminders once",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            a, err := newApp(ctx, true)
            if err != nil {
                return err
            }
            defer a.Close()

            _, holds, _, queue, reminders := a.services()
            group := worker.Standard(a.booking, worker.Services{Holds: holds, Queue: queue, Reminders: reminders}, a.deps.Locker, a.log)
            for _, r := range group.Runners {
                n := r.Tick(ctx)
                fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", r.Name, n)
            }
            return nil
        },
    }
}
