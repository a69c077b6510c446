package main

import (
    "context"
    "fmt"

    "github.com/spf13/cobra"

    "github.com/iliyamo/table-reservation/internal/database"
)

func newMigrateCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "migrate",
        Short: "Create or update the MySQL schema",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx := context.Background()
            a, err := newApp(ctx, false)
            if err != nil {
                return err
            }
            defer a.Close()
            if a.db == nil {
                return fmt.Errorf("migrate needs STORE=mysql")
            }
            if err := database.Migrate(ctx, a.db); err != nil {
                return err
            }
            fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
            return nil
        },
    }
}
