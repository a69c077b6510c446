package main

import (
    "context"
    "fmt"
    "strings"

    "github.com/spf13/cobra"

    "github.com/iliyamo/table-reservation/internal/model"
    "github.com/iliyamo/table-reservation/internal/utils"
)

func newStaffCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "staff",
        Short: "Manage host stand accounts",
    }
    cmd.AddCommand(newStaffAddCmd())
    return cmd
}

func newStaffAddCmd() *cobra.Command {
    var email, password, role string

    c := &cobra.Command{
        Use:   "add",
        Short: "Add a staff account",
        RunE: func(cmd *cobra.Command, args []string) error {
            role = strings.ToUpper(role)
            if role != model.RoleHost && role != model.RoleManager {
                return fmt.Errorf("role must be %s or %s", model.RoleHost, model.RoleManager)
            }
            ctx := context.Background()
            a, err := newApp(ctx, false)
            if err != nil {
                return err
            }
            defer a.Close()
            if a.db == nil {
                return fmt.Errorf("staff add needs STORE=mysql")
            }

            hash, err := utils.HashPassword(password, a.cfg.BcryptCost)
            if err != nil {
                return err
            }
            st := model.Staff{Email: email, PasswordHash: hash, Role: role, IsActive: true}
            if err := a.staff.CreateStaff(ctx, &st); err != nil {
                return err
            }
            fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (id %d)\n", role, st.Email, st.ID)
            return nil
        },
    }

    c.Flags().StringVar(&email, "email", "", "login email")
    c.Flags().StringVar(&password, "password", "", "password")
    c.Flags().StringVar(&role, "role", model.RoleHost, "HOST or MANAGER")
    _ = c.MarkFlagRequired("email")
    _ = c.MarkFlagRequired("password")
    return c
}
