package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/staff"
)

func (cli *commandLine) newAddStaffCommand() *cobra.Command {
	var id, name, email string
	var isAdmin bool
	cmd := &cobra.Command{
		Use:   "addstaff --id ID --name NAME --email EMAIL [--admin]",
		Short: "Create a staff member, or update it when the ID exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || name == "" || email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addStaff(cmd.Context(), id, name, email, pwd, isAdmin)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "The staff ID.")
	cmd.Flags().StringVar(&name, "name", "", "The staff member's full name.")
	cmd.Flags().StringVar(&email, "email", "", "The staff member's email. The password will be prompted next.")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant admin rights.")
	return cmd
}

// addStaff updates or creates an active staff.Staff
func (cli *commandLine) addStaff(ctx context.Context, id, name, email, pwd string, isAdmin bool) error {
	s, err := cli.staffSvc.UpdateOrCreate(ctx, staff.Staff{
		ID:       core.CleanString(id),
		Name:     core.CleanString(name),
		Email:    core.CleanString(email, true /* lower */),
		IsActive: true,
		IsAdmin:  isAdmin,
	}, pwd)
	if err != nil {
		return err
	}

	cli.record(ctx, audit.Event{
		Action:     audit.ActionStaffCreate,
		ObjectType: "staff",
		ObjectID:   s.ID,
		Message:    "saved by operator",
		Extra:      map[string]interface{}{"is_admin": s.IsAdmin},
	})
	return nil
}
