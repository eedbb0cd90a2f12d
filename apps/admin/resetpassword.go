package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/staff"
)

func (cli *commandLine) newResetPasswordCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "resetpassword --id STAFF_ID|ROLL_NUMBER",
		Short: "Reset the password of a staff member or a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
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
			return cli.resetPassword(cmd.Context(), id, pwd)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "The staff ID or student roll number. The password will be prompted next.")
	return cmd
}

// resetPassword looks id up among staff members first, then students.
func (cli *commandLine) resetPassword(ctx context.Context, id, pwd string) error {
	objectType := "staff"
	err := cli.staffSvc.SetPassword(ctx, id, pwd)
	if errors.Cause(err) == staff.ErrNotFound {
		objectType = "student"
		err = cli.studentSvc.SetPassword(ctx, id, pwd)
	}
	if err != nil {
		return err
	}

	cli.record(ctx, audit.Event{
		Action:     audit.ActionPasswordChange,
		ObjectType: objectType,
		ObjectID:   id,
		Message:    "password reset by operator",
	})
	return nil
}
