package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nojinx/ssm/core/audit"
)

func (cli *commandLine) newPromoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "promote ROLL...",
		Short: "Move the given students to their next semester",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.promote(cmd.Context(), args)
		},
	}
}

func (cli *commandLine) promote(ctx context.Context, rolls []string) error {
	n, err := cli.studentSvc.Promote(ctx, rolls)
	if err != nil {
		return err
	}

	cli.record(ctx, audit.Event{
		Action:     audit.ActionPromote,
		ObjectType: "student",
		Message:    "promoted by operator",
		Extra:      map[string]interface{}{"requested": len(rolls), "promoted": n},
	})
	fmt.Fprintf(cli.out, "Promoted %d of %d student(s).\n", n, len(rolls))
	return nil
}
