package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/news"
)

func (cli *commandLine) newDisableExpiredNewsCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "disableexpirednews [--dry-run]",
		Short: "Deactivate the active news whose end date has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.disableExpiredNews(cmd.Context(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list the news that would be deactivated.")
	return cmd
}

func (cli *commandLine) disableExpiredNews(ctx context.Context, dryRun bool) error {
	today := core.DateOf(news.NowFunc())
	expired, err := cli.newsSvc.DisableExpired(ctx, today, dryRun)
	if err != nil {
		return err
	}

	if len(expired) == 0 {
		fmt.Fprintln(cli.out, "No expired news found.")
		return nil
	}
	for _, n := range expired {
		fmt.Fprintf(cli.out, "- %s (ended %s): %s\n", n.ID, n.EndDate, n.ContentShort())
	}
	if dryRun {
		fmt.Fprintf(cli.out, "[DRY RUN] %d news would be deactivated.\n", len(expired))
		return nil
	}

	for _, n := range expired {
		cli.record(ctx, audit.Event{
			Action:     audit.ActionNewsExpire,
			ObjectType: "news",
			ObjectID:   n.ID,
			Message:    n.ContentShort(),
		})
	}
	fmt.Fprintf(cli.out, "Deactivated %d news.\n", len(expired))
	return nil
}
