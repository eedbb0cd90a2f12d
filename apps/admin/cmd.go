package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nojinx/ssm/apps/shared"
	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/news"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate requires database.engine=postgres")
)

type commandLine struct {
	db         *sql.DB // nil with in-memory storage
	staffSvc   staff.ServiceInterface
	studentSvc student.ServiceInterface
	newsSvc    news.ServiceInterface
	auditSvc   *audit.Service
	logger     core.Logger
	out        io.Writer
}

func newCommandLine(deps *shared.Deps, logger core.Logger) *commandLine {
	cli := &commandLine{
		staffSvc:   deps.StaffSvc,
		studentSvc: deps.StudentSvc,
		newsSvc:    deps.NewsSvc,
		auditSvc:   deps.AuditSvc,
		logger:     logger,
		out:        os.Stdout,
	}
	if db := deps.DB(); db != nil {
		cli.db = db.DB
	}
	return cli
}

// run executes the command line args (program name included).
func (cli *commandLine) run(args []string) error {
	root := cli.newRootCommand()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "SSM operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.newMigrateCommand(),
		cli.newAddStaffCommand(),
		cli.newResetPasswordCommand(),
		cli.newDisableExpiredNewsCommand(),
		cli.newPromoteCommand(),
	)
	return root
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

func (cli *commandLine) record(ctx context.Context, ev audit.Event) {
	cli.auditSvc.Record(ctx, audit.Actor{Type: audit.ActorSystem, Name: "admin"}, ev)
}
