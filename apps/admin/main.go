package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nojinx/ssm/apps/shared"
	"github.com/nojinx/ssm/core"
	logsvc "github.com/nojinx/ssm/services/logger"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("ADMIN"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up storage & services; migrations are left to the migrate command
	deps, err := shared.NewDeps(context.Background(), conf, logger, false /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}

	cli := newCommandLine(deps, logger)
	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		code = 1
	}

	if err := deps.Close(); err != nil {
		logger.Error("closing storage", err)
	}
	_ = logger.Sync()
	os.Exit(code)
}
