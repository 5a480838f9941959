package main

import (
	"context"
	"os"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/voxhall/voxhall/server/cli"
	"github.com/voxhall/voxhall/server/logformatter"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/multierr"
)

const gitDescribe string = "v0.0.0"

func start(ctx context.Context, log logger.Logger, args []string) error {
	err := cli.Exec(ctx, cli.Props{
		Log:     log,
		Version: gitDescribe,
		Args:    args,
	})

	return errors.Trace(err)
}

func main() {
	log := logger.New().
		WithConfig(
			logger.NewConfig(logger.ConfigMap{
				"**:ws":        logger.LevelWarn,
				"**:wss":       logger.LevelWarn,
				"**:dispatch":  logger.LevelInfo,
				"**:chat":      logger.LevelInfo,
				"**:presence":  logger.LevelInfo,
				"**:signaling": logger.LevelWarn,
				"**:store":     logger.LevelInfo,
				"":             logger.LevelInfo,
			}),
		).
		WithConfig(logger.NewConfigFromString(os.Getenv("VOXHALL_LOG"))).
		WithFormatter(logformatter.New()).
		WithNamespaceAppended("main")

	err := start(context.Background(), log, os.Args[1:])

	if multierr.Is(err, pflag.ErrHelp) {
		os.Exit(1)
	} else if err != nil {
		log.Error("Command error", errors.Trace(err), nil)
		os.Exit(1)
	}
}
